package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/config"
	apperrors "github.com/containerhouse/leadrelay/pkg/errors"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/middleware"
	"github.com/containerhouse/leadrelay/pkg/models"
	"github.com/containerhouse/leadrelay/pkg/services"
)

// Handlers contains the webhook and health HTTP handlers
type Handlers struct {
	leadService services.LeadService
	config      *config.Config
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewHandlers creates a new Handlers instance
func NewHandlers(leadService services.LeadService, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Handlers {
	return &Handlers{
		leadService: leadService,
		config:      cfg,
		logger:      logger,
		metrics:     m,
	}
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// HandleCustomerWebhook processes customer create/update webhooks from Shopify.
// Once the payload is valid the answer is always 2xx so Shopify does not
// retry; stage failures are reported in the body.
func (h *Handlers) HandleCustomerWebhook(c *gin.Context) {
	log := h.logger.With(
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("topic", c.GetHeader("X-Shopify-Topic")),
	)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, middleware.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("Webhook body too large", zap.Int64("limit", tooLarge.Limit))
			h.respond(c, http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		log.Warn("Error reading request body", zap.Error(err))
		h.respond(c, http.StatusBadRequest, gin.H{"error": "Error reading request"})
		return
	}

	var event models.CustomerEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn("Error parsing JSON", zap.Error(err), zap.Int("bytes", len(body)))
		h.respond(c, http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	event.Email = strings.TrimSpace(event.Email)

	if err := event.Validate(); err != nil {
		var verr *apperrors.ErrValidation
		field := ""
		if errors.As(err, &verr) {
			field = verr.Field
		}
		log.Warn("Webhook missing required field", zap.String("field", field))
		h.respond(c, http.StatusBadRequest, gin.H{"error": "Missing required fields", "field": field})
		return
	}

	// The pipeline runs to completion even if Shopify hangs up, within its own budget
	ctx := context.WithoutCancel(c.Request.Context())
	if h.config.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.PipelineTimeout)
		defer cancel()
	}
	result := h.leadService.ProcessCustomer(ctx, event)

	status := h.config.Notify.StatusOK
	if result.Degraded() {
		status = h.config.Notify.StatusDegraded
	}
	h.respond(c, status, gin.H{
		"ok":             true,
		"customer_id":    result.CustomerID,
		"sync":           result.Sync,
		"notify":         result.Notify,
		"notify_skipped": result.NotifySkipped,
	})
}

func (h *Handlers) respond(c *gin.Context, status int, body gin.H) {
	h.metrics.Webhooks.WithLabelValues(strconv.Itoa(status)).Inc()
	c.JSON(status, body)
}
