package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/config"
	"github.com/containerhouse/leadrelay/pkg/services"
	"github.com/containerhouse/leadrelay/pkg/utils"
)

// DebugHandlers exposes operator tooling: masked config, test sends and
// Brevo delivery lookups
type DebugHandlers struct {
	brevoClient brevo.Client
	notifier    services.Notifier
	config      *config.Config
	logger      *zap.Logger
}

// NewDebugHandlers creates a new DebugHandlers instance
func NewDebugHandlers(brevoClient brevo.Client, notifier services.Notifier, cfg *config.Config, logger *zap.Logger) *DebugHandlers {
	return &DebugHandlers{
		brevoClient: brevoClient,
		notifier:    notifier,
		config:      cfg,
		logger:      logger,
	}
}

// MaskedConfig describes the configuration without revealing secrets
func MaskedConfig(cfg *config.Config, transports []string) gin.H {
	return gin.H{
		"environment":          cfg.Environment,
		"shopify_shop":         cfg.Shopify.ShopDomain,
		"shopify_token_mask":   utils.MaskSecret(cfg.Shopify.AccessToken),
		"brevo_key_mask":       utils.MaskSecret(cfg.Brevo.APIKey),
		"has_brevo_key":        cfg.BrevoConfigured(),
		"brevo_list_ids":       cfg.Brevo.ListIDs,
		"smtp_host":            cfg.SMTP.Host,
		"smtp_password_mask":   utils.MaskSecret(cfg.SMTP.Password),
		"twilio_enabled":       cfg.TwilioConfigured(),
		"webhook_secret_mask":  utils.MaskSecret(cfg.Webhook.Secret),
		"notify_primary":       cfg.Notify.Primary,
		"notify_transports":    transports,
		"notify_recipients":    len(cfg.Notify.Recipients),
		"notify_on_sync_error": cfg.Notify.OnSyncFailure,
		"rate_limit":           cfg.RateLimit.Limit,
		"rate_limit_window":    cfg.RateLimit.Window.String(),
		"rate_limit_shared":    cfg.RateLimit.RedisURL != "",
	}
}

// Config handles GET /debug/config
func (h *DebugHandlers) Config(c *gin.Context) {
	c.JSON(http.StatusOK, MaskedConfig(h.config, h.notifier.Transports()))
}

// Account handles GET /debug/brevo/account
func (h *DebugHandlers) Account(c *gin.Context) {
	h.proxy(c, h.brevoClient.Account)
}

// SendTest handles POST /debug/notify with body {"to": "..."}
func (h *DebugHandlers) SendTest(c *gin.Context) {
	var req struct {
		To string `json:"to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing 'to'"})
		return
	}

	result := h.notifier.Deliver(context.WithoutCancel(c.Request.Context()), services.BuildTestNotification(req.To))
	c.JSON(http.StatusOK, gin.H{"ok": result.Success, "result": result})
}

// Events handles GET /debug/brevo/events?email=
func (h *DebugHandlers) Events(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing 'email' parameter"})
		return
	}
	h.proxy(c, func(ctx context.Context) (brevo.Response, error) {
		return h.brevoClient.EmailEvents(ctx, email)
	})
}

// Blocked handles GET /debug/brevo/blocked?email=
func (h *DebugHandlers) Blocked(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing 'email' parameter"})
		return
	}
	h.proxy(c, func(ctx context.Context) (brevo.Response, error) {
		return h.brevoClient.BlockedContacts(ctx, email)
	})
}

// proxy relays a Brevo call; the upstream status is reported in the body
func (h *DebugHandlers) proxy(c *gin.Context, call func(ctx context.Context) (brevo.Response, error)) {
	resp, err := call(c.Request.Context())
	if err != nil {
		h.logger.Warn("Brevo debug call failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status_code":    resp.StatusCode,
		"ok":             resp.OK(),
		"response":       resp.JSON(),
		"brevo_key_mask": utils.MaskSecret(h.config.Brevo.APIKey),
	})
}
