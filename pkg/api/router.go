package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/config"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/middleware"
	"github.com/containerhouse/leadrelay/pkg/ratelimit"
	"github.com/containerhouse/leadrelay/pkg/services"
)

// Dependencies are the collaborators the router wires into handlers
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Limiter     ratelimit.Limiter // nil disables rate limiting
	LeadService services.LeadService
	Notifier    services.Notifier
	Brevo       brevo.Client
}

// NewRouter creates and configures the Gin router
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.CORS())

	handlers := NewHandlers(deps.LeadService, deps.Config, deps.Logger, deps.Metrics)

	router.GET("/health", handlers.HealthCheck)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	webhook := []gin.HandlerFunc{}
	if deps.Limiter != nil {
		webhook = append(webhook, middleware.RateLimit(deps.Limiter, deps.Metrics, deps.Logger))
	}
	webhook = append(webhook,
		middleware.ShopifySignature(deps.Config.Webhook.Secret, deps.Logger),
		handlers.HandleCustomerWebhook,
	)
	router.POST("/webhooks/shopify/customers", webhook...)

	if deps.Config.DebugEndpoint {
		debug := NewDebugHandlers(deps.Brevo, deps.Notifier, deps.Config, deps.Logger)
		group := router.Group("/debug")
		group.GET("/config", debug.Config)
		group.POST("/notify", debug.SendTest)
		group.GET("/brevo/account", debug.Account)
		group.GET("/brevo/events", debug.Events)
		group.GET("/brevo/blocked", debug.Blocked)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
