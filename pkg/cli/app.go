package cli

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/containerhouse/leadrelay/pkg/api"
	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/clients/shopify"
	"github.com/containerhouse/leadrelay/pkg/config"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/ratelimit"
	"github.com/containerhouse/leadrelay/pkg/services"
)

// app holds the wired components shared by the subcommands
type app struct {
	config   *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	brevo    brevo.Client
	resolver services.MetafieldResolver
	notifier services.Notifier
	leads    services.LeadService
	limiter  ratelimit.Limiter
	closers  []func() error
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// loadApp reads the configuration and builds every client and service
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	a := &app{
		config:   cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		brevo:    brevo.NewClient(cfg.Brevo, logger),
	}

	shopifyClient := shopify.NewClient(cfg.Shopify, logger)
	a.resolver = services.NewMetafieldResolver(shopifyClient, cfg.Shopify.MetafieldNamespace, logger, m)
	a.notifier = services.NewNotifier(services.BuildTransports(cfg, a.brevo, logger), services.BuildEscalation(cfg, logger), logger, m)
	a.leads = services.NewLeadService(
		a.resolver,
		services.NewContactService(a.brevo, cfg.Brevo.ListIDs, logger, m),
		a.notifier,
		cfg,
		logger,
	)

	if cfg.RateLimit.Limit > 0 {
		if cfg.RateLimit.RedisURL != "" {
			limiter, err := ratelimit.NewRedisLimiter(ctx, cfg.RateLimit.RedisURL, cfg.RateLimit.Limit, cfg.RateLimit.Window)
			if err != nil {
				return nil, fmt.Errorf("failed to connect rate limit store: %w", err)
			}
			a.limiter = limiter
			a.closers = append(a.closers, limiter.Close)
		} else {
			a.limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}

	if !cfg.BrevoConfigured() {
		logger.Warn("BREVO_API_KEY is not set; contact upserts will fail")
	}
	if len(a.notifier.Transports()) == 0 {
		logger.Warn("No notification transport configured")
	}
	return a, nil
}

func (a *app) router() *gin.Engine {
	return api.NewRouter(api.Dependencies{
		Config:      a.config,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Gatherer:    a.registry,
		Limiter:     a.limiter,
		LeadService: a.leads,
		Notifier:    a.notifier,
		Brevo:       a.brevo,
	})
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Error closing resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
