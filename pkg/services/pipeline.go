package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/config"
	"github.com/containerhouse/leadrelay/pkg/models"
	"github.com/containerhouse/leadrelay/pkg/utils"
)

// Reasons for skipping the notification stage
const (
	SkipNoRecipients = "no_recipients"
	SkipSyncFailed   = "sync_failed"
	SkipRenderFailed = "render_failed"
)

// LeadService runs the enrich -> sync -> notify pipeline for a customer webhook
type LeadService interface {
	Enrich(ctx context.Context, event models.CustomerEvent) models.EnrichedProfile
	ProcessCustomer(ctx context.Context, event models.CustomerEvent) models.PipelineResult
}

type leadServiceImpl struct {
	resolver MetafieldResolver
	contacts ContactService
	notifier Notifier
	config   *config.Config
	logger   *zap.Logger
}

// NewLeadService creates a new lead service
func NewLeadService(
	resolver MetafieldResolver,
	contacts ContactService,
	notifier Notifier,
	config *config.Config,
	logger *zap.Logger,
) LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &leadServiceImpl{
		resolver: resolver,
		contacts: contacts,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// Enrich never fails: missing metafields become sentinels and an invalid phone is dropped
func (s *leadServiceImpl) Enrich(ctx context.Context, event models.CustomerEvent) models.EnrichedProfile {
	profile := models.EnrichedProfile{
		CustomerEvent: event,
		Metafields:    s.resolver.Resolve(ctx, event.ID.String()),
	}

	if event.Phone != "" {
		phone, err := utils.NormalizePhone(event.Phone)
		if err != nil {
			s.logger.Warn("Phone dropped", zap.String("customer_id", event.ID.String()), zap.String("phone_hash", utils.HashString(event.Phone)[:8]), zap.Error(err))
		} else {
			profile.NormalizedPhone = phone
			profile.PhoneValid = true
		}
	}
	return profile
}

// ProcessCustomer handles the entire webhook workflow. Stage failures are
// recorded in the result; none of them aborts the pipeline.
func (s *leadServiceImpl) ProcessCustomer(ctx context.Context, event models.CustomerEvent) models.PipelineResult {
	log := s.logger.With(zap.String("customer_id", event.ID.String()), zap.String("email", utils.MaskEmail(event.Email)))
	log.Info("Processing customer webhook")

	profile := s.Enrich(ctx, event)

	result := models.PipelineResult{CustomerID: event.ID.String()}
	result.Sync = s.contacts.Upsert(ctx, event.Email, models.NewContactAttributes(profile))

	switch {
	case len(s.config.Notify.Recipients) == 0:
		result.NotifySkipped = SkipNoRecipients
	case !result.Sync.Success && !s.config.Notify.OnSyncFailure:
		result.NotifySkipped = SkipSyncFailed
	default:
		notification, err := BuildLeadNotification(profile, s.config.Notify.Recipients, s.config.Notify.Tags)
		if err != nil {
			log.Error("Notification not rendered", zap.Error(err))
			result.NotifySkipped = SkipRenderFailed
			break
		}
		delivery := s.notifier.Notify(ctx, notification)
		result.Notify = &delivery
	}

	log.Info("Customer webhook processed",
		zap.Bool("sync_ok", result.Sync.Success),
		zap.String("sync_action", string(result.Sync.Action)),
		zap.Bool("notified", result.Notify != nil && result.Notify.Success),
		zap.String("notify_skipped", result.NotifySkipped),
	)
	return result
}
