package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/models"
)

// Transport is one way of delivering a notification
type Transport interface {
	Name() string
	Send(ctx context.Context, n models.Notification) error
}

// Notifier delivers notifications through an ordered list of email transports
type Notifier interface {
	// Notify delivers to the recipients and, when every transport failed,
	// alerts through the escalation transport
	Notify(ctx context.Context, n models.Notification) models.DeliveryResult
	// Deliver only tries the email transports
	Deliver(ctx context.Context, n models.Notification) models.DeliveryResult
	Transports() []string
}

type notifierImpl struct {
	transports []Transport
	escalation Transport
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewNotifier tries transports in the given order until one succeeds.
// escalation may be nil.
func NewNotifier(transports []Transport, escalation Transport, logger *zap.Logger, m *metrics.Metrics) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &notifierImpl{
		transports: transports,
		escalation: escalation,
		logger:     logger,
		metrics:    m,
	}
}

func (d *notifierImpl) Transports() []string {
	names := make([]string, len(d.transports))
	for i, t := range d.transports {
		names[i] = t.Name()
	}
	return names
}

func (d *notifierImpl) Notify(ctx context.Context, n models.Notification) models.DeliveryResult {
	result := d.Deliver(ctx, n)
	if result.Success || d.escalation == nil || len(n.Recipients) == 0 {
		return result
	}

	// The alert goes to fixed numbers; it never changes the delivery outcome
	attempt := d.attempt(ctx, d.escalation, n)
	result.Escalation = &attempt
	if attempt.Success {
		d.logger.Info("Notification failure escalated", zap.String("provider", attempt.Provider))
	} else {
		d.logger.Error("Notification escalation failed", zap.String("provider", attempt.Provider), zap.String("error", attempt.Error))
	}
	return result
}

// Deliver never returns an error; failures are reported in the DeliveryResult
func (d *notifierImpl) Deliver(ctx context.Context, n models.Notification) models.DeliveryResult {
	var result models.DeliveryResult
	switch {
	case len(n.Recipients) == 0:
		result.Reason = models.ReasonNoRecipients
	case len(d.transports) == 0:
		result.Reason = models.ReasonNoTransports
	default:
		result = d.deliver(ctx, n)
	}

	fields := []zap.Field{
		zap.String("provider", result.Provider),
		zap.Int("recipients", len(n.Recipients)),
		zap.Bool("success", result.Success),
		zap.Int("attempts", len(result.Attempts)),
	}
	if result.Success {
		d.logger.Info("Notification delivered", fields...)
	} else {
		d.logger.Warn("Notification not delivered", append(fields, zap.String("reason", result.Reason), zap.String("error", result.Error))...)
	}
	return result
}

func (d *notifierImpl) deliver(ctx context.Context, n models.Notification) models.DeliveryResult {
	var result models.DeliveryResult
	for _, t := range d.transports {
		attempt := d.attempt(ctx, t, n)
		result.Provider = t.Name()
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Success {
			result.Success = true
			result.Error = ""
			return result
		}
		result.Error = attempt.Error
	}
	result.Reason = models.ReasonAllFailed
	return result
}

func (d *notifierImpl) attempt(ctx context.Context, t Transport, n models.Notification) models.DeliveryAttempt {
	err := safeSend(ctx, t, n)
	attempt := models.DeliveryAttempt{Provider: t.Name(), Success: err == nil, At: time.Now()}
	if err == nil {
		d.metrics.Notifications.WithLabelValues(t.Name(), "success").Inc()
		return attempt
	}

	d.metrics.Notifications.WithLabelValues(t.Name(), "failure").Inc()
	d.logger.Warn("Notification transport failed", zap.String("provider", t.Name()), zap.Error(err))
	attempt.Error = err.Error()
	return attempt
}

// safeSend turns a transport panic into an error
func safeSend(ctx context.Context, t Transport, n models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Send(ctx, n)
}
