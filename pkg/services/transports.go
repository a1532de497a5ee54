package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/clients/smtp"
	"github.com/containerhouse/leadrelay/pkg/clients/twilio"
	"github.com/containerhouse/leadrelay/pkg/config"
	apperrors "github.com/containerhouse/leadrelay/pkg/errors"
	"github.com/containerhouse/leadrelay/pkg/models"
)

// Transport names
const (
	TransportSMTP  = "smtp"
	TransportBrevo = "brevo"
	TransportSMS   = "twilio_sms"
)

// SMTPTransport submits mail directly, retrying immediately a few times
type SMTPTransport struct {
	client     smtp.Client
	fromEmail  string
	fromName   string
	retries    uint64
	retryDelay time.Duration
}

// NewSMTPTransport creates an SMTP transport; retries is the number of extra
// attempts after the first one
func NewSMTPTransport(client smtp.Client, fromEmail, fromName string, retries uint64, retryDelay time.Duration) *SMTPTransport {
	return &SMTPTransport{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

func (t *SMTPTransport) Name() string { return TransportSMTP }

func (t *SMTPTransport) Send(ctx context.Context, n models.Notification) error {
	msg := smtp.Message{
		FromEmail: t.fromEmail,
		FromName:  t.fromName,
		To:        n.Recipients,
		Subject:   n.Subject,
		Text:      n.TextBody,
		HTML:      n.HTMLBody,
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(t.retryDelay), t.retries), ctx)
	return backoff.Retry(func() error {
		return t.client.Send(ctx, msg)
	}, policy)
}

// BrevoTransport sends through the Brevo transactional email API
type BrevoTransport struct {
	client brevo.Client
	sender brevo.Sender
}

// NewBrevoTransport creates a Brevo transactional transport
func NewBrevoTransport(client brevo.Client, fromEmail, fromName string) *BrevoTransport {
	return &BrevoTransport{
		client: client,
		sender: brevo.Sender{Name: fromName, Email: fromEmail},
	}
}

func (t *BrevoTransport) Name() string { return TransportBrevo }

func (t *BrevoTransport) Send(ctx context.Context, n models.Notification) error {
	to := make([]brevo.Recipient, len(n.Recipients))
	for i, r := range n.Recipients {
		to[i] = brevo.Recipient{Email: r}
	}
	resp, err := t.client.SendEmail(ctx, brevo.EmailRequest{
		Sender:      t.sender,
		To:          to,
		Subject:     n.Subject,
		HTMLContent: n.HTMLBody,
		TextContent: n.TextBody,
		Tags:        n.Tags,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &apperrors.ErrUpstream{Service: "brevo", StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}

// SMSTransport texts the subject line to the alert numbers when email delivery failed
type SMSTransport struct {
	client twilio.Client
	to     []string
}

// NewSMSTransport creates a Twilio SMS transport
func NewSMSTransport(client twilio.Client, to []string) *SMSTransport {
	return &SMSTransport{client: client, to: to}
}

func (t *SMSTransport) Name() string { return TransportSMS }

func (t *SMSTransport) Send(ctx context.Context, n models.Notification) error {
	for _, number := range t.to {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.client.SendSMS(number, n.Subject); err != nil {
			return fmt.Errorf("sms to %s: %w", number, err)
		}
	}
	return nil
}

// BuildTransports orders the configured email transports: the primary one,
// then the other one as secondary
func BuildTransports(cfg *config.Config, brevoClient brevo.Client, logger *zap.Logger) []Transport {
	var smtpTransport, brevoTransport Transport
	if cfg.SMTPConfigured() {
		smtpTransport = NewSMTPTransport(
			smtp.NewClient(cfg.SMTP, logger),
			cfg.Notify.SenderEmail,
			cfg.Notify.SenderName,
			uint64(cfg.SMTP.Retries),
			cfg.SMTP.RetryDelay,
		)
	}
	if cfg.BrevoConfigured() {
		brevoTransport = NewBrevoTransport(brevoClient, cfg.Notify.SenderEmail, cfg.Notify.SenderName)
	}

	ordered := []Transport{smtpTransport, brevoTransport}
	if cfg.Notify.Primary == TransportBrevo {
		ordered = []Transport{brevoTransport, smtpTransport}
	}

	var transports []Transport
	for _, t := range ordered {
		if t != nil {
			transports = append(transports, t)
		}
	}
	return transports
}

// BuildEscalation returns the SMS alert transport, or nil when Twilio is not configured
func BuildEscalation(cfg *config.Config, logger *zap.Logger) Transport {
	if !cfg.TwilioConfigured() {
		return nil
	}
	return NewSMSTransport(twilio.NewClient(cfg.Twilio, logger), cfg.Twilio.AlertTo)
}
