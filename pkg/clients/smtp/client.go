package smtp

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/containerhouse/leadrelay/pkg/config"
)

// Message is a multipart email with a plain text and an HTML part
type Message struct {
	FromEmail string
	FromName  string
	To        []string
	Subject   string
	Text      string
	HTML      string
}

// Client defines the interface for direct mail submission
type Client interface {
	Send(ctx context.Context, msg Message) error
}

type clientImpl struct {
	dialer *gomail.Dialer
	logger *zap.Logger
}

// NewClient creates a new SMTP client; port 465 uses implicit TLS, others STARTTLS
func NewClient(cfg config.SMTPConfig, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clientImpl{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (c *clientImpl) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	// gomail has no context support; a stuck server is abandoned at the deadline
	done := make(chan error, 1)
	go func() {
		done <- c.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending mail via %s:%d: %w", c.dialer.Host, c.dialer.Port, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("error sending mail via %s:%d: %w", c.dialer.Host, c.dialer.Port, ctx.Err())
	}

	c.logger.Debug("SMTP message submitted", zap.Int("recipients", len(msg.To)))
	return nil
}
