package twilio

import (
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/config"
)

// Client defines the interface for sending SMS alerts through Twilio
type Client interface {
	SendSMS(to, body string) error
}

type clientImpl struct {
	client *twilio.RestClient
	from   string
	logger *zap.Logger
}

// NewClient creates a new Twilio client
func NewClient(cfg config.TwilioConfig, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &clientImpl{
		client: client,
		from:   cfg.From,
		logger: logger,
	}
}

func (c *clientImpl) SendSMS(to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("error sending SMS: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	c.logger.Info("Sent SMS alert", zap.String("sid", sid))
	return nil
}
