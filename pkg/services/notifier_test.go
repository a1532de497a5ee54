package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/clients/smtp"
	"github.com/containerhouse/leadrelay/pkg/config"
	"github.com/containerhouse/leadrelay/pkg/models"
)

func testNotification() models.Notification {
	return models.Notification{Subject: "Nuevo lead", HTMLBody: "<p>x</p>", Recipients: []string{"ops@example.com", "sales@example.com"}}
}

func TestNotifyPrimarySuccess(t *testing.T) {
	primary := &mockTransport{name: "smtp"}
	secondary := &mockTransport{name: "brevo"}

	result := NewNotifier([]Transport{primary, secondary}, nil, nil, nil).Notify(context.Background(), testNotification())

	assert.True(t, result.Success)
	assert.Equal(t, "smtp", result.Provider)
	assert.Len(t, primary.sent, 1)
	assert.Empty(t, secondary.sent)
}

func TestNotifyFallsBackToSecondary(t *testing.T) {
	primary := &mockTransport{name: "smtp", SendFunc: func(models.Notification) error { return errTransport }}
	secondary := &mockTransport{name: "brevo"}

	result := NewNotifier([]Transport{primary, secondary}, nil, nil, nil).Notify(context.Background(), testNotification())

	assert.True(t, result.Success)
	assert.Equal(t, "brevo", result.Provider)
	assert.Len(t, primary.sent, 1)
	assert.Len(t, secondary.sent, 1)
	require.Len(t, result.Attempts, 2)
	assert.False(t, result.Attempts[0].Success)
	assert.Equal(t, "connection refused", result.Attempts[0].Error)
}

func TestNotifySecondaryFailureIsReported(t *testing.T) {
	primary := &mockTransport{name: "smtp", SendFunc: func(models.Notification) error { return errTransport }}
	secondary := &mockTransport{name: "brevo", SendFunc: func(models.Notification) error { return errors.New("401 unauthorized") }}

	result := NewNotifier([]Transport{primary, secondary}, nil, nil, nil).Notify(context.Background(), testNotification())

	assert.False(t, result.Success)
	assert.Equal(t, models.ReasonAllFailed, result.Reason)
	assert.Equal(t, "brevo", result.Provider)
	assert.Equal(t, "401 unauthorized", result.Error)
	assert.Len(t, primary.sent, 1)
	assert.Len(t, secondary.sent, 1)
}

func TestNotifyWithoutSecondaryReturnsPrimaryFailure(t *testing.T) {
	primary := &mockTransport{name: "smtp", SendFunc: func(models.Notification) error { return errTransport }}

	result := NewNotifier([]Transport{primary}, nil, nil, nil).Notify(context.Background(), testNotification())

	assert.False(t, result.Success)
	assert.Equal(t, "smtp", result.Provider)
	assert.Equal(t, "connection refused", result.Error)
}

func TestNotifyRecoversTransportPanic(t *testing.T) {
	primary := &mockTransport{name: "smtp", SendFunc: func(models.Notification) error { panic("nil dialer") }}
	secondary := &mockTransport{name: "brevo"}

	result := NewNotifier([]Transport{primary, secondary}, nil, nil, nil).Notify(context.Background(), testNotification())

	assert.True(t, result.Success)
	assert.Contains(t, result.Attempts[0].Error, "panicked")
}

func TestNotifyReasons(t *testing.T) {
	n := testNotification()
	assert.Equal(t, models.ReasonNoTransports, NewNotifier(nil, nil, nil, nil).Notify(context.Background(), n).Reason)

	n.Recipients = nil
	result := NewNotifier([]Transport{&mockTransport{name: "smtp"}}, nil, nil, nil).Notify(context.Background(), n)
	assert.Equal(t, models.ReasonNoRecipients, result.Reason)
	assert.False(t, result.Success)
}

type mockSMTP struct {
	calls int
	fail  int
}

func (m *mockSMTP) Send(context.Context, smtp.Message) error {
	m.calls++
	if m.calls <= m.fail {
		return errTransport
	}
	return nil
}

func TestSMTPTransportRetriesTwice(t *testing.T) {
	client := &mockSMTP{fail: 2}
	transport := NewSMTPTransport(client, "leads@example.com", "Leads", 2, time.Millisecond)

	require.NoError(t, transport.Send(context.Background(), testNotification()))
	assert.Equal(t, 3, client.calls)
}

func TestSMTPTransportGivesUpAfterRetries(t *testing.T) {
	client := &mockSMTP{fail: 10}
	transport := NewSMTPTransport(client, "leads@example.com", "Leads", 2, time.Millisecond)

	assert.ErrorIs(t, transport.Send(context.Background(), testNotification()), errTransport)
	assert.Equal(t, 3, client.calls)
}

func TestBrevoTransportNon2xxFails(t *testing.T) {
	mock := newMockBrevo()
	mock.SendFunc = func(email brevo.EmailRequest) (brevo.Response, error) {
		assert.Equal(t, "leads@example.com", email.Sender.Email)
		assert.Len(t, email.To, 2)
		return brevo.Response{StatusCode: 401, Body: []byte(`{"code":"unauthorized"}`)}, nil
	}

	err := NewBrevoTransport(mock, "leads@example.com", "Leads").Send(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestBuildTransportsOrder(t *testing.T) {
	cfg := &config.Config{
		SMTP:  config.SMTPConfig{Host: "smtp.example.com", Port: 587},
		Brevo: config.BrevoConfig{APIKey: "xkeysib"},
		Notify: config.NotifyConfig{
			Primary: "brevo",
		},
		Twilio: config.TwilioConfig{AccountSID: "AC1", AuthToken: "t", From: "+15005550006", AlertTo: []string{"+56912345678"}},
	}

	names := func(ts []Transport) []string {
		var out []string
		for _, tr := range ts {
			out = append(out, tr.Name())
		}
		return out
	}

	assert.Equal(t, []string{"brevo", "smtp"}, names(BuildTransports(cfg, newMockBrevo(), nil)))
	require.NotNil(t, BuildEscalation(cfg, nil))
	assert.Equal(t, TransportSMS, BuildEscalation(cfg, nil).Name())

	cfg.Notify.Primary = "smtp"
	cfg.Twilio = config.TwilioConfig{}
	assert.Equal(t, []string{"smtp", "brevo"}, names(BuildTransports(cfg, newMockBrevo(), nil)))
	assert.Nil(t, BuildEscalation(cfg, nil))

	cfg.SMTP.Host = ""
	assert.Equal(t, []string{"brevo"}, names(BuildTransports(cfg, newMockBrevo(), nil)))
}

func TestNotifyEscalatesWithoutChangingOutcome(t *testing.T) {
	primary := &mockTransport{name: "smtp", SendFunc: func(models.Notification) error { return errTransport }}
	secondary := &mockTransport{name: "brevo", SendFunc: func(models.Notification) error { return errors.New("401 unauthorized") }}
	sms := &mockTransport{name: TransportSMS}

	result := NewNotifier([]Transport{primary, secondary}, sms, nil, nil).Notify(context.Background(), testNotification())

	assert.False(t, result.Success)
	assert.Equal(t, models.ReasonAllFailed, result.Reason)
	assert.Equal(t, "brevo", result.Provider)
	assert.Equal(t, "401 unauthorized", result.Error)
	assert.Len(t, result.Attempts, 2)
	require.NotNil(t, result.Escalation)
	assert.Equal(t, TransportSMS, result.Escalation.Provider)
	assert.True(t, result.Escalation.Success)
	assert.Len(t, sms.sent, 1)
}

func TestNotifyDoesNotEscalateOnSuccess(t *testing.T) {
	sms := &mockTransport{name: TransportSMS}

	result := NewNotifier([]Transport{&mockTransport{name: "smtp"}}, sms, nil, nil).Notify(context.Background(), testNotification())

	assert.True(t, result.Success)
	assert.Nil(t, result.Escalation)
	assert.Empty(t, sms.sent)
}

func TestDeliverNeverEscalates(t *testing.T) {
	primary := &mockTransport{name: "smtp", SendFunc: func(models.Notification) error { return errTransport }}
	sms := &mockTransport{name: TransportSMS}

	result := NewNotifier([]Transport{primary}, sms, nil, nil).Deliver(context.Background(), testNotification())

	assert.False(t, result.Success)
	assert.Equal(t, "smtp", result.Provider)
	assert.Nil(t, result.Escalation)
	assert.Empty(t, sms.sent)
}
