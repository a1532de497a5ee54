package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/models"
)

func phoneAttrs() models.ContactAttributes {
	return models.ContactAttributes{
		models.AttrFirstName: "Ana",
		models.AttrSMS:       "+56912345678",
		models.AttrWhatsApp:  "+56912345678",
	}
}

func TestUpsertExistingContactUsesPut(t *testing.T) {
	mock := newMockBrevo()
	mock.contacts["ana@example.com"] = map[string]string{"NOMBRE": "Old"}
	m := metrics.New(prometheus.NewRegistry())

	result := NewContactService(mock, []int64{3}, nil, m).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	assert.True(t, result.Success)
	assert.Equal(t, models.ActionUpdated, result.Action)
	assert.Equal(t, 1, mock.count("PUT"))
	assert.Equal(t, 0, mock.count("POST"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Upserts.WithLabelValues("updated")))
}

func TestUpsertMissingContactUsesPost(t *testing.T) {
	mock := newMockBrevo()

	result := NewContactService(mock, []int64{3}, nil, nil).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	assert.True(t, result.Success)
	assert.Equal(t, models.ActionCreated, result.Action)
	assert.Equal(t, 1, mock.count("POST"))
	assert.Equal(t, 0, mock.count("PUT"))
	assert.Equal(t, []int64{3}, mock.calls[1].ListIDs)
}

func TestUpsertUnexpectedLookupStatusDoesNotWrite(t *testing.T) {
	mock := newMockBrevo()
	mock.GetStatus = 500

	result := NewContactService(mock, nil, nil, nil).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	assert.False(t, result.Success)
	assert.Equal(t, models.ActionFailed, result.Action)
	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, 0, mock.count("POST")+mock.count("PUT"))
}

func TestUpsertLookupTransportError(t *testing.T) {
	mock := newMockBrevo()
	mock.TransportErr = errTransport

	result := NewContactService(mock, nil, nil, nil).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "connection refused")
	assert.Equal(t, 0, mock.count("POST")+mock.count("PUT"))
}

func TestUpsertRetriesOnceWithoutPhone(t *testing.T) {
	mock := newMockBrevo()
	mock.WriteFunc = func(call brevoCall) brevo.Response {
		if _, ok := call.Attributes[models.AttrSMS]; ok {
			return brevo.Response{StatusCode: 400, Body: []byte(`{"code":"invalid_parameter","message":"Invalid phone number for attribute SMS"}`)}
		}
		return brevo.Response{}
	}

	result := NewContactService(mock, nil, nil, nil).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	require.True(t, result.Success)
	assert.True(t, result.PhoneDropped)
	assert.Equal(t, 2, mock.count("POST"))
	stored := mock.contacts["ana@example.com"]
	assert.Equal(t, "Ana", stored[models.AttrFirstName])
	assert.NotContains(t, stored, models.AttrSMS)
	assert.NotContains(t, stored, models.AttrWhatsApp)
}

func TestUpsertDoesNotRetryTwice(t *testing.T) {
	mock := newMockBrevo()
	mock.WriteFunc = func(call brevoCall) brevo.Response {
		return brevo.Response{StatusCode: 400, Body: []byte(`{"message":"SMS is already associated with another Contact"}`)}
	}

	result := NewContactService(mock, nil, nil, nil).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	assert.False(t, result.Success)
	assert.True(t, result.PhoneDropped)
	assert.Equal(t, 2, mock.count("POST"))
}

func TestUpsertOtherRejectionIsNotRetried(t *testing.T) {
	mock := newMockBrevo()
	mock.WriteFunc = func(call brevoCall) brevo.Response {
		return brevo.Response{StatusCode: 400, Body: []byte(`{"code":"invalid_parameter","message":"email is not valid"}`)}
	}

	result := NewContactService(mock, nil, nil, nil).Upsert(context.Background(), "ana@example.com", phoneAttrs())

	assert.False(t, result.Success)
	assert.False(t, result.PhoneDropped)
	assert.Equal(t, 1, mock.count("POST"))
	assert.Equal(t, 400, result.StatusCode)
}

func TestUpsertIsFullReplacement(t *testing.T) {
	mock := newMockBrevo()
	svc := NewContactService(mock, nil, nil, nil)

	first := models.ContactAttributes{models.AttrFirstName: "Ana", models.AttrModel: "Casa 36"}
	second := models.ContactAttributes{models.AttrFirstName: "Ana María"}

	require.True(t, svc.Upsert(context.Background(), "ana@example.com", first).Success)
	require.True(t, svc.Upsert(context.Background(), "ana@example.com", second).Success)

	assert.Len(t, mock.contacts, 1)
	assert.Equal(t, map[string]string(second), mock.contacts["ana@example.com"])
}

func TestPhoneRejected(t *testing.T) {
	assert.True(t, phoneRejected([]byte(`{"message":"Invalid WhatsApp number"}`)))
	assert.True(t, phoneRejected([]byte(`phone invalid`)))
	assert.False(t, phoneRejected([]byte(`{"code":"sms_limit","message":"email missing"}`)))
}
