package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/models"
	"github.com/containerhouse/leadrelay/pkg/utils"
)

// phoneRejectionMarkers identify a write rejected because of the phone attributes
var phoneRejectionMarkers = []string{"sms", "whatsapp", "phone"}

// ContactService upserts contacts in Brevo keyed by email
type ContactService interface {
	Upsert(ctx context.Context, email string, attrs models.ContactAttributes) models.UpsertResult
}

type contactServiceImpl struct {
	brevoClient brevo.Client
	listIDs     []int64
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewContactService creates a contact service; listIDs are applied on creation only
func NewContactService(brevoClient brevo.Client, listIDs []int64, logger *zap.Logger, m *metrics.Metrics) ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &contactServiceImpl{
		brevoClient: brevoClient,
		listIDs:     listIDs,
		logger:      logger,
		metrics:     m,
	}
}

type contactWrite func(ctx context.Context, attrs models.ContactAttributes) (brevo.Response, error)

// Upsert reads the contact and then updates (full replacement) or creates it.
// A write rejected because of the phone is retried once without phone attributes.
func (s *contactServiceImpl) Upsert(ctx context.Context, email string, attrs models.ContactAttributes) models.UpsertResult {
	log := s.logger.With(zap.String("email", utils.MaskEmail(email)))

	existing, err := s.brevoClient.GetContact(ctx, email)
	if err != nil {
		log.Error("Contact lookup failed", zap.Error(err))
		return s.failed(models.UpsertResult{Error: err.Error()})
	}

	var action models.UpsertAction
	var write contactWrite
	switch existing.StatusCode {
	case http.StatusOK:
		action = models.ActionUpdated
		write = func(ctx context.Context, a models.ContactAttributes) (brevo.Response, error) {
			return s.brevoClient.UpdateContact(ctx, email, a)
		}
	case http.StatusNotFound:
		action = models.ActionCreated
		write = func(ctx context.Context, a models.ContactAttributes) (brevo.Response, error) {
			return s.brevoClient.CreateContact(ctx, email, a, s.listIDs)
		}
	default:
		log.Error("Unexpected contact lookup status", zap.Int("status", existing.StatusCode))
		return s.failed(models.UpsertResult{
			StatusCode: existing.StatusCode,
			Body:       string(existing.Body),
			Error:      "unexpected contact lookup status",
		})
	}

	resp, err := write(ctx, attrs)
	phoneDropped := false
	if err == nil && isClientError(resp.StatusCode) && hasPhone(attrs) && phoneRejected(resp.Body) {
		log.Warn("Phone attributes rejected, retrying without them",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(resp.Body)),
		)
		phoneDropped = true
		resp, err = write(ctx, attrs.WithoutPhone())
	}
	if err != nil {
		log.Error("Contact write failed", zap.String("action", string(action)), zap.Error(err))
		return s.failed(models.UpsertResult{Error: err.Error(), PhoneDropped: phoneDropped})
	}

	result := models.UpsertResult{
		Success:      resp.OK(),
		Action:       action,
		StatusCode:   resp.StatusCode,
		Body:         string(resp.Body),
		PhoneDropped: phoneDropped,
	}
	if !result.Success {
		log.Error("Contact write rejected",
			zap.String("action", string(action)),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(resp.Body)),
		)
		result.Error = "contact write rejected"
		return s.failed(result)
	}

	log.Info("Contact upserted", zap.String("action", string(action)), zap.Bool("phone_dropped", phoneDropped))
	s.metrics.Upserts.WithLabelValues(string(action)).Inc()
	return result
}

func (s *contactServiceImpl) failed(r models.UpsertResult) models.UpsertResult {
	r.Success = false
	r.Action = models.ActionFailed
	s.metrics.Upserts.WithLabelValues(string(models.ActionFailed)).Inc()
	return r
}

func isClientError(status int) bool {
	return status >= 400 && status < 500
}

func hasPhone(attrs models.ContactAttributes) bool {
	for _, k := range models.PhoneAttributes {
		if attrs[k] != "" {
			return true
		}
	}
	return false
}

// phoneRejected looks for a phone marker in the Brevo error message, or in the
// raw body when it is not the usual {"code","message"} shape
func phoneRejected(body []byte) bool {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	text := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		text = errResp.Message
	}
	text = strings.ToLower(text)
	for _, marker := range phoneRejectionMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
