package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/models"
)

type fakeBrevo struct {
	brevo.Client // only the debug lookups are implemented

	lastEmail string
	err       error
}

func (f *fakeBrevo) Account(_ context.Context) (brevo.Response, error) {
	return brevo.Response{StatusCode: http.StatusOK, Body: []byte(`{"email":"owner@example.cl","plan":[{"type":"free"}]}`)}, f.err
}

func (f *fakeBrevo) EmailEvents(_ context.Context, email string) (brevo.Response, error) {
	f.lastEmail = email
	return brevo.Response{StatusCode: http.StatusOK, Body: []byte(`{"transactionalEmails":[]}`)}, f.err
}

func (f *fakeBrevo) BlockedContacts(_ context.Context, email string) (brevo.Response, error) {
	f.lastEmail = email
	return brevo.Response{StatusCode: http.StatusUnauthorized, Body: []byte(`{"code":"unauthorized"}`)}, f.err
}

type fakeNotifier struct {
	sent     []models.Notification
	notified []models.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n models.Notification) models.DeliveryResult {
	f.notified = append(f.notified, n)
	return models.DeliveryResult{Provider: "twilio_sms", Success: true}
}

func (f *fakeNotifier) Deliver(_ context.Context, n models.Notification) models.DeliveryResult {
	f.sent = append(f.sent, n)
	return models.DeliveryResult{Provider: "smtp", Success: true}
}

func (f *fakeNotifier) Transports() []string { return []string{"smtp", "brevo"} }

func newDebugRouter(b *fakeBrevo, n *fakeNotifier) *gin.Engine {
	cfg := testConfig()
	cfg.DebugEndpoint = true
	cfg.Brevo.APIKey = "xkeysib-123456"
	cfg.Webhook.Secret = "whsec"
	return NewRouter(Dependencies{
		Config:      cfg,
		Logger:      zap.NewNop(),
		Metrics:     metrics.NewNop(),
		LeadService: &fakeLeadService{},
		Notifier:    n,
		Brevo:       b,
	})
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestDebugConfig_MasksSecrets(t *testing.T) {
	r := newDebugRouter(&fakeBrevo{}, &fakeNotifier{})

	w := serve(r, http.MethodGet, "/debug/config", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "xkeysib-123456")
	assert.NotContains(t, w.Body.String(), "whsec")
	body := decode(t, w)
	assert.True(t, strings.HasPrefix(body["brevo_key_mask"].(string), "len=14, sha256[0:8]="))
	assert.Equal(t, "EMPTY", body["shopify_token_mask"])
	assert.Equal(t, []interface{}{"smtp", "brevo"}, body["notify_transports"])
}

func TestDebugSendTest(t *testing.T) {
	n := &fakeNotifier{}
	r := newDebugRouter(&fakeBrevo{}, n)

	w := serve(r, http.MethodPost, "/debug/notify", `{"to":"ops@example.cl"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
	require.Len(t, n.sent, 1)
	assert.Equal(t, []string{"ops@example.cl"}, n.sent[0].Recipients)
	assert.Empty(t, n.notified, "test sends never escalate")

	w = serve(r, http.MethodPost, "/debug/notify", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, n.sent, 1)
}

func TestDebugBrevoProxies(t *testing.T) {
	b := &fakeBrevo{}
	r := newDebugRouter(b, &fakeNotifier{})

	w := serve(r, http.MethodGet, "/debug/brevo/account", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 200.0, body["status_code"])
	assert.Equal(t, "owner@example.cl", body["response"].(map[string]interface{})["email"])

	w = serve(r, http.MethodGet, "/debug/brevo/events?email=ana@example.cl", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.cl", b.lastEmail)

	w = serve(r, http.MethodGet, "/debug/brevo/blocked?email=bob@example.cl", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, 401.0, body["status_code"])
	assert.Equal(t, false, body["ok"])
}

func TestDebugBrevoProxies_MissingEmail(t *testing.T) {
	r := newDebugRouter(&fakeBrevo{}, &fakeNotifier{})

	for _, path := range []string{"/debug/brevo/events", "/debug/brevo/blocked"} {
		w := serve(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestDebugBrevoProxies_TransportError(t *testing.T) {
	r := newDebugRouter(&fakeBrevo{err: errors.New("dial tcp: timeout")}, &fakeNotifier{})

	w := serve(r, http.MethodGet, "/debug/brevo/account", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "timeout")
}
