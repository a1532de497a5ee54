package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/config"
	apperrors "github.com/containerhouse/leadrelay/pkg/errors"
)

// Response is the raw answer of the Brevo API. Callers branch on StatusCode;
// only transport failures are returned as errors.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON returns the body as decoded JSON when possible, else as a string
func (r Response) JSON() interface{} {
	var v interface{}
	if err := json.Unmarshal(r.Body, &v); err == nil {
		return v
	}
	return string(r.Body)
}

// Sender identifies the from address of a transactional email
type Sender struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Recipient is one address in a transactional email
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailRequest is the payload of POST /smtp/email
type EmailRequest struct {
	Sender      Sender      `json:"sender"`
	To          []Recipient `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	TextContent string      `json:"textContent,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// Client defines the interface for interacting with the Brevo API
type Client interface {
	GetContact(ctx context.Context, email string) (Response, error)
	CreateContact(ctx context.Context, email string, attributes map[string]string, listIDs []int64) (Response, error)
	UpdateContact(ctx context.Context, email string, attributes map[string]string) (Response, error)
	SendEmail(ctx context.Context, email EmailRequest) (Response, error)
	Account(ctx context.Context) (Response, error)
	EmailEvents(ctx context.Context, email string) (Response, error)
	BlockedContacts(ctx context.Context, email string) (Response, error)
}

type clientImpl struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Brevo client
func NewClient(cfg config.BrevoConfig, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clientImpl{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *clientImpl) GetContact(ctx context.Context, email string) (Response, error) {
	return c.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(email), nil)
}

func (c *clientImpl) CreateContact(ctx context.Context, email string, attributes map[string]string, listIDs []int64) (Response, error) {
	payload := map[string]interface{}{
		"email":         email,
		"attributes":    attributes,
		"updateEnabled": false,
	}
	if len(listIDs) > 0 {
		payload["listIds"] = listIDs
	}
	return c.do(ctx, http.MethodPost, "/contacts", payload)
}

func (c *clientImpl) UpdateContact(ctx context.Context, email string, attributes map[string]string) (Response, error) {
	payload := map[string]interface{}{
		"attributes": attributes,
	}
	return c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(email), payload)
}

func (c *clientImpl) SendEmail(ctx context.Context, email EmailRequest) (Response, error) {
	return c.do(ctx, http.MethodPost, "/smtp/email", email)
}

func (c *clientImpl) Account(ctx context.Context) (Response, error) {
	return c.do(ctx, http.MethodGet, "/account", nil)
}

func (c *clientImpl) EmailEvents(ctx context.Context, email string) (Response, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("limit", "20")
	params.Set("offset", "0")
	return c.do(ctx, http.MethodGet, "/smtp/emails?"+params.Encode(), nil)
}

func (c *clientImpl) BlockedContacts(ctx context.Context, email string) (Response, error) {
	params := url.Values{}
	params.Set("email", email)
	return c.do(ctx, http.MethodGet, "/smtp/blockedContacts?"+params.Encode(), nil)
}

func (c *clientImpl) do(ctx context.Context, method, path string, payload interface{}) (Response, error) {
	if c.apiKey == "" {
		return Response{}, &apperrors.ErrNotConfigured{Service: "brevo"}
	}

	var reqBody io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			return Response{}, fmt.Errorf("error creating payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("error calling Brevo %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("error reading response: %w", err)
	}

	c.logger.Debug("Brevo request",
		zap.String("method", method),
		zap.String("path", strings.SplitN(path, "?", 2)[0]),
		zap.Int("status", resp.StatusCode),
	)
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}
