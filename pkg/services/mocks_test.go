package services

import (
	"context"
	"errors"
	"sync"

	"github.com/containerhouse/leadrelay/pkg/clients/brevo"
	"github.com/containerhouse/leadrelay/pkg/clients/shopify"
	"github.com/containerhouse/leadrelay/pkg/models"
)

var errTransport = errors.New("connection refused")

type mockShopify struct {
	ListFunc  func(ctx context.Context, customerID string) ([]shopify.Metafield, error)
	QueryFunc func(ctx context.Context, kind shopify.MediaKind, id string) (shopify.MediaNode, error)

	queried []shopify.MediaKind
}

func (m *mockShopify) ListCustomerMetafields(ctx context.Context, customerID string) ([]shopify.Metafield, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, customerID)
	}
	return nil, nil
}

func (m *mockShopify) QueryMediaNode(ctx context.Context, kind shopify.MediaKind, id string) (shopify.MediaNode, error) {
	m.queried = append(m.queried, kind)
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, kind, id)
	}
	return shopify.MediaNode{Kind: kind}, nil
}

type brevoCall struct {
	Method     string
	Email      string
	Attributes map[string]string
	ListIDs    []int64
}

// mockBrevo keeps contacts in memory and records every call
type mockBrevo struct {
	mu       sync.Mutex
	contacts map[string]map[string]string
	calls    []brevoCall

	GetStatus    int
	WriteFunc    func(call brevoCall) brevo.Response
	SendFunc     func(email brevo.EmailRequest) (brevo.Response, error)
	TransportErr error
}

func newMockBrevo() *mockBrevo {
	return &mockBrevo{contacts: map[string]map[string]string{}}
}

func (m *mockBrevo) record(c brevoCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockBrevo) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *mockBrevo) GetContact(_ context.Context, email string) (brevo.Response, error) {
	m.record(brevoCall{Method: "GET", Email: email})
	if m.TransportErr != nil {
		return brevo.Response{}, m.TransportErr
	}
	if m.GetStatus != 0 {
		return brevo.Response{StatusCode: m.GetStatus, Body: []byte(`{"message":"boom"}`)}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[email]; ok {
		return brevo.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
	}
	return brevo.Response{StatusCode: 404, Body: []byte(`{"code":"document_not_found"}`)}, nil
}

func (m *mockBrevo) write(call brevoCall, okStatus int) (brevo.Response, error) {
	m.record(call)
	if m.WriteFunc != nil {
		if resp := m.WriteFunc(call); resp.StatusCode != 0 {
			return resp, nil
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs := make(map[string]string, len(call.Attributes))
	for k, v := range call.Attributes {
		attrs[k] = v
	}
	m.contacts[call.Email] = attrs
	return brevo.Response{StatusCode: okStatus}, nil
}

func (m *mockBrevo) CreateContact(_ context.Context, email string, attributes map[string]string, listIDs []int64) (brevo.Response, error) {
	return m.write(brevoCall{Method: "POST", Email: email, Attributes: attributes, ListIDs: listIDs}, 201)
}

func (m *mockBrevo) UpdateContact(_ context.Context, email string, attributes map[string]string) (brevo.Response, error) {
	return m.write(brevoCall{Method: "PUT", Email: email, Attributes: attributes}, 204)
}

func (m *mockBrevo) SendEmail(_ context.Context, email brevo.EmailRequest) (brevo.Response, error) {
	m.record(brevoCall{Method: "SEND"})
	if m.SendFunc != nil {
		return m.SendFunc(email)
	}
	return brevo.Response{StatusCode: 201, Body: []byte(`{"messageId":"<1@smtp-relay>"}`)}, nil
}

func (m *mockBrevo) Account(context.Context) (brevo.Response, error) {
	return brevo.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

func (m *mockBrevo) EmailEvents(context.Context, string) (brevo.Response, error) {
	return brevo.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

func (m *mockBrevo) BlockedContacts(context.Context, string) (brevo.Response, error) {
	return brevo.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

type mockTransport struct {
	name     string
	SendFunc func(n models.Notification) error
	sent     []models.Notification
}

func (m *mockTransport) Name() string { return m.name }

func (m *mockTransport) Send(_ context.Context, n models.Notification) error {
	m.sent = append(m.sent, n)
	if m.SendFunc != nil {
		return m.SendFunc(n)
	}
	return nil
}
