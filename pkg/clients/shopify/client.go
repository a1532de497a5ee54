package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/config"
	apperrors "github.com/containerhouse/leadrelay/pkg/errors"
)

const customerGIDPrefix = "gid://shopify/Customer/"

// Metafield is a custom field attached to a customer
type Metafield struct {
	ID        int64  `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// MediaKind is a node type a file reference can resolve to
type MediaKind string

const (
	KindMediaImage  MediaKind = "MediaImage"
	KindGenericFile MediaKind = "GenericFile"
)

// MediaNode is the variant returned by a typed node lookup. URL is empty when
// the node does not exist or is of another kind.
type MediaNode struct {
	Kind     MediaKind
	Typename string
	URL      string
}

// Client defines the interface for interacting with the Shopify Admin API
type Client interface {
	ListCustomerMetafields(ctx context.Context, customerID string) ([]Metafield, error)
	QueryMediaNode(ctx context.Context, kind MediaKind, id string) (MediaNode, error)
}

type clientImpl struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a new Shopify client
func NewClient(cfg config.ShopifyConfig, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Normalize shop domain; plain http is kept for local stores and tests
	scheme := "https"
	shopDomain := strings.TrimSpace(cfg.ShopDomain)
	if strings.HasPrefix(shopDomain, "http://") {
		scheme = "http"
	}
	shopDomain = strings.TrimPrefix(shopDomain, "https://")
	shopDomain = strings.TrimPrefix(shopDomain, "http://")
	shopDomain = strings.TrimSuffix(shopDomain, "/")

	return &clientImpl{
		baseURL:     fmt.Sprintf("%s://%s/admin/api/%s", scheme, shopDomain, cfg.APIVersion),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// GraphQLRequest represents a GraphQL request
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLResponse represents a GraphQL response
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// GraphQLErrors is returned when Shopify answers 200 with an errors array,
// e.g. for a malformed global id or a token without the needed scope
type GraphQLErrors struct {
	Errors []GraphQLError
}

func (e *GraphQLErrors) Error() string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return "graphQL errors: " + strings.Join(messages, "; ")
}

func (c *clientImpl) ListCustomerMetafields(ctx context.Context, customerID string) ([]Metafield, error) {
	id := strings.TrimPrefix(strings.TrimSpace(customerID), customerGIDPrefix)
	if !isNumericID(id) {
		return nil, fmt.Errorf("invalid customer id %q", customerID)
	}
	url := fmt.Sprintf("%s/customers/%s/metafields.json", c.baseURL, id)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Metafields []Metafield `json:"metafields"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing metafields response: %w", err)
	}

	c.logger.Debug("Fetched customer metafields",
		zap.String("customer_id", id),
		zap.Int("count", len(response.Metafields)),
	)
	return response.Metafields, nil
}

func (c *clientImpl) QueryMediaNode(ctx context.Context, kind MediaKind, id string) (MediaNode, error) {
	var query string
	switch kind {
	case KindMediaImage:
		query = MediaImageQuery
	case KindGenericFile:
		query = GenericFileQuery
	default:
		return MediaNode{}, fmt.Errorf("unsupported media kind %q", kind)
	}

	resp, err := c.Execute(ctx, query, map[string]interface{}{"id": id})
	var gqlErr *GraphQLErrors
	if errors.As(err, &gqlErr) {
		// The id did not resolve as this kind; the caller moves on to the next one
		c.logger.Warn("Media node lookup returned errors",
			zap.String("kind", string(kind)),
			zap.String("media_id", id),
			zap.Error(err),
		)
		return MediaNode{Kind: kind}, nil
	}
	if err != nil {
		return MediaNode{}, err
	}

	var data struct {
		Node *struct {
			Typename string `json:"__typename"`
			Image    *struct {
				URL string `json:"url"`
			} `json:"image"`
			URL string `json:"url"`
		} `json:"node"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return MediaNode{}, fmt.Errorf("error parsing node response: %w", err)
	}

	node := MediaNode{Kind: kind}
	if data.Node == nil {
		return node, nil
	}
	node.Typename = data.Node.Typename
	switch kind {
	case KindMediaImage:
		if data.Node.Image != nil {
			node.URL = data.Node.Image.URL
		}
	case KindGenericFile:
		node.URL = data.Node.URL
	}
	return node, nil
}

// Execute executes a GraphQL query
func (c *clientImpl) Execute(ctx context.Context, query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	jsonData, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/graphql.json", jsonData)
	if err != nil {
		return nil, err
	}

	var graphQLResp GraphQLResponse
	if err := json.Unmarshal(body, &graphQLResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	if len(graphQLResp.Errors) > 0 {
		return nil, &GraphQLErrors{Errors: graphQLResp.Errors}
	}

	return &graphQLResp, nil
}

func (c *clientImpl) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	if c.accessToken == "" {
		return nil, &apperrors.ErrNotConfigured{Service: "shopify"}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.ErrUpstream{Service: "shopify", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
