package services

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/containerhouse/leadrelay/pkg/clients/shopify"
	"github.com/containerhouse/leadrelay/pkg/metrics"
	"github.com/containerhouse/leadrelay/pkg/models"
)

// Sentinels used when a metafield is absent or could not be resolved
const (
	SentinelError       = "Error"
	SentinelModel       = "Sin modelo"
	SentinelPrice       = "Sin precio"
	SentinelDescription = "Sin descripción"
	SentinelPlan        = "Sin plano"
	SentinelAddress     = "Sin dirección"
	SentinelBudget      = "Sin presupuesto"
	SentinelPersonType  = "Sin tipo de persona"
)

const (
	keyModel       = "modelo"
	keyPrice       = "precio"
	keyDescription = "descripcion"
	keyPlan        = "plano"
	keyAddress     = "direccion"
	keyBudget      = "presupuesto"
	keyPersonType  = "tipo_persona"
)

const shopifyGIDPrefix = "gid://shopify/"

// mediaPriority is the order in which a file reference is tried as each node kind
var mediaPriority = []shopify.MediaKind{shopify.KindMediaImage, shopify.KindGenericFile}

type metafieldDef struct {
	key      string
	sentinel string
	field    func(*models.Metafields) *string
}

var metafieldDefs = []metafieldDef{
	{keyModel, SentinelModel, func(m *models.Metafields) *string { return &m.Model }},
	{keyPrice, SentinelPrice, func(m *models.Metafields) *string { return &m.Price }},
	{keyDescription, SentinelDescription, func(m *models.Metafields) *string { return &m.Description }},
	{keyPlan, SentinelPlan, func(m *models.Metafields) *string { return &m.PlanURL }},
	{keyAddress, SentinelAddress, func(m *models.Metafields) *string { return &m.Address }},
	{keyBudget, SentinelBudget, func(m *models.Metafields) *string { return &m.Budget }},
	{keyPersonType, SentinelPersonType, func(m *models.Metafields) *string { return &m.PersonType }},
}

// ErrorMetafields has every field set to the error sentinel
func ErrorMetafields() models.Metafields {
	var m models.Metafields
	for _, def := range metafieldDefs {
		*def.field(&m) = SentinelError
	}
	return m
}

// MetafieldResolver looks up the custom fields of a customer. It never fails:
// missing data becomes sentinels.
type MetafieldResolver interface {
	Resolve(ctx context.Context, customerID string) models.Metafields
}

type metafieldResolverImpl struct {
	shopifyClient shopify.Client
	namespace     string
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// NewMetafieldResolver creates a resolver; an empty namespace matches any namespace
func NewMetafieldResolver(shopifyClient shopify.Client, namespace string, logger *zap.Logger, m *metrics.Metrics) MetafieldResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &metafieldResolverImpl{
		shopifyClient: shopifyClient,
		namespace:     namespace,
		logger:        logger,
		metrics:       m,
	}
}

func (r *metafieldResolverImpl) Resolve(ctx context.Context, customerID string) models.Metafields {
	log := r.logger.With(zap.String("customer_id", customerID))

	fields, err := r.shopifyClient.ListCustomerMetafields(ctx, customerID)
	if err != nil {
		log.Warn("Metafield fetch failed, using error sentinels", zap.Error(err))
		r.metrics.Enrichment.WithLabelValues("error").Inc()
		return ErrorMetafields()
	}

	byKey := make(map[string][]string, len(fields))
	for _, f := range fields {
		if r.namespace != "" && f.Namespace != r.namespace {
			continue
		}
		byKey[f.Key] = append(byKey[f.Key], strings.TrimSpace(f.Value))
	}

	var out models.Metafields
	for _, def := range metafieldDefs {
		values := byKey[def.key]
		switch {
		case len(values) > 1:
			log.Warn("Duplicate metafield key", zap.String("key", def.key), zap.Int("count", len(values)))
			*def.field(&out) = SentinelError
		case len(values) == 1 && values[0] != "":
			*def.field(&out) = values[0]
		default:
			*def.field(&out) = def.sentinel
		}
	}

	if ref := fileReference(out.PlanURL); ref != "" {
		url, err := r.resolveMedia(ctx, ref)
		if err != nil {
			log.Warn("Media resolution failed, using error sentinels", zap.String("media_id", ref), zap.Error(err))
			r.metrics.Enrichment.WithLabelValues("error").Inc()
			return ErrorMetafields()
		}
		if url == "" {
			log.Warn("Media reference did not resolve to a URL", zap.String("media_id", ref))
			url = SentinelPlan
		}
		out.PlanURL = url
	}

	r.metrics.Enrichment.WithLabelValues("ok").Inc()
	return out
}

// resolveMedia tries each node kind in priority order and returns the first URL found
func (r *metafieldResolverImpl) resolveMedia(ctx context.Context, id string) (string, error) {
	for _, kind := range mediaPriority {
		node, err := r.shopifyClient.QueryMediaNode(ctx, kind, id)
		if err != nil {
			return "", err
		}
		if node.URL != "" {
			return node.URL, nil
		}
	}
	return "", nil
}

// fileReference returns the Shopify global id held by a plan value, or ""
// when the value is not a reference. List-typed metafields hold a JSON array;
// the first reference is used.
func fileReference(value string) string {
	if strings.HasPrefix(value, shopifyGIDPrefix) {
		return value
	}
	if strings.HasPrefix(value, "[") {
		var refs []string
		if err := json.Unmarshal([]byte(value), &refs); err == nil {
			for _, ref := range refs {
				if strings.HasPrefix(ref, shopifyGIDPrefix) {
					return ref
				}
			}
		}
	}
	return ""
}
