// Package metrics exposes the service counters. Counts are per process: with
// several replicas each one reports its own totals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters shared by handlers and services
type Metrics struct {
	Webhooks      *prometheus.CounterVec
	Upserts       *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Enrichment    *prometheus.CounterVec
	RateLimited   prometheus.Counter
}

// New creates the counters and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Name:      "webhooks_total",
			Help:      "Customer webhooks handled, by response status.",
		}, []string{"status"}),
		Upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Name:      "contact_upserts_total",
			Help:      "Contact upserts, by action.",
		}, []string{"action"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Name:      "notification_attempts_total",
			Help:      "Notification transport attempts, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Name:      "enrichments_total",
			Help:      "Metafield enrichments, by outcome.",
		}, []string{"outcome"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(m.Webhooks, m.Upserts, m.Notifications, m.Enrichment, m.RateLimited)
	return m
}

// NewNop returns counters registered on a throwaway registry
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
