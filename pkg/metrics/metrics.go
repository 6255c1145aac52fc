package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion outcomes used as the "outcome" label.
const (
	OutcomeCreated      = "created"
	OutcomeDuplicate    = "duplicate"
	OutcomeRaceResolved = "race_resolved"
	OutcomeOutOfStock   = "out_of_stock"
	OutcomeMalformed    = "malformed"
	OutcomeGatewayErr   = "gateway_error"
	OutcomeStorageErr   = "storage_error"
)

// Metrics holds the Prometheus collectors for the service. Collectors are
// registered on the registry passed to New, never on the global default, so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Ingestions        *prometheus.CounterVec
	IngestionDuration prometheus.Histogram
	SideEffectErrors  *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "confirmations_total",
			Help: "Payment confirmations processed, by outcome.",
		}, []string{"outcome"}),
		IngestionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "duration_seconds",
			Help: "Time spent ingesting one confirmation.", Buckets: prometheus.DefBuckets,
		}),
		SideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "side_effect_errors_total",
			Help: "Post-commit publish and archive failures.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Ingestions,
		m.IngestionDuration,
		m.SideEffectErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
