// Package metrics holds the Prometheus collectors newsdesk exposes when
// metrics.addr is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to newsdesk so tests and the optional endpoint never see
// collectors registered by libraries on the global registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Session metrics follow the life of a dispatch.
var (
	// DispatchesTotal counts fetches started, by mode and trigger
	DispatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsdesk_dispatches_total",
			Help: "Number of fetches dispatched",
		},
		[]string{"mode", "trigger"},
	)

	// CompletionsTotal counts dispatch completions by outcome
	// (committed, failed, stale).
	CompletionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsdesk_completions_total",
			Help: "Number of dispatch completions by outcome",
		},
		[]string{"outcome"},
	)

	// FetchDuration observes how long a dispatch took to run, by mode
	FetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsdesk_fetch_duration_seconds",
			Help:    "Time from dispatch to fetch completion in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// ValidationErrorsTotal counts queries rejected before dispatch
	ValidationErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsdesk_validation_errors_total",
			Help: "Number of queries rejected by validation",
		},
		[]string{"reason"},
	)
)

// Provider metrics describe calls to the news API.
var (
	ProviderRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsdesk_provider_requests_total",
			Help: "Provider API requests by endpoint and result code",
		},
		[]string{"endpoint", "code"},
	)

	ProviderRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsdesk_provider_request_duration_seconds",
			Help:    "Provider API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ArticlesReceivedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsdesk_articles_received_total",
			Help: "Articles returned by the provider per source",
		},
		[]string{"source"},
	)

	BreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newsdesk_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
