// Package observability holds Test-Probe's ambient stack: Prometheus
// metrics and slog setup, ported structurally from the teacher's
// single-registry metrics struct and promhttp wiring.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// Test-Probe runtime: schema registry traffic, produce/consume outcomes,
// stream worker backpressure, and engine state transitions.
type Metrics struct {
	SchemaRegistryLookups       *prometheus.CounterVec // labels: result={hit,miss,error}
	SchemaRegistryFetchDuration prometheus.Histogram
	SchemaRegistryBreakerState  prometheus.Gauge // 0=closed, 1=half-open, 2=open

	ProduceResults   *prometheus.CounterVec // labels: outcome={ack,nack}, cause
	ConsumeResults   *prometheus.CounterVec // labels: outcome={success,not_available}, reason
	StreamWorkerInboxDepth *prometheus.GaugeVec   // labels: topic, role

	EngineStateTransitions *prometheus.CounterVec // labels: from, to
	EngineActiveTests      prometheus.Gauge
	ChildReadinessDuration *prometheus.HistogramVec // labels: child={kafka,storage,vault,scenario}
}

// NewMetrics creates and registers all runtime metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SchemaRegistryLookups,
		m.SchemaRegistryFetchDuration,
		m.SchemaRegistryBreakerState,
		m.ProduceResults,
		m.ConsumeResults,
		m.StreamWorkerInboxDepth,
		m.EngineStateTransitions,
		m.EngineActiveTests,
		m.ChildReadinessDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SchemaRegistryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testprobe",
			Name:      "schema_registry_lookups_total",
			Help:      "Schema registry cache lookups by result.",
		}, []string{"result"}),
		SchemaRegistryFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "testprobe",
			Name:      "schema_registry_fetch_duration_seconds",
			Help:      "Duration of schema registry HTTP fetches on cache miss.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 8},
		}),
		SchemaRegistryBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "testprobe",
			Name:      "schema_registry_breaker_state",
			Help:      "Circuit breaker state guarding schema registry calls (0=closed, 1=half-open, 2=open).",
		}),
		ProduceResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testprobe",
			Name:      "produce_results_total",
			Help:      "Produce requests by outcome and nack cause.",
		}, []string{"outcome", "cause"}),
		ConsumeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testprobe",
			Name:      "consume_results_total",
			Help:      "Fetch-by-correlation requests by outcome and not-available reason.",
		}, []string{"outcome", "reason"}),
		StreamWorkerInboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "testprobe",
			Name:      "stream_worker_inbox_depth",
			Help:      "Current number of queued requests per stream worker inbox.",
		}, []string{"topic", "role"}),
		EngineStateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testprobe",
			Name:      "engine_state_transitions_total",
			Help:      "Test execution engine state transitions.",
		}, []string{"from", "to"}),
		EngineActiveTests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "testprobe",
			Name:      "engine_active_tests",
			Help:      "Number of tests currently tracked by the registry.",
		}),
		ChildReadinessDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "testprobe",
			Name:      "child_readiness_duration_seconds",
			Help:      "Time from spawn to readiness for each child type.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"child"}),
	}
}
