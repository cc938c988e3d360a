// Package metrics exports chat engine metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "askbox"

// PrometheusExporter records completion, catalog, send and HTTP metrics.
// It satisfies the observer interfaces of the llm, catalog and chat
// packages.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Completion attempts
	completionAttempts *prometheus.CounterVec
	completionLatency  *prometheus.HistogramVec

	// Model catalog
	catalogLookups *prometheus.CounterVec

	// Send workflow
	sends       *prometheus.CounterVec
	sendLatency prometheus.Histogram
	titles      *prometheus.CounterVec

	// HTTP API
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64

	// WithRuntime adds the Go runtime and process collectors.
	WithRuntime bool
}

// DefaultConfig returns default Prometheus configuration. Buckets reach
// past the worst-case retry budget of a send.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.completionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completion_attempts_total",
			Help:      "Completion attempts by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	e.completionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "completion_attempt_seconds",
			Help:      "Latency of a single completion attempt in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model"},
	)

	e.catalogLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "lookups_total",
			Help:      "Model catalog lookups by result (hit, miss, stale, error)",
		},
		[]string{"result"},
	)

	e.sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "sends_total",
			Help:      "Send-message operations by final state",
		},
		[]string{"state"},
	)

	e.sendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "send_seconds",
			Help:      "End-to-end send-message latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
	)

	e.titles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "titles_total",
			Help:      "Title generations by outcome",
		},
		[]string{"outcome"},
	)

	e.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP API requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	e.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "HTTP API request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		e.completionAttempts,
		e.completionLatency,
		e.catalogLookups,
		e.sends,
		e.sendLatency,
		e.titles,
		e.httpRequests,
		e.httpLatency,
	)
	if cfg.WithRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return e
}

// ObserveAttempt records one completion attempt.
func (e *PrometheusExporter) ObserveAttempt(model, outcome string, latency time.Duration) {
	e.completionAttempts.WithLabelValues(model, outcome).Inc()
	e.completionLatency.WithLabelValues(model).Observe(latency.Seconds())
}

// ObserveCatalog records a model catalog lookup.
func (e *PrometheusExporter) ObserveCatalog(result string) {
	e.catalogLookups.WithLabelValues(result).Inc()
}

// ObserveSend records a finished send-message operation.
func (e *PrometheusExporter) ObserveSend(state string, latency time.Duration) {
	e.sends.WithLabelValues(state).Inc()
	e.sendLatency.Observe(latency.Seconds())
}

// ObserveTitle records a title generation outcome.
func (e *PrometheusExporter) ObserveTitle(outcome string) {
	e.titles.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records an API request.
func (e *PrometheusExporter) ObserveHTTP(method, route string, code int, latency time.Duration) {
	e.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	e.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
