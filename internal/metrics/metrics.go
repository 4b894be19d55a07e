// Package metrics defines the Prometheus collectors for the FAQ service and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

const namespace = "faq"

// Metrics holds all collectors. Each instance owns its registry so several
// can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AnswersTotal         *prometheus.CounterVec
	AnswerConfidence     prometheus.Histogram
	AnswerLatency        *prometheus.HistogramVec
	RebuildsTotal        *prometheus.CounterVec
	RebuildDuration      prometheus.Histogram
	IndexEntries         prometheus.Gauge
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),
		AnswersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Questions answered by outcome (answered, low_confidence, no_match, not_ready, processing_error).",
			},
			[]string{"outcome"},
		),
		AnswerConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_confidence",
				Help:      "Confidence of the best match, 0 to 100.",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),
		AnswerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_duration_seconds",
				Help:      "Time to resolve one question.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"outcome"},
		),
		RebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_rebuilds_total",
				Help:      "Index initializations and rebuilds by status.",
			},
			[]string{"status"},
		),
		RebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "index_rebuild_duration_seconds",
				Help:      "Time to load the corpus and build or load the index.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		IndexEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_entries",
				Help:      "Number of entries in the published index.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AnswersTotal,
		m.AnswerConfidence,
		m.AnswerLatency,
		m.RebuildsTotal,
		m.RebuildDuration,
		m.IndexEntries,
	)
	return m
}

// ObserveAnswer records one resolved question. Confidence is only observed
// for outcomes that carry a match.
func (m *Metrics) ObserveAnswer(kind models.OutcomeKind, confidence float64, d time.Duration) {
	outcome := kind.String()
	m.AnswersTotal.WithLabelValues(outcome).Inc()
	m.AnswerLatency.WithLabelValues(outcome).Observe(d.Seconds())
	if kind == models.OutcomeAnswered || kind == models.OutcomeLowConfidence {
		m.AnswerConfidence.Observe(confidence)
	}
}

// ObserveRebuild records an initialization or rebuild attempt.
func (m *Metrics) ObserveRebuild(status string, d time.Duration, entries int) {
	m.RebuildsTotal.WithLabelValues(status).Inc()
	m.RebuildDuration.Observe(d.Seconds())
	if status == "success" {
		m.IndexEntries.Set(float64(entries))
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape handler for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
