package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collector's Prometheus series.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	PagesFetchedTotal  prometheus.Counter
	RetriesTotal       prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	JobsTotal          *prometheus.CounterVec
	ParseFailuresTotal *prometheus.CounterVec
	SkipsTotal         *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minesweeper_requests_total",
			Help: "Game page requests by phase.",
		}, []string{"phase"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minesweeper_request_duration_seconds",
			Help:    "Latency of game page requests.",
			Buckets: prometheus.DefBuckets,
		}),
		PagesFetchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minesweeper_pages_fetched_total",
			Help: "Game pages whose results block was captured.",
		}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minesweeper_retries_total",
			Help: "Fetch retries attempted.",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minesweeper_fetch_errors_total",
			Help: "Fetch failures by type.",
		}, []string{"error_type"}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minesweeper_jobs_total",
			Help: "Processed jobs by outcome.",
		}, []string{"outcome"}),
		ParseFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minesweeper_parse_failures_total",
			Help: "Result blocks rejected by the parser, by error kind.",
		}, []string{"kind"}),
		SkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minesweeper_skips_total",
			Help: "Games not persisted, by reason.",
		}, []string{"reason"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.PagesFetchedTotal,
		m.RetriesTotal,
		m.ErrorsTotal,
		m.JobsTotal,
		m.ParseFailuresTotal,
		m.SkipsTotal,
	)
	return m
}

// IncRequest increments the requests counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

func (m *Metrics) IncFetched() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncJob counts a finished job by outcome.
func (m *Metrics) IncJob(outcome string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncParseFailure(kind string) {
	if m == nil {
		return
	}
	m.ParseFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSkip(reason string) {
	if m == nil {
		return
	}
	m.SkipsTotal.WithLabelValues(reason).Inc()
}
