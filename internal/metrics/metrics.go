// Package metrics exposes Prometheus instrumentation for the indexing
// queue, the indexer cycles and the search path.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/fulltextd/internal/domain"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Queue metrics
	QueueDepth       *prometheus.GaugeVec
	QueueStuckLocked prometheus.Gauge
	QueueEnqueued    prometheus.Counter

	// Indexer metrics
	IndexerCyclesTotal   *prometheus.CounterVec
	IndexerCycleDuration *prometheus.HistogramVec
	IndexedTotal         *prometheus.CounterVec
	IndexErrorsTotal     *prometheus.CounterVec

	// Search metrics
	SearchesTotal   *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
	TermsQueryTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on the given registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fulltextd_queue_depth",
				Help: "Number of index requests in the queue by status",
			},
			[]string{"status"},
		),
		QueueStuckLocked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fulltextd_queue_stuck_locked",
				Help: "Index requests left LOCKED after a failed indexing attempt",
			},
		),
		QueueEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fulltextd_queue_enqueued_total",
				Help: "Total number of index requests accepted into the queue",
			},
		),
		IndexerCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulltextd_indexer_cycles_total",
				Help: "Total number of indexer cycles by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		IndexerCycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulltextd_indexer_cycle_duration_seconds",
				Help:    "Indexer cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		IndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulltextd_indexed_total",
				Help: "Total number of index requests applied by operation",
			},
			[]string{"operation"},
		),
		IndexErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulltextd_index_errors_total",
				Help: "Total number of failed index requests by operation",
			},
			[]string{"operation"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulltextd_searches_total",
				Help: "Total number of searches by outcome",
			},
			[]string{"outcome"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fulltextd_search_duration_seconds",
				Help:    "Search duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		TermsQueryTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fulltextd_terms_queries_total",
				Help: "Total number of term frequency queries",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulltextd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulltextd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Export every queue series from the start so operators can alert on
	// absent or zero depth before the first enqueue touches a label.
	for _, status := range []domain.Status{domain.StatusQueued, domain.StatusLocked, domain.StatusConsumed} {
		m.QueueDepth.WithLabelValues(string(status)).Set(0)
	}
	m.QueueStuckLocked.Set(0)

	registry.MustRegister(
		m.QueueDepth,
		m.QueueStuckLocked,
		m.QueueEnqueued,
		m.IndexerCyclesTotal,
		m.IndexerCycleDuration,
		m.IndexedTotal,
		m.IndexErrorsTotal,
		m.SearchesTotal,
		m.SearchDuration,
		m.TermsQueryTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveCycle records one indexer cycle.
func (m *Metrics) ObserveCycle(strategy, outcome string, start time.Time) {
	m.IndexerCyclesTotal.WithLabelValues(strategy, outcome).Inc()
	m.IndexerCycleDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments HTTP requests.
func HTTPMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.statusCode)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
