// Package metrics provides Prometheus metrics for the cashcast
// forecasting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the cashcast service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	forecastRuns          prometheus.Counter
	eventsProjected       prometheus.Counter
	matchesFound          prometheus.Counter
	eventsUnmatched       prometheus.Counter
	transactionsUnmatched prometheus.Counter
	gapsDetected          prometheus.Counter
	suggestionsGenerated  prometheus.Counter
	pipelineDuration      prometheus.Histogram
	matchConfidence       prometheus.Histogram

	// Ingestion metrics
	batchesApplied   prometheus.Counter
	batchesDuplicate prometheus.Counter
	batchesFailed    prometheus.Counter
	syncRetries      prometheus.Counter
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	workerCount      prometheus.Gauge

	// Store metrics
	storeOrgs    prometheus.Gauge
	storeRecords prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cashcast",
		subsystem:        "forecast",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.forecastRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Total number of forecast pipeline runs",
	})
	m.eventsProjected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_projected_total",
		Help:      "Total number of cash events projected from source records",
	})
	m.matchesFound = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "variance_matches_total",
		Help:      "Total number of variance matches emitted",
	})
	m.eventsUnmatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_unmatched_total",
		Help:      "Total number of forecast events with no matching transaction",
	})
	m.transactionsUnmatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transactions_unmatched_total",
		Help:      "Total number of actual transactions with no matching forecast event",
	})
	m.gapsDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gaps_detected_total",
		Help:      "Total number of cash gaps detected",
	})
	m.suggestionsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggestions_generated_total",
		Help:      "Total number of payment-timing suggestions generated",
	})
	m.pipelineDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_duration_milliseconds",
		Help:      "End-to-end duration of one pipeline run in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.matchConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_confidence",
		Help:      "Distribution of emitted match confidence scores",
		Buckets:   []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	m.batchesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "batches_applied_total",
		Help:      "Total number of record batches applied to the store",
	})
	m.batchesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "batches_duplicate_total",
		Help:      "Total number of replayed batches skipped by the deduper",
	})
	m.batchesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "batches_failed_total",
		Help:      "Total number of batches that exhausted the retry policy",
	})
	m.syncRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "retries_total",
		Help:      "Total number of sync job retries under the backoff policy",
	})
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "queue_size",
		Help:      "Current number of batches waiting in the sync queue",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "queue_capacity",
		Help:      "Configured capacity of the sync queue",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "sync",
		Name:      "worker_count",
		Help:      "Current number of sync workers",
	})

	m.storeOrgs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "organizations",
		Help:      "Number of organizations with records in the store",
	})
	m.storeRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "records_total",
		Help:      "Total number of source records and transactions stored",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordForecastRun increments the pipeline run counter.
func RecordForecastRun() {
	globalManager.forecastRuns.Inc()
}

// RecordEventsProjected adds to the projected events counter.
func RecordEventsProjected(n int) {
	globalManager.eventsProjected.Add(float64(n))
}

// RecordMatch increments the match counter and observes its confidence.
func RecordMatch(confidence float64) {
	globalManager.matchesFound.Inc()
	globalManager.matchConfidence.Observe(confidence)
}

// RecordUnmatched adds to the unmatched events and transactions counters.
func RecordUnmatched(events, transactions int) {
	globalManager.eventsUnmatched.Add(float64(events))
	globalManager.transactionsUnmatched.Add(float64(transactions))
}

// RecordGapsDetected adds to the gap counter.
func RecordGapsDetected(n int) {
	globalManager.gapsDetected.Add(float64(n))
}

// RecordSuggestionsGenerated adds to the suggestions counter.
func RecordSuggestionsGenerated(n int) {
	globalManager.suggestionsGenerated.Add(float64(n))
}

// RecordPipelineDuration observes one pipeline run duration in
// milliseconds.
func RecordPipelineDuration(ms float64) {
	globalManager.pipelineDuration.Observe(ms)
}

// RecordBatchApplied increments the applied batches counter.
func RecordBatchApplied() {
	globalManager.batchesApplied.Inc()
}

// RecordBatchDuplicate increments the duplicate batches counter.
func RecordBatchDuplicate() {
	globalManager.batchesDuplicate.Inc()
}

// RecordBatchFailed increments the failed batches counter.
func RecordBatchFailed() {
	globalManager.batchesFailed.Inc()
}

// RecordSyncRetry increments the retry counter.
func RecordSyncRetry() {
	globalManager.syncRetries.Inc()
}

// UpdateQueueSize sets the current sync queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured sync queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current sync worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateStoreSize sets the store organization and record gauges.
func UpdateStoreSize(orgs, records int) {
	globalManager.storeOrgs.Set(float64(orgs))
	globalManager.storeRecords.Set(float64(records))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in
// milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
