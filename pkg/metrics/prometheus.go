// Package metrics provides Prometheus metrics for the guessconv leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the guessconv service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Core business metrics
	submissions          *prometheus.CounterVec
	submissionsDuplicate prometheus.Counter
	leaderboardReads     prometheus.Counter
	leaderboardErrors    *prometheus.CounterVec
	totalPlayers         prometheus.Gauge
	guessError           prometheus.Histogram

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Client sync queue and worker
	syncJobs       *prometheus.CounterVec
	syncRetries    prometheus.Counter
	syncQueueDepth prometheus.Gauge
	syncLatency    prometheus.Histogram

	// Live stream
	streamSubscribers prometheus.Gauge
	streamBroadcasts  prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "guessconv",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.submissions = m.counterVec("submissions_total",
		"Leaderboard submissions by outcome (inserted, updated, rejected)", "outcome")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total",
		"Submissions skipped because their idempotency key was already seen")
	m.leaderboardReads = m.counter("reads_total", "Leaderboard reads served")
	m.leaderboardErrors = m.counterVec("errors_total",
		"Leaderboard failures by kind (not_configured, store, invalid)", "kind")
	m.totalPlayers = m.gauge("players", "Number of players on the leaderboard")
	m.guessError = m.histogram("submitted_average_error",
		"Average error of submitted aggregates in percentage points",
		[]float64{1, 3, 5, 10, 15, 20, 30, 50, 100})

	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Store operation latency in milliseconds", m.histogramBuckets, "op")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.syncJobs = m.counterVec("sync_jobs_total", "Client sync jobs by result (ok, failed, stale)", "result")
	m.syncRetries = m.counter("sync_retries_total", "Client sync retry attempts")
	m.syncQueueDepth = m.gauge("sync_queue_depth", "Pending client sync jobs")
	m.syncLatency = m.histogram("sync_latency_milliseconds",
		"Client sync round trip latency in milliseconds", m.histogramBuckets)

	m.streamSubscribers = m.gauge("stream_subscribers", "Connected live leaderboard subscribers")
	m.streamBroadcasts = m.counter("stream_broadcasts_total", "Leaderboard snapshots pushed to subscribers")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordSubmission counts a submission by outcome.
func RecordSubmission(outcome string) { globalManager.submissions.WithLabelValues(outcome).Inc() }

// RecordSubmissionDuplicate counts an idempotent replay.
func RecordSubmissionDuplicate() { globalManager.submissionsDuplicate.Inc() }

// RecordLeaderboardRead counts a served leaderboard read.
func RecordLeaderboardRead() { globalManager.leaderboardReads.Inc() }

// RecordLeaderboardError counts a failure by kind.
func RecordLeaderboardError(kind string) { globalManager.leaderboardErrors.WithLabelValues(kind).Inc() }

// UpdateTotalPlayers sets the number of leaderboard rows.
func UpdateTotalPlayers(count int) { globalManager.totalPlayers.Set(float64(count)) }

// RecordSubmittedAverageError observes the average error of a submission.
func RecordSubmittedAverageError(e float64) { globalManager.guessError.Observe(e) }

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordSyncJob counts a finished client sync job by result.
func RecordSyncJob(result string) { globalManager.syncJobs.WithLabelValues(result).Inc() }

// RecordSyncRetry counts a retry attempt.
func RecordSyncRetry() { globalManager.syncRetries.Inc() }

// UpdateSyncQueueDepth sets the number of pending sync jobs.
func UpdateSyncQueueDepth(depth int) { globalManager.syncQueueDepth.Set(float64(depth)) }

// RecordSyncLatency records a sync round trip.
func RecordSyncLatency(latencyMs float64) { globalManager.syncLatency.Observe(latencyMs) }

// UpdateStreamSubscribers sets the number of live subscribers.
func UpdateStreamSubscribers(count int) { globalManager.streamSubscribers.Set(float64(count)) }

// RecordStreamBroadcast counts a pushed snapshot.
func RecordStreamBroadcast() { globalManager.streamBroadcasts.Inc() }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
