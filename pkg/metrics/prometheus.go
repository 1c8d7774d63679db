// Package metrics provides Prometheus metrics for the applicant review service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Review engine
	scoreCacheHits      prometheus.Counter
	scoreCacheMisses    prometheus.Counter
	searchCalls         prometheus.Counter
	searchFailures      *prometheus.CounterVec
	searchLatency       prometheus.Histogram
	transitions         *prometheus.CounterVec
	transitionsSkipped  prometheus.Counter
	questionSaves       prometheus.Counter
	submissions         *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	snapshotPushes      prometheus.Counter
	storeTxLatency      prometheus.Histogram
	storeTxErrors       prometheus.Counter
	storeMutationsTotal prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Index pipeline (suggest service)
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueRejected     prometheus.Counter
	workerActiveCount prometheus.Gauge
	profilesIndexed   prometheus.Counter
	embedLatency      prometheus.Histogram
	indexErrors       prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registering on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "admit",
		subsystem:        "review",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.scoreCacheHits = m.counter("score_cache_hits_total", "Criterion score lookups served from the session cache")
	m.scoreCacheMisses = m.counter("score_cache_misses_total", "Criterion score lookups that required a search call")
	m.searchCalls = m.counter("search_calls_total", "Calls issued to the semantic search service")
	m.searchFailures = m.counterVec("search_failures_total", "Search calls degraded to an empty score set", "reason")
	m.searchLatency = m.histogram("search_latency_milliseconds", "Latency of semantic search calls")
	m.transitions = m.counterVec("status_transitions_total", "Applications moved to a review status", "status")
	m.transitionsSkipped = m.counter("status_transitions_skipped_total", "Transition requests skipped by the terminal-state guard")
	m.questionSaves = m.counter("question_saves_total", "Event saves with question reconciliation")
	m.submissions = m.counterVec("submissions_total", "Application submissions by outcome", "outcome")
	m.activeSessions = m.gauge("active_sessions", "Open review sessions")
	m.snapshotPushes = m.counter("snapshot_pushes_total", "Event snapshots pushed to subscribers")
	m.storeTxLatency = m.histogram("store_tx_latency_milliseconds", "Latency of atomic store batches")
	m.storeTxErrors = m.counter("store_tx_errors_total", "Store batches rolled back")
	m.storeMutationsTotal = m.counter("store_mutations_total", "Mutations applied by committed store batches")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("index_queue_size", "Profiles waiting to be embedded")
	m.queueCapacity = m.gauge("index_queue_capacity", "Capacity of the index queue")
	m.queueEnqueued = m.counter("index_queue_enqueued_total", "Profiles accepted by the index queue")
	m.queueRejected = m.counter("index_queue_rejected_total", "Profiles rejected by a full or closed index queue")
	m.workerActiveCount = m.gauge("index_workers_active", "Running index workers")
	m.profilesIndexed = m.counter("profiles_indexed_total", "Profiles embedded and stored in the vector index")
	m.embedLatency = m.histogram("embed_latency_milliseconds", "Latency of embedding calls")
	m.indexErrors = m.counter("index_errors_total", "Profiles that failed to embed or store")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordScoreCacheHit counts a cached criterion lookup.
func RecordScoreCacheHit() { globalManager.scoreCacheHits.Inc() }

// RecordScoreCacheMiss counts a lookup that needed the search service.
func RecordScoreCacheMiss() { globalManager.scoreCacheMisses.Inc() }

// RecordSearchCall records one search call and its latency.
func RecordSearchCall(latencyMs float64) {
	globalManager.searchCalls.Inc()
	globalManager.searchLatency.Observe(latencyMs)
}

// RecordSearchFailure counts a search call degraded to no scores.
func RecordSearchFailure(reason string) { globalManager.searchFailures.WithLabelValues(reason).Inc() }

// RecordTransitions counts applications moved to status.
func RecordTransitions(status string, n int) {
	globalManager.transitions.WithLabelValues(status).Add(float64(n))
}

// RecordTransitionsSkipped counts ids skipped by the terminal guard.
func RecordTransitionsSkipped(n int) { globalManager.transitionsSkipped.Add(float64(n)) }

// RecordQuestionSave counts an event save.
func RecordQuestionSave() { globalManager.questionSaves.Inc() }

// RecordSubmission counts a submission attempt by outcome.
func RecordSubmission(outcome string) { globalManager.submissions.WithLabelValues(outcome).Inc() }

// UpdateActiveSessions sets the open session gauge.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// RecordSnapshotPush counts a snapshot delivered to a subscriber.
func RecordSnapshotPush() { globalManager.snapshotPushes.Inc() }

// RecordStoreTx records a committed batch.
func RecordStoreTx(latencyMs float64, mutations int) {
	globalManager.storeTxLatency.Observe(latencyMs)
	globalManager.storeMutationsTotal.Add(float64(mutations))
}

// RecordStoreTxError counts a rolled back batch.
func RecordStoreTxError() { globalManager.storeTxErrors.Inc() }

// RecordHTTPRequest records HTTP request count.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the index queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the index queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted index job.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueRejected counts a rejected index job.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// UpdateWorkerActiveCount sets the number of running index workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordProfileIndexed records a stored embedding and the embed latency.
func RecordProfileIndexed(embedMs float64) {
	globalManager.profilesIndexed.Inc()
	globalManager.embedLatency.Observe(embedMs)
}

// RecordIndexError counts a failed index job.
func RecordIndexError() { globalManager.indexErrors.Inc() }

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom registry used for the service's metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
