// Package metrics provides Prometheus metrics for the poseparty scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace         string
	subsystem         string
	latencyBuckets    []float64
	similarityBuckets []float64
	registry          prometheus.Registerer

	// Scoring
	framesScored       prometheus.Counter
	framesSkipped      *prometheus.CounterVec
	framesDuplicate    prometheus.Counter
	tiers              *prometheus.CounterVec
	similarity         prometheus.Histogram
	readinessLatched   prometheus.Counter
	referencesSelected prometheus.Counter

	// Sessions
	sessionsCreated  prometheus.Counter
	sessionsEnded    prometheus.Counter
	activeSessions   prometheus.Gauge
	snapshotsDropped prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Worker
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:         "poseparty",
		subsystem:         "engine",
		latencyBuckets:    []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		similarityBuckets: []float64{0.05, 0.1, 0.15, 0.25, 0.4, 0.55, 0.7, 0.8, 1, 1.5, 2},
		registry:          prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	m.framesScored = m.counter("frames_scored_total", "Frames that produced a similarity score")
	m.framesSkipped = m.counterVec("frames_skipped_total", "Frames skipped without touching session totals", "reason")
	m.framesDuplicate = m.counter("frames_duplicate_total", "Frame submissions dropped as duplicates")
	m.tiers = m.counterVec("tiers_total", "Scored frames by feedback tier", "tier")
	m.similarity = m.histogram("similarity", "Distribution of per-frame similarity scores", m.similarityBuckets)
	m.readinessLatched = m.counter("readiness_latched_total", "Sessions whose ready flag latched")
	m.referencesSelected = m.counter("references_selected_total", "Reference pose selections (each resets a session)")

	m.sessionsCreated = m.counter("sessions_created_total", "Sessions created")
	m.sessionsEnded = m.counter("sessions_ended_total", "Sessions ended")
	m.activeSessions = m.gauge("active_sessions", "Sessions currently live")
	m.snapshotsDropped = m.counter("snapshots_dropped_total", "Snapshot updates dropped for slow observers")

	m.queueSize = m.gauge("queue_size", "Events waiting across all shards")
	m.queueCapacity = m.gauge("queue_capacity", "Total queue capacity across all shards")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue fill ratio (0.0 to 1.0)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Events accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Events handed to workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Events rejected by the queue", "reason")

	m.workerCount = m.gauge("worker_count", "Running shard workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to apply one event to its session", m.latencyBuckets)

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordFrameScored counts a scored frame with its similarity and tier.
func RecordFrameScored(similarity float64, tier string) {
	globalManager.framesScored.Inc()
	globalManager.similarity.Observe(similarity)
	globalManager.tiers.WithLabelValues(tier).Inc()
}

// RecordFrameSkipped counts a frame that failed to score.
func RecordFrameSkipped(reason string) {
	globalManager.framesSkipped.WithLabelValues(reason).Inc()
}

// RecordFrameDuplicate counts a duplicate frame submission.
func RecordFrameDuplicate() {
	globalManager.framesDuplicate.Inc()
}

// RecordReadinessLatched counts a ready flag flipping to true.
func RecordReadinessLatched() {
	globalManager.readinessLatched.Inc()
}

// RecordReferenceSelected counts a reference switch.
func RecordReferenceSelected() {
	globalManager.referencesSelected.Inc()
}

// RecordSessionCreated counts a new session.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionEnded counts an ended session.
func RecordSessionEnded() {
	globalManager.sessionsEnded.Inc()
}

// UpdateActiveSessions sets the live session gauge.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordSnapshotsDropped adds dropped observer updates.
func RecordSnapshotsDropped(n int) {
	if n > 0 {
		globalManager.snapshotsDropped.Add(float64(n))
	}
}

// UpdateQueueSize sets the queued event gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an accepted event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts an event handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected event.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records event apply latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
