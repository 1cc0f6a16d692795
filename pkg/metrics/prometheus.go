// Package metrics provides Prometheus metrics for the koishow timeline service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Save outcomes.
const (
	SaveSucceeded        = "succeeded"
	SaveValidationFailed = "validation_failed"
	SaveUpstreamFailed   = "upstream_failed"
	SaveRejected         = "rejected"
)

// Upstream outcomes.
const (
	UpstreamOK    = "ok"
	UpstreamError = "error"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Timeline and session metrics
	viewsOpened        prometheus.Counter
	viewsActive        prometheus.Gauge
	viewsExpired       prometheus.Counter
	editsStarted       prometheus.Counter
	editsCancelled     prometheus.Counter
	saves              *prometheus.CounterVec
	validationProblems *prometheus.CounterVec
	refreshes          *prometheus.CounterVec

	// Upstream show API metrics
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// LatencyBucketsMs are the default histogram buckets. Every latency this
// package records is in milliseconds.
var LatencyBucketsMs = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // read-only bucket table

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "koishow",
		subsystem:        "timeline",
		histogramBuckets: LatencyBucketsMs,
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

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.viewsOpened = m.counter("views_opened_total", "Total number of show-detail views opened")
	m.viewsActive = m.gauge("views_active", "Number of show-detail views currently open")
	m.viewsExpired = m.counter("views_expired_total", "Total number of idle views closed by the store")
	m.editsStarted = m.counter("edits_started_total", "Total number of timeline edit sessions started")
	m.editsCancelled = m.counter("edits_cancelled_total", "Total number of timeline edit sessions cancelled")
	m.saves = m.counterVec("saves_total", "Timeline saves by outcome", "outcome")
	m.validationProblems = m.counterVec("validation_problems_total", "Timeline validation problems by rule", "rule")
	m.refreshes = m.counterVec("refreshes_total", "Timeline reloads from the show API by outcome", "outcome")

	m.upstreamRequests = m.counterVec("upstream_requests_total", "Show API requests by operation and outcome", "operation", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds", "Show API request latency in milliseconds", "operation", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordViewOpened increments the opened views counter.
func RecordViewOpened() { globalManager.viewsOpened.Inc() }

// UpdateActiveViews sets the number of open views.
func UpdateActiveViews(count int) { globalManager.viewsActive.Set(float64(count)) }

// RecordViewsExpired adds n to the expired views counter.
func RecordViewsExpired(n int) { globalManager.viewsExpired.Add(float64(n)) }

// RecordEditStarted increments the started edits counter.
func RecordEditStarted() { globalManager.editsStarted.Inc() }

// RecordEditCancelled increments the cancelled edits counter.
func RecordEditCancelled() { globalManager.editsCancelled.Inc() }

// RecordSave records the outcome of a save attempt.
func RecordSave(outcome string) { globalManager.saves.WithLabelValues(outcome).Inc() }

// RecordValidationProblem counts one validation problem for rule.
func RecordValidationProblem(rule string) { globalManager.validationProblems.WithLabelValues(rule).Inc() }

// RecordRefresh records the outcome of a timeline reload.
func RecordRefresh(outcome string) { globalManager.refreshes.WithLabelValues(outcome).Inc() }

// RecordUpstreamRequest records a show API call and its latency.
func RecordUpstreamRequest(operation, outcome string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(operation, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(operation, outcome).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
