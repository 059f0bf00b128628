// Package metrics provides Prometheus metrics for the topboard ranking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// latencyBuckets spans sub-millisecond in-process commands up to
// second-long remote store calls.
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the topboard service.
type Manager struct {
	namespace       string
	subsystem       string
	enabled         bool
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Ranking metrics
	submissions     *prometheus.CounterVec
	boardSize       *prometheus.GaugeVec
	evictions       *prometheus.CounterVec
	adminOperations *prometheus.CounterVec

	// Store metrics
	storeCommands       *prometheus.CounterVec
	storeCommandLatency *prometheus.HistogramVec
	storeKeys           *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "topboard",
		subsystem:       "ranking",
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   latencyBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissions = m.counterVec("submissions_total",
		"Score submissions by mode and outcome (accepted, rejected, invalid, failed)",
		"mode", "outcome")
	m.boardSize = m.gaugeVec("board_entries",
		"Entries on each mode's board after the last write", "mode")
	m.evictions = m.counterVec("evictions_total",
		"Entries trimmed off a board for falling below the cutoff", "mode")
	m.adminOperations = m.counterVec("admin_operations_total",
		"Privileged operations by kind (delete, edit, reset)", "operation")

	m.storeCommands = m.counterVec("store_commands_total",
		"Store commands by backend, command and status", "backend", "command", "status")
	m.storeCommandLatency = m.histogramVec("store_command_latency_milliseconds",
		"Store command round trip in milliseconds", "backend", "command")
	m.storeKeys = m.gaugeVec("store_keys",
		"Keys held by an in-process store", "backend")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.rateLimited = m.counterVec("rate_limited_total",
		"Requests refused by the submission rate limiter", "endpoint")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauge samplers should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's refresh interval.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// RecordSubmission counts one submission outcome for mode.
func RecordSubmission(mode, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.submissions.WithLabelValues(mode, outcome).Inc()
}

// UpdateBoardSize sets the entry count for mode.
func UpdateBoardSize(mode string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.boardSize.WithLabelValues(mode).Set(float64(n))
}

// RecordEvictions counts entries trimmed from mode. Zero is ignored.
func RecordEvictions(mode string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.evictions.WithLabelValues(mode).Add(float64(n))
}

// RecordAdminOperation counts one privileged operation.
func RecordAdminOperation(op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.adminOperations.WithLabelValues(op).Inc()
}

// RecordStoreCommand counts a store command and observes its latency.
func RecordStoreCommand(backend, command, status string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeCommands.WithLabelValues(backend, command, status).Inc()
	globalManager.storeCommandLatency.WithLabelValues(backend, command).Observe(latencyMs)
}

// UpdateStoreKeys sets the key count of an in-process store.
func UpdateStoreKeys(backend string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeKeys.WithLabelValues(backend).Set(float64(n))
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request refused by the rate limiter.
func RecordRateLimited(endpoint string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates system goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure rebuilds the global manager on a fresh registry with opts.
// Call it at startup, before anything records or serves metrics.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
