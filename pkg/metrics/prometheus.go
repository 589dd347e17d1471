// Package metrics provides Prometheus metrics for the generosity service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// impactBuckets cover the [0, 10] impact score range.
var impactBuckets = []float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10} //nolint:gochecknoglobals // fixed bucket layout

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Recording path
	actionsRecorded  prometheus.Counter
	actionsDuplicate prometheus.Counter
	actionsFailed    *prometheus.CounterVec
	impactScore      prometheus.Histogram

	// Metrics engine
	evaluations        *prometheus.CounterVec
	evaluationFailures *prometheus.CounterVec
	evaluationLatency  prometheus.Histogram
	metricValue        *prometheus.GaugeVec

	// Registry, queue, workers, leaderboard, store
	registrySize       prometheus.Gauge
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueRejected      *prometheus.CounterVec
	workersActive      prometheus.Gauge
	leaderboardActors  prometheus.Gauge
	leaderboardLatency prometheus.Histogram
	storeLatency       *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalMu       sync.RWMutex
	globalManager  *Manager                      //nolint:gochecknoglobals // singleton metrics manager
	customRegistry = prometheus.NewRegistry()    //nolint:gochecknoglobals // process-wide registry
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "generosity",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Use swaps the manager behind the package-level recording functions.
func Use(m *Manager) error {
	if m == nil {
		return ErrNoManager
	}
	globalMu.Lock()
	globalManager = m
	globalMu.Unlock()
	return nil
}

func current() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.actionsRecorded = auto.NewCounter(m.counterOpts("actions_recorded_total",
		"Total number of generosity actions scored and stored"))
	m.actionsDuplicate = auto.NewCounter(m.counterOpts("actions_duplicate_total",
		"Total number of submitted actions rejected as duplicates"))
	m.actionsFailed = auto.NewCounterVec(m.counterOpts("actions_failed_total",
		"Total number of actions that failed in the recording path"), []string{"stage"})
	m.impactScore = auto.NewHistogram(m.histogramOpts("action_impact_score",
		"Distribution of computed impact scores", impactBuckets))

	m.evaluations = auto.NewCounterVec(m.counterOpts("metric_evaluations_total",
		"Total number of metric definitions evaluated successfully"), []string{"calculation"})
	m.evaluationFailures = auto.NewCounterVec(m.counterOpts("metric_evaluation_failures_total",
		"Total number of metric definitions skipped because evaluation failed"), []string{"calculation", "reason"})
	m.evaluationLatency = auto.NewHistogram(m.histogramOpts("metric_evaluation_batch_milliseconds",
		"Latency of a full EvaluateAll batch in milliseconds", m.histogramBuckets))
	m.metricValue = auto.NewGaugeVec(m.gaugeOpts("metric_value",
		"Last computed value of each generosity metric"), []string{"metric_id"})

	m.registrySize = auto.NewGauge(m.gaugeOpts("registry_action_types",
		"Number of registered action types"))
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size",
		"Current number of actions waiting to be scored"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity",
		"Maximum number of actions the queue accepts"))
	m.queueRejected = auto.NewCounterVec(m.counterOpts("queue_rejected_total",
		"Total number of enqueue attempts rejected"), []string{"reason"})
	m.workersActive = auto.NewGauge(m.gaugeOpts("workers_active",
		"Number of running scoring workers"))
	m.leaderboardActors = auto.NewGauge(m.gaugeOpts("leaderboard_actors",
		"Number of actors tracked on the leaderboard"))
	m.leaderboardLatency = auto.NewHistogram(m.histogramOpts("leaderboard_update_milliseconds",
		"Latency of leaderboard updates in milliseconds", m.histogramBuckets))
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_operation_milliseconds",
		"Latency of action store operations in milliseconds", m.histogramBuckets), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
}

// RecordActionRecorded counts a stored action and observes its impact score.
func RecordActionRecorded(impact float64) {
	m := current()
	m.actionsRecorded.Inc()
	m.impactScore.Observe(impact)
}

// RecordActionDuplicate counts a duplicate submission.
func RecordActionDuplicate() {
	current().actionsDuplicate.Inc()
}

// RecordActionFailed counts a failure at the given recording stage (score, store, leaderboard).
func RecordActionFailed(stage string) {
	current().actionsFailed.WithLabelValues(stage).Inc()
}

// RecordEvaluation counts a successful metric evaluation and publishes its value.
func RecordEvaluation(metricID, calculation string, value float64) {
	m := current()
	m.evaluations.WithLabelValues(calculation).Inc()
	m.metricValue.WithLabelValues(metricID).Set(value)
}

// RecordEvaluationFailure counts a skipped metric.
func RecordEvaluationFailure(calculation, reason string) {
	current().evaluationFailures.WithLabelValues(calculation, reason).Inc()
}

// RecordEvaluationLatency observes a batch evaluation latency in milliseconds.
func RecordEvaluationLatency(latencyMs float64) {
	current().evaluationLatency.Observe(latencyMs)
}

// UpdateRegistrySize sets the number of registered action types.
func UpdateRegistrySize(n int) {
	current().registrySize.Set(float64(n))
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	current().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	current().queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a rejected enqueue (closed, full, cancelled).
func RecordQueueRejected(reason string) {
	current().queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkersActive sets the number of running workers.
func UpdateWorkersActive(n int) {
	current().workersActive.Set(float64(n))
}

// UpdateLeaderboardActors sets the number of ranked actors.
func UpdateLeaderboardActors(n int) {
	current().leaderboardActors.Set(float64(n))
}

// RecordLeaderboardLatency observes a leaderboard update latency in milliseconds.
func RecordLeaderboardLatency(latencyMs float64) {
	current().leaderboardLatency.Observe(latencyMs)
}

// RecordStoreLatency observes an action store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	current().storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m := current()
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	current().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	current().systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the process-wide registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
