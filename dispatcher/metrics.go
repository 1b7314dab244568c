package dispatcher

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/objectgateway/metric"
)

// dispatcherMetrics holds Prometheus metrics for dispatched requests.
type dispatcherMetrics struct {
	requests *prometheus.CounterVec // By method and status
	latency  *prometheus.HistogramVec

	translationRejections *prometheus.CounterVec
	cacheFailures         *prometheus.CounterVec // By operation
}

// newDispatcherMetrics creates and registers dispatcher metrics with the
// provided registry.
func newDispatcherMetrics(registry *metric.MetricsRegistry) (*dispatcherMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &dispatcherMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objectgateway",
			Subsystem: "dispatcher",
			Name:      "requests_total",
			Help:      "Total number of dispatched requests",
		}, []string{"method", "status"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "objectgateway",
			Subsystem: "dispatcher",
			Name:      "request_duration_seconds",
			Help:      "Request dispatch duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		}, []string{"method"}),

		translationRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objectgateway",
			Subsystem: "dispatcher",
			Name:      "translation_rejections_total",
			Help:      "Total number of queries rejected during translation",
		}, []string{}),

		cacheFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objectgateway",
			Subsystem: "dispatcher",
			Name:      "cache_failures_total",
			Help:      "Total number of absorbed cache synchronization failures",
		}, []string{"operation"}),
	}

	if err := registry.RegisterCounterVec("dispatcher", "requests", m.requests); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("dispatcher", "latency", m.latency); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("dispatcher", "translation_rejections", m.translationRejections); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("dispatcher", "cache_failures", m.cacheFailures); err != nil {
		return nil, err
	}

	return m, nil
}

// recordRequest records one dispatched request.
func (m *dispatcherMetrics) recordRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// recordTranslationRejection records a query rejected during translation.
func (m *dispatcherMetrics) recordTranslationRejection() {
	if m == nil {
		return
	}
	m.translationRejections.WithLabelValues().Inc()
}

// recordCacheFailure records an absorbed cache synchronization failure.
func (m *dispatcherMetrics) recordCacheFailure(operation string) {
	if m == nil {
		return
	}
	m.cacheFailures.WithLabelValues(operation).Inc()
}
