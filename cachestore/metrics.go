package cachestore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/objectgateway/metric"
)

// engineMetrics holds Prometheus metrics for cache engine operations.
type engineMetrics struct {
	upsertOps *prometheus.CounterVec // By outcome
	removeOps *prometheus.CounterVec // By outcome
	searchOps *prometheus.CounterVec // By outcome

	searchLatency *prometheus.HistogramVec
	upsertLatency *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	documentCount *prometheus.GaugeVec
}

// newEngineMetrics creates and registers cache engine metrics with the
// provided registry.
func newEngineMetrics(registry *metric.MetricsRegistry, collection string) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	labels := prometheus.Labels{"collection": collection}

	m := &engineMetrics{
		upsertOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "upsert_operations_total",
			Help:        "Total number of cache upsert operations",
			ConstLabels: labels,
		}, []string{"outcome"}),

		removeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "remove_operations_total",
			Help:        "Total number of cache remove operations",
			ConstLabels: labels,
		}, []string{"outcome"}),

		searchOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "search_operations_total",
			Help:        "Total number of cache search operations",
			ConstLabels: labels,
		}, []string{"outcome"}),

		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "search_duration_seconds",
			Help:        "Search operation duration in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		}, []string{}),

		upsertLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "upsert_duration_seconds",
			Help:        "Upsert operation duration in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		}, []string{}),

		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Total number of cache hits",
			ConstLabels: labels,
		}, []string{}),

		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Total number of cache misses with canonical fallback",
			ConstLabels: labels,
		}, []string{}),

		documentCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "objectgateway",
			Subsystem:   "cache",
			Name:        "document_count",
			Help:        "Current number of mirrored documents",
			ConstLabels: labels,
		}, []string{}),
	}

	prefix := "cache_" + collection

	if err := registry.RegisterCounterVec(prefix, "upsert_ops", m.upsertOps); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "remove_ops", m.removeOps); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "search_ops", m.searchOps); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(prefix, "search_latency", m.searchLatency); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(prefix, "upsert_latency", m.upsertLatency); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "hits", m.cacheHits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "misses", m.cacheMisses); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec(prefix, "document_count", m.documentCount); err != nil {
		return nil, err
	}

	return m, nil
}

// recordUpsert records an upsert operation with its outcome and duration.
func (m *engineMetrics) recordUpsert(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upsertOps.WithLabelValues(outcome).Inc()
	m.upsertLatency.WithLabelValues().Observe(duration.Seconds())
}

// recordRemove records a remove operation with its outcome.
func (m *engineMetrics) recordRemove(outcome string) {
	if m == nil {
		return
	}
	m.removeOps.WithLabelValues(outcome).Inc()
}

// recordSearch records a search operation with its outcome and duration.
func (m *engineMetrics) recordSearch(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.searchOps.WithLabelValues(outcome).Inc()
	m.searchLatency.WithLabelValues().Observe(duration.Seconds())
}

// recordHit records a cache hit.
func (m *engineMetrics) recordHit() {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues().Inc()
}

// recordMiss records a cache miss.
func (m *engineMetrics) recordMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues().Inc()
}

// setDocumentCount updates the mirrored document gauge.
func (m *engineMetrics) setDocumentCount(n int64) {
	if m == nil {
		return
	}
	m.documentCount.WithLabelValues().Set(float64(n))
}
