// Package telemetry provides observability primitives for the TipsterHub service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ActiveRequests    prometheus.Gauge
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	CacheErrors       *prometheus.CounterVec
	CacheInvalidation prometheus.Counter
	CacheEntries      prometheus.Gauge
	EdgeDuration      *prometheus.HistogramVec
	EdgeErrors        *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipsterhub",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "tipsterhub",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tipsterhub",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipsterhub",
			Name:      "cache_hits_total",
			Help:      "Total query cache hits.",
		}, []string{"resource"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipsterhub",
			Name:      "cache_misses_total",
			Help:      "Total query cache misses.",
		}, []string{"resource"}),

		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipsterhub",
			Name:      "cache_query_errors_total",
			Help:      "Total failed queries behind the cache.",
		}, []string{"resource"}),

		CacheInvalidation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tipsterhub",
			Name:      "cache_invalidated_total",
			Help:      "Total cache entries removed by invalidation.",
		}),

		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tipsterhub",
			Name:      "cache_entries",
			Help:      "Entries currently held by the query cache, including unread stale ones.",
		}),

		EdgeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "tipsterhub",
			Name:                            "edge_duration_seconds",
			Help:                            "Edge function call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"function"}),

		EdgeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tipsterhub",
			Name:      "edge_errors_total",
			Help:      "Total edge function errors.",
		}, []string{"function"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.CacheInvalidation,
		m.CacheEntries,
		m.EdgeDuration,
		m.EdgeErrors,
	)

	return m
}

// CacheHit counts a query cache hit for resource.
func (m *Metrics) CacheHit(resource string) { m.CacheHits.WithLabelValues(resource).Inc() }

// CacheMiss counts a query cache miss for resource.
func (m *Metrics) CacheMiss(resource string) { m.CacheMisses.WithLabelValues(resource).Inc() }

// CacheError counts a failed query behind the cache.
func (m *Metrics) CacheError(resource string) { m.CacheErrors.WithLabelValues(resource).Inc() }

// CacheInvalidated counts entries removed by an invalidation.
func (m *Metrics) CacheInvalidated(n int) { m.CacheInvalidation.Add(float64(n)) }

// ObserveEdge records one edge function call.
func (m *Metrics) ObserveEdge(function string, seconds float64, failed bool) {
	m.EdgeDuration.WithLabelValues(function).Observe(seconds)
	if failed {
		m.EdgeErrors.WithLabelValues(function).Inc()
	}
}
