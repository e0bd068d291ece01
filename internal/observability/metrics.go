package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the fetch coordinator.
// Metrics are organized by subsystem: coordinator requests, cache, retry,
// flight coalescing, and fan-out. All counters and histograms are
// registered via a promauto factory bound to the supplied registerer.
type Metrics struct {
	// RequestsTotal counts coordinator requests, labeled by source,
	// operation, and final status (taxonomy kind or "ok").
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes end-to-end request duration in seconds,
	// labeled by source and operation.
	RequestDuration *prometheus.HistogramVec

	// CacheHits counts cache hits by source.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses by source.
	CacheMisses *prometheus.CounterVec

	// RetriesTotal counts retry attempts (beyond the first try) by source.
	RetriesTotal *prometheus.CounterVec

	// RateLimited counts explicit throttle responses from sources.
	RateLimited *prometheus.CounterVec

	// FlightsCoalesced counts requests that attached to an in-flight fetch
	// instead of going to the wire.
	FlightsCoalesced *prometheus.CounterVec

	// RecordsFetched counts records returned to callers by source.
	RecordsFetched *prometheus.CounterVec

	// FanoutDuration observes cross-source fan-out duration in seconds.
	FanoutDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all metrics initialized and
// registered with reg. A nil reg uses the default Prometheus registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of coordinator requests by source, operation, and status",
		}, []string{"source", "operation", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end duration of coordinator requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "operation"}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits by source",
		}, []string{"source"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses by source",
		}, []string{"source"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retry attempts by source",
		}, []string{"source"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of throttle responses from sources",
		}, []string{"source"}),
		FlightsCoalesced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_coalesced_total",
			Help:      "Total number of requests coalesced onto an in-flight fetch",
		}, []string{"source"}),
		RecordsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Total number of records returned to callers by source",
		}, []string{"source"}),
		FanoutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_duration_seconds",
			Help:      "Duration of cross-source fan-out requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// RecordRequest records a completed coordinator request.
func (m *Metrics) RecordRequest(source, operation, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(source, operation, status).Inc()
	m.RequestDuration.WithLabelValues(source, operation).Observe(durationSeconds)
}

// RecordCacheHit records a response cache hit.
func (m *Metrics) RecordCacheHit(source string) {
	m.CacheHits.WithLabelValues(source).Inc()
}

// RecordCacheMiss records a response cache miss.
func (m *Metrics) RecordCacheMiss(source string) {
	m.CacheMisses.WithLabelValues(source).Inc()
}

// RecordRetry records a retry attempt against a source.
func (m *Metrics) RecordRetry(source string) {
	m.RetriesTotal.WithLabelValues(source).Inc()
}

// RecordRateLimited records an explicit throttle response from a source.
func (m *Metrics) RecordRateLimited(source string) {
	m.RateLimited.WithLabelValues(source).Inc()
}

// RecordFlightCoalesced records a request that attached to an existing
// in-flight fetch.
func (m *Metrics) RecordFlightCoalesced(source string) {
	m.FlightsCoalesced.WithLabelValues(source).Inc()
}

// RecordRecordsFetched records records returned to callers.
func (m *Metrics) RecordRecordsFetched(source string, count int) {
	m.RecordsFetched.WithLabelValues(source).Add(float64(count))
}

// RecordFanout records a completed fan-out request.
func (m *Metrics) RecordFanout(durationSeconds float64) {
	m.FanoutDuration.Observe(durationSeconds)
}
