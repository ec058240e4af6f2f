// Package metrics provides custom Prometheus metrics for threat-intelligence clients.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// IntelMetrics contains Prometheus metrics for outbound threat-intel calls.
type IntelMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheHitsTotal  *prometheus.CounterVec
	CacheMissTotal  *prometheus.CounterVec
	RateLimitWait   *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewIntelMetrics creates and registers threat-intel metrics.
func NewIntelMetrics(registry *prometheus.Registry) (*IntelMetrics, error) {
	m := &IntelMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize intel metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register intel metrics: %w", err)
	}
	return m, nil
}

func (m *IntelMetrics) initMetrics() error {
	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_requests_total",
			Help: "Total number of threat-intel requests by provider, endpoint and result status",
		},
		[]string{"provider", "endpoint", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_request_duration_seconds",
			Help:    "Time taken for threat-intel requests",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		},
		[]string{"provider", "endpoint"},
	)

	m.CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_cache_hits_total",
			Help: "Total number of threat-intel cache hits",
		},
		[]string{"provider"},
	)

	m.CacheMissTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_cache_misses_total",
			Help: "Total number of threat-intel cache misses",
		},
		[]string{"provider"},
	)

	m.RateLimitWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the outbound rate limiter",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"provider"},
	)

	return nil
}

// RecordRequest records one outbound call and its normalized result status.
func (m *IntelMetrics) RecordRequest(provider, endpoint, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(provider, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(provider, endpoint).Observe(durationSeconds)
}

// RecordCacheHit records a cache hit for provider.
func (m *IntelMetrics) RecordCacheHit(provider string) {
	m.CacheHitsTotal.WithLabelValues(provider).Inc()
}

// RecordCacheMiss records a cache miss for provider.
func (m *IntelMetrics) RecordCacheMiss(provider string) {
	m.CacheMissTotal.WithLabelValues(provider).Inc()
}

// ObserveRateLimitWait records time spent blocked on the limiter.
func (m *IntelMetrics) ObserveRateLimitWait(provider string, seconds float64) {
	m.RateLimitWait.WithLabelValues(provider).Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *IntelMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	m.RequestDuration.Describe(ch)
	m.CacheHitsTotal.Describe(ch)
	m.CacheMissTotal.Describe(ch)
	m.RateLimitWait.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *IntelMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	m.RequestDuration.Collect(ch)
	m.CacheHitsTotal.Collect(ch)
	m.CacheMissTotal.Collect(ch)
	m.RateLimitWait.Collect(ch)
}
