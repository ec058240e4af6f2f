// Package metrics provides custom Prometheus metrics for alert notifications.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics for alert delivery.
type NotificationMetrics struct {
	ProviderDeliveriesTotal  *prometheus.CounterVec   // deliveries by provider and status
	ProviderDeliveryDuration *prometheus.HistogramVec // latency by provider
	ProviderTimeouts         *prometheus.CounterVec   // timeouts by provider

	FilterRejectionsTotal *prometheus.CounterVec // verdicts below the alert threshold

	NotificationDispatchTotal  prometheus.Counter
	NotificationDispatchActive prometheus.Gauge

	registry *prometheus.Registry
}

// NewNotificationMetrics creates a new instance of NotificationMetrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize notification metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() error {
	m.ProviderDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_deliveries_total",
			Help: "Total number of alert delivery attempts by provider and status",
		},
		[]string{"provider", "status"}, // status: success, error, timeout
	)

	m.ProviderDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_provider_delivery_duration_seconds",
			Help:    "Time taken for alert delivery by provider",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}, // 10ms to 30s
		},
		[]string{"provider"},
	)

	m.ProviderTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_timeouts_total",
			Help: "Total number of alert delivery timeouts by provider",
		},
		[]string{"provider"},
	)

	m.FilterRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_filter_rejections_total",
			Help: "Verdicts not alerted on, by threat level",
		},
		[]string{"threat_level"},
	)

	m.NotificationDispatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Total number of alerts dispatched",
		},
	)

	m.NotificationDispatchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_dispatch_active",
			Help: "Alert deliveries currently in flight",
		},
	)

	return nil
}

// RecordDelivery records a delivery attempt with its status and duration.
func (m *NotificationMetrics) RecordDelivery(provider, status string, duration time.Duration) {
	m.ProviderDeliveriesTotal.WithLabelValues(provider, status).Inc()
	m.ProviderDeliveryDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTimeout records a delivery timeout.
func (m *NotificationMetrics) RecordTimeout(provider string) {
	m.ProviderTimeouts.WithLabelValues(provider).Inc()
}

// RecordFilterRejection records a verdict that did not meet the alert threshold.
func (m *NotificationMetrics) RecordFilterRejection(threatLevel string) {
	m.FilterRejectionsTotal.WithLabelValues(threatLevel).Inc()
}

// IncrementDispatchTotal counts one dispatched alert.
func (m *NotificationMetrics) IncrementDispatchTotal() {
	m.NotificationDispatchTotal.Inc()
}

// AddDispatchActive adjusts the in-flight gauge by delta.
func (m *NotificationMetrics) AddDispatchActive(delta float64) {
	m.NotificationDispatchActive.Add(delta)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ProviderDeliveriesTotal.Collect(ch)
	m.ProviderDeliveryDuration.Collect(ch)
	m.ProviderTimeouts.Collect(ch)
	m.FilterRejectionsTotal.Collect(ch)
	m.NotificationDispatchTotal.Collect(ch)
	m.NotificationDispatchActive.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ProviderDeliveriesTotal.Describe(ch)
	m.ProviderDeliveryDuration.Describe(ch)
	m.ProviderTimeouts.Describe(ch)
	m.FilterRejectionsTotal.Describe(ch)
	m.NotificationDispatchTotal.Describe(ch)
	m.NotificationDispatchActive.Describe(ch)
}
