// Package metrics provides custom Prometheus metrics for the verdict combiner.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectorMetrics contains Prometheus metrics for URL analysis and reporting.
type DetectorMetrics struct {
	AnalysesTotal       *prometheus.CounterVec   // verdicts by threat level
	TierHitsTotal       *prometheus.CounterVec   // detection methods that fired
	AnalysisDuration    prometheus.Histogram     // wall time of Analyze
	ReportsTotal        *prometheus.CounterVec   // user reports by status
	StoreFailOpenTotal  *prometheus.CounterVec   // storage failures tolerated during analysis
	OperationsTotal     *prometheus.CounterVec   // Recorder operations
	OperationDuration   *prometheus.HistogramVec // Recorder durations
	OperationErrorTotal *prometheus.CounterVec   // Recorder errors

	registry *prometheus.Registry
}

// NewDetectorMetrics creates and registers detector metrics.
func NewDetectorMetrics(registry *prometheus.Registry) (*DetectorMetrics, error) {
	m := &DetectorMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize detector metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detector metrics: %w", err)
	}
	return m, nil
}

func (m *DetectorMetrics) initMetrics() error {
	m.AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_analyses_total",
			Help: "Total number of URL analyses by resulting threat level",
		},
		[]string{"threat_level"},
	)

	m.TierHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_detection_method_hits_total",
			Help: "Total number of times each detection method contributed to a verdict",
		},
		[]string{"method"},
	)

	m.AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "phishguard_analysis_duration_seconds",
			Help:    "Time taken to analyze a URL",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
	)

	m.ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_reports_total",
			Help: "Total number of user scam reports by status",
		},
		[]string{"status"},
	)

	m.StoreFailOpenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_store_fail_open_total",
			Help: "Storage failures that were tolerated during analysis",
		},
		[]string{"operation"},
	)

	m.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_operations_total",
			Help: "Total number of detector operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phishguard_operation_duration_seconds",
			Help:    "Time taken for detector operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.OperationErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_operation_errors_total",
			Help: "Total number of detector operation errors",
		},
		[]string{"operation", "error_type"},
	)

	return nil
}

// RecordVerdict records the outcome of one analysis.
func (m *DetectorMetrics) RecordVerdict(threatLevel string, methods []string, durationSeconds float64) {
	m.AnalysesTotal.WithLabelValues(threatLevel).Inc()
	for _, method := range methods {
		m.TierHitsTotal.WithLabelValues(method).Inc()
	}
	m.AnalysisDuration.Observe(durationSeconds)
}

// RecordReport records a user report outcome.
func (m *DetectorMetrics) RecordReport(success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	m.ReportsTotal.WithLabelValues(status).Inc()
}

// RecordStoreFailOpen counts a storage failure the combiner ignored.
func (m *DetectorMetrics) RecordStoreFailOpen(operation string) {
	m.StoreFailOpenTotal.WithLabelValues(operation).Inc()
}

// RecordOperation implements the Recorder interface.
func (m *DetectorMetrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements the Recorder interface.
func (m *DetectorMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements the Recorder interface.
func (m *DetectorMetrics) RecordError(operation, errorType string) {
	m.OperationErrorTotal.WithLabelValues(operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *DetectorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AnalysesTotal.Describe(ch)
	m.TierHitsTotal.Describe(ch)
	m.AnalysisDuration.Describe(ch)
	m.ReportsTotal.Describe(ch)
	m.StoreFailOpenTotal.Describe(ch)
	m.OperationsTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.OperationErrorTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DetectorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AnalysesTotal.Collect(ch)
	m.TierHitsTotal.Collect(ch)
	m.AnalysisDuration.Collect(ch)
	m.ReportsTotal.Collect(ch)
	m.StoreFailOpenTotal.Collect(ch)
	m.OperationsTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.OperationErrorTotal.Collect(ch)
}
