// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation type constants used in switch statements across metrics.
const (
	// OpDbQuery represents database query operations.
	OpDbQuery = "db_query"
	// OpDbInsert represents database insert operations.
	OpDbInsert = "db_insert"
	// OpDbUpdate represents database update operations.
	OpDbUpdate = "db_update"
	// OpDbDelete represents database delete operations.
	OpDbDelete = "db_delete"
	// OpTransaction represents database transaction operations.
	OpTransaction = "transaction"
	// OpSearch represents domain search operations.
	OpSearch = "search"
	// OpBackup represents database backup operations.
	OpBackup = "backup"
	// OpMaintenance represents retention pruning and seeding.
	OpMaintenance = "maintenance"
	// OpAnalyze represents a full URL analysis.
	OpAnalyze = "analyze"
	// OpReport represents a user scam report.
	OpReport = "report"
)

// Label value constants used for metric labels.
const (
	// LabelCommit is the operation label for commit operations.
	LabelCommit = "commit"
	// LabelCreate is the operation label for create operations.
	LabelCreate = "create"
	// LabelQuery is the operation label for query operations.
	LabelQuery = "query"
	// LabelPrune is the operation label for retention pruning.
	LabelPrune = "prune"

	// StatusSuccess marks a successful operation.
	StatusSuccess = "success"
	// StatusError marks a failed operation.
	StatusError = "error"
	// StatusTimeout marks an operation that ran out of time.
	StatusTimeout = "timeout"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)

// ShutdownTimeout bounds graceful shutdown of metric producers.
const ShutdownTimeout = 5 * time.Second

// SplitPartsCount is the expected number of parts when splitting "operation:table" strings.
const SplitPartsCount = 2
