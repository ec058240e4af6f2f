// Package datastore provides type aliases and integration with the observability metrics package
package datastore

import (
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

// Metrics is a type alias for the metrics.DatastoreMetrics
type Metrics = metrics.DatastoreMetrics
