// Package datastore provides logging infrastructure for database operations
package datastore

import (
	"time"

	"github.com/tphakala/phishguard/internal/logger"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is logged as slow.
const DefaultSlowQueryThreshold = 500 * time.Millisecond

// GetLogger returns the datastore module logger. It is looked up on each call so
// the central logger can be installed after package initialization.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// createGormLogger routes GORM output through the central logger; SQL text is
// emitted at trace level, failures and slow queries at warn.
func createGormLogger() gormlogger.Interface {
	return logger.NewGormLoggerAdapter(GetLogger().Module("sql"), DefaultSlowQueryThreshold)
}
