// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// operations of the local threat store.
type Interface interface {
	Open() error
	Close() error
	Ping(ctx context.Context) error
	SetMetrics(m *Metrics)

	// threat records
	Lookup(ctx context.Context, url string) (*ThreatRecord, error)
	InsertOrBump(ctx context.Context, url, threatType, source string, confidence float64, tags []string) (*ThreatRecord, error)
	Deactivate(ctx context.Context, url string) error
	SearchByDomain(ctx context.Context, domain string, limit int) ([]ThreatRecord, error)
	SeedDefaults(ctx context.Context) (int, error)

	// user reports
	AddReport(ctx context.Context, url, description, userID string) (reportID uint, urlHash string, err error)
	PendingReports(ctx context.Context, limit int) ([]UserReport, error)

	// analytics
	LogDetection(ctx context.Context, event *DetectionEvent) error
	PruneDetections(ctx context.Context, olderThan time.Duration) (int64, error)
	Stats(ctx context.Context) (*Stats, error)

	// intel API health
	RecordAPIStatus(ctx context.Context, name, status string, responseTime time.Duration, ok bool) error
	APIStatuses(ctx context.Context) ([]APIStatus, error)

	// maintenance
	Backup(ctx context.Context, dest string) (string, error)
}

// DefaultSearchLimit caps SearchByDomain and PendingReports when no limit is given.
const DefaultSearchLimit = 50

// nowFunc returns the timestamp written to the store. Everything is stored in UTC so
// string-encoded SQLite timestamps compare correctly.
var nowFunc = func() time.Time { return time.Now().UTC() }

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB       *gorm.DB // GORM database instance
	metrics  *Metrics
	recorder metrics.Recorder
}

// New creates the engine selected by settings.Database.Type. The store must be
// opened with Open before use.
func New(settings *conf.Settings) (Interface, error) {
	switch strings.ToLower(settings.Database.Type) {
	case "", "sqlite":
		return &SQLiteStore{Settings: settings}, nil
	case "mysql":
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, validationError("unsupported database type", "database.type", settings.Database.Type)
	}
}

// SetMetrics attaches datastore metrics. Nil disables recording.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metrics = m
	if m == nil {
		ds.recorder = nil
		return
	}
	ds.recorder = m
}

// SetRecorder routes operation, duration and error counts to r without
// touching the prometheus gauges.
func (ds *DataStore) SetRecorder(r metrics.Recorder) {
	ds.recorder = r
}

// Ping verifies the database connection is alive.
func (ds *DataStore) Ping(ctx context.Context) error {
	if ds.DB == nil {
		return errDBNotInitialized("ping")
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "ping", errors.PriorityHigh)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", errors.PriorityHigh)
	}
	return nil
}

// closeDB releases the connection pool.
func (ds *DataStore) closeDB(dbType string) error {
	if ds.DB == nil {
		return errDBNotInitialized("close")
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", errors.PriorityMedium, "db_type", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", errors.PriorityMedium, "db_type", dbType)
	}
	GetLogger().Debug("Database connection closed")
	return nil
}

// observe records metrics for one operation. operation uses the "op:table" form.
func (ds *DataStore) observe(operation string, start time.Time, err error) {
	rec := ds.recorder
	if rec == nil {
		rec = metrics.NoOpRecorder{}
	}
	status := metrics.StatusSuccess
	if err != nil && !errors.Is(err, ErrThreatNotFound) {
		status = metrics.StatusError
		rec.RecordError(operation, categorizeError(err))
	}
	rec.RecordOperation(operation, status)
	rec.RecordDuration(operation, time.Since(start).Seconds())
}

func errDBNotInitialized(operation string) error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
