package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	memoryDSN          = ":memory:"
	sqliteBusyTimeout  = 5000 // milliseconds
	backupFilePrefix   = "phishguard_backup_"
	backupTimestampFmt = "20060102_150405"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Database.SQLite.Path == "" {
		return validationError("sqlite path must not be empty", "database.sqlite.path", "")
	}
	return nil
}

// sqliteDSN builds the connection string. File databases use WAL and a busy timeout.
func sqliteDSN(path string) string {
	if path == memoryDSN {
		return memoryDSN
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d", filepath.ToSlash(path), sqliteBusyTimeout)
}

// Open connects to the SQLite database and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	path := store.Settings.Database.SQLite.Path
	if path != memoryDSN {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("operation", "create_database_directory").
					Context("path", dir).
					Build()
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:  createGormLogger(),
		NowFunc: nowFunc,
	})
	if err != nil {
		return dbError(err, "open_sqlite", errors.PriorityCritical, "path", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_sqlite", errors.PriorityCritical, "path", path)
	}
	// every connection to ":memory:" is a separate database
	if path == memoryDSN {
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", path)
}

// Close releases the SQLite connection.
func (store *SQLiteStore) Close() error {
	return store.closeDB("sqlite")
}

// Backup writes a consistent copy of the database with VACUUM INTO. When dest is
// empty or an existing directory the file is named phishguard_backup_YYYYMMDD_HHMMSS.db.
// It returns the path written.
func (store *SQLiteStore) Backup(ctx context.Context, dest string) (string, error) {
	start := time.Now()

	target := dest
	if info, err := os.Stat(dest); dest == "" || (err == nil && info.IsDir()) {
		name := backupFilePrefix + time.Now().Format(backupTimestampFmt) + ".db"
		target = filepath.Join(dest, name)
	}
	if _, err := os.Stat(target); err == nil {
		return "", validationError("backup target already exists", "dest", target)
	}

	err := store.DB.WithContext(ctx).Exec("VACUUM INTO ?", target).Error
	store.observe(metrics.OpBackup, start, err)
	if err != nil {
		return "", errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityHigh).
			Timing("backup", time.Since(start)).
			Context("target", target).
			Build()
	}

	GetLogger().Info("Database backup created",
		logger.String("path", target),
		logger.Duration("duration", time.Since(start)))
	return target, nil
}
