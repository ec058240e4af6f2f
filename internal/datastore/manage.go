package datastore

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/phishguard/internal/logger"
	"gorm.io/gorm"
)

// MaxColumnsForDetailedDisplay limits how many added column names are logged per table.
const MaxColumnsForDetailedDisplay = 5

const redactedMarker = "[REDACTED]"

// performAutoMigration migrates every table of the threat store and logs what changed.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := GetLogger().With(logger.String("db_type", dbType))

	migrationLogger.Debug("Starting database migration",
		logger.String("connection", redactSensitiveInfo(connectionInfo)))

	successCount, err := migrateTables(db, dbType, migrationLogger)
	if err != nil {
		return err
	}

	level := logger.LogLevelDebug
	if debug {
		level = logger.LogLevelInfo
	}
	migrationLogger.Log(level, "Database migration completed successfully",
		logger.Duration("total_duration", time.Since(migrationStart)),
		logger.Int("tables_migrated", successCount))

	return nil
}

// migrateTables performs the actual table migrations
func migrateTables(db *gorm.DB, dbType string, log logger.Logger) (int, error) {
	tableMappings := []struct {
		model any
		name  string
	}{
		{&ThreatRecord{}, "scam_urls"},
		{&UserReport{}, "user_reports"},
		{&DetectionEvent{}, "detection_history"},
		{&APIStatus{}, "api_status"},
	}

	successCount := 0
	for _, table := range tableMappings {
		if err := migrateTable(db, table.model, table.name, dbType, log); err != nil {
			return successCount, err
		}
		successCount++
	}

	return successCount, nil
}

// migrateTable migrates a single table with detailed logging
func migrateTable(db *gorm.DB, model any, tableName, dbType string, log logger.Logger) error {
	tableStart := time.Now()
	tableExists := db.Migrator().HasTable(model)
	columnsBefore := getTableColumns(db, model, tableExists)

	if err := db.AutoMigrate(model); err != nil {
		enhancedErr := criticalError(err, "auto_migrate_table", "schema_migration_failed",
			"db_type", dbType,
			"table", tableName)

		log.Error("Table migration failed",
			logger.String("table", tableName),
			logger.Error(enhancedErr))
		return enhancedErr
	}

	action, addedColumns := determineTableChanges(db, model, tableExists, columnsBefore)
	logTableMigration(log, tableName, action, addedColumns, time.Since(tableStart))

	return nil
}

// getTableColumns retrieves column names for a table
func getTableColumns(db *gorm.DB, model any, tableExists bool) []string {
	var columns []string
	if tableExists {
		if cols, err := db.Migrator().ColumnTypes(model); err == nil {
			for _, col := range cols {
				columns = append(columns, col.Name())
			}
		}
	}
	return columns
}

// determineTableChanges checks what changed after migration
func determineTableChanges(db *gorm.DB, model any, tableExists bool, columnsBefore []string) (action string, addedColumns []string) {
	if !tableExists {
		return "created", getTableColumns(db, model, true)
	}

	if cols, err := db.Migrator().ColumnTypes(model); err == nil {
		for _, col := range cols {
			if !slices.Contains(columnsBefore, col.Name()) {
				addedColumns = append(addedColumns, col.Name())
			}
		}
	}
	if len(addedColumns) == 0 {
		return "unchanged", nil
	}
	return "updated", addedColumns
}

// logTableMigration logs the result of a table migration
func logTableMigration(log logger.Logger, tableName, action string, addedColumns []string, duration time.Duration) {
	logFields := []logger.Field{
		logger.String("table", tableName),
		logger.String("action", action),
		logger.Duration("duration", duration),
	}

	if len(addedColumns) > 0 {
		logFields = append(logFields, logger.Int("columns_added", len(addedColumns)))
		if len(addedColumns) <= MaxColumnsForDetailedDisplay {
			logFields = append(logFields, logger.Strings("new_columns", addedColumns))
		}
	}

	log.Debug("Table migration completed", logFields...)
}

// redactSensitiveInfo redacts the password from a MySQL DSN. Other connection
// strings are returned unchanged.
func redactSensitiveInfo(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}

	u, err := url.Parse("dummy://" + dsn[:at] + "@host")
	if err != nil || u.User == nil {
		return redactedMarker + dsn[at:]
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return dsn
	}
	return u.User.Username() + ":" + redactedMarker + dsn[at:]
}
