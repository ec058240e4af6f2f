package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	mysqlMaxOpenConns    = 25
	mysqlMaxIdleConns    = 5
	mysqlConnMaxLifetime = 30 * time.Minute
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	cfg := settings.Database.MySQL
	switch {
	case cfg.Host == "":
		return validationError("mysql host must not be empty", "database.mysql.host", cfg.Host)
	case cfg.Database == "":
		return validationError("mysql database must not be empty", "database.mysql.database", cfg.Database)
	}
	return nil
}

// mysqlDSN builds the go-sql-driver DSN. Times are stored and read as UTC.
func mysqlDSN(cfg conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	cfg := store.Settings.Database.MySQL
	dsn := mysqlDSN(cfg)
	mysqlLogger := GetLogger().With(
		logger.String("host", cfg.Host),
		logger.String("port", cfg.Port),
		logger.String("database", cfg.Database))

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:  createGormLogger(),
		NowFunc: nowFunc,
	})
	if err != nil {
		mysqlLogger.Error("Failed to open MySQL database", logger.Error(err))
		return dbError(err, "open_mysql", errors.PriorityCritical,
			"host", cfg.Host,
			"database", cfg.Database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_mysql", errors.PriorityCritical)
	}
	sqlDB.SetMaxOpenConns(mysqlMaxOpenConns)
	sqlDB.SetMaxIdleConns(mysqlMaxIdleConns)
	sqlDB.SetConnMaxLifetime(mysqlConnMaxLifetime)

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", dsn)
}

// Close MySQL database connections
func (store *MySQLStore) Close() error {
	return store.closeDB("mysql")
}

// Backup is not implemented for MySQL; use mysqldump or a managed snapshot.
func (store *MySQLStore) Backup(_ context.Context, _ string) (string, error) {
	return "", validationError("backup is only supported for sqlite databases", "database.type", "mysql")
}
