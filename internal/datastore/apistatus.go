package datastore

import (
	"context"
	"time"

	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordAPIStatus upserts the health row for an intel API and bumps its success or
// error counter.
func (ds *DataStore) RecordAPIStatus(ctx context.Context, name, status string, responseTime time.Duration, ok bool) error {
	const op = metrics.OpDbInsert + ":api_status"
	start := time.Now()
	now := nowFunc()

	row := APIStatus{
		APIName:        name,
		LastCheck:      now,
		Status:         status,
		ResponseTimeMs: responseTime.Milliseconds(),
	}
	counter := "error_count"
	if ok {
		row.SuccessCount = 1
		counter = "success_count"
	} else {
		row.ErrorCount = 1
	}

	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "api_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":           status,
			"last_check":       now,
			"response_time_ms": row.ResponseTimeMs,
			counter:            gorm.Expr(counter+" + ?", 1),
		}),
	}).Create(&row).Error
	ds.observe(op, start, err)
	if err != nil {
		return dbError(err, "record_api_status", errors.PriorityLow, "api_name", name)
	}
	return nil
}

// APIStatuses returns the health rows of all intel APIs ordered by name.
func (ds *DataStore) APIStatuses(ctx context.Context) ([]APIStatus, error) {
	const op = metrics.OpDbQuery + ":api_status"
	start := time.Now()

	var rows []APIStatus
	err := ds.DB.WithContext(ctx).Order("api_name").Find(&rows).Error
	ds.observe(op, start, err)
	if err != nil {
		return nil, dbError(err, "api_statuses", errors.PriorityLow)
	}
	return rows, nil
}
