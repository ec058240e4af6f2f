package datastore

import (
	"context"
	"time"

	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

// LogDetection appends event to the detection history. URLHash and Timestamp are
// filled in when empty.
func (ds *DataStore) LogDetection(ctx context.Context, event *DetectionEvent) error {
	const op = metrics.OpDbInsert + ":detection_history"
	start := time.Now()

	if event == nil {
		return validationError("detection event is nil", "event", nil)
	}
	if event.URLHash == "" {
		event.URLHash = HashURL(event.OriginalURL)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = nowFunc()
	}
	if event.DetectionMethods == nil {
		event.DetectionMethods = StringList{}
	}

	err := ds.DB.WithContext(ctx).Create(event).Error
	ds.observe(op, start, err)
	if err != nil {
		return dbError(err, "log_detection", errors.PriorityLow, "url_hash", event.URLHash)
	}
	return nil
}

// RetentionPeriod converts a retention in days into the age passed to
// PruneDetections. days must be within 1..conf.MaxRetentionDays.
func RetentionPeriod(days int) (time.Duration, error) {
	if days < 1 || days > conf.MaxRetentionDays {
		return 0, errors.Newf("retention must be between 1 and %d days, got %d", conf.MaxRetentionDays, days).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("field", "days").
			Build()
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// PruneDetections deletes detection history older than olderThan and returns the
// number of rows removed.
func (ds *DataStore) PruneDetections(ctx context.Context, olderThan time.Duration) (int64, error) {
	const op = metrics.OpMaintenance + ":" + metrics.LabelPrune
	start := time.Now()

	if olderThan <= 0 {
		return 0, validationError("retention must be positive", "older_than", olderThan)
	}
	cutoff := nowFunc().Add(-olderThan)

	result := ds.DB.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&DetectionEvent{})
	ds.observe(op, start, result.Error)
	if result.Error != nil {
		return 0, dbError(result.Error, "prune_detections", errors.PriorityMedium,
			"cutoff", cutoff.Format(time.RFC3339))
	}

	GetLogger().Info("Pruned detection history",
		logger.Int64("deleted", result.RowsAffected),
		logger.Time("cutoff", cutoff))
	return result.RowsAffected, nil
}

// Stats summarizes the store: active threats, active threats per source, detections
// in the last 24 hours and pending user reports.
func (ds *DataStore) Stats(ctx context.Context) (*Stats, error) {
	const op = metrics.OpDbQuery + ":stats"
	start := time.Now()
	db := ds.DB.WithContext(ctx)

	stats := &Stats{BySource: make(map[string]int64)}

	err := db.Model(&ThreatRecord{}).Where("is_active = ?", true).Count(&stats.TotalScamURLs).Error
	if err == nil {
		var rows []struct {
			Source string
			Count  int64
		}
		err = db.Model(&ThreatRecord{}).
			Select("source, COUNT(*) AS count").
			Where("is_active = ?", true).
			Group("source").
			Scan(&rows).Error
		for _, r := range rows {
			stats.BySource[r.Source] = r.Count
		}
	}
	if err == nil {
		err = db.Model(&DetectionEvent{}).
			Where("timestamp > ?", nowFunc().Add(-24*time.Hour)).
			Count(&stats.RecentDetections24h).Error
	}
	if err == nil {
		err = db.Model(&UserReport{}).
			Where("status = ?", ReportStatusPending).
			Count(&stats.PendingUserReports).Error
	}
	ds.observe(op, start, err)
	if err != nil {
		return nil, dbError(err, "stats", errors.PriorityLow)
	}

	if ds.metrics != nil {
		ds.metrics.UpdateActiveThreats(stats.TotalScamURLs)
	}
	return stats, nil
}
