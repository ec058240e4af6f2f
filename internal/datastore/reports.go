package datastore

import (
	"context"
	"time"

	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"gorm.io/gorm"
)

// userReportTags is attached to threat records created from user reports.
var userReportTags = []string{"user_reported"}

// AddReport appends a user report for url and upserts the URL into the threat
// table as user_reported, both in one transaction. An empty userID is stored as NULL.
func (ds *DataStore) AddReport(ctx context.Context, url, description, userID string) (uint, string, error) {
	const op = metrics.OpTransaction
	start := time.Now()
	hash := HashURL(url)

	report := UserReport{
		URLHash:     hash,
		OriginalURL: url,
		Description: description,
		ReportType:  "scam",
		Status:      ReportStatusPending,
		CreatedAt:   nowFunc(),
	}
	if userID != "" {
		report.UserID = &userID
	}

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		_, err := insertOrBump(tx, url, ThreatUserReported, SourceUserReport, UserReportConfidence, userReportTags)
		return err
	})
	ds.observe(op, start, err)
	if err != nil {
		return 0, "", dbError(err, "add_report", errors.PriorityMedium, "url_hash", hash)
	}

	GetLogger().Info("User report stored",
		logger.Int64("report_id", int64(report.ID)),
		logger.String("url_hash", hash))
	return report.ID, hash, nil
}

// PendingReports returns reports awaiting review, newest first.
func (ds *DataStore) PendingReports(ctx context.Context, limit int) ([]UserReport, error) {
	const op = metrics.OpDbQuery + ":user_reports"
	start := time.Now()
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var reports []UserReport
	err := ds.DB.WithContext(ctx).
		Where("status = ?", ReportStatusPending).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&reports).Error
	ds.observe(op, start, err)
	if err != nil {
		return nil, dbError(err, "pending_reports", errors.PriorityLow)
	}
	return reports, nil
}
