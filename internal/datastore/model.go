// model.go this code defines the data models for the threat store
package datastore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Threat types stored in scam_urls.threat_type.
const (
	ThreatPhishing     = "phishing"
	ThreatMalware      = "malware"
	ThreatScam         = "scam"
	ThreatUserReported = "user_reported"
)

// Well known record sources.
const (
	SourceURLhaus    = "urlhaus"
	SourceUserReport = "user_report"
)

// User report states.
const (
	ReportStatusPending  = "pending"
	ReportStatusReviewed = "reviewed"
)

// UserReportConfidence is the confidence given to URLs first seen through a user report.
const UserReportConfidence = 0.7

// StringList is a string slice persisted as a JSON array in a text column.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and empty text scan to an empty list.
func (s *StringList) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*s = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

// ThreatRecord is a known-bad URL. Rows are never hard deleted; Deactivate clears IsActive.
type ThreatRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	URLHash     string     `gorm:"size:64;uniqueIndex;not null" json:"url_hash"`
	OriginalURL string     `gorm:"type:text;not null" json:"original_url"`
	Domain      string     `gorm:"size:255;index;not null" json:"domain"`
	ThreatType  string     `gorm:"size:32;not null" json:"threat_type"`
	Confidence  float64    `gorm:"default:0.8" json:"confidence"`
	Source      string     `gorm:"size:64;index;not null" json:"source"`
	Tags        StringList `gorm:"type:text" json:"tags"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
	ReportCount int        `gorm:"default:1" json:"report_count"`
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`
}

// TableName overrides the default table name.
func (ThreatRecord) TableName() string { return "scam_urls" }

// UserReport is an append-only record of a user submitted scam report.
type UserReport struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	URLHash     string     `gorm:"size:64;index;not null" json:"url_hash"`
	OriginalURL string     `gorm:"type:text;not null" json:"original_url"`
	Description string     `gorm:"type:text" json:"description"`
	UserID      *string    `gorm:"size:128" json:"user_id,omitempty"`
	ReportType  string     `gorm:"size:32;default:scam" json:"report_type"`
	Status      string     `gorm:"size:16;default:pending;index" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy  *string    `gorm:"size:128" json:"reviewed_by,omitempty"`
}

// DetectionEvent is one analysis outcome kept for analytics and subject to retention.
type DetectionEvent struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	URLHash          string     `gorm:"size:64;index;not null" json:"url_hash"`
	OriginalURL      string     `gorm:"type:text;not null" json:"original_url"`
	ThreatLevel      string     `gorm:"size:16;not null" json:"threat_level"`
	Confidence       float64    `gorm:"not null" json:"confidence"`
	DetectionMethods StringList `gorm:"type:text" json:"detection_methods"`
	IsSuspicious     bool       `gorm:"not null" json:"is_suspicious"`
	ResponseTimeMs   int64      `json:"response_time_ms"`
	Timestamp        time.Time  `gorm:"index" json:"timestamp"`
}

// TableName overrides the default table name.
func (DetectionEvent) TableName() string { return "detection_history" }

// APIStatus tracks the health of an external intel API. Written after every call,
// never consulted when scoring.
type APIStatus struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	APIName        string    `gorm:"size:64;uniqueIndex;not null" json:"api_name"`
	LastCheck      time.Time `json:"last_check"`
	Status         string    `gorm:"size:32;not null" json:"status"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	ErrorCount     int64     `json:"error_count"`
	SuccessCount   int64     `json:"success_count"`
}

// TableName overrides the default table name.
func (APIStatus) TableName() string { return "api_status" }

// Stats summarizes the store contents.
type Stats struct {
	TotalScamURLs       int64            `json:"total_scam_urls"`
	BySource            map[string]int64 `json:"by_source"`
	RecentDetections24h int64            `json:"recent_detections_24h"`
	PendingUserReports  int64            `json:"pending_user_reports"`
}
