package mqtt

import (
	"time"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/normalize"
)

// VerdictEvent is the JSON payload published for each verdict. Field names are
// part of the published contract.
type VerdictEvent struct {
	URL              string    `json:"url"`
	URLHash          string    `json:"urlHash"`
	Host             string    `json:"host"`
	ThreatLevel      string    `json:"threatLevel"`
	IsSuspicious     bool      `json:"isSuspicious"`
	Confidence       float64   `json:"confidence"`
	DetectionMethods []string  `json:"detectionMethods"`
	Warnings         []string  `json:"warnings"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
	ResponseTimeMs   int64     `json:"responseTimeMs"`
	Instance         string    `json:"instance,omitempty"`
}

// NewVerdictEvent converts a verdict into its published form.
func NewVerdictEvent(v *detector.Verdict, instance string) VerdictEvent {
	return VerdictEvent{
		URL:              v.URL,
		URLHash:          datastore.HashURL(v.URL),
		Host:             normalize.Host(v.URL),
		ThreatLevel:      string(v.ThreatLevel),
		IsSuspicious:     v.IsSuspicious,
		Confidence:       v.Confidence,
		DetectionMethods: v.DetectionMethods,
		Warnings:         v.Warnings,
		AnalyzedAt:       v.AnalysisTime.UTC(),
		ResponseTimeMs:   v.ResponseTimeMs,
		Instance:         instance,
	}
}
