package detector

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/normalize"
)

// ReportResult is the outcome of a user scam report.
type ReportResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ReportID string `json:"report_id,omitempty"`
	URLHash  string `json:"url_hash,omitempty"`
}

// Report records a user submitted scam URL. The URL becomes a local threat so
// later analyses short-circuit on it. Report never fails; storage problems are
// reported through Success.
func (d *Detector) Report(ctx context.Context, rawURL, description, userID string) ReportResult {
	u := normalize.URL(rawURL)
	if u == "" || normalize.Host(u) == "" {
		d.recordReport(false)
		return ReportResult{Message: msgReportInvalid}
	}

	id, hash, err := d.store.AddReport(ctx, u, strings.TrimSpace(description), strings.TrimSpace(userID))
	if err != nil {
		GetLogger().WithContext(ctx).Error("failed to store scam report",
			logger.String("url", logger.RedactURL(u)),
			logger.Error(err))
		d.recordReport(false)
		return ReportResult{Message: msgReportFailure}
	}

	GetLogger().WithContext(ctx).Info("scam reported",
		logger.String("url_hash", hash),
		logger.Bool("has_user", userID != ""))
	d.recordReport(true)
	return ReportResult{
		Success:  true,
		Message:  msgReportSuccess,
		ReportID: strconv.FormatUint(uint64(id), 10),
		URLHash:  hash,
	}
}

func (d *Detector) recordReport(success bool) {
	if d.metrics != nil {
		d.metrics.RecordReport(success)
	}
}

// Stats returns local store statistics.
func (d *Detector) Stats(ctx context.Context) (*datastore.Stats, error) {
	return d.store.Stats(ctx)
}

// SearchByDomain lists active local threats whose domain contains domain.
func (d *Detector) SearchByDomain(ctx context.Context, domain string, limit int) ([]datastore.ThreatRecord, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.Newf("domain must not be empty").
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}
	return d.store.SearchByDomain(ctx, domain, limit)
}

// Seed loads the built in threat list into the store and returns how many
// entries it holds.
func (d *Detector) Seed(ctx context.Context) (int, error) {
	n, err := d.store.SeedDefaults(ctx)
	if err != nil {
		return 0, err
	}
	GetLogger().Info("threat store seeded", logger.Int("entries", n))
	return n, nil
}

// MethodStatus describes one detection method.
type MethodStatus struct {
	Enabled     bool   `json:"enabled"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// DetectionStatus reports which detection methods are active.
func (d *Detector) DetectionStatus() map[string]MethodStatus {
	intel := d.intelEnabled()
	return map[string]MethodStatus{
		MethodLocalDatabase:    {true, "PRIMARY", "Local threat database (instant lookup)"},
		MethodURLhaus:          {intel, "PRIMARY", "URLhaus malware database (most accurate)"},
		MethodURLhausHost:      {intel, "SECONDARY", "URLhaus host reputation"},
		MethodPhishTank:        {d.phish != nil && d.phish.Enabled(), "FALLBACK", "PhishTank phishing database"},
		MethodPatternAnalysis:  {true, "FALLBACK", "Local pattern matching"},
		MethodURLStructure:     {true, "FALLBACK", "URL structure analysis"},
		MethodRegionalSpecific: {true, "FALLBACK", "Regional scam pattern detection"},
	}
}

// SafetyTips returns general advice shown next to verdicts.
func SafetyTips() []string {
	return slices.Clone(safetyTips)
}
