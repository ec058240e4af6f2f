package api

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	analyzed []string
	reported []string

	reportFails bool
	statsErr    error
	searchErr   error
	lastLimit   int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, raw string) *detector.Verdict {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, raw)
	f.mu.Unlock()
	return &detector.Verdict{
		URL:              raw,
		IsSuspicious:     true,
		ThreatLevel:      detector.LevelHigh,
		Confidence:       0.8,
		DetectionMethods: []string{"pattern"},
		Warnings:         []string{},
		Message:          "high risk",
		AnalysisTime:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAnalyzer) Report(_ context.Context, rawURL, _, _ string) detector.ReportResult {
	f.mu.Lock()
	f.reported = append(f.reported, rawURL)
	f.mu.Unlock()
	if f.reportFails {
		return detector.ReportResult{Message: "Failed to report scam. Please try again."}
	}
	return detector.ReportResult{Success: true, Message: "ok", ReportID: "7", URLHash: "abc"}
}

func (f *fakeAnalyzer) Stats(context.Context) (*datastore.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &datastore.Stats{TotalScamURLs: 3, BySource: map[string]int64{"seed": 3}}, nil
}

func (f *fakeAnalyzer) SearchByDomain(_ context.Context, domain string, limit int) ([]datastore.ThreatRecord, error) {
	f.mu.Lock()
	f.lastLimit = limit
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if domain == "" {
		return nil, errors.ValidationError("domain must not be empty")
	}
	return []datastore.ThreatRecord{{ID: 1, Domain: domain, OriginalURL: "https://" + domain + "/x"}}, nil
}

func (f *fakeAnalyzer) DetectionStatus() map[string]detector.MethodStatus {
	return map[string]detector.MethodStatus{
		"local_database": {Enabled: true, Priority: "PRIMARY", Description: "local"},
	}
}

type fakeStore struct {
	pingErr    error
	statuses   []datastore.APIStatus
	pruned     time.Duration
	pruneCount int64
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) PendingReports(_ context.Context, limit int) ([]datastore.UserReport, error) {
	out := make([]datastore.UserReport, 0, limit)
	for i := range min(limit, 2) {
		out = append(out, datastore.UserReport{ID: uint(i + 1), Status: datastore.ReportStatusPending})
	}
	return out, nil
}

func (f *fakeStore) APIStatuses(context.Context) ([]datastore.APIStatus, error) {
	return f.statuses, nil
}

func (f *fakeStore) PruneDetections(_ context.Context, olderThan time.Duration) (int64, error) {
	f.pruned = olderThan
	return f.pruneCount, nil
}

type fakeIntel struct {
	configured bool
	listErr    error
}

func (f *fakeIntel) Configured() bool { return f.configured }

func (f *fakeIntel) QueryHost(_ context.Context, host string) urlhaus.HostResult {
	return urlhaus.HostResult{Host: host, IsMalicious: true, URLCount: 12, Status: urlhaus.StatusDetected}
}

func (f *fakeIntel) SearchTag(_ context.Context, tag string) (*urlhaus.TagResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &urlhaus.TagResult{Tag: tag, Found: true, URLCount: 1}, nil
}

func (f *fakeIntel) RecentURLs(_ context.Context, limit int) ([]urlhaus.URLEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return make([]urlhaus.URLEntry, min(limit, 3)), nil
}

func (f *fakeIntel) RecentPayloads(context.Context, int) ([]urlhaus.Payload, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []urlhaus.Payload{{MD5: "d41d8cd98f00b204e9800998ecf8427e", FileType: "exe"}}, nil
}

func (f *fakeIntel) IntelligenceSummary(context.Context) (*urlhaus.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &urlhaus.Summary{Stats: urlhaus.SummaryStats{RecentURLs: 3}}, nil
}

func fixedMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	return &mem.VirtualMemoryStat{Total: 8 << 30, Used: 2 << 30, Available: 6 << 30, UsedPercent: 25}, nil
}
