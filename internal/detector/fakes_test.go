package detector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/phishtank"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

// fakeStore is an in-memory Store keyed by URL.
type fakeStore struct {
	mu      sync.Mutex
	threats map[string]*datastore.ThreatRecord
	reports []datastore.UserReport
	events  []datastore.DetectionEvent

	lookupErr error
	addErr    error
	logErr    error

	lookups       int
	writeCtxErr   error
	writeThroughs int
	logCtxErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{threats: make(map[string]*datastore.ThreatRecord)}
}

func (s *fakeStore) Lookup(_ context.Context, url string) (*datastore.ThreatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	rec, ok := s.threats[url]
	if !ok || !rec.IsActive {
		return nil, datastore.ErrThreatNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) InsertOrBump(ctx context.Context, url, threatType, source string, confidence float64, tags []string) (*datastore.ThreatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeThroughs++
	s.writeCtxErr = ctx.Err()
	return s.upsert(url, threatType, source, confidence, tags), nil
}

func (s *fakeStore) upsert(url, threatType, source string, confidence float64, tags []string) *datastore.ThreatRecord {
	if rec, ok := s.threats[url]; ok {
		rec.ReportCount++
		return rec
	}
	rec := &datastore.ThreatRecord{
		URLHash:     datastore.HashURL(url),
		OriginalURL: url,
		ThreatType:  threatType,
		Source:      source,
		Confidence:  confidence,
		Tags:        tags,
		ReportCount: 1,
		IsActive:    true,
	}
	s.threats[url] = rec
	return rec
}

func (s *fakeStore) AddReport(_ context.Context, url, description, userID string) (uint, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return 0, "", s.addErr
	}
	hash := datastore.HashURL(url)
	s.reports = append(s.reports, datastore.UserReport{
		ID:          uint(len(s.reports) + 1),
		URLHash:     hash,
		OriginalURL: url,
		Description: description,
		Status:      datastore.ReportStatusPending,
	})
	s.upsert(url, datastore.ThreatUserReported, datastore.SourceUserReport, datastore.UserReportConfidence, nil)
	return uint(len(s.reports)), hash, nil
}

func (s *fakeStore) LogDetection(ctx context.Context, event *datastore.DetectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logCtxErr = ctx.Err()
	if s.logErr != nil {
		return s.logErr
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *fakeStore) Stats(context.Context) (*datastore.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &datastore.Stats{
		TotalScamURLs:      int64(len(s.threats)),
		BySource:           map[string]int64{},
		PendingUserReports: int64(len(s.reports)),
	}, nil
}

func (s *fakeStore) SearchByDomain(context.Context, string, int) ([]datastore.ThreatRecord, error) {
	return nil, nil
}

func (s *fakeStore) SeedDefaults(context.Context) (int, error) {
	return 3, nil
}

func (s *fakeStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeIntel answers URL and host queries from fixed results.
type fakeIntel struct {
	configured bool
	url        urlhaus.URLResult
	host       urlhaus.HostResult

	urlCalls  atomic.Int32
	hostCalls atomic.Int32
}

func cleanIntel() *fakeIntel {
	return &fakeIntel{
		configured: true,
		url:        urlhaus.URLResult{Status: urlhaus.StatusClean},
		host:       urlhaus.HostResult{Status: urlhaus.StatusClean},
	}
}

func (f *fakeIntel) Configured() bool { return f.configured }

func (f *fakeIntel) QueryURL(context.Context, string) urlhaus.URLResult {
	f.urlCalls.Add(1)
	return f.url
}

func (f *fakeIntel) QueryHost(context.Context, string) urlhaus.HostResult {
	f.hostCalls.Add(1)
	return f.host
}

func (f *fakeIntel) calls() int {
	return int(f.urlCalls.Load() + f.hostCalls.Load())
}

type fakePhish struct {
	enabled bool
	result  phishtank.Result
	checks  atomic.Int32
}

func (f *fakePhish) Enabled() bool { return f.enabled }

func (f *fakePhish) Check(context.Context, string) phishtank.Result {
	f.checks.Add(1)
	return f.result
}

// recordingNotifier keeps every verdict it receives.
type recordingNotifier struct {
	mu       sync.Mutex
	verdicts []Verdict
}

func (n *recordingNotifier) Notify(_ context.Context, v Verdict) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verdicts = append(n.verdicts, v)
}
