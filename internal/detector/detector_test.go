package detector

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"github.com/tphakala/phishguard/internal/phishtank"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDetector(t *testing.T, store *fakeStore, intel IntelClient, phish PhishChecker, opts ...Option) (*Detector, *metrics.DetectorMetrics) {
	t.Helper()
	m, err := metrics.NewDetectorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	opts = append([]Option{WithMetrics(m), WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, intel, phish, opts...), m
}

func maliciousIntel() *fakeIntel {
	f := cleanIntel()
	f.url = urlhaus.URLResult{
		IsMalicious: true,
		Confidence:  0.9,
		ThreatType:  "malware_download",
		Status:      urlhaus.StatusDetected,
		Detail:      "MALWARE DETECTED - Threat: malware_download",
		Tags:        []string{"elf", "mozi"},
	}
	return f
}

func maliciousHost(f *fakeIntel) *fakeIntel {
	f.host = urlhaus.HostResult{IsMalicious: true, Status: urlhaus.StatusDetected, URLCount: 12}
	return f
}

func TestAnalyzeHeuristicScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		wantLevel   ThreatLevel
		wantMethods []string
		wantConf    float64
		wantMessage string
	}{
		{
			name:        "benign site",
			url:         "https://www.google.com",
			wantLevel:   LevelSafe,
			wantMethods: []string{},
			wantMessage: msgSafe,
		},
		{
			name:        "shortener",
			url:         "https://bit.ly/xyz",
			wantLevel:   LevelMedium,
			wantMethods: []string{MethodPatternAnalysis},
			wantConf:    0.2,
			wantMessage: msgMediumPattern,
		},
		{
			name:        "literal IP alone stays below the structure threshold",
			url:         "http://192.168.1.1/malware.exe",
			wantLevel:   LevelSafe,
			wantMethods: []string{},
			wantMessage: msgSafe,
		},
		{
			name:        "IP host under suspicious TLD",
			url:         "http://10.0.0.1.tk/",
			wantLevel:   LevelMedium,
			wantMethods: []string{MethodPatternAnalysis, MethodURLStructure},
			wantConf:    0.36,
			wantMessage: msgMediumPattern,
		},
		{
			name:        "regional lure",
			url:         "https://kbz-secure.example/refund-kyat",
			wantLevel:   LevelHigh,
			wantMethods: []string{MethodPatternAnalysis, MethodRegionalSpecific},
			wantConf:    0.8,
			wantMessage: msgHighRegional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, _ := newTestDetector(t, newFakeStore(), nil, nil)

			v := d.Analyze(t.Context(), tt.url)

			assert.Equal(t, tt.wantLevel, v.ThreatLevel)
			assert.Equal(t, tt.wantMethods, v.DetectionMethods)
			assert.InDelta(t, tt.wantConf, v.Confidence, 1e-9)
			assert.Equal(t, tt.wantMessage, v.Message)
			assert.Equal(t, tt.wantLevel != LevelSafe, v.IsSuspicious)
			assert.Equal(t, fixedNow, v.AnalysisTime)
		})
	}
}

func TestAnalyzeRegionalAddsWarning(t *testing.T) {
	t.Parallel()
	d, _ := newTestDetector(t, newFakeStore(), nil, nil)

	v := d.Analyze(t.Context(), "https://kbz-secure.example/refund-kyat")
	assert.Equal(t, []string{warnRegional}, v.Warnings)
}

func TestAnalyzeSafeCheckedByURLhaus(t *testing.T) {
	t.Parallel()
	intel := cleanIntel()
	d, _ := newTestDetector(t, newFakeStore(), intel, nil)

	v := d.Analyze(t.Context(), "https://www.google.com")

	assert.Equal(t, LevelSafe, v.ThreatLevel)
	assert.Equal(t, msgSafeChecked, v.Message)
	assert.Equal(t, int32(1), intel.urlCalls.Load())
	assert.Equal(t, int32(1), intel.hostCalls.Load())
}

func TestAnalyzeLocalStoreShortCircuits(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.upsert("https://evil.example/login", "phishing", "manual", 0.8, nil)
	intel := maliciousHost(maliciousIntel())
	phish := &fakePhish{enabled: true}
	d, _ := newTestDetector(t, store, intel, phish)

	v := d.Analyze(t.Context(), "  https://evil.example/login?utm_source=mail ")

	assert.Equal(t, LevelCritical, v.ThreatLevel)
	assert.Equal(t, []string{MethodLocalDatabase}, v.DetectionMethods)
	assert.InDelta(t, 0.8, v.Confidence, 1e-9)
	assert.Equal(t, []string{"Local DB: phishing - manual"}, v.Warnings)
	assert.Equal(t, msgCritical, v.Message)
	assert.Zero(t, intel.calls(), "intel must not be queried after a local hit")
	assert.Zero(t, phish.checks.Load())
	assert.Equal(t, 1, store.eventCount())
}

func TestAnalyzeURLhausHitWritesThrough(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	intel := maliciousIntel()
	d, _ := newTestDetector(t, store, intel, nil)
	const u = "http://203.0.113.9/bins/mozi.m"

	first := d.Analyze(t.Context(), u)

	assert.Equal(t, LevelCritical, first.ThreatLevel)
	assert.Equal(t, []string{MethodURLhaus}, first.DetectionMethods)
	assert.GreaterOrEqual(t, first.Confidence, 0.95)
	assert.Equal(t, msgCriticalMalware, first.Message)
	assert.Equal(t, 1, store.writeThroughs)
	calls := intel.calls()

	second := d.Analyze(t.Context(), u)

	assert.Equal(t, LevelCritical, second.ThreatLevel)
	assert.Equal(t, []string{MethodLocalDatabase}, second.DetectionMethods)
	assert.InDelta(t, 0.9, second.Confidence, 1e-9)
	assert.Equal(t, calls, intel.calls(), "second analysis must be served locally")
}

func TestAnalyzeURLhausHitWithMaliciousHost(t *testing.T) {
	t.Parallel()
	d, _ := newTestDetector(t, newFakeStore(), maliciousHost(maliciousIntel()), nil)

	v := d.Analyze(t.Context(), "http://203.0.113.9/bins/mozi.m")

	assert.Equal(t, []string{MethodURLhaus, MethodURLhausHost}, v.DetectionMethods)
	assert.InDelta(t, 1.0, v.Confidence, 1e-9)
	assert.Contains(t, v.Warnings, "URLhaus Host: 12 malware URLs found on this domain")
}

func TestAnalyzeWriteThroughSurvivesCancellation(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	d, _ := newTestDetector(t, store, maliciousIntel(), nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	v := d.Analyze(ctx, "http://203.0.113.9/bins/mozi.m")

	assert.Equal(t, LevelCritical, v.ThreatLevel)
	assert.Equal(t, 1, store.writeThroughs)
	assert.NoError(t, store.writeCtxErr)
	assert.NoError(t, store.logCtxErr)
}

func TestAnalyzeIntelTimeoutDegradesToHeuristics(t *testing.T) {
	t.Parallel()
	intel := &fakeIntel{
		configured: true,
		url:        urlhaus.URLResult{Status: urlhaus.StatusTimeout},
		host:       urlhaus.HostResult{Status: urlhaus.StatusTimeout},
	}
	d, _ := newTestDetector(t, newFakeStore(), intel, nil)

	v := d.Analyze(t.Context(), "https://bit.ly/xyz")

	require.NotNil(t, v)
	assert.Equal(t, LevelMedium, v.ThreatLevel)
	assert.Equal(t, []string{MethodPatternAnalysis}, v.DetectionMethods)
	assert.Equal(t, msgMediumPattern, v.Message)
}

func TestAnalyzeEscalationIsMonotonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		intel       *fakeIntel
		phish       *fakePhish
		url         string
		wantLevel   ThreatLevel
		wantMethods []string
		wantMessage string
	}{
		{
			name:        "host hit keeps high over medium pattern",
			intel:       maliciousHost(cleanIntel()),
			url:         "https://bit.ly/xyz",
			wantLevel:   LevelHigh,
			wantMethods: []string{MethodURLhausHost, MethodPatternAnalysis},
			wantMessage: msgHighHost,
		},
		{
			name:        "phishtank lifts host hit to critical",
			intel:       maliciousHost(cleanIntel()),
			phish:       &fakePhish{enabled: true, result: phishtank.Result{IsPhishing: true, PhishID: "77", Detail: "phish #77"}},
			url:         "https://bit.ly/xyz",
			wantLevel:   LevelCritical,
			wantMethods: []string{MethodURLhausHost, MethodPhishTank, MethodPatternAnalysis},
			wantMessage: msgCriticalPhishing,
		},
		{
			name:        "critical survives every heuristic",
			intel:       cleanIntel(),
			phish:       &fakePhish{enabled: true, result: phishtank.Result{IsPhishing: true, PhishID: "5", Detail: "phish #5"}},
			url:         "https://kbz-secure.example/refund-kyat",
			wantLevel:   LevelCritical,
			wantMethods: []string{MethodPhishTank, MethodPatternAnalysis, MethodRegionalSpecific},
			wantMessage: msgCriticalPhishing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var phish PhishChecker
			if tt.phish != nil {
				phish = tt.phish
			}
			d, _ := newTestDetector(t, newFakeStore(), tt.intel, phish)

			v := d.Analyze(t.Context(), tt.url)

			assert.Equal(t, tt.wantLevel, v.ThreatLevel)
			assert.Equal(t, tt.wantMethods, v.DetectionMethods)
			assert.Equal(t, tt.wantMessage, v.Message)
			assert.LessOrEqual(t, v.Confidence, 1.0)
			assert.GreaterOrEqual(t, v.Confidence, 0.0)
		})
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	t.Parallel()
	d, _ := newTestDetector(t, newFakeStore(), maliciousHost(cleanIntel()), &fakePhish{enabled: true})

	for _, u := range []string{"https://bit.ly/xyz", "https://www.google.com", "https://kbz-secure.example/refund-kyat"} {
		first := d.Analyze(t.Context(), u)
		second := d.Analyze(t.Context(), u)
		assert.Equal(t, first.ThreatLevel, second.ThreatLevel, u)
		assert.Equal(t, first.DetectionMethods, second.DetectionMethods, u)
		assert.InDelta(t, first.Confidence, second.Confidence, 1e-9, u)
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	d, m := newTestDetector(t, store, cleanIntel(), nil, WithNotifiers(notifier))

	for _, in := range []string{"", "   ", "https://exa mple.com/x"} {
		v := d.Analyze(t.Context(), in)
		assert.Equal(t, LevelUnknown, v.ThreatLevel, in)
		assert.Equal(t, msgUnknown, v.Message)
		assert.False(t, v.IsSuspicious)
	}

	require.Equal(t, 3, store.eventCount())
	for _, ev := range store.events {
		assert.Equal(t, string(LevelUnknown), ev.ThreatLevel)
		assert.False(t, ev.IsSuspicious)
		assert.Empty(t, ev.DetectionMethods)
	}
	assert.Len(t, notifier.verdicts, 3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(string(LevelUnknown))), 0)
}

func TestAnalyzeStoreFailuresFailOpen(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.lookupErr = fmt.Errorf("database is locked")
	store.logErr = fmt.Errorf("disk full")
	d, m := newTestDetector(t, store, nil, nil)

	v := d.Analyze(t.Context(), "https://bit.ly/xyz")

	assert.Equal(t, LevelMedium, v.ThreatLevel)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StoreFailOpenTotal.WithLabelValues("lookup")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StoreFailOpenTotal.WithLabelValues("log_detection")), 0)
}

func TestAnalyzeLogsDetectionEvent(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	d, m := newTestDetector(t, store, nil, nil)

	d.Analyze(t.Context(), "https://bit.ly/xyz")

	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.Equal(t, "https://bit.ly/xyz", ev.OriginalURL)
	assert.Equal(t, string(LevelMedium), ev.ThreatLevel)
	assert.Equal(t, []string{MethodPatternAnalysis}, []string(ev.DetectionMethods))
	assert.True(t, ev.IsSuspicious)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TierHitsTotal.WithLabelValues(MethodPatternAnalysis)), 0)
}

func TestAnalyzeNotifiesEveryVerdict(t *testing.T) {
	t.Parallel()
	n1, n2 := &recordingNotifier{}, &recordingNotifier{}
	d, _ := newTestDetector(t, newFakeStore(), nil, nil, WithNotifiers(n1), WithNotifiers(n2))

	d.Analyze(t.Context(), "https://www.google.com")
	d.Analyze(t.Context(), "https://bit.ly/xyz")

	for _, n := range []*recordingNotifier{n1, n2} {
		require.Len(t, n.verdicts, 2)
		assert.Equal(t, LevelSafe, n.verdicts[0].ThreatLevel)
		assert.Equal(t, LevelMedium, n.verdicts[1].ThreatLevel)
	}
}

func TestAnalyzeThresholdOverride(t *testing.T) {
	t.Parallel()
	d, _ := newTestDetector(t, newFakeStore(), nil, nil,
		WithThresholds(Thresholds{Pattern: 0.6, Structure: 0.3, Regional: 0.7}))

	assert.Equal(t, LevelSafe, d.Analyze(t.Context(), "https://bit.ly/xyz").ThreatLevel)

	v := d.Analyze(t.Context(), "http://192.168.1.1/malware.exe")
	assert.Equal(t, LevelMedium, v.ThreatLevel)
	assert.Equal(t, []string{MethodURLStructure}, v.DetectionMethods)
	assert.Equal(t, msgMedium, v.Message)
}

func TestAnalyzeConcurrent(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	d, _ := newTestDetector(t, store, maliciousIntel(), nil)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			v := d.Analyze(t.Context(), fmt.Sprintf("http://203.0.113.%d/x", i))
			assert.Equal(t, LevelCritical, v.ThreatLevel)
		})
	}
	wg.Wait()
	assert.Equal(t, 16, store.eventCount())
}

func TestReport(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	intel := cleanIntel()
	d, m := newTestDetector(t, store, intel, nil)

	before, err := d.Stats(t.Context())
	require.NoError(t, err)

	res := d.Report(t.Context(), "https://scam.example", "fake login", "")

	assert.True(t, res.Success)
	assert.Equal(t, msgReportSuccess, res.Message)
	assert.Equal(t, "1", res.ReportID)
	assert.Len(t, res.URLHash, 64)

	after, err := d.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, before.PendingUserReports+1, after.PendingUserReports)
	assert.Equal(t, before.TotalScamURLs+1, after.TotalScamURLs)

	v := d.Analyze(t.Context(), "scam.example")
	assert.Equal(t, []string{MethodLocalDatabase}, v.DetectionMethods)
	assert.Equal(t, LevelCritical, v.ThreatLevel)
	assert.Zero(t, intel.calls())
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReportsTotal.WithLabelValues(metrics.StatusSuccess)), 0)
}

func TestReportFailures(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.addErr = fmt.Errorf("connection refused")
	d, m := newTestDetector(t, store, nil, nil)

	res := d.Report(t.Context(), "https://scam.example", "", "user-1")
	assert.False(t, res.Success)
	assert.Equal(t, msgReportFailure, res.Message)
	assert.Empty(t, res.ReportID)

	res = d.Report(t.Context(), "  ", "", "")
	assert.False(t, res.Success)
	assert.Equal(t, msgReportInvalid, res.Message)

	assert.InDelta(t, 2, testutil.ToFloat64(m.ReportsTotal.WithLabelValues(metrics.StatusError)), 0)
}

func TestSearchByDomainRequiresDomain(t *testing.T) {
	t.Parallel()
	d, _ := newTestDetector(t, newFakeStore(), nil, nil)

	_, err := d.SearchByDomain(t.Context(), " ", 10)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestSeed(t *testing.T) {
	t.Parallel()
	d, _ := newTestDetector(t, newFakeStore(), nil, nil)

	n, err := d.Seed(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDetectionStatus(t *testing.T) {
	t.Parallel()

	offline, _ := newTestDetector(t, newFakeStore(), nil, nil)
	status := offline.DetectionStatus()
	assert.Len(t, status, 7)
	assert.False(t, status[MethodURLhaus].Enabled)
	assert.False(t, status[MethodPhishTank].Enabled)
	assert.True(t, status[MethodPatternAnalysis].Enabled)
	assert.Equal(t, "PRIMARY", status[MethodLocalDatabase].Priority)

	online, _ := newTestDetector(t, newFakeStore(), cleanIntel(), &fakePhish{enabled: true})
	status = online.DetectionStatus()
	assert.True(t, status[MethodURLhaus].Enabled)
	assert.True(t, status[MethodURLhausHost].Enabled)
	assert.True(t, status[MethodPhishTank].Enabled)
}

func TestSafetyTipsReturnsCopy(t *testing.T) {
	t.Parallel()
	tips := SafetyTips()
	require.Len(t, tips, 8)
	tips[0] = "changed"
	assert.NotEqual(t, "changed", SafetyTips()[0])
}
