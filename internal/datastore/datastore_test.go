package datastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.Type = "sqlite"
	settings.Database.SQLite.Path = memoryDSN

	store, err := New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	sqliteStore, ok := store.(*SQLiteStore)
	require.True(t, ok)
	return sqliteStore
}

func TestHashURL(t *testing.T) {
	t.Parallel()

	want := HashURL("https://example.com/path")
	assert.Len(t, want, 64)
	assert.Equal(t, want, HashURL("  HTTPS://Example.com/PATH  "))
	assert.Equal(t, want, HashURL("example.com/path"))
	assert.NotEqual(t, want, HashURL("http://example.com/path"))
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Database.Type = "postgres"
	_, err := New(settings)
	require.Error(t, err)

	settings.Database.Type = "MySQL"
	store, err := New(settings)
	require.NoError(t, err)
	assert.IsType(t, &MySQLStore{}, store)
}

func TestLookupMissAndHit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Lookup(ctx, "https://unknown.example")
	require.ErrorIs(t, err, ErrThreatNotFound)

	inserted, err := store.InsertOrBump(ctx, "https://evil.tk/login", ThreatPhishing, "test", 0.9, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted.ReportCount)
	assert.Equal(t, "evil.tk", inserted.Domain)
	assert.Equal(t, StringList{"a", "b"}, inserted.Tags)

	got, err := store.Lookup(ctx, "https://evil.tk/login")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReportCount, "lookup returns the post-increment record")
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, ThreatPhishing, got.ThreatType)
	assert.False(t, got.LastSeen.Before(inserted.LastSeen))

	got, err = store.Lookup(ctx, "https://evil.tk/login")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReportCount)
}

func TestInsertOrBumpKeepsProvenance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.InsertOrBump(ctx, "https://bad.example/x", ThreatMalware, SourceURLhaus, 0.85, []string{"exe"})
	require.NoError(t, err)

	second, err := store.InsertOrBump(ctx, "https://bad.example/x", ThreatUserReported, SourceUserReport, 0.7, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.ReportCount)
	assert.Equal(t, ThreatMalware, second.ThreatType)
	assert.Equal(t, SourceURLhaus, second.Source)
	assert.InDelta(t, 0.85, second.Confidence, 1e-9)
	assert.Equal(t, StringList{"exe"}, second.Tags)
	assert.True(t, first.FirstSeen.Equal(second.FirstSeen))
}

func TestConcurrentLookupsNeverLoseUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertOrBump(ctx, "https://race.example", ThreatScam, "test", 0.8, nil)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			_, err := store.Lookup(ctx, "https://race.example")
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	var record ThreatRecord
	require.NoError(t, store.DB.Where("url_hash = ?", HashURL("https://race.example")).First(&record).Error)
	assert.Equal(t, 1+workers, record.ReportCount)
}

func TestDeactivateHidesRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertOrBump(ctx, "https://gone.example", ThreatScam, "test", 0.8, nil)
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, "https://gone.example"))
	_, err = store.Lookup(ctx, "https://gone.example")
	require.ErrorIs(t, err, ErrThreatNotFound)
	require.ErrorIs(t, store.Deactivate(ctx, "https://gone.example"), ErrThreatNotFound)

	// the row is kept
	var count int64
	require.NoError(t, store.DB.Model(&ThreatRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddReportWritesThrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	id, hash, err := store.AddReport(ctx, "https://new-scam.example", "asked for my PIN", "")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, HashURL("https://new-scam.example"), hash)

	record, err := store.Lookup(ctx, "https://new-scam.example")
	require.NoError(t, err)
	assert.Equal(t, ThreatUserReported, record.ThreatType)
	assert.Equal(t, SourceUserReport, record.Source)
	assert.InDelta(t, UserReportConfidence, record.Confidence, 1e-9)
	assert.Equal(t, StringList{"user_reported"}, record.Tags)
	assert.Equal(t, 2, record.ReportCount, "new report counts once, then the lookup")

	_, _, err = store.AddReport(ctx, "https://new-scam.example", "again", "user-42")
	require.NoError(t, err)

	reports, err := store.PendingReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "again", reports[0].Description)
	require.NotNil(t, reports[0].UserID)
	assert.Equal(t, "user-42", *reports[0].UserID)
	assert.Nil(t, reports[1].UserID)
	assert.Equal(t, ReportStatusPending, reports[1].Status)
	assert.Equal(t, "scam", reports[1].ReportType)
}

func TestSearchByDomainOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertOrBump(ctx, "https://login.paypal-secure.tk/a", ThreatPhishing, "test", 0.9, nil)
	require.NoError(t, err)
	for range 3 {
		_, err = store.InsertOrBump(ctx, "https://paypal-secure.tk/b", ThreatPhishing, "test", 0.9, nil)
		require.NoError(t, err)
	}
	_, err = store.InsertOrBump(ctx, "https://unrelated.example", ThreatScam, "test", 0.9, nil)
	require.NoError(t, err)
	_, err = store.InsertOrBump(ctx, "https://old.paypal-secure.tk", ThreatScam, "test", 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, "https://old.paypal-secure.tk"))

	records, err := store.SearchByDomain(ctx, "paypal-secure", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://paypal-secure.tk/b", records[0].OriginalURL)
	assert.Equal(t, 3, records[0].ReportCount)

	records, err = store.SearchByDomain(ctx, "paypal-secure", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDetectionsStatsAndPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.LogDetection(ctx, &DetectionEvent{
		OriginalURL:      "https://a.example",
		ThreatLevel:      "critical",
		Confidence:       0.95,
		DetectionMethods: StringList{"urlhaus"},
		IsSuspicious:     true,
		ResponseTimeMs:   120,
	}))
	require.NoError(t, store.LogDetection(ctx, &DetectionEvent{
		OriginalURL: "https://old.example",
		ThreatLevel: "safe",
		Timestamp:   nowFunc().Add(-40 * 24 * time.Hour),
	}))
	require.Error(t, store.LogDetection(ctx, nil))

	_, err := store.InsertOrBump(ctx, "https://a.example", ThreatMalware, SourceURLhaus, 0.9, nil)
	require.NoError(t, err)
	_, _, err = store.AddReport(ctx, "https://b.example", "", "")
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalScamURLs)
	assert.Equal(t, map[string]int64{SourceURLhaus: 1, SourceUserReport: 1}, stats.BySource)
	assert.Equal(t, int64(1), stats.RecentDetections24h)
	assert.Equal(t, int64(1), stats.PendingUserReports)

	deleted, err := store.PruneDetections(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var events []DetectionEvent
	require.NoError(t, store.DB.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, StringList{"urlhaus"}, events[0].DetectionMethods)
	assert.Equal(t, HashURL("https://a.example"), events[0].URLHash)

	_, err = store.PruneDetections(ctx, 0)
	assert.Error(t, err)
}

func TestRetentionPeriod(t *testing.T) {
	t.Parallel()

	got, err := RetentionPeriod(30)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, got)

	got, err = RetentionPeriod(conf.MaxRetentionDays)
	require.NoError(t, err)
	assert.Positive(t, got)

	for _, days := range []int{0, -1, conf.MaxRetentionDays + 1, 213505} {
		_, err := RetentionPeriod(days)
		require.Error(t, err, "days=%d", days)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestSeedDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	n, err := store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	record, err := store.Lookup(ctx, "https://kbz-verify-account.secure-banking.cf")
	require.NoError(t, err)
	assert.Equal(t, ThreatPhishing, record.ThreatType)
	assert.Equal(t, "kbz_bank", record.Source)
	assert.InDelta(t, SeedConfidence, record.Confidence, 1e-9)
	assert.Equal(t, StringList{"myanmar", "bank", "kbz"}, record.Tags)

	n, err = store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalScamURLs)

	record, err = store.Lookup(ctx, "https://adult-content-free.cf")
	require.NoError(t, err)
	assert.Equal(t, 3, record.ReportCount, "reseeding bumps, then lookup bumps")
}

func TestRecordAPIStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.RecordAPIStatus(ctx, "urlhaus", "clean", 150*time.Millisecond, true))
	require.NoError(t, store.RecordAPIStatus(ctx, "urlhaus", "timeout", 15*time.Second, false))
	require.NoError(t, store.RecordAPIStatus(ctx, "phishtank", "clean", 80*time.Millisecond, true))

	rows, err := store.APIStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "phishtank", rows[0].APIName)
	assert.Equal(t, "urlhaus", rows[1].APIName)
	assert.Equal(t, "timeout", rows[1].Status)
	assert.Equal(t, int64(15000), rows[1].ResponseTimeMs)
	assert.Equal(t, int64(1), rows[1].SuccessCount)
	assert.Equal(t, int64(1), rows[1].ErrorCount)
}

func TestBackup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertOrBump(ctx, "https://backup.example", ThreatScam, "test", 0.8, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := store.Backup(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), backupFilePrefix))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = store.Backup(ctx, path)
	assert.Error(t, err, "existing target is refused")

	_, err = store.Backup(ctx, filepath.Join(dir, "missing", "nested", "x.db"))
	require.Error(t, err)
	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, string(errors.CategoryDatabase), ee.GetCategory())
	assert.Equal(t, "backup", ee.GetContext()["operation"])
	assert.Contains(t, ee.GetContext(), "duration_ms")
}

func TestMetricsRecorded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewDatastoreMetrics(registry)
	require.NoError(t, err)
	store.SetMetrics(m)

	_, _ = store.Lookup(ctx, "https://nothing.example")
	_, err = store.SearchByDomain(ctx, "nothing", 5)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "datastore_db_operations_total")
	assert.Contains(t, names, "datastore_search_operations_total")
	assert.Contains(t, names, "datastore_search_result_size")
}

func TestOperationsReachRecorder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	rec := metrics.NewTestRecorder()
	store.SetRecorder(rec)

	_, err := store.Lookup(ctx, "https://nothing.example")
	require.ErrorIs(t, err, ErrThreatNotFound)
	_, err = store.InsertOrBump(ctx, "https://rec.example", ThreatScam, "test", 0.8, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.GetOperationCount(metrics.OpDbUpdate+":scam_urls", metrics.StatusSuccess),
		"a miss is not an error")
	assert.Equal(t, 1, rec.GetOperationCount(metrics.OpDbInsert+":scam_urls", metrics.StatusSuccess))
	assert.Len(t, rec.GetDurations(metrics.OpDbInsert+":scam_urls"), 1)
}

func TestRedactSensitiveInfo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "root:[REDACTED]@tcp(db:3306)/phishguard?parseTime=True",
		redactSensitiveInfo("root:secret@tcp(db:3306)/phishguard?parseTime=True"))
	assert.Equal(t, "root@tcp(db:3306)/x", redactSensitiveInfo("root@tcp(db:3306)/x"))
	assert.Equal(t, ":memory:", redactSensitiveInfo(":memory:"))
}
