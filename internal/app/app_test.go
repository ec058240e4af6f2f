package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/phishguard/internal/buildinfo"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/detector"
)

func memorySettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Name = "test"
	s.Database.Type = "sqlite"
	s.Database.SQLite.Path = ":memory:"
	return s
}

func TestNewWiresDetectorToStore(t *testing.T) {
	t.Parallel()

	a, err := New(t.Context(), memorySettings(), buildinfo.New("1.0.0", ""), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(t.Context()) })

	assert.False(t, a.URLhaus.Configured())
	assert.Nil(t, a.PhishTank)

	n, err := a.Detector.Seed(t.Context())
	require.NoError(t, err)
	require.Positive(t, n)

	v := a.Detector.Analyze(t.Context(), "https://kbz-bank-secure-login.tk")
	assert.Equal(t, []string{"local_database"}, v.DetectionMethods)
	assert.True(t, v.ThreatLevel.AtLeast(detector.LevelHigh))

	stats, err := a.Detector.Stats(t.Context())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalScamURLs, int64(n))
	assert.Equal(t, int64(1), stats.RecentDetections24h)
}

func TestMisconfiguredNotifiersAreSkipped(t *testing.T) {
	t.Parallel()

	s := memorySettings()
	s.Notification.Enabled = true // no URLs
	s.MQTT.Enabled = true
	s.MQTT.Broker = "not a url"

	a, err := New(t.Context(), s, buildinfo.New("", ""), Options{Notifiers: true})
	require.NoError(t, err)

	// only the datastore needs closing
	assert.Len(t, a.closers, 1)
	require.NoError(t, a.Close(t.Context()))
	assert.Empty(t, a.closers)
}

func TestThresholdsFallBackToDefaults(t *testing.T) {
	t.Parallel()

	def := detector.DefaultThresholds()
	assert.Equal(t, def, thresholds(conf.DetectorSettings{}))

	got := thresholds(conf.DetectorSettings{PatternThreshold: 0.9})
	assert.InDelta(t, 0.9, got.Pattern, 0)
	assert.Equal(t, def.Structure, got.Structure)
}
