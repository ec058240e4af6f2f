package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/phishguard/internal/logger"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		out = append(out, m)
	}
	return out
}

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelWarn, time.UTC)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("shown warn")
	log.Error("shown error")
	log.Log(logger.LogLevelInfo, "hidden explicit")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "shown error")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.LogLevelTrace, time.UTC)
	log.Trace("sql query", logger.String("sql", "SELECT 1"))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "TRACE", lines[0]["level"])
	assert.Equal(t, "SELECT 1", lines[0]["sql"])
}

func TestFieldsAndModules(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logger.NewJSONLogger(&buf, logger.LogLevelDebug, time.UTC)
	log := base.Module("detector").With(logger.String("component", "tiers"))

	log.Info("verdict",
		logger.Float64("confidence", 0.123456),
		logger.Duration("elapsed", 1500*time.Millisecond),
		logger.Strings("methods", []string{"urlhaus", "pattern_analysis"}),
		logger.Bool("is_scam", true))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "detector", entry["module"])
	assert.Equal(t, "tiers", entry["component"])
	assert.InDelta(t, 0.123, entry["confidence"], 1e-9)
	assert.Equal(t, "1.5s", entry["elapsed"])
	assert.Equal(t, true, entry["is_scam"])
	assert.Len(t, entry["methods"], 2)
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "req-42")
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("untraced")

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "req-42", lines[0]["trace_id"])
	assert.NotContains(t, lines[1], "trace_id")
	assert.Equal(t, "req-42", logger.TraceIDFromContext(ctx))
}

func TestCentralLoggerRoutesModules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mainPath := filepath.Join(dir, "phishguard.log")
	intelPath := filepath.Join(dir, "intel.log")

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: mainPath, Level: "debug"},
		ModuleOutputs: map[string]logger.ModuleOutput{
			"urlhaus":   {Enabled: true, FilePath: intelPath, Level: "debug"},
			"phishtank": {Enabled: true, FilePath: intelPath, Level: "debug"},
			"api":       {Enabled: false},
		},
	})
	require.NoError(t, err)

	cl.Module("detector").Info("main entry")
	cl.Module("urlhaus").Info("intel entry")
	cl.Module("phishtank").Warn("phishtank entry")

	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	mainData, err := os.ReadFile(mainPath)
	require.NoError(t, err)
	intelData, err := os.ReadFile(intelPath)
	require.NoError(t, err)

	mainLines := decodeLines(t, mainData)
	require.Len(t, mainLines, 1)
	assert.Equal(t, "main entry", mainLines[0]["msg"])
	assert.Equal(t, "detector", mainLines[0]["module"])

	intelLines := decodeLines(t, intelData)
	require.Len(t, intelLines, 2)
	assert.Equal(t, "urlhaus", intelLines[0]["module"])
	assert.Equal(t, "phishtank", intelLines[1]["module"])
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestRedaction(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Auth-Key: [REDACTED]", logger.RedactSensitiveData("Auth-Key: 0123456789abcdef"))
	assert.Equal(t, "https://kbz-verify.tk/login?[REDACTED]",
		logger.RedactURL("https://admin:pw@kbz-verify.tk/login?session=abcdef#top"))
	assert.Equal(t, "not a url", logger.RedactURL("not a url"))

	fields := logger.RedactSensitiveFields([]logger.Field{
		logger.String("auth_key", "supersecret"),
		logger.String("url", "https://example.com"),
	})
	assert.Equal(t, "[REDACTED]", fields[0].Value)
	assert.Equal(t, "https://example.com", fields[1].Value)
}

func TestSensitiveFieldsRedactedOnOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.LogLevelInfo, time.UTC).
		With(logger.String("mqtt_password", "hunter22"))

	log.Info("connecting", logger.String("auth_key", "0123456789abcdef"), logger.String("host", "evil.tk"))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "[REDACTED]", lines[0]["auth_key"])
	assert.Equal(t, "[REDACTED]", lines[0]["mqtt_password"])
	assert.Equal(t, "evil.tk", lines[0]["host"])
	assert.NotContains(t, buf.String(), "0123456789abcdef")
}
