package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcast/internal/config"
)

func lastEntry(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "retailcast.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("analysis completed", "rules", 12)
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entry := lastEntry(t, content)
	assert.Equal(t, "analysis completed", entry["msg"])
	assert.Equal(t, float64(12), entry["rules"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "source")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	assert.Same(t, slog.Default(), GetLogger())
}

func TestInitializeLoggerOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	dir := t.TempDir()
	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: filepath.Join(dir, "a.log")})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: filepath.Join(dir, "b.log")})
	require.NoError(t, err)

	assert.Same(t, first, second)
	_, err = os.Stat(filepath.Join(dir, "b.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "forecast completed")

	assert.Equal(t, "trace-123", lastEntry(t, buf.Bytes())["trace_id"])

	buf.Reset()
	logger.With("component", "forecast_service").InfoContext(ctx, "derived")
	entry := lastEntry(t, buf.Bytes())
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "forecast_service", entry["component"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		info    bool
		warn    bool
		errored bool
	}{
		{"debug", true, true, true, true},
		{"info", false, true, true, true},
		{"warning", false, false, true, true},
		{"error", false, false, false, true},
		{"bogus", false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)
			ctx := context.Background()

			assert.Equal(t, tt.debug, logger.Enabled(ctx, parseLogLevel("debug")))
			assert.Equal(t, tt.info, logger.Enabled(ctx, parseLogLevel("info")))
			assert.Equal(t, tt.warn, logger.Enabled(ctx, parseLogLevel("warn")))
			assert.Equal(t, tt.errored, logger.Enabled(ctx, parseLogLevel("error")))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing trace IDs are kept")
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	WithComponent(logger, "basket_service").Info("component test")
	assert.Equal(t, "basket_service", lastEntry(t, buf.Bytes())["component"])

	buf.Reset()
	WithError(logger, os.ErrNotExist).Info("error test")
	assert.Contains(t, lastEntry(t, buf.Bytes())["error"], "file does not exist")

	assert.Same(t, logger, WithError(logger, nil))
}
