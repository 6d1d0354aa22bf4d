package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLoggerWithConfig_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{
		Level:   "debug",
		Console: true,
		Output:  &buf,
	})

	spotLog := WithOperation(WithSymbol(logger, "NIFTY"), "spot")
	spotLog.Debug().Msg("resolving spot")
	assert.Contains(t, buf.String(), "resolving spot")
	assert.Contains(t, buf.String(), "NIFTY")
	assert.Contains(t, buf.String(), "DEB")
}

func TestNewLoggerWithConfig_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", Console: true, Output: &buf})

	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewLoggerWithConfig_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "riskdesk.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "info",
		File:     true,
		FilePath: path,
		MaxSize:  1,
	})
	LogAnalysis(WithReportID(logger, "r-1"), "ITC", 4, 262.5, 0.61, 3*time.Millisecond)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol":"ITC"`)
	assert.Contains(t, string(data), `"report_id":"r-1"`)
}

func TestLogAPICall_FailuresAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	LogAPICall(logger, "GET", "/quote/ltp", time.Millisecond, nil)
	assert.Empty(t, buf.String(), "successful calls are debug")

	LogAPICall(logger, "GET", "/quote/ltp", time.Millisecond, errors.New("gateway timeout"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"endpoint":"/quote/ltp"`)
	assert.Contains(t, buf.String(), "gateway timeout")
}
