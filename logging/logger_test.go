package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChroniclerLoggerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:     LogLevelDebug,
		Format:    "json",
		Output:    &buf,
		Component: "engine",
	})

	logger.WithSession("sess-1").WithContext("step", 2).Info("step complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step complete", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, float64(2), entry["step"])
}

func TestChroniclerLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	logger.Info("suppressed")
	assert.Zero(t, buf.Len())

	logger.Warn("emitted")
	assert.Contains(t, buf.String(), "emitted")
}

func TestWithHelpersDoNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf})

	child := parent.WithComponent("server").WithContext("request_id", "r-1")
	_ = child

	parent.Info("from parent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "component")
	assert.NotContains(t, entry, "request_id")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf, Component: "cli"})

	logger.Info("starting up")
	assert.Contains(t, buf.String(), "starting up")
	assert.Contains(t, buf.String(), "component=cli")
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Info("hello", "tool", "calculator")
	assert.Contains(t, buf.String(), `"tool":"calculator"`)
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
