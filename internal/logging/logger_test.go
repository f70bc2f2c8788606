package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantInfo  bool
		wantDebug bool
	}{
		{"debug level", "debug", true, true},
		{"info level", "info", true, false},
		{"warn level", "warn", false, false},
		{"error level", "error", false, false},
		{"default level", "", true, false},
		{"unknown level", "invalid", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerTo(&buf, tt.level, "json")

			logger.Info("info message", "key", "value")
			logger.Debug("debug message")

			output := buf.String()
			assert.Equal(t, tt.wantInfo, strings.Contains(output, "info message"))
			assert.Equal(t, tt.wantDebug, strings.Contains(output, "debug message"))
		})
	}
}

func TestNewLoggerTo_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json").With("email_id", "billing")

	logger.Warn("Suspicious pattern detected", "pattern", "you are now")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "Suspicious pattern detected", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "billing", entry["email_id"])
	assert.Equal(t, "you are now", entry["pattern"])
}

func TestLoggerMethods_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", "console")

	logger.Debug("debug message", "key", "debug")
	logger.Info("info message", "key", "info")
	logger.Warn("warn message", "key", "warn")
	logger.Error("error message", "key", "error")
	require.NoError(t, logger.Sync())

	output := buf.String()
	for _, msg := range []string{"debug message", "info message", "warn message", "error message"} {
		assert.Contains(t, output, msg)
	}
	assert.Contains(t, output, "WARN")
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("dropped")
	logger.With("k", "v").Error("dropped")
}
