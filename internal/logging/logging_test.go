package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, "test: ", "warn")

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[ERROR] also shown")

	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, "pdn: ", "info").WithPrefix("req_1")
	l.Info("hello")
	assert.Contains(t, buf.String(), "pdn: [req_1] ")
}

func TestStructuredLoggerEntry(t *testing.T) {
	var buf bytes.Buffer
	l := NewStructuredLoggerWithWriter(&buf, "pdn-mcp", "0.1.0", "info")

	ctx := ContextWithCorrelationID(context.Background(), "corr_a")
	ctx = ContextWithRequestID(ctx, "req_b")
	l.WithContext(ctx).WithField("tool", "parseDocument").Info("parsed %d games", 3, "elapsed", time.Second)

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "pdn-mcp", entry.Service)
	assert.Equal(t, "0.1.0", entry.Version)
	assert.Equal(t, "parsed 3 games", entry.Message)
	assert.Equal(t, "corr_a", entry.CorrelationID)
	assert.Equal(t, "req_b", entry.RequestID)
	assert.Equal(t, "parseDocument", entry.Fields["tool"])
	assert.Equal(t, "1s", entry.Fields["elapsed"])
	assert.Contains(t, entry.Caller, "logging_test.go")
}

func TestStructuredLoggerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewStructuredLoggerWithWriter(&buf, "svc", "", "error")
	l.Info("dropped")
	l.Warn("dropped")
	assert.Zero(t, buf.Len())

	l.Error("kept", "error", errors.New("boom"))
	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry.Fields["error"])
}

func TestDerivedLoggersDoNotShareFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewStructuredLoggerWithWriter(&buf, "svc", "", "info")
	_ = base.WithField("a", 1)
	base.Info("plain")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Empty(t, entry.Fields)
}

func TestSplitArgs(t *testing.T) {
	msg, fields := splitArgs("100%% of %s", []interface{}{"games", "n", 2, "dangling"})
	assert.Equal(t, "100% of games", msg)
	assert.Equal(t, map[string]interface{}{"n": 2, "extra": "dangling"}, fields)

	msg, fields = splitArgs("no verbs", nil)
	assert.Equal(t, "no verbs", msg)
	assert.Nil(t, fields)
}

func TestAdapterRendersFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerAdapter(NewLoggerWithWriter(&buf, "", "info"))

	ctx := ContextWithRequestID(context.Background(), "req_x")
	l.WithContext(ctx).WithFields(map[string]interface{}{"games": 2}).Info("done", "pairs", 1)

	out := buf.String()
	assert.Contains(t, out, "[req_x] ")
	assert.Contains(t, out, "[INFO] done [games=2 pairs=1 request_id=req_x]")
}

func TestNewLoggerFromConfig(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewLoggerFromConfig(&Config{Level: "info", Format: FormatJSON, Service: "svc", Output: &buf})
	_, ok := l.(*StructuredLogger)
	assert.True(t, ok)
	assert.Nil(t, closer)

	t.Setenv("PDN_LOG_FORMAT", "TEXT")
	l, _ = NewLoggerFromConfig(&Config{Level: "info", Output: &buf})
	_, ok = l.(*LoggerAdapter)
	assert.True(t, ok)
}

func TestGeneratedIDs(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateCorrelationID(), "corr_"))
	assert.True(t, strings.HasPrefix(GenerateRequestID(), "req_"))
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())

	ctx := NewRequestContext(context.Background())
	_, ok := CorrelationIDFromContext(ctx)
	assert.True(t, ok)
	_, ok = RequestIDFromContext(ctx)
	assert.True(t, ok)

	_, ok = RequestIDFromContext(context.Background())
	assert.False(t, ok)
}
