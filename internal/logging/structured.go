package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// StructuredLogger writes one JSON object per log line.
type StructuredLogger struct {
	level      Level
	service    string
	version    string
	mu         *sync.RWMutex
	out        *syncWriter
	fields     map[string]interface{}
	timeFormat string
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Service       string                 `json:"service"`
	Version       string                 `json:"version,omitempty"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	Caller        string                 `json:"caller,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// syncWriter serializes whole entries onto a shared writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) encode(entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.w).Encode(entry)
}

// NewStructuredLogger creates a structured logger writing to stderr.
func NewStructuredLogger(service, version, level string) *StructuredLogger {
	return NewStructuredLoggerWithWriter(os.Stderr, service, version, level)
}

// NewStructuredLoggerWithWriter creates a structured logger writing to w.
func NewStructuredLoggerWithWriter(w io.Writer, service, version, level string) *StructuredLogger {
	return &StructuredLogger{
		level:      ParseLevel(level),
		service:    service,
		version:    version,
		mu:         &sync.RWMutex{},
		out:        &syncWriter{w: w},
		fields:     make(map[string]interface{}),
		timeFormat: time.RFC3339Nano,
	}
}

func (l *StructuredLogger) derive(extra map[string]interface{}) *StructuredLogger {
	l.mu.RLock()
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	level := l.level
	l.mu.RUnlock()

	for k, v := range extra {
		fields[k] = v
	}
	return &StructuredLogger{
		level:      level,
		service:    l.service,
		version:    l.version,
		mu:         &sync.RWMutex{},
		out:        l.out,
		fields:     fields,
		timeFormat: l.timeFormat,
	}
}

// WithContext returns a logger with correlation and request IDs from context.
func (l *StructuredLogger) WithContext(ctx context.Context) ContextLogger {
	extra := make(map[string]interface{})
	if id, ok := CorrelationIDFromContext(ctx); ok {
		extra[correlationField] = id
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		extra[requestField] = id
	}
	return l.derive(extra)
}

// WithFields returns a logger with additional fields.
func (l *StructuredLogger) WithFields(fields map[string]interface{}) ContextLogger {
	return l.derive(fields)
}

// WithField returns a logger with an additional field.
func (l *StructuredLogger) WithField(key string, value interface{}) ContextLogger {
	return l.derive(map[string]interface{}{key: value})
}

func (l *StructuredLogger) log(level Level, message string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	msg, fields := splitArgs(message, args)
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(l.timeFormat),
		Level:     level.String(),
		Service:   l.service,
		Version:   l.version,
		Message:   msg,
		Fields:    fields,
	}

	if _, file, line, ok := runtime.Caller(2); ok {
		entry.Caller = fmt.Sprintf("%s:%d", file, line)
	}

	l.mu.RLock()
	for k, v := range l.fields {
		switch k {
		case correlationField:
			entry.CorrelationID, _ = v.(string)
		case requestField:
			entry.RequestID, _ = v.(string)
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{})
			}
			entry.Fields[k] = v
		}
	}
	l.mu.RUnlock()

	if err := l.out.encode(entry); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s (json encoding failed: %v)\n",
			entry.Timestamp, entry.Level, entry.Message, err)
	}
}

func (l *StructuredLogger) Debug(message string, args ...interface{}) {
	l.log(DebugLevel, message, args...)
}

func (l *StructuredLogger) Info(message string, args ...interface{}) {
	l.log(InfoLevel, message, args...)
}

func (l *StructuredLogger) Warn(message string, args ...interface{}) {
	l.log(WarnLevel, message, args...)
}

func (l *StructuredLogger) Error(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
}

// Fatal logs at error level and exits.
func (l *StructuredLogger) Fatal(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
	os.Exit(1)
}

func (l *StructuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *StructuredLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *StructuredLogger) shouldLog(level Level) bool {
	return level >= l.GetLevel()
}

// splitArgs consumes as many args as the message has printf verbs and treats
// the rest as key/value pairs. An odd trailing value is stored as "extra".
func splitArgs(message string, args []interface{}) (string, map[string]interface{}) {
	if len(args) == 0 {
		return message, nil
	}

	verbs := countVerbs(message)
	if verbs > 0 && len(args) >= verbs {
		message = fmt.Sprintf(message, args[:verbs]...)
		args = args[verbs:]
	}
	if len(args) == 0 {
		return message, nil
	}

	fields := make(map[string]interface{}, len(args)/2+1)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = fieldValue(args[i+1])
	}
	if len(args)%2 == 1 {
		fields["extra"] = fieldValue(args[len(args)-1])
	}
	return message, fields
}

// fieldValue keeps errors and durations readable once JSON encoded.
func fieldValue(v interface{}) interface{} {
	switch t := v.(type) {
	case error:
		return t.Error()
	case time.Duration:
		return t.String()
	default:
		return v
	}
}

func countVerbs(message string) int {
	if !strings.Contains(message, "%") {
		return 0
	}
	n := 0
	for i := 0; i < len(message)-1; i++ {
		if message[i] != '%' {
			continue
		}
		if message[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}
