package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// LoggerAdapter makes the text Logger satisfy ContextLogger.
type LoggerAdapter struct {
	*Logger
	fields map[string]interface{}
}

// NewLoggerAdapter creates a new adapter for the text logger.
func NewLoggerAdapter(logger *Logger) *LoggerAdapter {
	return &LoggerAdapter{
		Logger: logger,
		fields: make(map[string]interface{}),
	}
}

func (l *LoggerAdapter) with(extra map[string]interface{}) *LoggerAdapter {
	next := &LoggerAdapter{
		Logger: l.Logger,
		fields: make(map[string]interface{}, len(l.fields)+len(extra)),
	}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for k, v := range extra {
		next.fields[k] = v
	}
	if id, ok := extra[requestField].(string); ok {
		next.Logger = l.Logger.WithPrefix(id)
	}
	return next
}

// WithContext returns a new logger carrying the context's IDs.
func (l *LoggerAdapter) WithContext(ctx context.Context) ContextLogger {
	extra := make(map[string]interface{})
	if id, ok := CorrelationIDFromContext(ctx); ok {
		extra[correlationField] = id
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		extra[requestField] = id
	}
	return l.with(extra)
}

func (l *LoggerAdapter) WithField(key string, value interface{}) ContextLogger {
	return l.with(map[string]interface{}{key: value})
}

func (l *LoggerAdapter) WithFields(fields map[string]interface{}) ContextLogger {
	return l.with(fields)
}

func (l *LoggerAdapter) Debug(format string, args ...interface{}) {
	l.Logger.Debug("%s", l.render(format, args))
}

func (l *LoggerAdapter) Info(format string, args ...interface{}) {
	l.Logger.Info("%s", l.render(format, args))
}

func (l *LoggerAdapter) Warn(format string, args ...interface{}) {
	l.Logger.Warn("%s", l.render(format, args))
}

func (l *LoggerAdapter) Error(format string, args ...interface{}) {
	l.Logger.Error("%s", l.render(format, args))
}

func (l *LoggerAdapter) Fatal(format string, args ...interface{}) {
	l.Logger.Fatal("%s", l.render(format, args))
}

// render formats the message and appends fields as sorted key=value pairs.
func (l *LoggerAdapter) render(format string, args []interface{}) string {
	msg, fields := splitArgs(format, args)
	if len(fields) == 0 && len(l.fields) == 0 {
		return msg
	}

	all := make(map[string]interface{}, len(fields)+len(l.fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, all[k]))
	}
	return fmt.Sprintf("%s [%s]", msg, strings.Join(pairs, " "))
}
