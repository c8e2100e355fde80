package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a Level; unknown values give InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger is the plain text logger.
type Logger struct {
	logger *log.Logger
	level  Level
	mu     sync.RWMutex
}

func NewLogger(prefix string, level string) *Logger {
	return NewLoggerWithWriter(os.Stderr, prefix, level)
}

func NewLoggerWithWriter(w io.Writer, prefix string, level string) *Logger {
	return &Logger{
		logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		level:  ParseLevel(level),
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) shouldLog(level Level) bool {
	return level >= l.GetLevel()
}

func (l *Logger) output(level Level, format string, v ...interface{}) {
	if l.shouldLog(level) {
		l.logger.Printf("["+level.String()+"] "+format, v...)
	}
}

func (l *Logger) Debug(format string, v ...interface{}) { l.output(DebugLevel, format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.output(InfoLevel, format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.output(WarnLevel, format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.output(ErrorLevel, format, v...) }

// WithPrefix returns a logger sharing the output whose prefix is extended by tag.
func (l *Logger) WithPrefix(tag string) *Logger {
	return &Logger{
		logger: log.New(l.logger.Writer(), fmt.Sprintf("%s[%s] ", l.logger.Prefix(), tag), l.logger.Flags()),
		level:  l.GetLevel(),
	}
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.logger.Fatalf("[FATAL] "+format, v...)
}
