package logging

import (
	"io"
	"os"
	"strings"

	"github.com/dmmcquay/pdn-mcp/internal/config"
)

// LogFormat represents the log output format.
type LogFormat string

const (
	// FormatText is the traditional text format.
	FormatText LogFormat = "text"
	// FormatJSON is structured JSON format.
	FormatJSON LogFormat = "json"
)

// Config represents logging configuration.
type Config struct {
	Level   string
	Format  LogFormat
	Service string
	Version string
	Prefix  string
	Output  io.Writer // defaults to stderr
	File    *config.LogFileConfig
}

// NewLoggerFromConfig creates a logger based on configuration. JSON is used
// unless text is requested by the config or PDN_LOG_FORMAT. When file logging
// is enabled the returned closer owns the log file; otherwise it is nil.
func NewLoggerFromConfig(cfg *Config) (ContextLogger, io.Closer) {
	format := cfg.Format
	if format == "" {
		format = LogFormat(strings.ToLower(os.Getenv("PDN_LOG_FORMAT")))
	}

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	var fileWriter *FileWriter
	if cfg.File != nil && cfg.File.Enabled && cfg.File.Path != "" {
		fw, err := NewFileWriter(cfg.File.Path, cfg.File.MaxSizeMB, cfg.File.MaxBackups,
			cfg.File.MaxAgeDays, cfg.File.Compress)
		if err != nil {
			// Keep logging to the primary output.
			NewLoggerWithWriter(w, cfg.Prefix, "error").Error("Failed to open log file: %v", err)
		} else {
			fileWriter = fw
			w = NewMultiWriter(w, fw)
		}
	}

	var logger ContextLogger
	if format == FormatText {
		logger = NewLoggerAdapter(NewLoggerWithWriter(w, cfg.Prefix, cfg.Level))
	} else {
		logger = NewStructuredLoggerWithWriter(w, cfg.Service, cfg.Version, cfg.Level)
	}

	if fileWriter != nil {
		return logger, fileWriter
	}
	return logger, nil
}

// Discard returns a logger that drops everything, for tests and tools that
// only need the interface.
func Discard() ContextLogger {
	return NewLoggerAdapter(NewLoggerWithWriter(io.Discard, "", "error"))
}
