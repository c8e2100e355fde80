package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Pairwise comparison
	Compare CompareConfig `json:"compare" yaml:"compare"`

	// Document upload limits
	Upload UploadConfig `json:"upload" yaml:"upload"`

	// Collection storage
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Parse cache
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
}

type ServerConfig struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	HealthAddr  string `json:"healthAddr" yaml:"healthAddr"`
}

type LoggingConfig struct {
	Level  string        `json:"level" yaml:"level"`
	Prefix string        `json:"prefix" yaml:"prefix"`
	Format string        `json:"format" yaml:"format"`
	File   LogFileConfig `json:"file" yaml:"file"`
}

// LogFileConfig enables a rotating log file alongside stderr.
type LogFileConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

type CompareConfig struct {
	// Workers bounds the goroutines used per comparison; 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

type UploadConfig struct {
	MaxContentLength  int64    `json:"maxContentLength" yaml:"maxContentLength"`
	AllowedExtensions []string `json:"allowedExtensions" yaml:"allowedExtensions"`
}

type StorageConfig struct {
	Path string `json:"path" yaml:"path"`
	// OpenAttempts bounds retries while the database file is locked.
	OpenAttempts int `json:"openAttempts" yaml:"openAttempts"`
}

type CacheConfig struct {
	Enabled      bool  `json:"enabled" yaml:"enabled"`
	MaxItems     int   `json:"maxItems" yaml:"maxItems"`
	MaxSizeBytes int64 `json:"maxSizeBytes" yaml:"maxSizeBytes"`
	TTLSeconds   int   `json:"ttlSeconds" yaml:"ttlSeconds"`
}

type RateLimitConfig struct {
	Enabled        bool           `json:"enabled" yaml:"enabled"`
	RequestsPerMin int            `json:"requestsPerMin" yaml:"requestsPerMin"`
	BurstSize      int            `json:"burstSize" yaml:"burstSize"`
	PerToolLimits  map[string]int `json:"perToolLimits" yaml:"perToolLimits"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "pdn-mcp",
			Version:     "0.1.0",
			Description: "PDN collection parser and similarity server for MCP",
			HealthAddr:  ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Prefix: "[pdn-mcp] ",
			File: LogFileConfig{
				Path:       "logs/pdn-mcp.log",
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
			},
		},
		Upload: UploadConfig{
			MaxContentLength:  500 * 1024,
			AllowedExtensions: []string{"pdn"},
		},
		Storage: StorageConfig{
			Path:         "pdn.db",
			OpenAttempts: 5,
		},
		Cache: CacheConfig{
			Enabled:      true,
			MaxItems:     64,
			MaxSizeBytes: 32 * 1024 * 1024,
			TTLSeconds:   600,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 120,
			BurstSize:      20,
			PerToolLimits:  make(map[string]int),
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(configPath)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		default:
			err = json.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PDN_MCP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PDN_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("PDN_MCP_LOG_FILE"); v != "" {
		c.Logging.File.Enabled = true
		c.Logging.File.Path = v
	}
	if v := os.Getenv("PDN_MCP_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("PDN_HEALTH_ADDR"); v != "" {
		c.Server.HealthAddr = v
	}
	if v := os.Getenv("PDN_MCP_COMPARE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PDN_MCP_COMPARE_WORKERS: %w", err)
		}
		c.Compare.Workers = n
	}
	if v := os.Getenv("PDN_MCP_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("PDN_MCP_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = strings.ToLower(v) == "true"
	}
	return nil
}

func (c *Config) validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path must not be empty")
	}
	if c.Storage.Path != ":memory:" {
		if dir := filepath.Dir(c.Storage.Path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("storage directory not found at %s", dir)
			}
		}
	}

	// Clamp numeric ranges
	if c.Storage.OpenAttempts < 1 {
		c.Storage.OpenAttempts = 1
	}
	if c.Compare.Workers < 0 {
		c.Compare.Workers = 0
	}
	if c.Upload.MaxContentLength < 1 {
		c.Upload.MaxContentLength = 500 * 1024
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{"pdn"}
	}

	if c.Logging.File.Enabled {
		if c.Logging.File.Path == "" {
			return fmt.Errorf("log file path must not be empty when file logging is enabled")
		}
		if c.Logging.File.MaxSizeMB < 1 {
			c.Logging.File.MaxSizeMB = 1
		}
		if c.Logging.File.MaxBackups < 0 {
			c.Logging.File.MaxBackups = 0
		}
		if c.Logging.File.MaxAgeDays < 0 {
			c.Logging.File.MaxAgeDays = 0
		}
	}

	if c.Cache.Enabled {
		if c.Cache.MaxItems < 1 {
			c.Cache.MaxItems = 1
		}
		if c.Cache.TTLSeconds < 0 {
			c.Cache.TTLSeconds = 0
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMin < 1 {
			c.RateLimit.RequestsPerMin = 1
		}
		if c.RateLimit.BurstSize < 1 {
			c.RateLimit.BurstSize = 1
		}
	}

	return nil
}

// AllowedFile reports whether filename carries an accepted extension.
func (c *UploadConfig) AllowedFile(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	ext := filename[i+1:]
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func GetConfigPath() string {
	if path := os.Getenv("PDN_MCP_CONFIG"); path != "" {
		return path
	}

	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".pdn-mcp", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}
