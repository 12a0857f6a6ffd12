// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level TipsterHub configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Edge      EdgeConfig      `yaml:"edge"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Seed      SeedConfig      `yaml:"seed"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	MaxSize       int                      `yaml:"max_size"`
	DefaultTTL    time.Duration            `yaml:"default_ttl"`
	TTLs          map[string]time.Duration `yaml:"ttls"`           // resource name -> TTL
	StatsInterval time.Duration            `yaml:"stats_interval"` // 0 disables the stats worker
}

// EdgeConfig points at the hosted backend's edge functions.
type EdgeConfig struct {
	BaseURL string        `yaml:"base_url"` // empty disables edge-backed reads
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// AdminConfig guards the admin API.
type AdminConfig struct {
	Token string `yaml:"token"` // shared secret; empty leaves /admin open
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // file path or ":memory:"
}

// SeedConfig lists rows inserted on startup when missing.
type SeedConfig struct {
	Teams  []TeamEntry  `yaml:"teams"`
	Models []ModelEntry `yaml:"models"`
}

// TeamEntry is a team seed in the config file.
type TeamEntry struct {
	Name      string `yaml:"name"`
	ShortName string `yaml:"short_name"`
	League    string `yaml:"league"`
}

// ModelEntry is a model registry seed in the config file.
type ModelEntry struct {
	Name              string `yaml:"name"`
	Version           string `yaml:"version"`
	Type              string `yaml:"type"` // champion, challenger, retired
	Algorithm         string `yaml:"algorithm"`
	TrafficAllocation int    `yaml:"traffic_allocation"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "tipsterhub.db",
		},
		Cache: CacheConfig{
			MaxSize:       10_000,
			DefaultTTL:    5 * time.Minute,
			StatsInterval: 15 * time.Second,
		},
		Edge: EdgeConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Cache.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize))
	}
	if c.Cache.DefaultTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.default_ttl must be positive, got %s", c.Cache.DefaultTTL))
	}
	for name, ttl := range c.Cache.TTLs {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("cache.ttls.%s must be positive, got %s", name, ttl))
		}
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if r := c.Telemetry.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.tracing.sample_rate must be in [0,1], got %v", r))
	}
	return errors.Join(errs...)
}
