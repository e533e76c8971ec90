// Package config defines the application configuration of the knowledge
// core: the row store, the optional changefeed, the metrics endpoint and
// logging. Configuration is YAML on disk with a small set of environment
// overrides for deployments that cannot ship files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zukunftch/zukunft.com/errors"
)

// Store driver constants.
const (
	StoreDriverMemory = "memory" // in-memory store, data is lost on restart
	StoreDriverSQLite = "sqlite" // embedded sqlite database file
)

// Config represents the complete application configuration.
type Config struct {
	Version  string         `yaml:"version,omitempty"`
	Instance InstanceConfig `yaml:"instance"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
	Closure  ClosureConfig  `yaml:"closure,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// InstanceConfig identifies one running instance.
type InstanceConfig struct {
	ID          string `yaml:"id"`                    // e.g. "zukunft-dev-local"
	Environment string `yaml:"environment,omitempty"` // "prod", "dev", "test"
}

// StoreConfig defines the row store backend.
type StoreConfig struct {
	Driver       string `yaml:"driver"`                  // memory or sqlite
	DSN          string `yaml:"dsn,omitempty"`           // sqlite file path
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
}

// NATSConfig defines the changefeed connection. The feed is optional; with
// Enabled false the change log is store-only.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URLs          []string      `yaml:"urls,omitempty"`
	SubjectPrefix string        `yaml:"subject_prefix,omitempty"`
	MaxReconnects int           `yaml:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `yaml:"reconnect_wait,omitempty"`
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
	Token         string        `yaml:"token,omitempty"`
}

// MetricsConfig defines the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// ClosureConfig tunes the graph traversal engine.
type ClosureConfig struct {
	MaxLevels int `yaml:"max_levels,omitempty"`
}

// LogConfig defines structured logging output.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// Default returns the configuration a bare instance starts with: an
// in-memory store, no changefeed, metrics on :9090.
func Default() *Config {
	return &Config{
		Version:  "1.0.0",
		Instance: InstanceConfig{ID: "zukunft-local", Environment: "dev"},
		Store:    StoreConfig{Driver: StoreDriverMemory},
		Metrics:  MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
		Closure:  ClosureConfig{MaxLevels: 100},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML configuration file, applies the environment overrides
// and validates the result. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "config", "Load", "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse YAML")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers the supported environment overrides over the file
// values.
func (c *Config) applyEnv() {
	if v := os.Getenv("ZUKUNFT_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("ZUKUNFT_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("ZUKUNFT_NATS_URL"); v != "" {
		c.NATS.Enabled = true
		c.NATS.URLs = strings.Split(v, ",")
	}
	if v := os.Getenv("ZUKUNFT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ZUKUNFT_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = port
		}
	}
}

// Validate checks the config and normalizes a few fields in place.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.Invalidf("config", "Validate", "instance.id is required")
	}

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverSQLite:
		if c.Store.DSN == "" {
			return errors.Invalidf("config", "Validate", "store.dsn is required for the sqlite driver")
		}
	default:
		return errors.Invalidf("config", "Validate", "unknown store.driver %q", c.Store.Driver)
	}

	if c.NATS.Enabled && len(c.NATS.URLs) == 0 {
		return errors.Invalidf("config", "Validate", "nats.urls is required when the changefeed is enabled")
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "zukunft.changes"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}

	if c.Closure.MaxLevels <= 0 {
		c.Closure.MaxLevels = 100
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Invalidf("config", "Validate", "unknown log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.Invalidf("config", "Validate", "unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Logger builds the structured logger the config describes.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler).With("instance", c.Instance.ID)
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// ToYAML renders the config for debugging.
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// SafeConfig provides thread-safe access to a live configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a thread-safe config wrapper.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.Invalidf("config", "Update", "config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
