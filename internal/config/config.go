// Package config loads evotrace configuration from .evotrace/config.yaml
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the workspace-relative config file location.
const DefaultPath = ".evotrace/config.yaml"

// Config holds all evotrace configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Engine configuration
	Engine EngineConfig `yaml:"engine"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Session tracking
	Session SessionConfig `yaml:"session"`

	// File watching
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the evolution engine core.
type EngineConfig struct {
	// Snapshot and version retention (FIFO eviction past this count)
	Retention int `yaml:"retention"`

	// Pattern table cap; 0 keeps tables unbounded
	PatternTableSize int `yaml:"pattern_table_size"`
}

// StorageConfig configures the SQLite state store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`

	// Persist on every tracked snapshot instead of only on shutdown
	SaveOnTrack bool `yaml:"save_on_track"`
}

// SessionConfig configures the coding session tracker.
type SessionConfig struct {
	HeartbeatInterval string `yaml:"heartbeat_interval"`
}

// WatchConfig configures the filesystem watcher.
type WatchConfig struct {
	// File extensions ingested as snapshots, with leading dot
	Extensions []string `yaml:"extensions"`

	// Quiet period before a changed file is read
	DebounceInterval string `yaml:"debounce_interval"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // master toggle, false = no logging
	Categories map[string]bool `yaml:"categories"` // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "evotrace",
		Version: "1.0.0",

		Engine: EngineConfig{
			Retention:        100,
			PatternTableSize: 0,
		},

		Storage: StorageConfig{
			DatabasePath: ".evotrace/evotrace.db",
			SaveOnTrack:  false,
		},

		Session: SessionConfig{
			HeartbeatInterval: "60s",
		},

		Watch: WatchConfig{
			Extensions:       []string{".go", ".py", ".js", ".ts", ".swift", ".kt", ".java", ".rs", ".rb", ".c", ".cpp"},
			DebounceInterval: "500ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies ETRACE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("ETRACE_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if v := os.Getenv("ETRACE_RETENTION"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Engine.Retention = n
		}
	}
	if v := os.Getenv("ETRACE_HEARTBEAT"); v != "" {
		c.Session.HeartbeatInterval = v
	}
	if v := os.Getenv("ETRACE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

func (c *Config) validate() error {
	if c.Engine.Retention < 0 {
		return fmt.Errorf("invalid retention %d: must be non-negative", c.Engine.Retention)
	}
	if c.Engine.PatternTableSize < 0 {
		return fmt.Errorf("invalid pattern_table_size %d: must be non-negative", c.Engine.PatternTableSize)
	}
	if _, err := time.ParseDuration(c.Session.HeartbeatInterval); err != nil {
		return fmt.Errorf("invalid heartbeat_interval %q: %w", c.Session.HeartbeatInterval, err)
	}
	if c.Watch.DebounceInterval != "" {
		if _, err := time.ParseDuration(c.Watch.DebounceInterval); err != nil {
			return fmt.Errorf("invalid debounce_interval %q: %w", c.Watch.DebounceInterval, err)
		}
	}
	return nil
}

// GetHeartbeatInterval returns the session heartbeat as a duration.
func (c *Config) GetHeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.Session.HeartbeatInterval)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetDebounceInterval returns the watcher debounce as a duration.
func (c *Config) GetDebounceInterval() time.Duration {
	d, err := time.ParseDuration(c.Watch.DebounceInterval)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}
