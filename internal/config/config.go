// ABOUTME: Runlog configuration management with backend selection.
// ABOUTME: JSON file settings overridden by RUNLOG_* environment variables, plus the storage factory.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/charm"
	"github.com/harperreed/runlog/internal/storage"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendCharm  = "charm"
)

// DefaultAge is assumed for the max heart rate estimate when neither max_hr nor age is set.
const DefaultAge = 30

// Config stores runlog configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "badger" or "charm".
	Backend string `json:"backend,omitempty" env:"RUNLOG_BACKEND"`

	// DataDir is the root directory for data storage.
	// SQLite puts runlog.db here; Badger uses a badger/ subdirectory.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/runlog.
	DataDir string `json:"data_dir,omitempty" env:"RUNLOG_DATA_DIR"`

	// UserID scopes every run, record and streak.
	UserID string `json:"user_id,omitempty" env:"RUNLOG_USER"`

	Age   int `json:"age,omitempty" env:"RUNLOG_AGE"`
	MaxHR int `json:"max_hr,omitempty" env:"RUNLOG_MAX_HR"`

	LogLevel  string `json:"log_level,omitempty" env:"RUNLOG_LOG_LEVEL"`
	CharmHost string `json:"charm_host,omitempty" env:"RUNLOG_CHARM_HOST"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetUserID returns the configured user, falling back to $USER and then "default".
func (c *Config) GetUserID() string {
	if c.UserID != "" {
		return c.UserID
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}

// GetLogLevel returns the configured log level, defaulting to "warn".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "warn"
	}
	return c.LogLevel
}

// MaxHeartRate returns max_hr if set, else 220 minus age.
func (c *Config) MaxHeartRate() int {
	if c.MaxHR > 0 {
		return c.MaxHR
	}
	age := c.Age
	if age <= 0 {
		age = DefaultAge
	}
	return analytics.DefaultMaxHR(age)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage() (storage.Repository, error) {
	backend := c.GetBackend()
	dataDir := c.GetDataDir()

	switch backend {
	case BackendSQLite:
		return storage.Open(filepath.Join(dataDir, "runlog.db"))
	case BackendBadger:
		kv, err := storage.OpenBadger(filepath.Join(dataDir, "badger"))
		if err != nil {
			return nil, err
		}
		return storage.NewKVStore(kv), nil
	case BackendCharm:
		client, err := charm.InitClient(charm.Options{Host: c.CharmHost, AutoSync: true})
		if err != nil {
			return nil, fmt.Errorf("init charm: %w", err)
		}
		return storage.NewKVStore(client), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case BackendSQLite, BackendBadger, BackendCharm:
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.Age < 0 || c.Age > 120 {
		return fmt.Errorf("age out of range: %d", c.Age)
	}
	if c.MaxHR < 0 || c.MaxHR > 250 {
		return fmt.Errorf("max_hr out of range: %d", c.MaxHR)
	}
	return nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "runlog", "config.json")
}

// LoadFile reads the config file alone. A missing file yields an empty Config.
func LoadFile() (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(GetConfigPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}
	return cfg, nil
}

// Load reads config from disk and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
