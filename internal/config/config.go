// Package config provides configuration management for periscope.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkerPort is the port the dashboard worker listens on.
	DefaultWorkerPort = 38700

	// DefaultProjectName labels sessions that do not set one.
	DefaultProjectName = "default"

	// DefaultMaxConns is the SQLite connection pool size.
	DefaultMaxConns = 4

	// DefaultEventLimit caps recent-event queries.
	DefaultEventLimit = 100

	// DefaultWatchDebounceMs coalesces database file change notifications.
	DefaultWatchDebounceMs = 250

	dataDirName      = ".periscope"
	dbFileName       = "periscope.db"
	settingsFileName = "settings.json"
	envPrefix        = "periscope"
)

// Config holds runtime settings. Values come from defaults, then the
// settings file, then PERISCOPE_* environment variables, last wins.
type Config struct {
	WorkerPort      int      `envconfig:"WORKER_PORT"`
	DBPath          string   `envconfig:"DB_PATH"`
	ProjectName     string   `envconfig:"PROJECT_NAME"`
	MaxConns        int      `envconfig:"MAX_CONNS"`
	EventLimit      int      `envconfig:"EVENT_LIMIT"`
	WatchDebounceMs int      `envconfig:"WATCH_DEBOUNCE_MS"`
	RedactKeys      []string `envconfig:"REDACT_KEYS"`
	Dashboard       bool     `envconfig:"DASHBOARD"`
}

var (
	globalOnce sync.Once
	globalCfg  *Config
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		WorkerPort:      DefaultWorkerPort,
		DBPath:          DBPath(),
		ProjectName:     DefaultProjectName,
		MaxConns:        DefaultMaxConns,
		EventLimit:      DefaultEventLimit,
		WatchDebounceMs: DefaultWatchDebounceMs,
		RedactKeys:      []string{},
		Dashboard:       true,
	}
}

// DataDir returns the periscope data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the default database file path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFileName)
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// EnsureSettings creates a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := map[string]any{
		"PERISCOPE_WORKER_PORT":  DefaultWorkerPort,
		"PERISCOPE_PROJECT_NAME": DefaultProjectName,
		"PERISCOPE_EVENT_LIMIT":  DefaultEventLimit,
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// EnsureAll creates the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads configuration from the settings file and environment.
// A missing or unparseable settings file yields defaults.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(SettingsPath()); err == nil {
		var settings map[string]any
		if err := json.Unmarshal(data, &settings); err != nil {
			log.Warn().Err(err).Str("path", SettingsPath()).Msg("ignoring malformed settings file")
		} else {
			applySettings(cfg, settings)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// Get returns the cached global configuration, loading it on first use.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("config load failed, using defaults")
			cfg = Default()
		}
		globalCfg = cfg
	})
	return globalCfg
}

// GetWorkerPort returns the worker port, preferring the environment
// variable over the loaded configuration.
func GetWorkerPort() int {
	if raw := os.Getenv("PERISCOPE_WORKER_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}

func applySettings(cfg *Config, settings map[string]any) {
	if v, ok := settingInt(settings, "PERISCOPE_WORKER_PORT"); ok && v > 0 {
		cfg.WorkerPort = v
	}
	if v, ok := settings["PERISCOPE_DB_PATH"].(string); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := settings["PERISCOPE_PROJECT_NAME"].(string); ok && v != "" {
		cfg.ProjectName = v
	}
	if v, ok := settingInt(settings, "PERISCOPE_MAX_CONNS"); ok && v > 0 {
		cfg.MaxConns = v
	}
	if v, ok := settingInt(settings, "PERISCOPE_EVENT_LIMIT"); ok && v > 0 {
		cfg.EventLimit = v
	}
	if v, ok := settingInt(settings, "PERISCOPE_WATCH_DEBOUNCE_MS"); ok && v > 0 {
		cfg.WatchDebounceMs = v
	}
	if v, ok := settings["PERISCOPE_REDACT_KEYS"].(string); ok {
		cfg.RedactKeys = splitTrim(v)
	}
	if v, ok := settings["PERISCOPE_DASHBOARD"].(bool); ok {
		cfg.Dashboard = v
	}
}

func settingInt(settings map[string]any, key string) (int, bool) {
	switch v := settings[key].(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

// splitTrim splits a comma-separated string, trimming whitespace and
// dropping empty entries.
func splitTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
