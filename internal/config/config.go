// Package config loads gburn settings and the subscription plan table.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all gburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DBPath  string `toml:"db_path,omitempty"`
	CatchUp bool   `toml:"catch_up"` // apply every overdue renewal on load, not just one
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds settings for `gburn daemon`.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	Schedule     string `toml:"schedule"` // cron spec for renewal checks
	EventsBuffer int    `toml:"events_buffer"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Env   string `toml:"env"` // dev or prod
	Level string `toml:"level,omitempty"`
}

// PricingOverrides allows user-defined prices for specific plans.
type PricingOverrides struct {
	Overrides map[string]PlanPriceOverride `toml:"overrides,omitempty"`
}

// PlanPriceOverride holds per-plan price overrides.
type PlanPriceOverride struct {
	MonthlyPrice *float64 `toml:"monthly_price,omitempty"`
	YearlyPrice  *float64 `toml:"yearly_price,omitempty"`
	TopUpPrice   *float64 `toml:"top_up_price,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8797",
			Schedule:     "@every 1m",
			EventsBuffer: 200,
		},
		Log: LogConfig{
			Env: "dev",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gburn")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// DataDir returns the XDG-compliant data directory holding the state database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "gburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "gburn")
}

// DBPath returns the state database path from env var, config, or default, in that order.
func DBPath(cfg Config) string {
	if p := os.Getenv("GBURN_DB"); p != "" {
		return p
	}
	if cfg.General.DBPath != "" {
		return cfg.General.DBPath
	}
	return filepath.Join(DataDir(), "gburn.db")
}

// LogLevel returns the log level from env var or config.
func LogLevel(cfg Config) string {
	if lvl := os.Getenv("GBURN_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return cfg.Log.Level
}

// DaemonAddr returns the daemon listen address from env var or config.
func DaemonAddr(cfg Config) string {
	if addr := os.Getenv("GBURN_DAEMON_ADDR"); addr != "" {
		return addr
	}
	return cfg.Daemon.Addr
}
