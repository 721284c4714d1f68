// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "tradovate-journal/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Import   ImportConfig   `mapstructure:"import"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	UI       UIConfig       `mapstructure:"ui"`
}

// SessionConfig defines the trading-day boundary. Realized PnL buckets
// are bounded by the session close, not midnight.
type SessionConfig struct {
	CloseHour int    `mapstructure:"close_hour"` // 24h local time
	Timezone  string `mapstructure:"timezone"`   // IANA name
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ImportConfig holds CSV import configuration.
type ImportConfig struct {
	DefaultAccount string `mapstructure:"default_account"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradovate-journal"
	}
	return filepath.Join(home, ".config", "tradovate-journal")
}

// DefaultDatabasePath returns the default SQLite database path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "journal.db")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("session.close_hour", 15)
	v.SetDefault("session.timezone", "America/Chicago")
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("import.default_account", "default")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and continue with
			// defaults.
			if terr := createTemplateConfig(configDir, name); terr != nil {
				return terr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func applyDefaults(cfg *Config) {
	if cfg.Session.Timezone == "" {
		cfg.Session.Timezone = "America/Chicago"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath()
	}
	if cfg.Import.DefaultAccount == "" {
		cfg.Import.DefaultAccount = "default"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.UI.DateFormat == "" {
		cfg.UI.DateFormat = "02-Jan-2006"
	}
	if cfg.UI.TimeFormat == "" {
		cfg.UI.TimeFormat = "15:04:05"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("JOURNAL_TIMEZONE"); v != "" {
		cfg.Session.Timezone = v
	}
	if v := os.Getenv("JOURNAL_ACCOUNT"); v != "" {
		cfg.Import.DefaultAccount = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Session.CloseHour < 0 || c.Session.CloseHour > 23 {
		return fmt.Errorf("%w: session close_hour must be between 0 and 23, got %d", apperrors.ErrConfigInvalid, c.Session.CloseHour)
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("%w: session timezone %q: %v", apperrors.ErrConfigInvalid, c.Session.Timezone, err)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path must not be empty", apperrors.ErrConfigInvalid)
	}
	return nil
}

// Location resolves the session timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Session.Timezone)
}
