package config

import (
	"errors"
	"testing"

	apperrors "tradovate-journal/internal/errors"
)

func validConfig() *Config {
	return &Config{
		Session:  SessionConfig{CloseHour: 15, Timezone: "America/Chicago"},
		Database: DatabaseConfig{Path: "/tmp/journal.db"},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"close hour too high", func(c *Config) { c.Session.CloseHour = 24 }},
		{"close hour negative", func(c *Config) { c.Session.CloseHour = -1 }},
		{"unknown timezone", func(c *Config) { c.Session.Timezone = "Mars/Olympus" }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoadCreatesTemplateOnMissingConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_DB_PATH", "")
	t.Setenv("JOURNAL_TIMEZONE", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Session.CloseHour != 15 {
		t.Errorf("close hour = %d, want 15", cfg.Session.CloseHour)
	}
	if cfg.Session.Timezone != "America/Chicago" {
		t.Errorf("timezone = %s", cfg.Session.Timezone)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %s, want info", cfg.Logging.Level)
	}

	// A second load reads the template written by the first.
	again, err := Load(dir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Session.CloseHour != cfg.Session.CloseHour {
		t.Errorf("reload close hour = %d, want %d", again.Session.CloseHour, cfg.Session.CloseHour)
	}
}
