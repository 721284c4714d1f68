package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Tradovate Journal Configuration

[session]
# Session close hour in 24h local time. Fills at or before this hour
# belong to that calendar date's trading day; later fills roll into the
# next day.
close_hour = 15
# IANA timezone for trading-day classification
timezone = "America/Chicago"

[database]
# SQLite database path (defaults to the config directory)
path = ""

[import]
# Account attached to imported fills when the CSV carries none
default_account = "default"

[logging]
# Log level: debug, info, warn, error
level = "info"
# Write rotated log files under the config directory
file = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
