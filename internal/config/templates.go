package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# P&L Attribution Journal Configuration

[database]
# SQLite file holding imported executions (relative to this directory)
path = "journal.db"

[session]
# Time zone executions are recorded in
timezone = "America/New_York"
# Equity curve anchor (session open) and informational session close
open = "09:30"
close = "16:00"

[attribution]
# P&L decomposition model: "open_greeks" or "average_greeks"
model = "open_greeks"

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
# Rotating log file (relative to this directory)
file = false
file_path = "logs/pnl.log"
max_size = 20
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
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
