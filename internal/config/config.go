// Package config provides configuration management for the P&L journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/pnl"
)

// Config holds all application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Session     SessionConfig     `mapstructure:"session"`
	Attribution AttributionConfig `mapstructure:"attribution"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	UI          UIConfig          `mapstructure:"ui"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// DatabaseConfig holds the execution store location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // relative paths resolve against the config dir
}

// SessionConfig describes the trading session executions are recorded in.
type SessionConfig struct {
	Timezone string `mapstructure:"timezone"`
	Open     string `mapstructure:"open"`  // HH:MM
	Close    string `mapstructure:"close"` // HH:MM
}

// AttributionConfig selects the P&L decomposition model.
type AttributionConfig struct {
	Model string `mapstructure:"model"` // open_greeks, average_greeks
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
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
		return ".config/pnl-attribution"
	}
	return filepath.Join(home, ".config", "pnl-attribution")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A commented
// template is written when config.toml does not exist yet.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	loadDotEnv(filepath.Join(configDir, ".env"), ".env")

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "journal.db")
	v.SetDefault("session.timezone", "America/New_York")
	v.SetDefault("session.open", "09:30")
	v.SetDefault("session.close", "16:00")
	v.SetDefault("attribution.model", pnl.ModelOpenGreeks)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", "logs/pnl.log")
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.time_format", "15:04:05")
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

// loadDotEnv loads each existing .env file in order without overriding
// variables already set, so earlier files win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PNL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PNL_TIMEZONE"); v != "" {
		cfg.Session.Timezone = v
	}
	if v := os.Getenv("PNL_MODEL"); v != "" {
		cfg.Attribution.Model = v
	}
	if v := os.Getenv("PNL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "database.path is required")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "session.timezone %q: %v", c.Session.Timezone, err)
	}
	if _, err := pnl.ParseSession(c.Session.Open, c.Session.Close); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "session: %v", err)
	}
	if _, err := pnl.ParseModel(c.Attribution.Model); err != nil {
		return err
	}
	return nil
}

// Location returns the session time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TradingSession returns the configured session window.
func (c *Config) TradingSession() pnl.Session {
	s, err := pnl.ParseSession(c.Session.Open, c.Session.Close)
	if err != nil {
		return pnl.DefaultSession
	}
	return s
}

// DatabasePath returns the store path, resolved against the config dir.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Database.Path)
}

// LogFilePath returns the log file path, resolved against the config dir.
func (c *Config) LogFilePath() string {
	return c.resolve(c.Logging.FilePath)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
