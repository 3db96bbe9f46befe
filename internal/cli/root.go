package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pnl-attribution/internal/config"
	"pnl-attribution/internal/logging"
	"pnl-attribution/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-03-14"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.ExecutionStore
}

// NewRootCmd creates the root command for the CLI. When cfg is nil the
// configuration is loaded from the --config directory before any command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Config: cfg, Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pnl",
		Short: "Options day P&L attribution journal",
		Long: `pnl imports option executions and explains each trading day's realized P&L.

Executions are matched first-in first-out into round trips, and every round
trip's P&L is attributed to delta, theta, vega and gamma with a residual.
Reports include an intraday equity curve and a return distribution.

Use 'pnl import <file.csv>' to load executions and 'pnl report' to analyze a day.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				dir, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.NewLoggerWithConfig(logConfig(cfg))
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return nil
			}
			err := app.Store.Close()
			app.Store = nil
			return err
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/pnl-attribution)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("yaml", false, "output in YAML format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addHelpCommands(rootCmd)

	return rootCmd
}

// logConfig maps the [logging] section onto the logger settings.
func logConfig(cfg *config.Config) logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = cfg.Logging.Level
	lc.Console = cfg.Logging.Console
	lc.File = cfg.Logging.File
	lc.FilePath = cfg.LogFilePath()
	lc.MaxSize = cfg.Logging.MaxSize
	lc.MaxBackups = cfg.Logging.MaxBackups
	lc.MaxAge = cfg.Logging.MaxAge
	return lc
}

// openStore opens the execution store on first use.
func (app *App) openStore() (store.ExecutionStore, error) {
	if app.Store != nil {
		return app.Store, nil
	}
	s, err := store.NewSQLiteStore(app.Config.DatabasePath(), app.Config.Location())
	if err != nil {
		return nil, err
	}
	app.Logger.Debug().Str("path", app.Config.DatabasePath()).Msg("SQLite store initialized")
	app.Store = s
	return s, nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Encode(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("pnl v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Encode(configView(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Encode(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsStructured() {
				return output.Encode(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// configView is the structured form of the effective configuration.
func configView(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"dir":      cfg.Dir,
		"database": map[string]string{"path": cfg.DatabasePath()},
		"session": map[string]string{
			"timezone": cfg.Session.Timezone,
			"open":     cfg.Session.Open,
			"close":    cfg.Session.Close,
		},
		"attribution": map[string]string{"model": cfg.Attribution.Model},
		"logging": map[string]interface{}{
			"level": cfg.Logging.Level,
			"file":  cfg.Logging.File,
			"path":  cfg.LogFilePath(),
		},
	}
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.DatabasePath())
	output.Println()

	output.Bold("Session")
	output.Printf("  Timezone:        %s\n", cfg.Session.Timezone)
	output.Printf("  Open:            %s\n", cfg.Session.Open)
	output.Printf("  Close:           %s\n", cfg.Session.Close)
	output.Println()

	output.Bold("Attribution")
	output.Printf("  Model:           %s\n", cfg.Attribution.Model)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %v\n", cfg.Logging.File)
	if cfg.Logging.File {
		output.Printf("  Path:            %s\n", cfg.LogFilePath())
	}
}
