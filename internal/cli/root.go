// Package cli provides the command-line interface for the risk desk.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"zerodha-risk/internal/analytics"
	"zerodha-risk/internal/broker"
	"zerodha-risk/internal/config"
	"zerodha-risk/internal/errors"
	"zerodha-risk/internal/logging"
	"zerodha-risk/internal/store"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Broker  broker.Broker
	Store   store.ReportStore
	Service *analytics.Service
}

// NewRootCmd creates the root command for the CLI. Configuration is loaded
// once flags are parsed, so --config is honoured.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{Logger: zerolog.Nop()})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "riskdesk",
		Short: "Options position risk analytics for Zerodha",
		Long: `riskdesk analyses pasted option positions: breakevens, probability of
profit under a lognormal price model, payoff extremes and, with a Kite
session, live spot and basket margin.

Positions are one leg per line:

  SYMBOL EXPIRY STRIKE CE|PE QTY PRICE
  ITC 24-Feb-26 263.5 PE -19200 0.7`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.Store != nil {
				return app.Store.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/zerodha-risk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable coloured output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)

	return rootCmd
}

// init wires the application from configuration, once flags are parsed.
// Dependencies already set on the App are kept.
func (app *App) init(cmd *cobra.Command) error {
	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg

		app.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
			Level:      cfg.Log.Level,
			Console:    cfg.Log.Console,
			File:       cfg.Log.File,
			FilePath:   cfg.LogPath(),
			MaxSize:    20,
			MaxBackups: 5,
			MaxAge:     30,
		})
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	if !app.Config.UI.ColorEnabled {
		_ = cmd.Flags().Set("no-color", "true")
	}

	if app.Broker == nil && app.Config.HasCredentials() {
		creds := app.Config.Credentials.Zerodha
		app.Broker = broker.NewZerodhaBroker(broker.ZerodhaConfig{
			APIKey:             creds.APIKey,
			APISecret:          creds.APISecret,
			UserID:             creds.UserID,
			TokenPath:          app.Config.SessionPath(),
			InstrumentCacheTTL: app.Config.Broker.InstrumentCacheTTL,
			RetryAttempts:      app.Config.Broker.RetryAttempts,
			RequestsPerSecond:  app.Config.Broker.RequestsPerSecond,
			Logger:             app.Logger,
		})
		app.Logger.Debug().Msg("Zerodha broker initialized")
	}

	if app.Store == nil {
		s, err := store.NewSQLiteStore(app.Config.StorePath())
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to open report store, history is unavailable")
		} else {
			app.Store = s
		}
	}

	if app.Service == nil {
		deps := analytics.Dependencies{Logger: app.Logger}
		if app.Broker != nil {
			deps.Spot = app.Broker
			deps.Margin = app.Broker
		}
		if app.Store != nil {
			deps.Store = app.Store
		}
		app.Service = analytics.NewService(analytics.Config{
			DefaultVolatility: app.Config.Volatility(),
			Workers:           app.Config.Analytics.Workers,
		}, deps)
	}
	return nil
}

// requireBroker returns the broker or an error telling the user how to
// configure one.
func (app *App) requireBroker() (broker.Broker, error) {
	if app.Broker == nil {
		return nil, errors.Wrapf(errors.ErrBrokerUnavailable,
			"Kite credentials not configured: set api_key and api_secret in %s or ZERODHA_API_KEY/ZERODHA_API_SECRET",
			filepath.Join(app.Config.Dir, "credentials.toml"))
	}
	return app.Broker, nil
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("riskdesk v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
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
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Dir})
			} else {
				output.Println(app.Config.Dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analytics")
	output.Printf("  Default volatility: %.2f%%\n", cfg.Analytics.DefaultVolatility)
	output.Printf("  Workers:            %d\n", cfg.Analytics.Workers)
	output.Println()

	output.Bold("Broker")
	output.Printf("  Credentials:        %s\n", credentialState(output, cfg.HasCredentials()))
	output.Printf("  Instrument cache:   %s\n", cfg.Broker.InstrumentCacheTTL)
	output.Printf("  Retry attempts:     %d\n", cfg.Broker.RetryAttempts)
	output.Printf("  Requests/second:    %.1f\n", cfg.Broker.RequestsPerSecond)
	output.Printf("  Session file:       %s\n", cfg.SessionPath())
	output.Println()

	output.Bold("Storage")
	output.Printf("  Report history:     %s\n", cfg.StorePath())
	output.Printf("  Log file:           %s\n", cfg.LogPath())
	output.Printf("  Log level:          %s\n", cfg.Log.Level)
}

func credentialState(output *Output, ok bool) string {
	if ok {
		return output.Green("configured")
	}
	return output.Yellow("not configured")
}
