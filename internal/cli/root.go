package cli

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fyers-trader/internal/broker"
	"fyers-trader/internal/catalog"
	"fyers-trader/internal/config"
	"fyers-trader/internal/logging"
	"fyers-trader/internal/store"
	"fyers-trader/internal/trading"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Broker   broker.Broker
	Fyers    *broker.FyersBroker
	Catalog  *catalog.Catalog
	Snapshot *catalog.SnapshotLoader
	Store    *store.Store
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Catalog: catalog.New(),
	}

	app.Snapshot = catalog.NewSnapshotLoader(cfg.Snapshot.CacheDir, logger)

	// Live mode talks to Fyers; paper mode simulates fills locally,
	// optionally reading quotes through the live client.
	fyers := broker.NewFyersBroker(broker.FyersConfig{
		AppID:       cfg.Credentials.Fyers.AppID,
		AppSecret:   cfg.Credentials.Fyers.AppSecret,
		ClientID:    cfg.Credentials.Fyers.ClientID,
		PIN:         cfg.Credentials.Fyers.PIN,
		TOTPSecret:  cfg.Credentials.Fyers.TOTPSecret,
		RedirectURI: cfg.Credentials.Fyers.RedirectURI,
	}, logger)
	app.Fyers = fyers

	if cfg.IsPaperMode() {
		paperCfg := broker.PaperBrokerConfig{}
		if fyers.IsAuthenticated() {
			paperCfg.DataBroker = fyers
		}
		app.Broker = broker.NewPaperBroker(paperCfg)
		logger.Debug().Msg("Paper broker initialized")
	} else {
		app.Broker = fyers
		logger.Debug().Msg("Fyers broker initialized")
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "trader.db")
	journal, err := store.New(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Order journal unavailable")
	} else {
		app.Store = journal
	}

	rootCmd := &cobra.Command{
		Use:   "fytrader",
		Short: "Fyers Trader - instrument resolution and order execution CLI",
		Long: `Fyers Trader integrates with the Fyers brokerage API for the Indian
stock market: instrument master lookups, order placement with bounded
status polling, funds and quotes.

Use 'fytrader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/fyers-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAuthCommands(rootCmd, app)
	addInstrumentCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	rootCmd.AddCommand(newWatchCmd(app))

	return rootCmd
}

// driver builds an order lifecycle driver from the app's collaborators.
func (a *App) driver() *trading.Driver {
	return trading.NewDriver(trading.DriverConfig{
		Broker:    a.Broker,
		Catalog:   a.Catalog,
		Store:     a.Store,
		Logger:    a.Logger,
		MaxPolls:  a.Config.Polling.MaxPolls,
		Interval:  a.Config.Polling.Interval,
		Paper:     a.Config.IsPaperMode(),
		Overnight: a.Config.Trading.Overnight,
	})
}

// loadCatalog fills the catalog from the snapshot cache, downloading a
// fresh symbol master when the cache is stale.
func (a *App) loadCatalog(ctx context.Context) error {
	if a.Catalog.Len() > 0 {
		return nil
	}
	records, err := a.Snapshot.Load(ctx, a.Config.Snapshot.MaxAge)
	if err != nil {
		return err
	}
	return a.Catalog.Load(records)
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
				output.Printf("Fyers Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
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
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
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
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:             %s\n", cfg.Trading.Mode)
	output.Printf("  Default Exchange: %s\n", cfg.Trading.DefaultExchange)
	output.Printf("  Overnight:        %v\n", cfg.Trading.Overnight)
	output.Println()

	output.Bold("Polling Configuration")
	output.Printf("  Max Polls: %d\n", cfg.Polling.MaxPolls)
	output.Printf("  Interval:  %s\n", cfg.Polling.Interval)
	output.Println()

	output.Bold("Snapshot Configuration")
	output.Printf("  Cache Dir: %s\n", cfg.Snapshot.CacheDir)
	output.Printf("  Max Age:   %s\n", cfg.Snapshot.MaxAge)
}
