// ABOUTME: Root Cobra command for runlog CLI.
// ABOUTME: Loads config and handles storage/tracker lifecycle via PersistentPre/PostRunE.
package main

import (
	"fmt"

	"github.com/harperreed/runlog/internal/config"
	"github.com/harperreed/runlog/internal/logging"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/harperreed/runlog/internal/tracker"
	"github.com/spf13/cobra"
)

// skipStorage marks commands that must not open the configured store.
const skipStorage = "skip-storage"

var (
	cfg    *config.Config
	repo   storage.Repository
	trk    *tracker.Tracker
	userID string

	flagBackend  string
	flagDataDir  string
	flagUser     string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "runlog",
	Short: "Running log and performance analytics",
	Long: `Runlog is a CLI tool for logging runs and analyzing your running.

WHAT IT TRACKS:

  Runs          date, distance, duration, heart rate, elevation, shoe, notes
  Records       5K, 10K, half, full marathon, longest run, fastest pace
  Streaks       consecutive running days, current and longest
  Gear          shoe mileage
  Goals         monthly distance and run-count targets

QUICK START:

  $ runlog add 5 25:00                  # Log a 5 km run in 25 minutes
  $ runlog add 10.2 52:30 --hr 148      # Log with average heart rate
  $ runlog list                         # See recent runs
  $ runlog stats --period month         # This month's totals
  $ runlog dashboard                    # Everything on one screen

ANALYTICS:

  $ runlog records          # Personal records
  $ runlog streak           # Current and longest streak
  $ runlog predict          # Race time predictions (Riegel)
  $ runlog zones            # Heart rate zones and 80/20 balance
  $ runlog month 2025-03    # Month report with weekly buckets
  $ runlog year 2025        # Year report with monthly buckets

STORAGE:

  Data lives in ~/.local/share/runlog by default. Pick a backend with
  --backend or RUNLOG_BACKEND:

  sqlite   Local SQLite database (default)
  badger   Local Badger key-value store
  charm    Charm Cloud, E2E encrypted and synced across devices

MCP INTEGRATION:

  Run 'runlog mcp' to start the Model Context Protocol server for use with
  Claude Desktop or other MCP-compatible AI assistants. Add to your Claude
  config:

  {
    "mcpServers": {
      "runlog": { "command": "runlog", "args": ["mcp"] }
    }
  }`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		applyFlagOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		userID = cfg.GetUserID()

		if cmd.Annotations[skipStorage] == "true" {
			return nil
		}

		repo, err = cfg.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", cfg.GetBackend(), err)
		}
		trk = tracker.New(repo,
			tracker.WithLogger(logging.Default(cfg.GetLogLevel())),
			tracker.WithMaxHR(cfg.MaxHeartRate()),
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStorage()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "storage backend: sqlite, badger or charm")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.local/share/runlog)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "user the runs belong to (default $USER)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
}

func applyFlagOverrides(c *config.Config) {
	if flagBackend != "" {
		c.Backend = flagBackend
	}
	if flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	if flagUser != "" {
		c.UserID = flagUser
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
}

func closeStorage() error {
	if repo == nil {
		return nil
	}
	err := repo.Close()
	repo = nil
	trk = nil
	return err
}
