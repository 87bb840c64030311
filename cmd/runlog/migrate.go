// ABOUTME: CLI command for migrating data between storage backends.
// ABOUTME: Copies everything from the configured store into a fresh destination store.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/config"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	migrateTo     string
	migrateToDir  string
	migrateForce  bool
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data to another storage backend",
	Long: `Copy all running data from the configured backend to another one.

The source is whatever --backend/--data-dir (or config) selects. The
destination must be empty unless --force is given.

USAGE:

  runlog migrate --to badger --dry-run     # Preview what would be migrated
  runlog migrate --to badger               # SQLite -> Badger, same data dir
  runlog migrate --to sqlite --to-dir ~/runlog-backup
  runlog --backend sqlite migrate --to charm

AFTER MIGRATION:

  Point runlog at the new backend:
    runlog config set backend badger`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dstCfg := *cfg
		dstCfg.Backend = migrateTo
		if migrateToDir != "" {
			dstCfg.DataDir = migrateToDir
		}
		if err := dstCfg.Validate(); err != nil {
			return err
		}
		if dstCfg.GetBackend() == cfg.GetBackend() && dstCfg.GetDataDir() == cfg.GetDataDir() {
			return fmt.Errorf("source and destination are the same %s store", cfg.GetBackend())
		}

		fmt.Printf("From: %s (%s)\n", cfg.GetBackend(), cfg.GetDataDir())
		fmt.Printf("To:   %s (%s)\n", dstCfg.GetBackend(), dstCfg.GetDataDir())
		fmt.Println()

		if migrateDryRun {
			color.Yellow("Dry run mode - no changes will be made")
			data, err := repo.GetAllData()
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}
			printMigrateSummary(&storage.MigrateSummary{
				Shoes:   len(data.Shoes),
				Runs:    len(data.Runs),
				Records: len(data.Records),
				Streaks: len(data.Streaks),
				Goals:   len(data.Goals),
			})
			return nil
		}

		if !migrateForce {
			used, err := destinationInUse(&dstCfg)
			if err != nil {
				return err
			}
			if used {
				return fmt.Errorf("destination %s store already has data (use --force to merge into it)", dstCfg.GetBackend())
			}
		}

		summary, err := migrateInto(&dstCfg)
		if err != nil {
			return err
		}

		color.Green("✓ Migration complete")
		printMigrateSummary(summary)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend: sqlite, badger or charm")
	migrateCmd.Flags().StringVar(&migrateToDir, "to-dir", "", "destination data directory (default: same as source)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "migrate even if the destination has data")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}

func migrateInto(dstCfg *config.Config) (summary *storage.MigrateSummary, err error) {
	dst, err := dstCfg.OpenStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dst.Close())
	}()

	summary, err = storage.MigrateData(repo, dst)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return summary, nil
}

// destinationInUse reports whether a local destination store already exists.
// Charm stores cannot be inspected without opening them and are always allowed.
func destinationInUse(c *config.Config) (bool, error) {
	switch c.GetBackend() {
	case config.BackendSQLite:
		_, err := os.Stat(filepath.Join(c.GetDataDir(), "runlog.db"))
		if os.IsNotExist(err) {
			return false, nil
		}
		return err == nil, err
	case config.BackendBadger:
		return storage.IsDirNonEmpty(filepath.Join(c.GetDataDir(), "badger"))
	default:
		return false, nil
	}
}

func printMigrateSummary(s *storage.MigrateSummary) {
	fmt.Printf("  Shoes:   %d\n", s.Shoes)
	fmt.Printf("  Runs:    %d\n", s.Runs)
	fmt.Printf("  Records: %d\n", s.Records)
	fmt.Printf("  Streaks: %d\n", s.Streaks)
	fmt.Printf("  Goals:   %d\n", s.Goals)
}
