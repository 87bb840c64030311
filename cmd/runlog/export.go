// ABOUTME: CLI commands for exporting and importing running data.
// ABOUTME: Supports JSON (full backup) and YAML (human-readable) export.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export running data",
	Long: `Export every run, shoe, record, streak and goal in the store.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export grouped by user (human-readable)

OPTIONS:

  --output, -o   Write to file instead of stdout

EXAMPLES:

  runlog export json                        # Export all data as JSON
  runlog export json -o backup.json         # Save to file
  runlog export yaml                        # Export as YAML`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = storage.ExportJSON(repo)
		case "yaml":
			data, err = storage.ExportYAML(repo)
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", format)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}

		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import running data from JSON",
	Long: `Import running data from a JSON backup file.

This restores shoes, runs, records, streaks and goals from a previously
exported JSON file. Duplicate entries (same ID) will cause an error.

EXAMPLES:

  runlog import backup.json               # Import from file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		if err := storage.ImportJSON(repo, data); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported from %s", filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
