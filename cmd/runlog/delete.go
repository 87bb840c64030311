// ABOUTME: CLI command for deleting runs.
// ABOUTME: Supports deletion by full ID or ID prefix; records and streaks are recomputed.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/models"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a run",
	Long: `Delete a run by its ID or ID prefix.

You can use either the full UUID or just the first few characters (prefix).
The ID prefix is shown in the first column of 'runlog list' output.

Personal records and streaks are recomputed from the remaining runs, and the
run's distance is taken off its shoe.

EXAMPLES:

  runlog delete abc12345                    # Delete by 8-char prefix
  runlog rm abc1                            # Short prefix (if unique)

CAUTION:

  This permanently deletes the run. There is no undo.
  If the prefix matches multiple runs, an error is returned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := trk.DeleteRun(cmd.Context(), userID, args[0])
		if err != nil {
			if run == nil {
				return fmt.Errorf("failed to delete run %s: %w", args[0], err)
			}
			return fmt.Errorf("run deleted but %w", err)
		}

		color.Yellow("✗ Deleted run")
		fmt.Printf("  %s %s %.2f km in %s\n",
			color.New(color.Faint).Sprint(run.ID.String()[:8]),
			run.Date, run.DistanceKm, models.FormatDuration(run.DurationS))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
