// ABOUTME: CLI commands for listing and showing runs.
// ABOUTME: Supports date-range filtering and limiting results.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	listFrom  string
	listTo    string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List runs",
	Long: `List recent runs, newest first.

OUTPUT FORMAT:

  Each line shows: ID  DATE  DISTANCE  DURATION  PACE  HR  (NOTES)

  The ID is an 8-character prefix you can use with show and delete.

FILTERING:

  --from and --to take YYYY-MM-DD dates and are inclusive.

EXAMPLES:

  runlog list                              # Last 20 runs
  runlog list -n 50                        # Last 50 runs
  runlog list --from 2025-03-01            # Runs since March 1st
  runlog list --from 2025-03-01 --to 2025-03-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.RunFilter{Limit: listLimit}
		today := trk.Today()
		if listFrom != "" {
			d, err := analytics.ParseDay(listFrom, today)
			if err != nil {
				return err
			}
			filter.From = d
		}
		if listTo != "" {
			d, err := analytics.ParseDay(listTo, today)
			if err != nil {
				return err
			}
			filter.To = d
		}

		runs, err := trk.ListRuns(cmd.Context(), userID, filter)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range runs {
			hr := "   -"
			if r.AvgHeartRate != nil {
				hr = fmt.Sprintf("%4d", *r.AvgHeartRate)
			}
			notes := ""
			if r.Notes != nil && *r.Notes != "" {
				notes = faint.Sprintf(" (%s)", truncate(*r.Notes, 30))
			}
			fmt.Printf("%s %s %s %s %s %s%s\n",
				faint.Sprint(r.ID.String()[:8]),
				r.Date,
				padLeft(fmt.Sprintf("%.2f km", r.DistanceKm), 9),
				padLeft(models.FormatDuration(r.DurationS), 8),
				padLeft(models.FormatPace(r.Pace())+" /km", 9),
				hr,
				notes)
		}

		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show run details",
	Long: `Show every field of a run by its ID or ID prefix.

EXAMPLES:

  runlog show abc12345`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := trk.GetRun(cmd.Context(), userID, args[0])
		if err != nil {
			return fmt.Errorf("run not found: %s", args[0])
		}

		fmt.Printf("Run %s\n", color.New(color.Faint).Sprint(run.ID))
		fmt.Printf("  Date:       %s (%s)\n", run.Date, analytics.WeekdayName(analytics.WeekdayIndex(run.Date)))
		fmt.Printf("  Distance:   %.2f km\n", run.DistanceKm)
		fmt.Printf("  Duration:   %s\n", models.FormatDuration(run.DurationS))
		fmt.Printf("  Pace:       %s /km\n", models.FormatPace(run.Pace()))
		if run.AvgHeartRate != nil {
			zone := analytics.Classify(*run.AvgHeartRate, cfg.MaxHeartRate())
			fmt.Printf("  Heart rate: %d bpm (%s %s)\n", *run.AvgHeartRate, zone, zone.Name())
		}
		if run.ElevationGainM != nil {
			fmt.Printf("  Elevation:  %.0f m\n", *run.ElevationGainM)
		}
		if run.ShoeID != nil {
			name := run.ShoeID.String()[:8]
			if shoe, err := trk.Shoe(cmd.Context(), userID, run.ShoeID.String()); err == nil {
				name = shoe.DisplayName()
			}
			fmt.Printf("  Shoe:       %s\n", name)
		}
		if run.Notes != nil && *run.Notes != "" {
			fmt.Printf("  Notes:      %s\n", *run.Notes)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFrom, "from", "", "only runs on or after this date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "only runs on or before this date (YYYY-MM-DD)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of runs")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// padRight pads a string with spaces to the specified length.
func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// padLeft right-aligns a string within the specified length.
func padLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
