// ABOUTME: CLI command for logging runs.
// ABOUTME: Reports new personal records and the streak after each run.
package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	addDate      string
	addHeartRate int
	addElevation float64
	addShoe      string
	addNotes     string
)

var addCmd = &cobra.Command{
	Use:     "add <distance_km> <duration>",
	Aliases: []string{"a", "log"},
	Short:   "Log a run",
	Long: `Log a run with its distance in kilometers and its duration.

DURATION FORMATS:

  ss          seconds only, e.g. 1500
  mm:ss       minutes and seconds, e.g. 25:00
  h:mm:ss     hours, minutes and seconds, e.g. 1:45:30

OPTIONS:

  --date, -d        Run date: YYYY-MM-DD, today or yesterday (default today)
  --hr              Average heart rate in bpm
  --elevation       Elevation gain in meters
  --shoe            Shoe ID or prefix (adds the distance to its mileage)
  --notes, -n       Free-form notes

EXAMPLES:

  runlog add 5 25:00                          # 5 km in 25 minutes today
  runlog add 21.1 1:52:04 -d 2025-04-06       # Half marathon on a date
  runlog add 8 42:10 --hr 145 --shoe a1b2c3   # With heart rate and shoe
  runlog add 12 1:05:00 -n "hilly long run" --elevation 240

After saving, any new personal records and the current streak are shown.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		distance, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid distance %q: %w", args[0], err)
		}
		durationS, err := models.ParseDuration(args[1])
		if err != nil {
			return err
		}
		date, err := analytics.ParseDay(addDate, trk.Today())
		if err != nil {
			return err
		}

		run := models.NewRun(userID, date, distance, durationS)
		if cmd.Flags().Changed("hr") {
			run.WithHeartRate(addHeartRate)
		}
		if cmd.Flags().Changed("elevation") {
			run.WithElevationGain(addElevation)
		}
		if addShoe != "" {
			shoe, err := trk.Shoe(cmd.Context(), userID, addShoe)
			if err != nil {
				return fmt.Errorf("shoe not found: %s", addShoe)
			}
			run.WithShoe(shoe.ID)
		}
		if addNotes != "" {
			run.WithNotes(addNotes)
		}

		result, err := trk.AddRun(cmd.Context(), run)
		if result == nil && err != nil {
			return fmt.Errorf("failed to add run: %w", err)
		}

		color.Green("✓ Logged %.2f km in %s (%s /km) on %s",
			run.DistanceKm, models.FormatDuration(run.DurationS), models.FormatPace(run.Pace()), run.Date)
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(run.ID.String()[:8]))

		for _, d := range result.NewRecords {
			line := fmt.Sprintf("★ New %s record: %s", d.Type.Label(), d.Type.FormatValue(d.Record.Value))
			if d.Replaced != nil {
				line += fmt.Sprintf(" (was %s)", d.Type.FormatValue(d.Replaced.Value))
			}
			color.Yellow("  %s", line)
		}
		if result.ClosedStreak != nil {
			fmt.Printf("  Previous streak ended at %d days\n", result.ClosedStreak.Length)
		}
		if result.Streak != nil {
			fmt.Printf("  Streak: %d %s\n", result.Streak.Length, plural(result.Streak.Length, "day", "days"))
		}

		// The run is saved even when derived state failed to update.
		if err != nil {
			return fmt.Errorf("run saved but %w", err)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "run date (YYYY-MM-DD, today, yesterday)")
	addCmd.Flags().IntVar(&addHeartRate, "hr", 0, "average heart rate in bpm")
	addCmd.Flags().Float64Var(&addElevation, "elevation", 0, "elevation gain in meters")
	addCmd.Flags().StringVar(&addShoe, "shoe", "", "shoe ID or prefix")
	addCmd.Flags().StringVarP(&addNotes, "notes", "n", "", "notes")
	rootCmd.AddCommand(addCmd)
}
