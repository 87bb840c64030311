// ABOUTME: CLI commands for monthly running goals.
// ABOUTME: Sets distance/run-count targets and shows progress toward them.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	goalMonth    string
	goalDistance float64
	goalRuns     int
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Set and track monthly goals",
	Long: `Set a monthly distance and/or run-count goal and check your progress.

EXAMPLES:

  runlog goal set --distance 120              # 120 km this month
  runlog goal set --runs 16 --month 2025-04   # 16 runs in April
  runlog goal show                            # Progress this month`,
}

var goalSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the goal for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := analytics.ParseMonth(goalMonth, trk.Today())
		if err != nil {
			return err
		}

		goal := models.NewGoal(userID, month)
		if cmd.Flags().Changed("distance") {
			goal.TargetDistanceKm = &goalDistance
		}
		if cmd.Flags().Changed("runs") {
			goal.TargetRuns = &goalRuns
		}
		if err := trk.SetGoal(cmd.Context(), goal); err != nil {
			return fmt.Errorf("failed to set goal: %w", err)
		}

		color.Green("✓ Goal set for %s", monthLabel(month.Year, month.Month))
		if goal.TargetDistanceKm != nil {
			fmt.Printf("  Distance: %.1f km\n", *goal.TargetDistanceKm)
		}
		if goal.TargetRuns != nil {
			fmt.Printf("  Runs:     %d\n", *goal.TargetRuns)
		}
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show progress toward a month's goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := analytics.ParseMonth(goalMonth, trk.Today())
		if err != nil {
			return err
		}

		report, err := trk.MonthReport(cmd.Context(), userID, month.Year, month.Month)
		if err != nil {
			return fmt.Errorf("failed to build month report: %w", err)
		}
		if report.Goal == nil {
			fmt.Printf("No goal set for %s. Use 'runlog goal set'.\n", monthLabel(month.Year, month.Month))
			return nil
		}

		color.New(color.Bold).Println(monthLabel(month.Year, month.Month))
		fmt.Printf("  %.2f km over %d %s so far\n",
			report.Summary.TotalDistanceKm, report.Summary.TotalRuns, plural(report.Summary.TotalRuns, "run", "runs"))
		printGoal(report.Goal)
		return nil
	},
}

func init() {
	goalCmd.PersistentFlags().StringVarP(&goalMonth, "month", "m", "", "month (YYYY-MM, default current)")
	goalSetCmd.Flags().Float64Var(&goalDistance, "distance", 0, "target distance in km")
	goalSetCmd.Flags().IntVar(&goalRuns, "runs", 0, "target number of runs")

	goalCmd.AddCommand(goalSetCmd)
	goalCmd.AddCommand(goalShowCmd)
	rootCmd.AddCommand(goalCmd)
}
