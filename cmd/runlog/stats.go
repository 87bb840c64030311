// ABOUTME: CLI commands for aggregate statistics and reports.
// ABOUTME: Window stats, month and year reports, and week-over-week comparison.
package main

import (
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	statsPeriod string
	statsFrom   string
	statsTo     string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals for a period",
	Long: `Show distance, time, pace and calorie totals for a period.

PERIODS:

  week    The current Monday-based week (default)
  month   The current calendar month
  year    The current calendar year
  all     Every run

  Use --from and/or --to (YYYY-MM-DD, inclusive) for a custom range instead.

EXAMPLES:

  runlog stats                                  # This week
  runlog stats -p month                         # This month
  runlog stats --from 2025-01-01 --to 2025-03-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := statsWindow()
		if err != nil {
			return err
		}

		report, err := trk.Stats(cmd.Context(), userID, w)
		if err != nil {
			return fmt.Errorf("failed to compute stats: %w", err)
		}

		printWindowHeader(report.Window)
		printSummary(report.Summary)
		return nil
	},
}

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Show a month report",
	Long: `Show totals for a calendar month broken down into Monday-based weeks,
with progress toward the month's goal if one is set.

EXAMPLES:

  runlog month             # Current month
  runlog month 2025-03     # March 2025`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		month, err := analytics.ParseMonth(arg, trk.Today())
		if err != nil {
			return err
		}

		report, err := trk.MonthReport(cmd.Context(), userID, month.Year, month.Month)
		if err != nil {
			return fmt.Errorf("failed to build month report: %w", err)
		}

		printWindowHeader(report.Window)
		printSummary(report.Summary)
		fmt.Println()
		for _, b := range report.Weeks {
			fmt.Printf("  %s week  %s  %s  %s\n",
				padRight(humanize.Ordinal(b.Index), 4),
				padRight(b.Label, 16),
				padLeft(fmt.Sprintf("%.2f km", b.Summary.TotalDistanceKm), 10),
				color.New(color.Faint).Sprintf("%d %s", b.Summary.TotalRuns, plural(b.Summary.TotalRuns, "run", "runs")))
		}
		if report.Goal != nil {
			fmt.Println()
			printGoal(report.Goal)
		}
		return nil
	},
}

var yearCmd = &cobra.Command{
	Use:   "year [YYYY]",
	Short: "Show a year report",
	Long: `Show totals for a calendar year broken down by month, with the longest
streak and most active weekday of the year.

EXAMPLES:

  runlog year              # Current year
  runlog year 2024`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year := trk.Today().Year
		if len(args) == 1 {
			y, err := strconv.Atoi(args[0])
			if err != nil || y < 1 {
				return fmt.Errorf("invalid year: %s", args[0])
			}
			year = y
		}

		report, err := trk.YearReport(cmd.Context(), userID, year)
		if err != nil {
			return fmt.Errorf("failed to build year report: %w", err)
		}

		printWindowHeader(report.Window)
		printSummary(report.Summary)
		fmt.Printf("  Longest streak:   %d %s\n", report.LongestStreakDays, plural(report.LongestStreakDays, "day", "days"))
		if report.MostActiveDay != nil {
			fmt.Printf("  Favorite day:     %s (%d runs)\n", report.MostActiveDay.Name, report.MostActiveDay.Count)
		}
		fmt.Println()
		for _, b := range report.Months {
			fmt.Printf("  %s  %s  %s\n",
				b.Label,
				padLeft(fmt.Sprintf("%.2f km", b.Summary.TotalDistanceKm), 10),
				color.New(color.Faint).Sprintf("%d %s", b.Summary.TotalRuns, plural(b.Summary.TotalRuns, "run", "runs")))
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare this week with last week",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmp, err := trk.CompareWeeks(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to compare weeks: %w", err)
		}
		printComparison(cmp)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsPeriod, "period", "p", analytics.WindowWeek, "period: week, month, year or all")
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "range start (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "range end (YYYY-MM-DD)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(monthCmd)
	rootCmd.AddCommand(yearCmd)
	rootCmd.AddCommand(compareCmd)
}

func statsWindow() (analytics.Window, error) {
	today := trk.Today()
	if statsFrom == "" && statsTo == "" {
		return analytics.NamedWindow(statsPeriod, today)
	}
	var from, to civil.Date
	var err error
	if statsFrom != "" {
		if from, err = analytics.ParseDay(statsFrom, today); err != nil {
			return analytics.Window{}, err
		}
	}
	if statsTo != "" {
		if to, err = analytics.ParseDay(statsTo, today); err != nil {
			return analytics.Window{}, err
		}
	}
	return analytics.RangeWindow(from, to)
}

func printWindowHeader(w analytics.Window) {
	bold := color.New(color.Bold)
	switch {
	case w.Start.IsZero() && w.End.IsZero():
		bold.Printf("%s: all time\n", w.Name)
	case w.Start.IsZero():
		bold.Printf("%s: up to %s\n", w.Name, w.End)
	case w.End.IsZero():
		bold.Printf("%s: since %s\n", w.Name, w.Start)
	default:
		bold.Printf("%s: %s to %s\n", w.Name, w.Start, w.End)
	}
}

func printSummary(s analytics.Summary) {
	if s.TotalRuns == 0 {
		fmt.Println("  No runs in this period.")
		return
	}
	fmt.Printf("  Distance:         %s km over %s %s\n",
		humanize.FormatFloat("#,###.##", s.TotalDistanceKm),
		humanize.Comma(int64(s.TotalRuns)), plural(s.TotalRuns, "run", "runs"))
	fmt.Printf("  Time:             %s\n", models.FormatDuration(s.TotalDurationS))
	fmt.Printf("  Average pace:     %s /km\n", models.FormatPace(s.AvgPace))
	fmt.Printf("  Fastest pace:     %s /km\n", models.FormatPace(s.FastestPace))
	fmt.Printf("  Average run:      %.2f km\n", s.AvgDistanceKm)
	fmt.Printf("  Longest run:      %.2f km\n", s.LongestRunKm)
	if s.TotalElevationGainM > 0 {
		fmt.Printf("  Elevation gain:   %s m\n", humanize.Comma(int64(s.TotalElevationGainM)))
	}
	fmt.Printf("  Calories (est.):  %s kcal\n", humanize.Comma(int64(s.EstimatedCalories)))
}

func printGoal(gp *analytics.GoalProgress) {
	fmt.Println("Goal:")
	if gp.Goal.TargetDistanceKm != nil && gp.DistancePct != nil {
		fmt.Printf("  Distance:  %.0f%% of %.1f km\n", *gp.DistancePct, *gp.Goal.TargetDistanceKm)
	}
	if gp.Goal.TargetRuns != nil && gp.RunsPct != nil {
		fmt.Printf("  Runs:      %.0f%% of %d\n", *gp.RunsPct, *gp.Goal.TargetRuns)
	}
	if gp.Met {
		color.Green("  ✓ Goal met")
	}
}

func printComparison(cmp analytics.WeekComparison) {
	this, last := cmp.ThisWeek.Summary, cmp.LastWeek.Summary
	fmt.Printf("This week:  %6.2f km  %d %s\n", this.TotalDistanceKm, this.TotalRuns, plural(this.TotalRuns, "run", "runs"))
	fmt.Printf("Last week:  %6.2f km  %d %s\n", last.TotalDistanceKm, last.TotalRuns, plural(last.TotalRuns, "run", "runs"))
	if cmp.DistanceChangePct == nil {
		return
	}
	change := *cmp.DistanceChangePct
	switch {
	case change > 0:
		color.Green("  ▲ %.0f%% more distance", change)
	case change < 0:
		color.Yellow("  ▼ %.0f%% less distance", -change)
	default:
		fmt.Println("  Same distance as last week")
	}
}

// monthLabel formats the first day of a month as "March 2025".
func monthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}
