// ABOUTME: CLI commands for the analytics views.
// ABOUTME: Personal records, streaks, race predictions, training zones and the dashboard.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	zonesPeriod string
	zonesMaxHR  int

	dashboardJSON bool
)

var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"prs", "pr"},
	Short:   "Show personal records",
	Long: `Show your personal records.

CATEGORIES:

  5K, 10K, Half Marathon, Marathon   Fastest time for runs within 5% of the distance
  Longest Run                        Greatest distance
  Fastest Pace                       Lowest minutes per km on any run

Records are updated automatically when you log a run and recomputed when
you delete one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := trk.Records(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("No records yet. Log a run with 'runlog add'.")
			return nil
		}
		printRecords(recs)
		return nil
	},
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show running streaks",
	Long: `Show your current and longest streak of consecutive running days.

A streak stays current while your latest run was today or yesterday.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := trk.Streak(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to load streak: %w", err)
		}
		printStreak(snap)
		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict race times",
	Long: `Predict 5K, 10K, half marathon and marathon finish times with the Riegel
formula, T2 = T1 x (D2/D1)^1.06, using your best runs from the last 3 months.

At least 3 runs in the last 3 months are needed. When no suitable best run
exists for a distance, your average training pace is used instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := trk.Predict(cmd.Context(), userID)
		if errors.Is(err, analytics.ErrInsufficientData) {
			color.Yellow("Not enough data: %v", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to predict: %w", err)
		}
		printPredictions(p)
		return nil
	},
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Show heart rate zone distribution",
	Long: `Show time spent in each heart rate zone and your 80/20 balance.

ZONES (fractions of max heart rate):

  Z1 Recovery    50-60%
  Z2 Aerobic     60-70%
  Z3 Tempo       70-80%
  Z4 Threshold   80-90%
  Z5 VO2 Max     90-100%

  Z1 and Z2 count as easy. An easy share of 75-85% meets 80/20.
  Only runs with an average heart rate are counted.

Max heart rate comes from --max-hr, then the max_hr config setting, then
220 minus your configured age.

EXAMPLES:

  runlog zones                    # This month
  runlog zones -p year --max-hr 188`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := analytics.NamedWindow(zonesPeriod, trk.Today())
		if err != nil {
			return err
		}
		profile, err := trk.Zones(cmd.Context(), userID, w, zonesMaxHR)
		if errors.Is(err, analytics.ErrInsufficientData) {
			color.Yellow("Not enough data: %v", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to classify zones: %w", err)
		}
		printWindowHeader(w)
		printZones(profile)
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Show everything on one screen",
	Long: `Show week, month and year totals, the week-over-week comparison, records,
streaks, race predictions, zones and active shoes.

Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dash, err := trk.Dashboard(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to build dashboard: %w", err)
		}

		if dashboardJSON {
			data, err := json.MarshalIndent(dash, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		section := color.New(color.Bold, color.Underline)
		for _, wr := range []analytics.WindowReport{dash.Week, dash.Month, dash.Year} {
			printWindowHeader(wr.Window)
			printSummary(wr.Summary)
			fmt.Println()
		}

		section.Println("Week over week")
		printComparison(dash.Comparison)
		fmt.Println()

		section.Println("Streak")
		printStreak(dash.Streak)
		fmt.Println()

		if len(dash.Records) > 0 {
			section.Println("Records")
			printRecords(dash.Records)
			fmt.Println()
		}
		if dash.Predictions != nil {
			section.Println("Race predictions")
			printPredictions(dash.Predictions)
			fmt.Println()
		}
		if dash.Zones != nil {
			section.Println("Zones this month")
			printZones(dash.Zones)
			fmt.Println()
		}
		if len(dash.Shoes) > 0 {
			section.Println("Shoes")
			printShoes(dash.Shoes)
			fmt.Println()
		}
		for _, note := range dash.Notes {
			color.New(color.Faint).Printf("note: %s\n", note)
		}
		return nil
	},
}

func init() {
	zonesCmd.Flags().StringVarP(&zonesPeriod, "period", "p", analytics.WindowMonth, "period: week, month, year or all")
	zonesCmd.Flags().IntVar(&zonesMaxHR, "max-hr", 0, "max heart rate override in bpm")
	dashboardCmd.Flags().BoolVar(&dashboardJSON, "json", false, "print the dashboard as JSON")

	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func printRecords(recs []*models.PersonalRecord) {
	faint := color.New(color.Faint)
	for _, r := range recs {
		prev := ""
		if r.PreviousRecord != nil {
			prev = faint.Sprintf(" (was %s)", r.RecordType.FormatValue(*r.PreviousRecord))
		}
		fmt.Printf("  %s %s  %s  %s%s\n",
			padRight(r.RecordType.Label(), 14),
			padLeft(r.RecordType.FormatValue(r.Value), 10),
			r.AchievedAt,
			faint.Sprint(humanize.Time(r.AchievedAt.In(time.Local))),
			prev)
	}
}

func printStreak(s analytics.StreakSnapshot) {
	if s.IsActive {
		color.Green("  Current streak: %d %s", s.Current, plural(s.Current, "day", "days"))
	} else {
		fmt.Println("  Current streak: 0 days")
		if s.Latest != nil {
			fmt.Printf("  Last streak:    %d %s, ended %s\n", s.Latest.Length, plural(s.Latest.Length, "day", "days"), s.Latest.LastDate)
		}
	}
	fmt.Printf("  Longest streak: %d %s", s.Longest, plural(s.Longest, "day", "days"))
	if s.LongestStreak != nil && s.Longest > 0 {
		fmt.Printf(" (%s to %s)", s.LongestStreak.StartDate, s.LongestStreak.LastDate)
	}
	fmt.Println()
}

func printPredictions(p *analytics.Predictions) {
	for _, r := range p.Races {
		fmt.Printf("  %s %s  %s /km  %s  %s\n",
			padRight(r.Race.Label(), 14),
			padLeft(models.FormatDuration(r.PredictedTimeS), 8),
			models.FormatPace(r.PredictedPace),
			padRight(string(r.Confidence), 6),
			color.New(color.Faint).Sprint(r.Basis))
	}
	q := p.DataQuality
	fmt.Printf("  Based on %d runs since %s, averaging %.1f km at %s /km\n",
		q.TotalRuns, p.Window.Start, q.AvgDistanceKm, models.FormatPace(q.AvgPace))
}

func printZones(p *analytics.ZoneProfile) {
	for _, z := range p.Zones {
		bar := strings.Repeat("█", int(z.Percentage/5+0.5))
		fmt.Printf("  %s %s %3d-%3d bpm  %s  %5.1f%% %s\n",
			z.Zone,
			padRight(z.Name, 10),
			z.MinHR, z.MaxHR,
			padLeft(models.FormatDuration(z.DurationS), 8),
			z.Percentage,
			bar)
	}
	fmt.Printf("  Easy %.0f%% / Hard %.0f%% over %d %s (max HR %d)\n",
		p.Compliance.EasyPct, p.Compliance.HardPct, p.RunsWithHR, plural(p.RunsWithHR, "run", "runs"), p.MaxHR)
	if p.Compliance.Status == analytics.ComplianceMet {
		color.Green("  ✓ %s", p.Compliance.Message())
	} else {
		color.Yellow("  %s", p.Compliance.Message())
	}
}
