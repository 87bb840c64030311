// ABOUTME: Aggregation engine: distance/time/pace rollups over date windows.
// ABOUTME: Weekly buckets within a month, monthly buckets within a year, week-over-week comparison.
package analytics

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/models"
)

// CaloriesPerKm is the fixed per-kilometer energy estimate. It is not weight-adjusted.
const CaloriesPerKm = 62

// Summary is the rollup of a set of runs. A zero Summary means no data.
type Summary struct {
	TotalDistanceKm     float64 `json:"total_distance_km"`
	TotalRuns           int     `json:"total_runs"`
	TotalDurationS      int     `json:"total_duration_s"`
	AvgPace             float64 `json:"avg_pace"`
	AvgDistanceKm       float64 `json:"avg_distance_km"`
	LongestRunKm        float64 `json:"longest_run_km"`
	FastestPace         float64 `json:"fastest_pace"`
	EstimatedCalories   int     `json:"estimated_calories"`
	TotalElevationGainM float64 `json:"total_elevation_gain_m"`
}

// Summarize rolls up runs. AvgPace and FastestPace are 0 when there is no distance;
// callers must read 0 as "no data", not as a pace.
func Summarize(runs []*models.Run) Summary {
	var s Summary
	for _, r := range runs {
		s.TotalRuns++
		s.TotalDistanceKm += r.DistanceKm
		s.TotalDurationS += r.DurationS
		if r.DistanceKm > s.LongestRunKm {
			s.LongestRunKm = r.DistanceKm
		}
		if p := r.Pace(); p > 0 && (s.FastestPace == 0 || p < s.FastestPace) {
			s.FastestPace = p
		}
		if r.ElevationGainM != nil {
			s.TotalElevationGainM += *r.ElevationGainM
		}
	}

	s.AvgPace = avgPace(s.TotalDurationS, s.TotalDistanceKm)
	if s.TotalRuns > 0 {
		s.AvgDistanceKm = s.TotalDistanceKm / float64(s.TotalRuns)
	}
	s.EstimatedCalories = int(math.Round(s.TotalDistanceKm * CaloriesPerKm))
	return s
}

func avgPace(durationS int, distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	return float64(durationS) / 60 / distanceKm
}

// Bucket is a sub-window rollup inside a report.
type Bucket struct {
	Index   int     `json:"index"`
	Label   string  `json:"label"`
	Window  Window  `json:"window"`
	Summary Summary `json:"summary"`
}

// WindowReport is the rollup for an arbitrary window.
type WindowReport struct {
	Window  Window  `json:"window"`
	Summary Summary `json:"summary"`
}

// Aggregate summarizes the runs inside w.
func Aggregate(runs []*models.Run, w Window) WindowReport {
	return WindowReport{Window: w, Summary: Summarize(w.Filter(runs))}
}

// MonthReport is a calendar month rollup with Monday-based week buckets.
type MonthReport struct {
	Window  Window        `json:"window"`
	Summary Summary       `json:"summary"`
	Weeks   []Bucket      `json:"weeks"`
	Goal    *GoalProgress `json:"goal,omitempty"`
}

// BuildMonthReport aggregates a calendar month. Week buckets cover every Monday-start
// week that intersects the month; only runs inside the month are counted.
func BuildMonthReport(runs []*models.Run, year int, month time.Month, goal *models.Goal) MonthReport {
	w := MonthWindow(year, month)
	monthRuns := w.Filter(runs)

	report := MonthReport{
		Window:  w,
		Summary: Summarize(monthRuns),
	}

	for i, ws := 0, WeekStart(w.Start); !ws.After(w.End); i, ws = i+1, ws.AddDays(7) {
		week := Window{Name: "week", Start: ws, End: ws.AddDays(6)}
		report.Weeks = append(report.Weeks, Bucket{
			Index:   i + 1,
			Label:   ws.In(time.UTC).Format("Jan 2") + " - " + week.End.In(time.UTC).Format("Jan 2"),
			Window:  week,
			Summary: Summarize(week.Filter(monthRuns)),
		})
	}

	if goal != nil {
		gp := Progress(goal, report.Summary)
		report.Goal = &gp
	}
	return report
}

// WeekdayCount is the most frequent running weekday.
type WeekdayCount struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// YearReport is a calendar year rollup with monthly buckets.
type YearReport struct {
	Window            Window        `json:"window"`
	Summary           Summary       `json:"summary"`
	Months            []Bucket      `json:"months"`
	LongestStreakDays int           `json:"longest_streak_days"`
	MostActiveDay     *WeekdayCount `json:"most_active_day,omitempty"`
}

// BuildYearReport aggregates a calendar year.
func BuildYearReport(runs []*models.Run, year int) YearReport {
	w := YearWindow(year)
	yearRuns := w.Filter(runs)

	report := YearReport{
		Window:            w,
		Summary:           Summarize(yearRuns),
		LongestStreakDays: LongestStreak(DistinctDates(yearRuns)),
		MostActiveDay:     MostActiveWeekday(yearRuns),
	}

	for m := 1; m <= 12; m++ {
		mw := MonthWindow(year, time.Month(m))
		report.Months = append(report.Months, Bucket{
			Index:   m,
			Label:   mw.Start.In(time.UTC).Format("Jan"),
			Window:  mw,
			Summary: Summarize(mw.Filter(yearRuns)),
		})
	}
	return report
}

// MostActiveWeekday returns the mode of run weekdays (Monday=0), ties to the lowest index.
// It returns nil for an empty run set.
func MostActiveWeekday(runs []*models.Run) *WeekdayCount {
	if len(runs) == 0 {
		return nil
	}
	var counts [7]int
	for _, r := range runs {
		counts[WeekdayIndex(r.Date)]++
	}
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return &WeekdayCount{Index: best, Name: WeekdayName(best), Count: counts[best]}
}

// WeekComparison compares the current Monday-based week with the previous one.
type WeekComparison struct {
	ThisWeek WindowReport `json:"this_week"`
	LastWeek WindowReport `json:"last_week"`

	// DistanceChangePct is nil when last week had no distance.
	DistanceChangePct *float64 `json:"distance_change_pct,omitempty"`
}

// CompareWeeks builds the week-over-week comparison relative to today.
func CompareWeeks(runs []*models.Run, today civil.Date) WeekComparison {
	thisStart := WeekStart(today)
	lastStart := thisStart.AddDays(-7)

	cmp := WeekComparison{
		ThisWeek: Aggregate(runs, Window{Name: "this_week", Start: thisStart, End: thisStart.AddDays(6)}),
		LastWeek: Aggregate(runs, Window{Name: "last_week", Start: lastStart, End: lastStart.AddDays(6)}),
	}
	if last := cmp.LastWeek.Summary.TotalDistanceKm; last > 0 {
		pct := (cmp.ThisWeek.Summary.TotalDistanceKm - last) / last * 100
		cmp.DistanceChangePct = &pct
	}
	return cmp
}

// GoalProgress reports progress toward a monthly goal.
type GoalProgress struct {
	Goal        models.Goal `json:"goal"`
	DistancePct *float64    `json:"distance_pct,omitempty"`
	RunsPct     *float64    `json:"runs_pct,omitempty"`
	Met         bool        `json:"met"`
}

// Progress compares a month's summary with its goal. Targets that are unset or
// non-positive are ignored; a goal with no targets is never met.
func Progress(goal *models.Goal, s Summary) GoalProgress {
	gp := GoalProgress{Goal: *goal}
	met, targets := true, 0

	if goal.TargetDistanceKm != nil && *goal.TargetDistanceKm > 0 {
		pct := s.TotalDistanceKm / *goal.TargetDistanceKm * 100
		gp.DistancePct = &pct
		targets++
		met = met && pct >= 100
	}
	if goal.TargetRuns != nil && *goal.TargetRuns > 0 {
		pct := float64(s.TotalRuns) / float64(*goal.TargetRuns) * 100
		gp.RunsPct = &pct
		targets++
		met = met && pct >= 100
	}

	gp.Met = targets > 0 && met
	return gp
}
