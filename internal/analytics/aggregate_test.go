// ABOUTME: Tests for the aggregation engine.
// ABOUTME: Covers totals, zero-data pace, week/month/year buckets and goal progress.
package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/harperreed/runlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeTotals(t *testing.T) {
	runs := []*models.Run{
		newRun(t, "2025-03-03", 5.0, 1500),
		newRun(t, "2025-03-04", 3.2, 1000),
		newRun(t, "2025-03-06", 10.0, 3300),
	}
	runs[2].WithElevationGain(120)

	s := Summarize(runs)

	assert.InDelta(t, 18.2, s.TotalDistanceKm, 1e-9)
	assert.Equal(t, 3, s.TotalRuns)
	assert.Equal(t, 5800, s.TotalDurationS)
	assert.InDelta(t, 5800.0/60/18.2, s.AvgPace, 1e-9)
	assert.InDelta(t, 18.2/3, s.AvgDistanceKm, 1e-9)
	assert.Equal(t, 10.0, s.LongestRunKm)
	assert.InDelta(t, 5.0, s.FastestPace, 1e-9)
	assert.Equal(t, int(math.Round(18.2*62)), s.EstimatedCalories)
	assert.Equal(t, 1128, s.EstimatedCalories)
	assert.Equal(t, 120.0, s.TotalElevationGainM)
}

func TestSummarizeEmptyIsZero(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, Summary{}, s)
	assert.False(t, math.IsNaN(s.AvgPace))
	assert.Zero(t, s.AvgPace)
	assert.Zero(t, s.FastestPace)
}

func TestPaceDerivationInvariant(t *testing.T) {
	runs := []*models.Run{
		newRun(t, "2025-03-03", 5.02, 1500),
		newRun(t, "2025-03-04", 7.77, 2791),
		newRun(t, "2025-03-06", 21.1, 6999),
	}
	for _, r := range runs {
		assert.InDelta(t, float64(r.DurationS)/60, r.Pace()*r.DistanceKm, 1e-9)
		s := Summarize([]*models.Run{r})
		assert.InDelta(t, float64(s.TotalDurationS)/60, s.AvgPace*s.TotalDistanceKm, 1e-9)
	}
}

func TestNamedWindow(t *testing.T) {
	today := mustDate(t, "2025-03-06") // Thursday

	tests := []struct {
		name      string
		wantStart string
		wantEnd   string
	}{
		{WindowWeek, "2025-03-03", "2025-03-09"},
		{WindowMonth, "2025-03-01", "2025-03-31"},
		{WindowYear, "2025-01-01", "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NamedWindow(tt.name, today)
			require.NoError(t, err)
			assert.Equal(t, mustDate(t, tt.wantStart), w.Start)
			assert.Equal(t, mustDate(t, tt.wantEnd), w.End)
		})
	}

	all, err := NamedWindow(WindowAll, today)
	require.NoError(t, err)
	assert.True(t, all.Contains(mustDate(t, "1999-01-01")))

	_, err = NamedWindow("fortnight", today)
	assert.Error(t, err)
}

func TestRangeWindowRejectsInverted(t *testing.T) {
	_, err := RangeWindow(mustDate(t, "2025-03-10"), mustDate(t, "2025-03-01"))
	assert.Error(t, err)

	w, err := RangeWindow(mustDate(t, "2025-03-01"), mustDate(t, "2025-03-10"))
	require.NoError(t, err)
	assert.True(t, w.Contains(mustDate(t, "2025-03-10")))
	assert.False(t, w.Contains(mustDate(t, "2025-03-11")))
}

func TestWeekStartIsMonday(t *testing.T) {
	assert.Equal(t, mustDate(t, "2025-03-03"), WeekStart(mustDate(t, "2025-03-09"))) // Sunday
	assert.Equal(t, mustDate(t, "2025-03-03"), WeekStart(mustDate(t, "2025-03-03"))) // Monday
	assert.Equal(t, "Monday", WeekdayName(0))
	assert.Equal(t, "Sunday", WeekdayName(6))
}

func TestBuildMonthReportWeeks(t *testing.T) {
	runs := []*models.Run{
		newRun(t, "2025-02-28", 8.0, 2400),  // previous month, excluded
		newRun(t, "2025-03-01", 5.0, 1500),  // Saturday, week 1 (Feb 24 - Mar 2)
		newRun(t, "2025-03-02", 5.0, 1600),  // Sunday, week 1
		newRun(t, "2025-03-03", 10.0, 3000), // Monday, week 2
		newRun(t, "2025-03-31", 4.0, 1400),  // Monday, week 6
	}

	r := BuildMonthReport(runs, 2025, time.March, nil)

	assert.Equal(t, 4, r.Summary.TotalRuns)
	assert.InDelta(t, 24.0, r.Summary.TotalDistanceKm, 1e-9)
	require.Len(t, r.Weeks, 6)
	assert.Equal(t, mustDate(t, "2025-02-24"), r.Weeks[0].Window.Start)
	assert.Equal(t, 2, r.Weeks[0].Summary.TotalRuns)
	assert.InDelta(t, 10.0, r.Weeks[0].Summary.TotalDistanceKm, 1e-9)
	assert.Equal(t, 1, r.Weeks[1].Summary.TotalRuns)
	assert.Zero(t, r.Weeks[2].Summary.AvgPace)
	assert.Equal(t, 1, r.Weeks[5].Summary.TotalRuns)
	assert.Nil(t, r.Goal)
}

func TestBuildMonthReportGoal(t *testing.T) {
	runs := []*models.Run{
		newRun(t, "2025-03-03", 10.0, 3000),
		newRun(t, "2025-03-05", 10.0, 3000),
	}
	goal := models.NewGoal(testUser, mustDate(t, "2025-03-01"))
	target, targetRuns := 40.0, 2
	goal.TargetDistanceKm = &target
	goal.TargetRuns = &targetRuns

	r := BuildMonthReport(runs, 2025, time.March, goal)

	require.NotNil(t, r.Goal)
	require.NotNil(t, r.Goal.DistancePct)
	assert.InDelta(t, 50.0, *r.Goal.DistancePct, 1e-9)
	assert.InDelta(t, 100.0, *r.Goal.RunsPct, 1e-9)
	assert.False(t, r.Goal.Met)
}

func TestProgressWithoutTargetsIsNotMet(t *testing.T) {
	goal := models.NewGoal(testUser, mustDate(t, "2025-03-01"))
	gp := Progress(goal, Summary{TotalRuns: 10, TotalDistanceKm: 100})
	assert.False(t, gp.Met)
	assert.Nil(t, gp.DistancePct)
}

func TestBuildYearReport(t *testing.T) {
	runs := []*models.Run{
		newRun(t, "2024-12-31", 5.0, 1500),  // other year
		newRun(t, "2025-01-06", 5.0, 1500),  // Monday
		newRun(t, "2025-01-07", 5.0, 1500),  // Tuesday
		newRun(t, "2025-01-08", 5.0, 1500),  // Wednesday
		newRun(t, "2025-01-13", 5.0, 1500),  // Monday
		newRun(t, "2025-06-10", 12.0, 3900), // Tuesday
	}

	r := BuildYearReport(runs, 2025)

	assert.Equal(t, 5, r.Summary.TotalRuns)
	require.Len(t, r.Months, 12)
	assert.Equal(t, "Jan", r.Months[0].Label)
	assert.Equal(t, 4, r.Months[0].Summary.TotalRuns)
	assert.Equal(t, 1, r.Months[5].Summary.TotalRuns)
	assert.Zero(t, r.Months[1].Summary.AvgPace)
	assert.Equal(t, 3, r.LongestStreakDays)
	require.NotNil(t, r.MostActiveDay)
	// Monday and Tuesday tie at 2; lowest index wins.
	assert.Equal(t, 0, r.MostActiveDay.Index)
	assert.Equal(t, "Monday", r.MostActiveDay.Name)
	assert.Equal(t, 2, r.MostActiveDay.Count)
}

func TestBuildYearReportEmpty(t *testing.T) {
	r := BuildYearReport(nil, 2025)
	assert.Equal(t, Summary{}, r.Summary)
	assert.Nil(t, r.MostActiveDay)
	assert.Zero(t, r.LongestStreakDays)
}

func TestCompareWeeks(t *testing.T) {
	runs := []*models.Run{
		newRun(t, "2025-03-03", 5.0, 1500),  // last week
		newRun(t, "2025-03-05", 5.0, 1500),  // last week
		newRun(t, "2025-03-10", 15.0, 4500), // this week
	}

	cmp := CompareWeeks(runs, mustDate(t, "2025-03-12"))

	assert.Equal(t, 2, cmp.LastWeek.Summary.TotalRuns)
	assert.Equal(t, 1, cmp.ThisWeek.Summary.TotalRuns)
	require.NotNil(t, cmp.DistanceChangePct)
	assert.InDelta(t, 50.0, *cmp.DistanceChangePct, 1e-9)

	empty := CompareWeeks(nil, mustDate(t, "2025-03-12"))
	assert.Nil(t, empty.DistanceChangePct)
}

func TestMonthsBeforeClamps(t *testing.T) {
	assert.Equal(t, mustDate(t, "2024-12-31"), MonthsBefore(mustDate(t, "2025-03-31"), 3))
	assert.Equal(t, mustDate(t, "2025-02-28"), MonthsBefore(mustDate(t, "2025-05-31"), 3))
	assert.Equal(t, mustDate(t, "2025-01-15"), MonthsBefore(mustDate(t, "2025-04-15"), 3))
}
