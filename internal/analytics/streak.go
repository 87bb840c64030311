// ABOUTME: Streak tracker for consecutive running days.
// ABOUTME: Incremental OPEN/CLOSED transitions plus from-scratch rebuild and snapshot.
package analytics

import (
	"errors"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/models"
)

// ErrOutOfOrder is returned by Advance for a run dated before the active streak.
// Callers rebuild streaks from scratch in that case.
var ErrOutOfOrder = errors.New("run date precedes active streak")

// DistinctDates returns the sorted set of dates with at least one run.
func DistinctDates(runs []*models.Run) []civil.Date {
	seen := make(map[civil.Date]struct{}, len(runs))
	dates := make([]civil.Date, 0, len(runs))
	for _, r := range runs {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// LongestStreak returns the longest run of consecutive days in sorted distinct dates.
func LongestStreak(dates []civil.Date) int {
	longest, cur := 0, 0
	for i, d := range dates {
		if i > 0 && d.DaysSince(dates[i-1]) == 1 {
			cur++
		} else {
			cur = 1
		}
		if cur > longest {
			longest = cur
		}
	}
	return longest
}

// CurrentStreak returns the consecutive-day run ending on the most recent date,
// or 0 when that date is older than yesterday.
func CurrentStreak(dates []civil.Date, today civil.Date) int {
	if len(dates) == 0 {
		return 0
	}
	last := dates[len(dates)-1]
	if last.Before(today.AddDays(-1)) {
		return 0
	}
	n := 1
	for i := len(dates) - 1; i > 0; i-- {
		if dates[i].DaysSince(dates[i-1]) != 1 {
			break
		}
		n++
	}
	return n
}

// StreakUpdate is the result of applying one run date to the active streak.
type StreakUpdate struct {
	// Closed is the previously active streak, now closed by a gap.
	Closed *models.RunningStreak

	// Active is the open streak after the update.
	Active *models.RunningStreak

	// Changed is false for a same-day run that leaves the streak untouched.
	Changed bool
}

// Advance applies a new run date to the user's open streak. The input streak is
// never mutated; Closed and Active are fresh copies ready to persist.
func Advance(userID string, active *models.RunningStreak, date civil.Date) (StreakUpdate, error) {
	if active == nil {
		return StreakUpdate{Active: models.NewStreak(userID, date), Changed: true}, nil
	}
	if date.Before(active.StartDate) {
		return StreakUpdate{}, ErrOutOfOrder
	}
	if !date.After(active.LastDate) {
		return StreakUpdate{Active: active}, nil
	}

	if date.DaysSince(active.LastDate) == 1 {
		next := *active
		next.LastDate = date
		next.Length++
		return StreakUpdate{Active: &next, Changed: true}, nil
	}

	closed := *active
	closed.Close()
	return StreakUpdate{
		Closed:  &closed,
		Active:  models.NewStreak(userID, date),
		Changed: true,
	}, nil
}

// Rebuild recomputes every streak entity from sorted distinct dates. The final
// streak is left open; all earlier ones are closed.
func Rebuild(userID string, dates []civil.Date) []*models.RunningStreak {
	var streaks []*models.RunningStreak
	var cur *models.RunningStreak
	for _, d := range dates {
		if cur != nil && d.DaysSince(cur.LastDate) == 1 {
			cur.LastDate = d
			cur.Length++
			continue
		}
		if cur != nil {
			cur.Close()
		}
		cur = models.NewStreak(userID, d)
		streaks = append(streaks, cur)
	}
	return streaks
}

// StreakSnapshot is the streak state as of a given day.
type StreakSnapshot struct {
	Current  int  `json:"current"`
	Longest  int  `json:"longest"`
	IsActive bool `json:"is_active"`

	// Latest is the most recent streak; its length is frozen once broken.
	Latest *models.RunningStreak `json:"latest,omitempty"`

	// LongestStreak is the stored streak entity holding the longest length.
	LongestStreak *models.RunningStreak `json:"longest_streak,omitempty"`
}

// Snapshot derives current and longest streaks from the run dates and attaches the
// stored entities. Current is 0 unless the latest run was today or yesterday.
func Snapshot(dates []civil.Date, streaks []*models.RunningStreak, today civil.Date) StreakSnapshot {
	snap := StreakSnapshot{
		Current: CurrentStreak(dates, today),
		Longest: LongestStreak(dates),
	}
	snap.IsActive = snap.Current > 0

	for _, s := range streaks {
		if snap.Latest == nil || s.StartDate.After(snap.Latest.StartDate) {
			snap.Latest = s
		}
		if snap.LongestStreak == nil || s.Length > snap.LongestStreak.Length {
			snap.LongestStreak = s
		}
	}
	if snap.Latest != nil && !snap.IsActive {
		latest := *snap.Latest
		latest.IsActive = false
		snap.Latest = &latest
	}
	return snap
}
