// ABOUTME: Calendar helpers for windows, Monday-based weeks and month ranges.
// ABOUTME: All dates are civil dates; time-of-day never enters the analytics.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/models"
)

// Window is an inclusive date range. A zero Start or End leaves that side open.
type Window struct {
	Name  string     `json:"name"`
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// Named window identifiers.
const (
	WindowWeek  = "week"
	WindowMonth = "month"
	WindowYear  = "year"
	WindowAll   = "all"
)

// NamedWindow resolves this-week, this-month, this-year or all-time relative to today.
func NamedWindow(name string, today civil.Date) (Window, error) {
	switch name {
	case WindowWeek:
		start := WeekStart(today)
		return Window{Name: name, Start: start, End: start.AddDays(6)}, nil
	case WindowMonth:
		return MonthWindow(today.Year, today.Month), nil
	case WindowYear:
		return YearWindow(today.Year), nil
	case WindowAll, "":
		return Window{Name: WindowAll}, nil
	default:
		return Window{}, fmt.Errorf("unknown window %q: want week, month, year or all", name)
	}
}

// RangeWindow builds an explicit window.
func RangeWindow(start, end civil.Date) (Window, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return Window{}, fmt.Errorf("window end %s is before start %s", end, start)
	}
	return Window{Name: "custom", Start: start, End: end}, nil
}

// MonthWindow covers one calendar month.
func MonthWindow(year int, month time.Month) Window {
	start := civil.Date{Year: year, Month: month, Day: 1}
	return Window{Name: WindowMonth, Start: start, End: lastOfMonth(start)}
}

// YearWindow covers one calendar year.
func YearWindow(year int) Window {
	return Window{
		Name:  WindowYear,
		Start: civil.Date{Year: year, Month: time.January, Day: 1},
		End:   civil.Date{Year: year, Month: time.December, Day: 31},
	}
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d civil.Date) bool {
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}

// Filter returns the runs whose date falls inside the window.
func (w Window) Filter(runs []*models.Run) []*models.Run {
	var out []*models.Run
	for _, r := range runs {
		if w.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// WeekStart returns the Monday on or before d.
func WeekStart(d civil.Date) civil.Date {
	return d.AddDays(-WeekdayIndex(d))
}

// WeekdayIndex returns 0 for Monday through 6 for Sunday.
func WeekdayIndex(d civil.Date) int {
	return (int(d.In(time.UTC).Weekday()) + 6) % 7
}

// WeekdayName returns the English name for a Monday-based weekday index.
func WeekdayName(idx int) string {
	return time.Weekday((idx + 1) % 7).String()
}

// MonthsBefore returns d shifted back n calendar months, clamped to the month's end.
func MonthsBefore(d civil.Date, n int) civil.Date {
	first := civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	t := first.In(time.UTC).AddDate(0, -n, 0)
	target := civil.DateOf(t)
	last := lastOfMonth(target)
	if d.Day > last.Day {
		return last
	}
	return civil.Date{Year: target.Year, Month: target.Month, Day: d.Day}
}

func lastOfMonth(d civil.Date) civil.Date {
	first := civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	return civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
}

// ParseDay accepts YYYY-MM-DD, "today" or "yesterday". Empty means today.
func ParseDay(s string, today civil.Date) (civil.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseMonth accepts YYYY-MM and returns the first of that month. Empty means
// the month containing today.
func ParseMonth(s string, today civil.Date) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{Year: today.Year, Month: today.Month, Day: 1}, nil
	}
	d, err := civil.ParseDate(s + "-01")
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return d, nil
}
