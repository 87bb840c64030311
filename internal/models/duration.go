// ABOUTME: Parsing and formatting of run durations and paces.
// ABOUTME: Accepts "ss", "mm:ss" or "h:mm:ss"; formats seconds and min/km paces.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts "1500", "25:00" or "1:45:30" into seconds.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "duration", Reason: "must not be empty"}
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, &ValidationError{Field: "duration", Reason: fmt.Sprintf("%q is not ss, mm:ss or h:mm:ss", s)}
	}

	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, &ValidationError{Field: "duration", Reason: fmt.Sprintf("%q is not ss, mm:ss or h:mm:ss", s)}
		}
		if i > 0 && n >= 60 {
			return 0, &ValidationError{Field: "duration", Reason: fmt.Sprintf("%q has a field over 59", s)}
		}
		total = total*60 + n
	}
	if total <= 0 {
		return 0, &ValidationError{Field: "duration", Reason: "must be greater than zero"}
	}
	return total, nil
}

// FormatDuration renders seconds as m:ss below an hour and h:mm:ss above.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPace renders minutes per km as m:ss, or "-" for no data.
func FormatPace(minPerKm float64) string {
	if minPerKm <= 0 {
		return "-"
	}
	total := int(minPerKm*60 + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatValue renders a record value in the category's unit.
func (rt RecordType) FormatValue(value float64) string {
	switch rt {
	case RecordLongest:
		return fmt.Sprintf("%.2f km", value)
	case RecordFastestPace:
		return FormatPace(value) + " /km"
	default:
		return FormatDuration(int(value + 0.5))
	}
}
