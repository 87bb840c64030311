// ABOUTME: Tests for duration parsing and formatting.
// ABOUTME: Table-driven over accepted and rejected inputs.
package models

import (
	"errors"
	"testing"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1500", 1500, false},
		{"25:00", 1500, false},
		{" 4:05 ", 245, false},
		{"1:45:30", 6330, false},
		{"0:00", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"10:75", 0, true},
		{"1:2:3:4", 0, true},
		{"-5", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ParseDuration(%q) error = %v, want validation error", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDuration(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		0:    "0:00",
		59:   "0:59",
		1500: "25:00",
		3600: "1:00:00",
		6330: "1:45:30",
		-10:  "0:00",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPace(t *testing.T) {
	tests := []struct {
		pace float64
		want string
	}{
		{5.0, "5:00"},
		{4.5, "4:30"},
		{1500.0 / 60 / 5.02, "4:59"},
		{0, "-"},
	}
	for _, tt := range tests {
		if got := FormatPace(tt.pace); got != tt.want {
			t.Errorf("FormatPace(%v) = %q, want %q", tt.pace, got, tt.want)
		}
	}
}

func TestRecordFormatValue(t *testing.T) {
	tests := []struct {
		rt    RecordType
		value float64
		want  string
	}{
		{Record5K, 1439.4, "23:59"},
		{RecordFull, 12600, "3:30:00"},
		{RecordLongest, 21.1, "21.10 km"},
		{RecordFastestPace, 4.25, "4:15 /km"},
	}
	for _, tt := range tests {
		if got := tt.rt.FormatValue(tt.value); got != tt.want {
			t.Errorf("%s.FormatValue(%v) = %q, want %q", tt.rt, tt.value, got, tt.want)
		}
	}
}
