// ABOUTME: PersonalRecord model and the closed RecordType enumeration.
// ABOUTME: One record per user and category; each carries a single previous value.
package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// RecordType is one of the six personal record categories.
type RecordType string

const (
	Record5K          RecordType = "5K"
	Record10K         RecordType = "10K"
	RecordHalf        RecordType = "HALF"
	RecordFull        RecordType = "FULL"
	RecordLongest     RecordType = "LONGEST"
	RecordFastestPace RecordType = "FASTEST_PACE"
)

// AllRecordTypes lists every category in display order.
var AllRecordTypes = []RecordType{
	Record5K, Record10K, RecordHalf, RecordFull, RecordLongest, RecordFastestPace,
}

// ParseRecordType converts a string into a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	for _, rt := range AllRecordTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown record type: %s", s)
}

// Label returns a human-readable name for the category.
func (rt RecordType) Label() string {
	switch rt {
	case Record5K:
		return "5K"
	case Record10K:
		return "10K"
	case RecordHalf:
		return "Half Marathon"
	case RecordFull:
		return "Marathon"
	case RecordLongest:
		return "Longest Run"
	case RecordFastestPace:
		return "Fastest Pace"
	}
	return string(rt)
}

// Unit returns the unit of the record value.
func (rt RecordType) Unit() string {
	switch rt {
	case RecordLongest:
		return "km"
	case RecordFastestPace:
		return "min/km"
	default:
		return "s"
	}
}

// NominalDistanceKm returns the race distance for time-based categories.
// The second return value is false for LONGEST and FASTEST_PACE.
func (rt RecordType) NominalDistanceKm() (float64, bool) {
	switch rt {
	case Record5K:
		return 5, true
	case Record10K:
		return 10, true
	case RecordHalf:
		return 21.0975, true
	case RecordFull:
		return 42.195, true
	}
	return 0, false
}

// HigherIsBetter reports whether a larger value improves the record.
func (rt RecordType) HigherIsBetter() bool {
	return rt == RecordLongest
}

// PersonalRecord is the best-ever value for a user in one category.
type PersonalRecord struct {
	UserID         string     `json:"user_id" yaml:"user_id"`
	RecordType     RecordType `json:"record_type" yaml:"record_type"`
	Value          float64    `json:"value" yaml:"value"`
	RunID          uuid.UUID  `json:"run_id" yaml:"run_id"`
	AchievedAt     civil.Date `json:"achieved_at" yaml:"achieved_at"`
	PreviousRecord *float64   `json:"previous_record,omitempty" yaml:"previous_record,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at" yaml:"updated_at"`
}
