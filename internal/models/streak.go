// ABOUTME: RunningStreak model for consecutive running days.
// ABOUTME: A streak is OPEN until a gap closes it; closed streaks are never reopened.
package models

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// RunningStreak is a maximal run of consecutive calendar days with a run.
type RunningStreak struct {
	ID        uuid.UUID   `json:"id" yaml:"id"`
	UserID    string      `json:"user_id" yaml:"user_id"`
	StartDate civil.Date  `json:"start_date" yaml:"start_date"`
	EndDate   *civil.Date `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	// LastDate is the most recent run date in the streak, set for open and closed streaks.
	LastDate civil.Date `json:"last_date" yaml:"last_date"`
	Length   int        `json:"length" yaml:"length"`
	IsActive bool       `json:"is_active" yaml:"is_active"`

	// Version is bumped on every successful write and used for compare-and-set.
	Version int `json:"version" yaml:"version"`
}

// NewStreak opens a one-day streak starting on date.
func NewStreak(userID string, date civil.Date) *RunningStreak {
	return &RunningStreak{
		ID:        uuid.New(),
		UserID:    userID,
		StartDate: date,
		LastDate:  date,
		Length:    1,
		IsActive:  true,
	}
}

// Close marks the streak as finished on its last run date.
func (s *RunningStreak) Close() {
	end := s.LastDate
	s.EndDate = &end
	s.IsActive = false
}
