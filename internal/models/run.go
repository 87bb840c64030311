// ABOUTME: Run model for logged running activities.
// ABOUTME: Pace is always derived from distance and duration, never stored.
package models

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Run represents a single logged run. Runs are immutable once created.
type Run struct {
	ID             uuid.UUID  `json:"id" yaml:"id"`
	UserID         string     `json:"user_id" yaml:"user_id"`
	Date           civil.Date `json:"date" yaml:"date"`
	DistanceKm     float64    `json:"distance_km" yaml:"distance_km"`
	DurationS      int        `json:"duration_s" yaml:"duration_s"`
	AvgHeartRate   *int       `json:"avg_heart_rate,omitempty" yaml:"avg_heart_rate,omitempty"`
	ElevationGainM *float64   `json:"elevation_gain_m,omitempty" yaml:"elevation_gain_m,omitempty"`
	ShoeID         *uuid.UUID `json:"shoe_id,omitempty" yaml:"shoe_id,omitempty"`
	Notes          *string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
}

// NewRun creates a new Run with generated UUID and current timestamp.
func NewRun(userID string, date civil.Date, distanceKm float64, durationS int) *Run {
	return &Run{
		ID:         uuid.New(),
		UserID:     userID,
		Date:       date,
		DistanceKm: distanceKm,
		DurationS:  durationS,
		CreatedAt:  time.Now(),
	}
}

// WithHeartRate sets the average heart rate in bpm.
func (r *Run) WithHeartRate(bpm int) *Run {
	r.AvgHeartRate = &bpm
	return r
}

// WithElevationGain sets the elevation gain in meters.
func (r *Run) WithElevationGain(meters float64) *Run {
	r.ElevationGainM = &meters
	return r
}

// WithShoe links the run to a shoe for mileage tracking.
func (r *Run) WithShoe(id uuid.UUID) *Run {
	r.ShoeID = &id
	return r
}

// WithNotes sets notes on the run.
func (r *Run) WithNotes(notes string) *Run {
	r.Notes = &notes
	return r
}

// Pace returns minutes per kilometer.
func (r *Run) Pace() float64 {
	if r.DistanceKm <= 0 {
		return 0
	}
	return float64(r.DurationS) / 60 / r.DistanceKm
}

// Validate rejects runs that must never reach the analytics core.
func (r *Run) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if !r.Date.IsValid() {
		return &ValidationError{Field: "date", Reason: "must be a valid calendar date"}
	}
	if math.IsNaN(r.DistanceKm) || math.IsInf(r.DistanceKm, 0) {
		return &ValidationError{Field: "distance_km", Reason: "must be a finite number"}
	}
	if r.DistanceKm <= 0 {
		return &ValidationError{Field: "distance_km", Reason: "must be greater than zero"}
	}
	if r.DurationS <= 0 {
		return &ValidationError{Field: "duration_s", Reason: "must be greater than zero"}
	}
	if r.AvgHeartRate != nil && *r.AvgHeartRate <= 0 {
		return &ValidationError{Field: "avg_heart_rate", Reason: "must be greater than zero"}
	}
	if r.ElevationGainM != nil && (math.IsNaN(*r.ElevationGainM) || math.IsInf(*r.ElevationGainM, 0)) {
		return &ValidationError{Field: "elevation_gain_m", Reason: "must be a finite number"}
	}
	return nil
}
