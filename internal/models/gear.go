// ABOUTME: Shoe and Goal models for mileage tracking and monthly targets.
// ABOUTME: Shoe mileage is adjusted by run create/delete events.
package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Shoe is a pair of running shoes with cumulative distance.
type Shoe struct {
	ID              uuid.UUID   `json:"id" yaml:"id"`
	UserID          string      `json:"user_id" yaml:"user_id"`
	Brand           string      `json:"brand" yaml:"brand"`
	Model           string      `json:"model" yaml:"model"`
	Nickname        *string     `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	TotalDistanceKm float64     `json:"total_distance_km" yaml:"total_distance_km"`
	PurchaseDate    *civil.Date `json:"purchase_date,omitempty" yaml:"purchase_date,omitempty"`
	Retired         bool        `json:"retired" yaml:"retired"`
	CreatedAt       time.Time   `json:"created_at" yaml:"created_at"`
}

// NewShoe creates a new Shoe with generated UUID.
func NewShoe(userID, brand, model string) *Shoe {
	return &Shoe{
		ID:        uuid.New(),
		UserID:    userID,
		Brand:     brand,
		Model:     model,
		CreatedAt: time.Now(),
	}
}

// WithNickname sets a nickname on the shoe.
func (s *Shoe) WithNickname(nickname string) *Shoe {
	s.Nickname = &nickname
	return s
}

// WithPurchaseDate sets the purchase date.
func (s *Shoe) WithPurchaseDate(d civil.Date) *Shoe {
	s.PurchaseDate = &d
	return s
}

// DisplayName returns the nickname, or brand and model.
func (s *Shoe) DisplayName() string {
	if s.Nickname != nil && *s.Nickname != "" {
		return *s.Nickname
	}
	return s.Brand + " " + s.Model
}

// Goal is a monthly distance and/or run-count target.
type Goal struct {
	UserID           string     `json:"user_id" yaml:"user_id"`
	Month            civil.Date `json:"month" yaml:"month"`
	TargetDistanceKm *float64   `json:"target_distance_km,omitempty" yaml:"target_distance_km,omitempty"`
	TargetRuns       *int       `json:"target_runs,omitempty" yaml:"target_runs,omitempty"`
}

// NewGoal creates a goal for the month containing d.
func NewGoal(userID string, d civil.Date) *Goal {
	return &Goal{
		UserID: userID,
		Month:  FirstOfMonth(d),
	}
}

// FirstOfMonth returns the first day of the month containing d.
func FirstOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}
