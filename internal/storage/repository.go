// ABOUTME: Repository interface for running data storage.
// ABOUTME: Defines the run store contract plus sentinel and conflict errors.
package storage

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/harperreed/runlog/internal/models"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is matched by every *ConflictError.
var ErrConflict = errors.New("concurrent modification")

// ConflictError reports a failed compare-and-set on a record or streak.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict updating %s %s", e.Entity, e.Key)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// RunFilter narrows ListRuns. Zero dates leave that side open; Limit <= 0 means no limit.
type RunFilter struct {
	From  civil.Date
	To    civil.Date
	Limit int
}

func (f RunFilter) matches(d civil.Date) bool {
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To) {
		return false
	}
	return true
}

// Repository defines the storage interface for running data.
// All reads are scoped to one user; runs list newest first.
type Repository interface {
	// Run operations
	CreateRun(r *models.Run) error
	GetRun(userID, idOrPrefix string) (*models.Run, error)
	ListRuns(userID string, filter RunFilter) ([]*models.Run, error)
	DeleteRun(userID string, id uuid.UUID) error

	// Personal records. UpsertRecord writes only if the stored value still equals
	// expected (nil meaning no record yet), else it returns a *ConflictError.
	GetRecords(userID string) ([]*models.PersonalRecord, error)
	UpsertRecord(rec *models.PersonalRecord, expected *float64) error
	ReplaceRecords(userID string, recs []*models.PersonalRecord) error

	// Streaks. UpsertStreak compares s.Version with the stored version (0 for a
	// new streak) and bumps s.Version on success.
	GetActiveStreak(userID string) (*models.RunningStreak, error)
	ListStreaks(userID string) ([]*models.RunningStreak, error)
	UpsertStreak(s *models.RunningStreak) error
	ReplaceStreaks(userID string, streaks []*models.RunningStreak) error

	// Gear
	CreateShoe(s *models.Shoe) error
	GetShoe(userID, idOrPrefix string) (*models.Shoe, error)
	ListShoes(userID string, includeRetired bool) ([]*models.Shoe, error)
	AdjustShoeDistance(userID string, id uuid.UUID, deltaKm float64) error
	RetireShoe(userID string, id uuid.UUID) error

	// Monthly goals
	SetGoal(g *models.Goal) error
	GetGoal(userID string, month civil.Date) (*models.Goal, error)

	// Export/Import
	GetAllData() (*ExportData, error)
	ImportData(data *ExportData) error

	// Lifecycle
	Close() error
}

// isFullUUID reports whether s is a complete UUID rather than a prefix.
func isFullUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
