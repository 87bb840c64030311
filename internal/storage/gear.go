// ABOUTME: Shoe and monthly goal operations for SQLite storage.
// ABOUTME: Shoe mileage is adjusted in place and never drops below zero.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/harperreed/runlog/internal/models"
)

const shoeColumns = `id, user_id, brand, model, nickname, total_distance_km, purchase_date, retired, created_at`

// CreateShoe stores a new shoe.
func (d *DB) CreateShoe(s *models.Shoe) error {
	_, err := d.db.Exec(`INSERT INTO shoes (`+shoeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.UserID, s.Brand, s.Model, s.Nickname, s.TotalDistanceKm,
		nullableDate(s.PurchaseDate), s.Retired, s.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create shoe: %w", err)
	}
	return nil
}

// GetShoe retrieves a shoe by ID or ID prefix.
func (d *DB) GetShoe(userID, idOrPrefix string) (*models.Shoe, error) {
	id, err := d.resolveID("shoes", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}

	s, err := scanShoe(d.db.QueryRow(`SELECT `+shoeColumns+` FROM shoes WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shoe %s: %w", idOrPrefix, ErrNotFound)
	}
	return s, err
}

// ListShoes returns the user's shoes, highest mileage first.
func (d *DB) ListShoes(userID string, includeRetired bool) ([]*models.Shoe, error) {
	query := `SELECT ` + shoeColumns + ` FROM shoes WHERE user_id = ?`
	if !includeRetired {
		query += " AND retired = 0"
	}
	query += " ORDER BY total_distance_km DESC, created_at ASC"

	rows, err := d.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	defer rows.Close()

	var shoes []*models.Shoe
	for rows.Next() {
		s, err := scanShoe(rows)
		if err != nil {
			return nil, err
		}
		shoes = append(shoes, s)
	}
	return shoes, rows.Err()
}

// AdjustShoeDistance adds deltaKm (which may be negative) to the shoe's mileage.
func (d *DB) AdjustShoeDistance(userID string, id uuid.UUID, deltaKm float64) error {
	result, err := d.db.Exec(`
		UPDATE shoes SET total_distance_km = MAX(0, total_distance_km + ?)
		WHERE id = ? AND user_id = ?
	`, deltaKm, id.String(), userID)
	return checkAffected(result, err, "adjust shoe distance", id)
}

// RetireShoe marks a shoe as retired.
func (d *DB) RetireShoe(userID string, id uuid.UUID) error {
	result, err := d.db.Exec("UPDATE shoes SET retired = 1 WHERE id = ? AND user_id = ?", id.String(), userID)
	return checkAffected(result, err, "retire shoe", id)
}

func checkAffected(result sql.Result, err error, op string, id uuid.UUID) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

func scanShoe(row rowScanner) (*models.Shoe, error) {
	var s models.Shoe
	var idStr, createdAt string
	var nickname, purchase sql.NullString

	err := row.Scan(&idStr, &s.UserID, &s.Brand, &s.Model, &nickname, &s.TotalDistanceKm,
		&purchase, &s.Retired, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan shoe: %w", err)
	}
	s.ID, _ = uuid.Parse(idStr)
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if nickname.Valid {
		s.Nickname = &nickname.String
	}
	s.PurchaseDate = parseNullDate(purchase)
	return &s, nil
}

// SetGoal creates or replaces the goal for the goal's month.
func (d *DB) SetGoal(g *models.Goal) error {
	g.Month = models.FirstOfMonth(g.Month)
	_, err := d.db.Exec(`
		INSERT INTO goals (user_id, month, target_distance_km, target_runs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, month) DO UPDATE SET
			target_distance_km = excluded.target_distance_km,
			target_runs = excluded.target_runs
	`, g.UserID, g.Month.String(), g.TargetDistanceKm, g.TargetRuns)
	if err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

// GetGoal returns the goal for the month containing month.
func (d *DB) GetGoal(userID string, month civil.Date) (*models.Goal, error) {
	first := models.FirstOfMonth(month)
	g, err := scanGoal(d.db.QueryRow(`
		SELECT user_id, month, target_distance_km, target_runs
		FROM goals WHERE user_id = ? AND month = ?
	`, userID, first.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal for %s: %w", first, ErrNotFound)
	}
	return g, err
}

func (d *DB) listGoals() ([]*models.Goal, error) {
	rows, err := d.db.Query(`SELECT user_id, month, target_distance_km, target_runs FROM goals ORDER BY user_id, month`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanGoal(row rowScanner) (*models.Goal, error) {
	var g models.Goal
	var month string
	var dist sql.NullFloat64
	var runs sql.NullInt64

	if err := row.Scan(&g.UserID, &month, &dist, &runs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	g.Month, _ = civil.ParseDate(month)
	if dist.Valid {
		g.TargetDistanceKm = &dist.Float64
	}
	if runs.Valid {
		n := int(runs.Int64)
		g.TargetRuns = &n
	}
	return &g, nil
}
