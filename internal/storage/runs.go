// ABOUTME: Run CRUD operations for SQLite storage.
// ABOUTME: Runs are user-scoped and resolvable by ID prefix.
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

const runColumns = `id, user_id, run_date, distance_km, duration_s, avg_heart_rate,
	elevation_gain_m, shoe_id, notes, created_at`

// CreateRun stores a new run in the database.
func (d *DB) CreateRun(r *models.Run) error {
	if err := r.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := d.db.Exec(query,
		r.ID.String(),
		r.UserID,
		r.Date.String(),
		r.DistanceKm,
		r.DurationS,
		r.AvgHeartRate,
		r.ElevationGainM,
		nullableUUID(r.ShoeID),
		r.Notes,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID or ID prefix.
func (d *DB) GetRun(userID, idOrPrefix string) (*models.Run, error) {
	id, err := d.resolveID("runs", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND user_id = ?`
	r, err := scanRun(d.db.QueryRow(query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", idOrPrefix, ErrNotFound)
	}
	return r, err
}

// ListRuns retrieves a user's runs, most recent first.
func (d *DB) ListRuns(userID string, filter RunFilter) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE user_id = ?`
	args := []interface{}{userID}

	if !filter.From.IsZero() {
		query += " AND run_date >= ?"
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		query += " AND run_date <= ?"
		args = append(args, filter.To.String())
	}
	query += " ORDER BY run_date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run.
func (d *DB) DeleteRun(userID string, id uuid.UUID) error {
	result, err := d.db.Exec("DELETE FROM runs WHERE id = ? AND user_id = ?", id.String(), userID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}

// resolveID finds the full ID in table from a prefix, scoped to userID.
func (d *DB) resolveID(table, userID, idOrPrefix string) (string, error) {
	if isFullUUID(idOrPrefix) {
		return idOrPrefix, nil
	}

	query := `SELECT id FROM ` + table + ` WHERE user_id = ? AND id LIKE ? || '%'`
	rows, err := d.db.Query(query, userID, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan ID: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%s: %w", idOrPrefix, ErrNotFound)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}
	return matches[0], nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var r models.Run
	var idStr, dateStr, createdAt string
	var hr sql.NullInt64
	var elev sql.NullFloat64
	var shoeID, notes sql.NullString

	err := row.Scan(&idStr, &r.UserID, &dateStr, &r.DistanceKm, &r.DurationS, &hr,
		&elev, &shoeID, &notes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	r.ID, _ = uuid.Parse(idStr)
	r.Date, _ = civil.ParseDate(dateStr)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if hr.Valid {
		v := int(hr.Int64)
		r.AvgHeartRate = &v
	}
	if elev.Valid {
		r.ElevationGainM = &elev.Float64
	}
	if shoeID.Valid {
		if id, err := uuid.Parse(shoeID.String); err == nil {
			r.ShoeID = &id
		}
	}
	if notes.Valid {
		r.Notes = &notes.String
	}
	return &r, nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullableDate(d *civil.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDate(s sql.NullString) *civil.Date {
	if !s.Valid {
		return nil
	}
	d, err := civil.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &d
}
