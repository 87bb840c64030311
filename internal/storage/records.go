// ABOUTME: Personal record and streak persistence for SQLite storage.
// ABOUTME: Writes are conditional so a stale reader gets a ConflictError.
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

// GetRecords returns the user's personal records in category order.
func (d *DB) GetRecords(userID string) ([]*models.PersonalRecord, error) {
	query := `
		SELECT user_id, record_type, value, run_id, achieved_at, previous_record, updated_at
		FROM personal_records
		WHERE user_id = ?
	`
	rows, err := d.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}
	defer rows.Close()

	var recs []*models.PersonalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}
	return sortRecords(recs), nil
}

// UpsertRecord inserts or improves a record if the stored value still equals expected.
func (d *DB) UpsertRecord(rec *models.PersonalRecord, expected *float64) error {
	var result sql.Result
	var err error
	if expected == nil {
		result, err = d.db.Exec(`
			INSERT INTO personal_records (user_id, record_type, value, run_id, achieved_at, previous_record, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, record_type) DO NOTHING
		`, rec.UserID, string(rec.RecordType), rec.Value, rec.RunID.String(), rec.AchievedAt.String(),
			rec.PreviousRecord, rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
	} else {
		result, err = d.db.Exec(`
			UPDATE personal_records
			SET value = ?, run_id = ?, achieved_at = ?, previous_record = ?, updated_at = ?
			WHERE user_id = ? AND record_type = ? AND value = ?
		`, rec.Value, rec.RunID.String(), rec.AchievedAt.String(), rec.PreviousRecord,
			rec.UpdatedAt.UTC().Format(time.RFC3339Nano), rec.UserID, string(rec.RecordType), *expected)
	}
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	if affected == 0 {
		return &ConflictError{Entity: "record", Key: rec.UserID + "/" + string(rec.RecordType)}
	}
	return nil
}

// ReplaceRecords swaps the user's records for recs in one transaction.
func (d *DB) ReplaceRecords(userID string, recs []*models.PersonalRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM personal_records WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	for _, rec := range recs {
		_, err := tx.Exec(`
			INSERT INTO personal_records (user_id, record_type, value, run_id, achieved_at, previous_record, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, userID, string(rec.RecordType), rec.Value, rec.RunID.String(), rec.AchievedAt.String(),
			rec.PreviousRecord, rec.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.RecordType, err)
		}
	}
	return tx.Commit()
}

func scanRecord(row rowScanner) (*models.PersonalRecord, error) {
	var rec models.PersonalRecord
	var recordType, runID, achievedAt, updatedAt string
	var prev sql.NullFloat64

	if err := row.Scan(&rec.UserID, &recordType, &rec.Value, &runID, &achievedAt, &prev, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec.RecordType = models.RecordType(recordType)
	rec.RunID, _ = uuid.Parse(runID)
	rec.AchievedAt, _ = civil.ParseDate(achievedAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if prev.Valid {
		rec.PreviousRecord = &prev.Float64
	}
	return &rec, nil
}

const streakColumns = `id, user_id, start_date, end_date, last_date, length, is_active, version`

// GetActiveStreak returns the user's open streak or ErrNotFound.
func (d *DB) GetActiveStreak(userID string) (*models.RunningStreak, error) {
	query := `SELECT ` + streakColumns + ` FROM running_streaks WHERE user_id = ? AND is_active = 1`
	s, err := scanStreak(d.db.QueryRow(query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active streak for %s: %w", userID, ErrNotFound)
	}
	return s, err
}

// ListStreaks returns all of the user's streaks, oldest first.
func (d *DB) ListStreaks(userID string) ([]*models.RunningStreak, error) {
	query := `SELECT ` + streakColumns + ` FROM running_streaks WHERE user_id = ? ORDER BY start_date ASC`
	rows, err := d.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	defer rows.Close()

	var streaks []*models.RunningStreak
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, err
		}
		streaks = append(streaks, s)
	}
	return streaks, rows.Err()
}

// UpsertStreak inserts a new streak (Version 0) or updates one whose stored
// version still matches.
func (d *DB) UpsertStreak(s *models.RunningStreak) error {
	var result sql.Result
	var err error
	if s.Version == 0 {
		result, err = d.db.Exec(`
			INSERT INTO running_streaks (`+streakColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT DO NOTHING
		`, s.ID.String(), s.UserID, s.StartDate.String(), nullableDate(s.EndDate), s.LastDate.String(),
			s.Length, s.IsActive)
	} else {
		result, err = d.db.Exec(`
			UPDATE running_streaks
			SET start_date = ?, end_date = ?, last_date = ?, length = ?, is_active = ?, version = version + 1
			WHERE id = ? AND user_id = ? AND version = ?
		`, s.StartDate.String(), nullableDate(s.EndDate), s.LastDate.String(), s.Length, s.IsActive,
			s.ID.String(), s.UserID, s.Version)
	}
	if err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	if affected == 0 {
		return &ConflictError{Entity: "streak", Key: s.ID.String()}
	}
	s.Version++
	return nil
}

// ReplaceStreaks swaps all of the user's streaks in one transaction.
func (d *DB) ReplaceStreaks(userID string, streaks []*models.RunningStreak) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM running_streaks WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear streaks: %w", err)
	}
	for _, s := range streaks {
		_, err := tx.Exec(`INSERT INTO running_streaks (`+streakColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID.String(), userID, s.StartDate.String(), nullableDate(s.EndDate), s.LastDate.String(),
			s.Length, s.IsActive, s.Version+1)
		if err != nil {
			return fmt.Errorf("insert streak %s: %w", s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit streaks: %w", err)
	}
	for _, s := range streaks {
		s.Version++
	}
	return nil
}

func scanStreak(row rowScanner) (*models.RunningStreak, error) {
	var s models.RunningStreak
	var idStr, start, last string
	var end sql.NullString

	err := row.Scan(&idStr, &s.UserID, &start, &end, &last, &s.Length, &s.IsActive, &s.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan streak: %w", err)
	}
	s.ID, _ = uuid.Parse(idStr)
	s.StartDate, _ = civil.ParseDate(start)
	s.LastDate, _ = civil.ParseDate(last)
	s.EndDate = parseNullDate(end)
	return &s, nil
}

// sortRecords orders records by category.
func sortRecords(recs []*models.PersonalRecord) []*models.PersonalRecord {
	byType := make(map[models.RecordType]*models.PersonalRecord, len(recs))
	for _, r := range recs {
		byType[r.RecordType] = r
	}
	out := make([]*models.PersonalRecord, 0, len(recs))
	for _, rt := range models.AllRecordTypes {
		if r, ok := byType[rt]; ok {
			out = append(out, r)
		}
	}
	return out
}
