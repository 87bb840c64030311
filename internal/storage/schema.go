// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines tables for runs, personal records, streaks, shoes and goals.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shoes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		brand TEXT NOT NULL,
		model TEXT NOT NULL,
		nickname TEXT,
		total_distance_km REAL NOT NULL DEFAULT 0,
		purchase_date TEXT,
		retired INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		run_date TEXT NOT NULL,
		distance_km REAL NOT NULL CHECK (distance_km > 0),
		duration_s INTEGER NOT NULL CHECK (duration_s > 0),
		avg_heart_rate INTEGER,
		elevation_gain_m REAL,
		shoe_id TEXT REFERENCES shoes(id) ON DELETE SET NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS personal_records (
		user_id TEXT NOT NULL,
		record_type TEXT NOT NULL,
		value REAL NOT NULL,
		run_id TEXT NOT NULL,
		achieved_at TEXT NOT NULL,
		previous_record REAL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, record_type)
	);

	CREATE TABLE IF NOT EXISTS running_streaks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		last_date TEXT NOT NULL,
		length INTEGER NOT NULL,
		is_active INTEGER NOT NULL,
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS goals (
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		target_distance_km REAL,
		target_runs INTEGER,
		PRIMARY KEY (user_id, month)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_user_date ON runs(user_id, run_date DESC);
	CREATE INDEX IF NOT EXISTS idx_streaks_user ON running_streaks(user_id, start_date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_streaks_one_active ON running_streaks(user_id) WHERE is_active = 1;
	CREATE INDEX IF NOT EXISTS idx_shoes_user ON shoes(user_id);
	`

	_, err := d.db.Exec(schema)
	return err
}
