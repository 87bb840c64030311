// ABOUTME: Export and import functionality for running data.
// ABOUTME: Supports JSON and YAML export and JSON import across all backends.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/runlog/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportVersion is the current export format version.
const ExportVersion = "1.0"

// ExportData represents the full export format for running data.
type ExportData struct {
	Version    string                   `json:"version" yaml:"version"`
	ExportedAt time.Time                `json:"exported_at" yaml:"exported_at"`
	Tool       string                   `json:"tool" yaml:"tool"`
	Shoes      []*models.Shoe           `json:"shoes" yaml:"shoes"`
	Runs       []*models.Run            `json:"runs" yaml:"runs"`
	Records    []*models.PersonalRecord `json:"records" yaml:"records"`
	Streaks    []*models.RunningStreak  `json:"streaks" yaml:"streaks"`
	Goals      []*models.Goal           `json:"goals" yaml:"goals"`
}

func newExportData() *ExportData {
	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Tool:       "runlog",
	}
}

// GetAllData retrieves every user's data for export.
func (d *DB) GetAllData() (*ExportData, error) {
	data := newExportData()

	shoeRows, err := d.db.Query(`SELECT ` + shoeColumns + ` FROM shoes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	for shoeRows.Next() {
		s, err := scanShoe(shoeRows)
		if err != nil {
			shoeRows.Close()
			return nil, err
		}
		data.Shoes = append(data.Shoes, s)
	}
	shoeRows.Close()

	runRows, err := d.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY run_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for runRows.Next() {
		r, err := scanRun(runRows)
		if err != nil {
			runRows.Close()
			return nil, err
		}
		data.Runs = append(data.Runs, r)
	}
	runRows.Close()

	recRows, err := d.db.Query(`
		SELECT user_id, record_type, value, run_id, achieved_at, previous_record, updated_at
		FROM personal_records ORDER BY user_id, record_type
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	for recRows.Next() {
		rec, err := scanRecord(recRows)
		if err != nil {
			recRows.Close()
			return nil, err
		}
		data.Records = append(data.Records, rec)
	}
	recRows.Close()

	streakRows, err := d.db.Query(`SELECT ` + streakColumns + ` FROM running_streaks ORDER BY user_id, start_date`)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	for streakRows.Next() {
		s, err := scanStreak(streakRows)
		if err != nil {
			streakRows.Close()
			return nil, err
		}
		data.Streaks = append(data.Streaks, s)
	}
	streakRows.Close()

	if data.Goals, err = d.listGoals(); err != nil {
		return nil, err
	}
	return data, nil
}

// ImportData imports data from an export file.
func (d *DB) ImportData(data *ExportData) error {
	return importInto(d, data)
}

// importInto writes exported entities through the Repository contract. Shoes
// go first so run references resolve; records and streaks are restored as-is.
func importInto(repo Repository, data *ExportData) error {
	for _, s := range data.Shoes {
		if err := repo.CreateShoe(s); err != nil {
			return fmt.Errorf("import shoe: %w", err)
		}
	}
	for _, r := range data.Runs {
		if err := repo.CreateRun(r); err != nil {
			return fmt.Errorf("import run: %w", err)
		}
	}

	recsByUser := map[string][]*models.PersonalRecord{}
	for _, rec := range data.Records {
		recsByUser[rec.UserID] = append(recsByUser[rec.UserID], rec)
	}
	for _, user := range sortedKeys(recsByUser) {
		if err := repo.ReplaceRecords(user, recsByUser[user]); err != nil {
			return fmt.Errorf("import records: %w", err)
		}
	}

	streaksByUser := map[string][]*models.RunningStreak{}
	for _, s := range data.Streaks {
		streaksByUser[s.UserID] = append(streaksByUser[s.UserID], s)
	}
	for _, user := range sortedKeys(streaksByUser) {
		if err := repo.ReplaceStreaks(user, streaksByUser[user]); err != nil {
			return fmt.Errorf("import streaks: %w", err)
		}
	}

	for _, g := range data.Goals {
		if err := repo.SetGoal(g); err != nil {
			return fmt.Errorf("import goal: %w", err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExportJSON exports all data as JSON.
func ExportJSON(repo Repository) ([]byte, error) {
	data, err := repo.GetAllData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML with runs grouped by user.
func ExportYAML(repo Repository) ([]byte, error) {
	data, err := repo.GetAllData()
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string                `yaml:"version"`
		ExportedAt string                `yaml:"exported_at"`
		Tool       string                `yaml:"tool"`
		Runs       map[string][]yamlRun  `yaml:"runs"`
		Records    map[string][]yamlPR   `yaml:"records,omitempty"`
		Shoes      map[string][]yamlShoe `yaml:"shoes,omitempty"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Runs:       make(map[string][]yamlRun),
		Records:    make(map[string][]yamlPR),
		Shoes:      make(map[string][]yamlShoe),
	}

	for _, r := range data.Runs {
		yr := yamlRun{
			ID:         r.ID.String()[:8],
			Date:       r.Date.String(),
			DistanceKm: r.DistanceKm,
			DurationS:  r.DurationS,
			Pace:       models.FormatPace(r.Pace()),
		}
		if r.AvgHeartRate != nil {
			yr.AvgHeartRate = *r.AvgHeartRate
		}
		if r.ElevationGainM != nil {
			yr.ElevationGainM = *r.ElevationGainM
		}
		if r.Notes != nil {
			yr.Notes = *r.Notes
		}
		yamlData.Runs[r.UserID] = append(yamlData.Runs[r.UserID], yr)
	}

	for _, rec := range data.Records {
		yamlData.Records[rec.UserID] = append(yamlData.Records[rec.UserID], yamlPR{
			Type:       string(rec.RecordType),
			Value:      rec.Value,
			Unit:       rec.RecordType.Unit(),
			AchievedAt: rec.AchievedAt.String(),
			RunID:      rec.RunID.String()[:8],
		})
	}

	for _, s := range data.Shoes {
		yamlData.Shoes[s.UserID] = append(yamlData.Shoes[s.UserID], yamlShoe{
			ID:         s.ID.String()[:8],
			Name:       s.DisplayName(),
			DistanceKm: s.TotalDistanceKm,
			Retired:    s.Retired,
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlRun struct {
	ID             string  `yaml:"id"`
	Date           string  `yaml:"date"`
	DistanceKm     float64 `yaml:"distance_km"`
	DurationS      int     `yaml:"duration_s"`
	Pace           string  `yaml:"pace"`
	AvgHeartRate   int     `yaml:"avg_heart_rate,omitempty"`
	ElevationGainM float64 `yaml:"elevation_gain_m,omitempty"`
	Notes          string  `yaml:"notes,omitempty"`
}

type yamlPR struct {
	Type       string  `yaml:"type"`
	Value      float64 `yaml:"value"`
	Unit       string  `yaml:"unit"`
	AchievedAt string  `yaml:"achieved_at"`
	RunID      string  `yaml:"run_id"`
}

type yamlShoe struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	DistanceKm float64 `yaml:"distance_km"`
	Retired    bool    `yaml:"retired"`
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(repo Repository, data []byte) error {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return repo.ImportData(&exportData)
}
