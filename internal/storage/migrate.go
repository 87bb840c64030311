// ABOUTME: Data migration between runlog storage backends.
// ABOUTME: Copies shoes, runs, records, streaks and goals from source to destination.

package storage

import (
	"fmt"
	"os"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Shoes   int
	Runs    int
	Records int
	Streaks int
	Goals   int
}

// MigrateData copies all data from src to dst storage. The destination should
// be empty before calling this function.
func MigrateData(src, dst Repository) (*MigrateSummary, error) {
	data, err := src.GetAllData()
	if err != nil {
		return nil, fmt.Errorf("read source data: %w", err)
	}

	if err := dst.ImportData(data); err != nil {
		return nil, fmt.Errorf("write destination data: %w", err)
	}

	return &MigrateSummary{
		Shoes:   len(data.Shoes),
		Runs:    len(data.Runs),
		Records: len(data.Records),
		Streaks: len(data.Streaks),
		Goals:   len(data.Goals),
	}, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
