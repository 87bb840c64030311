// ABOUTME: Shared fixtures for analytics tests.
// ABOUTME: Builds runs from date strings without touching storage.
package analytics

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/models"
)

const testUser = "runner-1"

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// newRun builds a run; successive calls get increasing CreatedAt so replay order is stable.
func newRun(t *testing.T, date string, km float64, seconds int) *models.Run {
	t.Helper()
	r := models.NewRun(testUser, mustDate(t, date), km, seconds)
	runSeq++
	r.CreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(runSeq) * time.Second)
	return r
}

var runSeq int
