// ABOUTME: Personal record detector for the six record categories.
// ABOUTME: A new run supersedes a record only on strict improvement.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/harperreed/runlog/internal/models"
)

// DistanceTolerance is the inclusive fraction of a race distance a run may deviate
// by and still count toward that race's time record.
const DistanceTolerance = 0.05

// Qualifies reports whether run is eligible for the record category.
func Qualifies(rt models.RecordType, run *models.Run) bool {
	nominal, ok := rt.NominalDistanceKm()
	if !ok {
		return run.DistanceKm > 0
	}
	return math.Abs(run.DistanceKm-nominal) <= nominal*DistanceTolerance
}

// RecordValue returns the value run would hold in the category:
// seconds for race distances, km for LONGEST, min/km for FASTEST_PACE.
func RecordValue(rt models.RecordType, run *models.Run) float64 {
	switch rt {
	case models.RecordLongest:
		return run.DistanceKm
	case models.RecordFastestPace:
		return run.Pace()
	default:
		return float64(run.DurationS)
	}
}

// Improves reports whether candidate strictly beats current.
func Improves(rt models.RecordType, candidate, current float64) bool {
	if rt.HigherIsBetter() {
		return candidate > current
	}
	return candidate < current
}

// RecordDelta is a category newly set or improved by a run.
type RecordDelta struct {
	Type   models.RecordType      `json:"type"`
	Record *models.PersonalRecord `json:"record"`

	// Replaced is the record that was superseded, nil when the category was unset.
	Replaced *models.PersonalRecord `json:"replaced,omitempty"`
}

// Expected returns the stored value a compare-and-set must observe, nil for a first record.
func (d RecordDelta) Expected() *float64 {
	if d.Replaced == nil {
		return nil
	}
	v := d.Replaced.Value
	return &v
}

// DetectRecords compares run against the user's current records and returns the
// categories it sets or improves. A run that already holds a record, or merely ties
// it, produces no delta.
func DetectRecords(run *models.Run, current []*models.PersonalRecord) []RecordDelta {
	byType := make(map[models.RecordType]*models.PersonalRecord, len(current))
	for _, rec := range current {
		if rec.UserID == run.UserID {
			byType[rec.RecordType] = rec
		}
	}

	var deltas []RecordDelta
	for _, rt := range models.AllRecordTypes {
		if !Qualifies(rt, run) {
			continue
		}
		value := RecordValue(rt, run)
		cur := byType[rt]
		if cur != nil && (cur.RunID == run.ID || !Improves(rt, value, cur.Value)) {
			continue
		}

		rec := &models.PersonalRecord{
			UserID:     run.UserID,
			RecordType: rt,
			Value:      value,
			RunID:      run.ID,
			AchievedAt: run.Date,
			UpdatedAt:  time.Now(),
		}
		if cur != nil {
			prev := cur.Value
			rec.PreviousRecord = &prev
		}
		deltas = append(deltas, RecordDelta{Type: rt, Record: rec, Replaced: cur})
	}
	return deltas
}

// BestRecords recomputes every record from scratch by replaying runs in date order.
// PreviousRecord on each result holds the value it superseded during the replay.
func BestRecords(userID string, runs []*models.Run) []*models.PersonalRecord {
	ordered := make([]*models.Run, 0, len(runs))
	for _, r := range runs {
		if r.UserID == userID {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	current := map[models.RecordType]*models.PersonalRecord{}
	for _, r := range ordered {
		for _, d := range DetectRecords(r, recordList(current)) {
			current[d.Type] = d.Record
		}
	}
	return recordList(current)
}

func recordList(m map[models.RecordType]*models.PersonalRecord) []*models.PersonalRecord {
	out := make([]*models.PersonalRecord, 0, len(m))
	for _, rt := range models.AllRecordTypes {
		if rec, ok := m[rt]; ok {
			out = append(out, rec)
		}
	}
	return out
}
