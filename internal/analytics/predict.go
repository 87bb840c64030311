// ABOUTME: Race time predictor using the Riegel formula over the last three months.
// ABOUTME: Falls back to average training pace when no suitable best run exists.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/models"
)

const (
	// RiegelExponent is the fatigue exponent in T2 = T1 * (D2/D1)^1.06.
	RiegelExponent = 1.06

	// MinPredictionRuns is the minimum number of runs in the window.
	MinPredictionRuns = 3

	// PredictionWindowMonths is how far back runs are considered.
	PredictionWindowMonths = 3

	// recentRunCount is how many of the latest runs feed the average distance and pace.
	recentRunCount = 10

	// marathonFallbackPenalty slows the average-pace fallback for the marathon.
	marathonFallbackPenalty = 1.05
)

// Confidence grades a prediction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DistanceBucket groups runs by length for choosing a prediction source.
type DistanceBucket string

const (
	BucketShort  DistanceBucket = "short"
	BucketMedium DistanceBucket = "medium"
	BucketLong   DistanceBucket = "long"
)

// BucketFor classifies a distance: short (<7 km), medium (7-15 km), long (>=15 km).
func BucketFor(distanceKm float64) DistanceBucket {
	switch {
	case distanceKm < 7:
		return BucketShort
	case distanceKm < 15:
		return BucketMedium
	default:
		return BucketLong
	}
}

// Race is a standard race distance.
type Race struct {
	Type       models.RecordType
	DistanceKm float64
}

// StandardRaces are the predicted distances, shortest first.
var StandardRaces = []Race{
	{models.Record5K, 5},
	{models.Record10K, 10},
	{models.RecordHalf, 21.0975},
	{models.RecordFull, 42.195},
}

// RacePrediction is a projected finish for one race distance.
type RacePrediction struct {
	Race            models.RecordType `json:"race"`
	DistanceKm      float64           `json:"distance_km"`
	PredictedTimeS  int               `json:"predicted_time_s"`
	PredictedPace   float64           `json:"predicted_pace"`
	Confidence      Confidence        `json:"confidence"`
	Basis           string            `json:"basis"`
	SourceBucket    DistanceBucket    `json:"source_bucket,omitempty"`
	SourceRunID     string            `json:"source_run_id,omitempty"`
	UsedAverageBase bool              `json:"used_average_pace"`
}

// DataQuality describes the runs behind a set of predictions.
type DataQuality struct {
	TotalRuns     int     `json:"total_runs"`
	RecentRuns    int     `json:"recent_runs"`
	AvgDistanceKm float64 `json:"avg_distance_km"`
	AvgPace       float64 `json:"avg_pace"`
}

// Predictions is the predictor output.
type Predictions struct {
	Window      Window           `json:"window"`
	Races       []RacePrediction `json:"races"`
	DataQuality DataQuality      `json:"data_quality"`
}

// Riegel projects a time at targetKm from a known time at knownKm.
func Riegel(knownTimeS, knownKm, targetKm float64) float64 {
	return knownTimeS * math.Pow(targetKm/knownKm, RiegelExponent)
}

// PredictionWindow is the closed three-month window ending today.
func PredictionWindow(today civil.Date) Window {
	return Window{Name: "last_3_months", Start: MonthsBefore(today, PredictionWindowMonths), End: today}
}

// PredictRaces projects finish times for the standard races from the runs in the
// three months up to today. Fewer than three runs yields an *InsufficientDataError.
func PredictRaces(runs []*models.Run, today civil.Date) (*Predictions, error) {
	w := PredictionWindow(today)
	inWindow := w.Filter(runs)
	if len(inWindow) < MinPredictionRuns {
		return nil, &InsufficientDataError{
			Reason: "race prediction needs runs in the last 3 months",
			Have:   len(inWindow),
			Need:   MinPredictionRuns,
		}
	}

	// newest first
	sort.SliceStable(inWindow, func(i, j int) bool {
		if inWindow[i].Date != inWindow[j].Date {
			return inWindow[i].Date.After(inWindow[j].Date)
		}
		return inWindow[i].CreatedAt.After(inWindow[j].CreatedAt)
	})

	recent := inWindow
	if len(recent) > recentRunCount {
		recent = recent[:recentRunCount]
	}
	var sumDist, sumPace float64
	for _, r := range recent {
		sumDist += r.DistanceKm
		sumPace += r.Pace()
	}
	quality := DataQuality{
		TotalRuns:     len(inWindow),
		RecentRuns:    len(recent),
		AvgDistanceKm: sumDist / float64(len(recent)),
		AvgPace:       sumPace / float64(len(recent)),
	}

	best := bestByBucket(inWindow)

	out := &Predictions{Window: w, DataQuality: quality}
	for _, race := range StandardRaces {
		out.Races = append(out.Races, predictRace(race, best, quality))
	}
	return out, nil
}

// bestByBucket keeps the lowest-duration run per distance bucket.
func bestByBucket(runs []*models.Run) map[DistanceBucket]*models.Run {
	best := make(map[DistanceBucket]*models.Run, 3)
	for _, r := range runs {
		b := BucketFor(r.DistanceKm)
		if cur, ok := best[b]; !ok || r.DurationS < cur.DurationS {
			best[b] = r
		}
	}
	return best
}

// raceTier returns the preferred and secondary source buckets plus the average
// distance at or above which confidence is upgraded, and the grades to use.
func raceTier(distanceKm float64) (prefer, secondary DistanceBucket, threshold float64, above, below Confidence) {
	switch {
	case distanceKm <= 10:
		return BucketShort, BucketMedium, 5, ConfidenceHigh, ConfidenceMedium
	case distanceKm <= 21:
		return BucketMedium, BucketLong, 10, ConfidenceHigh, ConfidenceMedium
	default:
		return BucketLong, BucketMedium, 15, ConfidenceMedium, ConfidenceLow
	}
}

func predictRace(race Race, best map[DistanceBucket]*models.Run, q DataQuality) RacePrediction {
	p := RacePrediction{Race: race.Type, DistanceKm: race.DistanceKm}
	prefer, secondary, threshold, above, below := raceTier(race.DistanceKm)

	bucket := prefer
	base, ok := best[prefer]
	if !ok {
		bucket = secondary
		base, ok = best[secondary]
	}

	var seconds float64
	if ok {
		seconds = Riegel(float64(base.DurationS), base.DistanceKm, race.DistanceKm)
		p.Confidence = below
		if q.AvgDistanceKm >= threshold {
			p.Confidence = above
		}
		p.Basis = fmt.Sprintf("%.1fkm best performance (%s runs)", base.DistanceKm, bucket)
		p.SourceBucket = bucket
		p.SourceRunID = base.ID.String()
	} else {
		seconds = q.AvgPace * 60 * race.DistanceKm
		p.Basis = "average training pace"
		if race.Type == models.RecordFull {
			seconds *= marathonFallbackPenalty
			p.Basis = "average training pace (adjusted)"
		}
		p.Confidence = ConfidenceLow
		p.UsedAverageBase = true
	}

	p.PredictedTimeS = int(math.Round(seconds))
	p.PredictedPace = seconds / 60 / race.DistanceKm
	return p
}
