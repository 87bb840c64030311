// ABOUTME: Training zone classifier for heart-rate exposure and 80/20 compliance.
// ABOUTME: Five zones as fractions of max HR; classification is top-down by lower bound.
package analytics

import (
	"fmt"
	"math"

	"github.com/harperreed/runlog/internal/models"
)

// Zone is one of the five heart-rate training zones.
type Zone int

const (
	Z1 Zone = iota + 1
	Z2
	Z3
	Z4
	Z5
)

// AllZones lists zones from easiest to hardest.
var AllZones = []Zone{Z1, Z2, Z3, Z4, Z5}

func (z Zone) String() string {
	return fmt.Sprintf("Z%d", int(z))
}

// MarshalText encodes the zone as its label, e.g. "Z2".
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// Name returns the training name of the zone.
func (z Zone) Name() string {
	switch z {
	case Z1:
		return "Recovery"
	case Z2:
		return "Aerobic"
	case Z3:
		return "Tempo"
	case Z4:
		return "Threshold"
	case Z5:
		return "VO2 Max"
	}
	return "Unknown"
}

// Easy reports whether the zone counts as easy intensity for 80/20.
func (z Zone) Easy() bool {
	return z == Z1 || z == Z2
}

// fractions returns the lower and upper fractions of max HR for the zone.
func (z Zone) fractions() (lo, hi float64) {
	switch z {
	case Z1:
		return 0.5, 0.6
	case Z2:
		return 0.6, 0.7
	case Z3:
		return 0.7, 0.8
	case Z4:
		return 0.8, 0.9
	case Z5:
		return 0.9, 1.0
	}
	return 0, 0
}

// Compliance thresholds for the easy share of training time.
const (
	EasyTargetMin = 75.0
	EasyTargetMax = 85.0
)

// DefaultMaxHR estimates max heart rate as 220 minus age.
func DefaultMaxHR(age int) int {
	return 220 - age
}

// ZoneBounds is the bpm range for one zone.
type ZoneBounds struct {
	Zone  Zone   `json:"zone"`
	Name  string `json:"name"`
	MinHR int    `json:"min_hr"`
	MaxHR int    `json:"max_hr"`
}

// Boundaries returns the five zone ranges for maxHR, each bound rounded to bpm.
func Boundaries(maxHR int) []ZoneBounds {
	out := make([]ZoneBounds, 0, len(AllZones))
	for _, z := range AllZones {
		lo, hi := z.fractions()
		out = append(out, ZoneBounds{
			Zone:  z,
			Name:  z.Name(),
			MinHR: int(math.Round(float64(maxHR) * lo)),
			MaxHR: int(math.Round(float64(maxHR) * hi)),
		})
	}
	return out
}

// Classify returns the highest zone whose lower bound heartRate meets. A value
// exactly on a boundary belongs to the higher zone; anything below Z2 is Z1.
func Classify(heartRate, maxHR int) Zone {
	bounds := Boundaries(maxHR)
	for i := len(bounds) - 1; i > 0; i-- {
		if heartRate >= bounds[i].MinHR {
			return bounds[i].Zone
		}
	}
	return Z1
}

// ZoneExposure is accumulated time in one zone.
type ZoneExposure struct {
	ZoneBounds
	DurationS  int     `json:"accumulated_duration_s"`
	Runs       int     `json:"runs"`
	Percentage float64 `json:"percentage_of_total"`
}

// ComplianceStatus is the 80/20 verdict.
type ComplianceStatus string

const (
	ComplianceMet             ComplianceStatus = "met"
	ComplianceTooMuchHard     ComplianceStatus = "too_much_intensity"
	ComplianceConsiderQuality ComplianceStatus = "consider_adding_quality"
)

// Compliance summarizes the easy/hard split.
type Compliance struct {
	EasyPct float64          `json:"easy_pct"`
	HardPct float64          `json:"hard_pct"`
	Status  ComplianceStatus `json:"status"`
}

// Message returns a short human-readable verdict.
func (c Compliance) Message() string {
	switch c.Status {
	case ComplianceMet:
		return "80/20 balance met"
	case ComplianceTooMuchHard:
		return "Too much intensity: add more easy running"
	case ComplianceConsiderQuality:
		return "Mostly easy: consider adding quality sessions"
	}
	return string(c.Status)
}

// ZoneProfile is the derived zone distribution for a set of runs.
type ZoneProfile struct {
	MaxHR          int            `json:"max_hr"`
	Zones          []ZoneExposure `json:"zones"`
	TotalDurationS int            `json:"total_duration_s"`
	RunsWithHR     int            `json:"runs_with_hr"`
	Compliance     Compliance     `json:"compliance"`
}

// Zone returns the exposure for z.
func (p *ZoneProfile) Zone(z Zone) ZoneExposure {
	return p.Zones[int(z)-1]
}

// ClassifyRuns buckets heart-rate-bearing runs into zones by duration. Runs without
// an average heart rate are ignored; if none carry one, an *InsufficientDataError
// is returned instead of a zero-filled profile.
func ClassifyRuns(runs []*models.Run, maxHR int) (*ZoneProfile, error) {
	if maxHR <= 0 {
		return nil, fmt.Errorf("max heart rate must be positive, got %d", maxHR)
	}

	profile := &ZoneProfile{MaxHR: maxHR}
	for _, b := range Boundaries(maxHR) {
		profile.Zones = append(profile.Zones, ZoneExposure{ZoneBounds: b})
	}

	for _, r := range runs {
		if r.AvgHeartRate == nil {
			continue
		}
		z := Classify(*r.AvgHeartRate, maxHR)
		profile.Zones[int(z)-1].DurationS += r.DurationS
		profile.Zones[int(z)-1].Runs++
		profile.TotalDurationS += r.DurationS
		profile.RunsWithHR++
	}

	if profile.RunsWithHR == 0 {
		return nil, &InsufficientDataError{
			Reason: "no runs with heart rate data",
			Have:   0,
			Need:   1,
		}
	}

	var easy int
	for i := range profile.Zones {
		zx := &profile.Zones[i]
		zx.Percentage = float64(zx.DurationS) / float64(profile.TotalDurationS) * 100
		if zx.Zone.Easy() {
			easy += zx.DurationS
		}
	}

	easyPct := float64(easy) / float64(profile.TotalDurationS) * 100
	profile.Compliance = Compliance{
		EasyPct: easyPct,
		HardPct: 100 - easyPct,
		Status:  complianceStatus(easyPct),
	}
	return profile, nil
}

func complianceStatus(easyPct float64) ComplianceStatus {
	switch {
	case easyPct < EasyTargetMin:
		return ComplianceTooMuchHard
	case easyPct > EasyTargetMax:
		return ComplianceConsiderQuality
	default:
		return ComplianceMet
	}
}
