// ABOUTME: Tracker service tying run storage to records, streaks and analytics.
// ABOUTME: Serializes writes per user and retries compare-and-set conflicts.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/logging"
	"github.com/harperreed/runlog/internal/models"
	"github.com/harperreed/runlog/internal/storage"
)

// MaxAttempts bounds compare-and-set retries for records and streaks.
const MaxAttempts = 3

// ErrShoeRetired is returned when a run references a retired shoe.
var ErrShoeRetired = errors.New("shoe is retired")

// Tracker is the application service over a storage.Repository.
type Tracker struct {
	repo   storage.Repository
	logger *log.Logger
	now    func() time.Time
	maxHR  int
	locks  *userLocks
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides the wall clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMaxHR sets the max heart rate used when Zones is called without one.
func WithMaxHR(bpm int) Option {
	return func(t *Tracker) { t.maxHR = bpm }
}

// New creates a Tracker over repo.
func New(repo storage.Repository, opts ...Option) *Tracker {
	t := &Tracker{
		repo:   repo,
		logger: logging.Discard(),
		now:    time.Now,
		maxHR:  analytics.DefaultMaxHR(30),
		locks:  newUserLocks(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Repository returns the underlying store.
func (t *Tracker) Repository() storage.Repository {
	return t.repo
}

// Today returns the current local calendar date.
func (t *Tracker) Today() civil.Date {
	return civil.DateOf(t.now())
}

// AddRunResult describes everything a new run changed.
type AddRunResult struct {
	Run        *models.Run             `json:"run"`
	NewRecords []analytics.RecordDelta `json:"new_records"`

	// Streak is the user's open streak after the run.
	Streak *models.RunningStreak `json:"streak,omitempty"`

	// ClosedStreak is set when the run broke the previous streak.
	ClosedStreak *models.RunningStreak `json:"closed_streak,omitempty"`

	// Rebuilt is true when a back-dated run forced a full streak rebuild.
	Rebuilt bool `json:"rebuilt"`
}

// AddRun stores a run, then updates records, streaks and shoe mileage.
// The run is persisted before the derived state; a derived-state failure is
// returned with the run already saved.
func (t *Tracker) AddRun(ctx context.Context, run *models.Run) (*AddRunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}

	unlock := t.locks.lock(run.UserID)
	defer unlock()

	if run.ShoeID != nil {
		shoe, err := t.repo.GetShoe(run.UserID, run.ShoeID.String())
		if err != nil {
			return nil, fmt.Errorf("shoe %s: %w", run.ShoeID, err)
		}
		if shoe.Retired {
			return nil, fmt.Errorf("%s: %w", shoe.DisplayName(), ErrShoeRetired)
		}
	}

	if err := t.repo.CreateRun(run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	t.logger.Debug("run saved", "id", run.ID, "user", run.UserID, "date", run.Date, "km", run.DistanceKm)

	result := &AddRunResult{Run: run}

	deltas, err := t.applyRecords(ctx, run)
	if err != nil {
		return result, fmt.Errorf("update records: %w", err)
	}
	result.NewRecords = deltas

	if err := t.applyStreak(ctx, run, result); err != nil {
		return result, fmt.Errorf("update streak: %w", err)
	}

	if run.ShoeID != nil {
		if err := t.repo.AdjustShoeDistance(run.UserID, *run.ShoeID, run.DistanceKm); err != nil {
			return result, fmt.Errorf("update shoe mileage: %w", err)
		}
	}

	for _, d := range deltas {
		t.logger.Info("new personal record", "type", d.Type, "value", d.Record.Value)
	}
	return result, nil
}

// applyRecords writes every record the run sets. On a conflict the current
// records are re-read and detection runs again; deltas already written drop out
// because the stored record then points at this run.
func (t *Tracker) applyRecords(ctx context.Context, run *models.Run) ([]analytics.RecordDelta, error) {
	applied := make(map[models.RecordType]analytics.RecordDelta)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, err := t.repo.GetRecords(run.UserID)
		if err != nil {
			return nil, err
		}

		lastErr = nil
		for _, d := range analytics.DetectRecords(run, current) {
			err := t.repo.UpsertRecord(d.Record, d.Expected())
			if errors.Is(err, storage.ErrConflict) {
				t.logger.Debug("record conflict, retrying", "type", d.Type, "attempt", attempt)
				lastErr = err
				break
			}
			if err != nil {
				return nil, err
			}
			applied[d.Type] = d
		}
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	out := make([]analytics.RecordDelta, 0, len(applied))
	for _, rt := range models.AllRecordTypes {
		if d, ok := applied[rt]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// applyStreak advances the open streak with the run date. A date before the open
// streak rebuilds all streaks from the stored runs.
func (t *Tracker) applyStreak(ctx context.Context, run *models.Run, result *AddRunResult) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		active, err := t.repo.GetActiveStreak(run.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			active = nil
		} else if err != nil {
			return err
		}

		update, err := analytics.Advance(run.UserID, active, run.Date)
		if errors.Is(err, analytics.ErrOutOfOrder) {
			streaks, err := t.rebuildStreaks(run.UserID)
			if err != nil {
				return err
			}
			result.Rebuilt = true
			if n := len(streaks); n > 0 {
				result.Streak = streaks[n-1]
			}
			return nil
		}
		if err != nil {
			return err
		}

		result.Streak = update.Active
		if !update.Changed {
			return nil
		}

		lastErr = t.writeStreakUpdate(update)
		if lastErr == nil {
			result.ClosedStreak = update.Closed
			return nil
		}
		if !errors.Is(lastErr, storage.ErrConflict) {
			return lastErr
		}
		t.logger.Debug("streak conflict, retrying", "user", run.UserID, "attempt", attempt)
	}
	return lastErr
}

func (t *Tracker) writeStreakUpdate(update analytics.StreakUpdate) error {
	if update.Closed != nil {
		if err := t.repo.UpsertStreak(update.Closed); err != nil {
			return err
		}
	}
	return t.repo.UpsertStreak(update.Active)
}

func (t *Tracker) rebuildStreaks(userID string) ([]*models.RunningStreak, error) {
	runs, err := t.repo.ListRuns(userID, storage.RunFilter{})
	if err != nil {
		return nil, err
	}
	streaks := analytics.Rebuild(userID, analytics.DistinctDates(runs))
	if err := t.repo.ReplaceStreaks(userID, streaks); err != nil {
		return nil, err
	}
	t.logger.Debug("streaks rebuilt", "user", userID, "count", len(streaks))
	return streaks, nil
}

// DeleteRun removes a run and recomputes records, streaks and shoe mileage.
func (t *Tracker) DeleteRun(ctx context.Context, userID, idOrPrefix string) (*models.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := t.locks.lock(userID)
	defer unlock()

	run, err := t.repo.GetRun(userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	if err := t.repo.DeleteRun(userID, run.ID); err != nil {
		return nil, fmt.Errorf("delete run: %w", err)
	}

	remaining, err := t.repo.ListRuns(userID, storage.RunFilter{})
	if err != nil {
		return run, err
	}
	if err := t.repo.ReplaceRecords(userID, analytics.BestRecords(userID, remaining)); err != nil {
		return run, fmt.Errorf("recompute records: %w", err)
	}
	streaks := analytics.Rebuild(userID, analytics.DistinctDates(remaining))
	if err := t.repo.ReplaceStreaks(userID, streaks); err != nil {
		return run, fmt.Errorf("recompute streaks: %w", err)
	}

	if run.ShoeID != nil {
		err := t.repo.AdjustShoeDistance(userID, *run.ShoeID, -run.DistanceKm)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return run, fmt.Errorf("update shoe mileage: %w", err)
		}
	}

	t.logger.Info("run deleted", "id", run.ID, "user", userID)
	return run, nil
}

// GetRun returns one run by full ID or unique prefix.
func (t *Tracker) GetRun(ctx context.Context, userID, idOrPrefix string) (*models.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.repo.GetRun(userID, idOrPrefix)
}

// ListRuns returns runs newest first.
func (t *Tracker) ListRuns(ctx context.Context, userID string, filter storage.RunFilter) ([]*models.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.repo.ListRuns(userID, filter)
}

func (t *Tracker) runsIn(ctx context.Context, userID string, w analytics.Window) ([]*models.Run, error) {
	return t.ListRuns(ctx, userID, storage.RunFilter{From: w.Start, To: w.End})
}

// Stats aggregates the runs inside w.
func (t *Tracker) Stats(ctx context.Context, userID string, w analytics.Window) (analytics.WindowReport, error) {
	runs, err := t.runsIn(ctx, userID, w)
	if err != nil {
		return analytics.WindowReport{}, err
	}
	return analytics.Aggregate(runs, w), nil
}

// NamedStats resolves a named window (week, month, year, all) against today.
func (t *Tracker) NamedStats(ctx context.Context, userID, window string) (analytics.WindowReport, error) {
	w, err := analytics.NamedWindow(window, t.Today())
	if err != nil {
		return analytics.WindowReport{}, err
	}
	return t.Stats(ctx, userID, w)
}

// MonthReport builds the calendar month report with goal progress, if a goal is set.
func (t *Tracker) MonthReport(ctx context.Context, userID string, year int, month time.Month) (analytics.MonthReport, error) {
	w := analytics.MonthWindow(year, month)
	runs, err := t.runsIn(ctx, userID, w)
	if err != nil {
		return analytics.MonthReport{}, err
	}
	goal, err := t.repo.GetGoal(userID, w.Start)
	if errors.Is(err, storage.ErrNotFound) {
		goal = nil
	} else if err != nil {
		return analytics.MonthReport{}, err
	}
	return analytics.BuildMonthReport(runs, year, month, goal), nil
}

// YearReport builds the calendar year report.
func (t *Tracker) YearReport(ctx context.Context, userID string, year int) (analytics.YearReport, error) {
	runs, err := t.runsIn(ctx, userID, analytics.YearWindow(year))
	if err != nil {
		return analytics.YearReport{}, err
	}
	return analytics.BuildYearReport(runs, year), nil
}

// CompareWeeks compares this Monday-based week with the last one.
func (t *Tracker) CompareWeeks(ctx context.Context, userID string) (analytics.WeekComparison, error) {
	today := t.Today()
	start := analytics.WeekStart(today).AddDays(-7)
	runs, err := t.ListRuns(ctx, userID, storage.RunFilter{From: start, To: start.AddDays(13)})
	if err != nil {
		return analytics.WeekComparison{}, err
	}
	return analytics.CompareWeeks(runs, today), nil
}

// Records returns the user's personal records.
func (t *Tracker) Records(ctx context.Context, userID string) ([]*models.PersonalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.repo.GetRecords(userID)
}

// Streak returns the streak snapshot as of today.
func (t *Tracker) Streak(ctx context.Context, userID string) (analytics.StreakSnapshot, error) {
	runs, err := t.ListRuns(ctx, userID, storage.RunFilter{})
	if err != nil {
		return analytics.StreakSnapshot{}, err
	}
	streaks, err := t.repo.ListStreaks(userID)
	if err != nil {
		return analytics.StreakSnapshot{}, err
	}
	return analytics.Snapshot(analytics.DistinctDates(runs), streaks, t.Today()), nil
}

// Predict projects race times from the last three months of runs.
func (t *Tracker) Predict(ctx context.Context, userID string) (*analytics.Predictions, error) {
	today := t.Today()
	runs, err := t.runsIn(ctx, userID, analytics.PredictionWindow(today))
	if err != nil {
		return nil, err
	}
	return analytics.PredictRaces(runs, today)
}

// Zones classifies the runs inside w. A maxHR <= 0 uses the configured default.
func (t *Tracker) Zones(ctx context.Context, userID string, w analytics.Window, maxHR int) (*analytics.ZoneProfile, error) {
	if maxHR <= 0 {
		maxHR = t.maxHR
	}
	runs, err := t.runsIn(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	return analytics.ClassifyRuns(runs, maxHR)
}

// AddShoe registers a new shoe.
func (t *Tracker) AddShoe(ctx context.Context, shoe *models.Shoe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if shoe.UserID == "" {
		return &models.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if shoe.Brand == "" || shoe.Model == "" {
		return &models.ValidationError{Field: "brand/model", Reason: "must not be empty"}
	}
	return t.repo.CreateShoe(shoe)
}

// Shoe returns one shoe by full ID or unique prefix.
func (t *Tracker) Shoe(ctx context.Context, userID, idOrPrefix string) (*models.Shoe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.repo.GetShoe(userID, idOrPrefix)
}

// Shoes lists the user's shoes, highest mileage first.
func (t *Tracker) Shoes(ctx context.Context, userID string, includeRetired bool) ([]*models.Shoe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.repo.ListShoes(userID, includeRetired)
}

// RetireShoe marks a shoe retired so new runs can no longer use it.
func (t *Tracker) RetireShoe(ctx context.Context, userID, idOrPrefix string) (*models.Shoe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shoe, err := t.repo.GetShoe(userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	if err := t.repo.RetireShoe(userID, shoe.ID); err != nil {
		return nil, err
	}
	shoe.Retired = true
	return shoe, nil
}

// SetGoal sets the monthly target for the month containing month.
func (t *Tracker) SetGoal(ctx context.Context, goal *models.Goal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hasDistance := goal.TargetDistanceKm != nil && *goal.TargetDistanceKm > 0
	hasRuns := goal.TargetRuns != nil && *goal.TargetRuns > 0
	if !hasDistance && !hasRuns {
		return &models.ValidationError{Field: "goal", Reason: "needs a positive distance or run target"}
	}
	goal.Month = models.FirstOfMonth(goal.Month)
	return t.repo.SetGoal(goal)
}

// userLocks hands out one mutex per user.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[string]*sync.Mutex)}
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.m[userID]
	if !ok {
		m = &sync.Mutex{}
		l.m[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
