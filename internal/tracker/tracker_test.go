// ABOUTME: Tests for the tracker service over a real SQLite store.
// ABOUTME: Covers run add/delete side effects, reports, dashboard and concurrent writers.
package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/harperreed/runlog/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testUser = "runner-1"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	)
}

// today is a Monday.
var today = time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

func newTracker(t *testing.T) (*tracker.Tracker, storage.Repository) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tr := tracker.New(db,
		tracker.WithClock(func() time.Time { return today }),
		tracker.WithMaxHR(190),
	)
	return tr, db
}

func day(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

func addRun(t *testing.T, tr *tracker.Tracker, date string, km float64, secs int) *tracker.AddRunResult {
	t.Helper()
	res, err := tr.AddRun(context.Background(), models.NewRun(testUser, day(t, date), km, secs))
	require.NoError(t, err)
	return res
}

func deltaTypes(deltas []analytics.RecordDelta) []models.RecordType {
	var out []models.RecordType
	for _, d := range deltas {
		out = append(out, d.Type)
	}
	return out
}

func TestTracker_AddRun_FirstRun(t *testing.T) {
	tr, repo := newTracker(t)

	res := addRun(t, tr, "2025-03-10", 5.0, 1500)

	assert.Equal(t,
		[]models.RecordType{models.Record5K, models.RecordLongest, models.RecordFastestPace},
		deltaTypes(res.NewRecords))
	require.NotNil(t, res.Streak)
	assert.Equal(t, 1, res.Streak.Length)
	assert.True(t, res.Streak.IsActive)
	assert.Nil(t, res.ClosedStreak)
	assert.False(t, res.Rebuilt)

	recs, err := repo.GetRecords(testUser)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestTracker_AddRun_ImprovesRecord(t *testing.T) {
	tr, repo := newTracker(t)

	addRun(t, tr, "2025-03-08", 5.02, 1500)
	res := addRun(t, tr, "2025-03-09", 5.01, 1490)

	assert.Equal(t, []models.RecordType{models.Record5K, models.RecordFastestPace}, deltaTypes(res.NewRecords))
	fiveK := res.NewRecords[0]
	require.NotNil(t, fiveK.Replaced)
	assert.Equal(t, 1500.0, fiveK.Replaced.Value)
	require.NotNil(t, fiveK.Record.PreviousRecord)
	assert.Equal(t, 1500.0, *fiveK.Record.PreviousRecord)

	recs, err := repo.GetRecords(testUser)
	require.NoError(t, err)
	for _, rec := range recs {
		if rec.RecordType == models.Record5K {
			assert.Equal(t, 1490.0, rec.Value)
			assert.Equal(t, res.Run.ID, rec.RunID)
		}
	}
}

func TestTracker_AddRun_Streaks(t *testing.T) {
	t.Run("consecutive days extend", func(t *testing.T) {
		tr, _ := newTracker(t)
		addRun(t, tr, "2025-03-08", 5, 1500)
		addRun(t, tr, "2025-03-09", 5, 1500)
		res := addRun(t, tr, "2025-03-10", 5, 1500)

		assert.Equal(t, 3, res.Streak.Length)

		snap, err := tr.Streak(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Current)
		assert.Equal(t, 3, snap.Longest)
		assert.True(t, snap.IsActive)
	})

	t.Run("same day keeps streak", func(t *testing.T) {
		tr, _ := newTracker(t)
		addRun(t, tr, "2025-03-10", 5, 1500)
		res := addRun(t, tr, "2025-03-10", 3, 1000)

		assert.Equal(t, 1, res.Streak.Length)
	})

	t.Run("gap closes streak", func(t *testing.T) {
		tr, repo := newTracker(t)
		addRun(t, tr, "2025-03-05", 5, 1500)
		addRun(t, tr, "2025-03-06", 5, 1500)
		res := addRun(t, tr, "2025-03-09", 5, 1500)

		require.NotNil(t, res.ClosedStreak)
		assert.Equal(t, 2, res.ClosedStreak.Length)
		assert.False(t, res.ClosedStreak.IsActive)
		assert.Equal(t, 1, res.Streak.Length)

		streaks, err := repo.ListStreaks(testUser)
		require.NoError(t, err)
		require.Len(t, streaks, 2)
		assert.False(t, streaks[0].IsActive)
		require.NotNil(t, streaks[0].EndDate)
		assert.Equal(t, day(t, "2025-03-06"), *streaks[0].EndDate)
		assert.True(t, streaks[1].IsActive)
	})

	t.Run("back-dated run rebuilds", func(t *testing.T) {
		tr, repo := newTracker(t)
		addRun(t, tr, "2025-03-09", 5, 1500)
		addRun(t, tr, "2025-03-10", 5, 1500)
		res := addRun(t, tr, "2025-03-08", 5, 1500)

		assert.True(t, res.Rebuilt)
		require.NotNil(t, res.Streak)
		assert.Equal(t, 3, res.Streak.Length)

		active, err := repo.GetActiveStreak(testUser)
		require.NoError(t, err)
		assert.Equal(t, day(t, "2025-03-08"), active.StartDate)
		assert.Equal(t, 3, active.Length)
	})

	t.Run("no runs", func(t *testing.T) {
		tr, _ := newTracker(t)
		snap, err := tr.Streak(context.Background(), testUser)
		require.NoError(t, err)
		assert.Zero(t, snap.Current)
		assert.Nil(t, snap.Latest)
	})
}

func TestTracker_AddRun_Rejected(t *testing.T) {
	tr, repo := newTracker(t)
	ctx := context.Background()

	_, err := tr.AddRun(ctx, models.NewRun(testUser, day(t, "2025-03-10"), 0, 1500))
	assert.ErrorIs(t, err, models.ErrValidation)
	for _, km := range []float64{math.NaN(), math.Inf(1)} {
		_, err = tr.AddRun(ctx, models.NewRun(testUser, day(t, "2025-03-10"), km, 1500))
		assert.ErrorIs(t, err, models.ErrValidation, "distance %v", km)
	}

	_, err = tr.AddRun(ctx, models.NewRun(testUser, day(t, "2025-03-10"), 5, 1500).WithShoe(models.NewShoe(testUser, "X", "Y").ID))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	shoe := models.NewShoe(testUser, "Brooks", "Ghost")
	require.NoError(t, tr.AddShoe(ctx, shoe))
	_, err = tr.RetireShoe(ctx, testUser, shoe.ID.String()[:8])
	require.NoError(t, err)
	_, err = tr.AddRun(ctx, models.NewRun(testUser, day(t, "2025-03-10"), 5, 1500).WithShoe(shoe.ID))
	assert.ErrorIs(t, err, tracker.ErrShoeRetired)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.AddRun(cancelled, models.NewRun(testUser, day(t, "2025-03-10"), 5, 1500))
	assert.ErrorIs(t, err, context.Canceled)

	runs, err := repo.ListRuns(testUser, storage.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	records, err := repo.GetRecords(testUser)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTracker_ShoeMileage(t *testing.T) {
	tr, repo := newTracker(t)
	ctx := context.Background()

	shoe := models.NewShoe(testUser, "Saucony", "Endorphin")
	require.NoError(t, tr.AddShoe(ctx, shoe))

	res, err := tr.AddRun(ctx, models.NewRun(testUser, day(t, "2025-03-10"), 8, 2600).WithShoe(shoe.ID))
	require.NoError(t, err)

	got, err := repo.GetShoe(testUser, shoe.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 8.0, got.TotalDistanceKm, 1e-9)

	_, err = tr.DeleteRun(ctx, testUser, res.Run.ID.String())
	require.NoError(t, err)

	got, err = repo.GetShoe(testUser, shoe.ID.String())
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got.TotalDistanceKm, 1e-9)

	assert.Error(t, tr.AddShoe(ctx, models.NewShoe(testUser, "", "")))
}

func TestTracker_DeleteRun_Recomputes(t *testing.T) {
	tr, repo := newTracker(t)
	ctx := context.Background()

	addRun(t, tr, "2025-03-08", 5.0, 1500)
	middle := addRun(t, tr, "2025-03-09", 5.0, 1400)
	addRun(t, tr, "2025-03-10", 10.0, 3000)

	deleted, err := tr.DeleteRun(ctx, testUser, middle.Run.ID.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, middle.Run.ID, deleted.ID)

	recs, err := repo.GetRecords(testUser)
	require.NoError(t, err)
	byType := map[models.RecordType]float64{}
	for _, rec := range recs {
		byType[rec.RecordType] = rec.Value
	}
	assert.Equal(t, 1500.0, byType[models.Record5K])
	assert.Equal(t, 3000.0, byType[models.Record10K])
	assert.Equal(t, 10.0, byType[models.RecordLongest])

	streaks, err := repo.ListStreaks(testUser)
	require.NoError(t, err)
	require.Len(t, streaks, 2)
	assert.Equal(t, 1, streaks[0].Length)
	assert.Equal(t, 1, streaks[1].Length)
	assert.True(t, streaks[1].IsActive)

	_, err = tr.DeleteRun(ctx, testUser, middle.Run.ID.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTracker_Reports(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	addRun(t, tr, "2025-02-20", 12, 3900)
	addRun(t, tr, "2025-03-03", 5, 1500)
	addRun(t, tr, "2025-03-10", 10, 3000)

	week, err := tr.NamedStats(ctx, testUser, "week")
	require.NoError(t, err)
	assert.Equal(t, 1, week.Summary.TotalRuns)
	assert.InDelta(t, 10.0, week.Summary.TotalDistanceKm, 1e-9)

	all, err := tr.NamedStats(ctx, testUser, "all")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Summary.TotalRuns)

	_, err = tr.NamedStats(ctx, testUser, "decade")
	assert.Error(t, err)

	target := 30.0
	goal := models.NewGoal(testUser, day(t, "2025-03-15"))
	goal.TargetDistanceKm = &target
	require.NoError(t, tr.SetGoal(ctx, goal))

	month, err := tr.MonthReport(ctx, testUser, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 2, month.Summary.TotalRuns)
	require.NotNil(t, month.Goal)
	require.NotNil(t, month.Goal.DistancePct)
	assert.InDelta(t, 50.0, *month.Goal.DistancePct, 1e-9)
	assert.False(t, month.Goal.Met)

	feb, err := tr.MonthReport(ctx, testUser, 2025, time.February)
	require.NoError(t, err)
	assert.Nil(t, feb.Goal)

	year, err := tr.YearReport(ctx, testUser, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, year.Summary.TotalRuns)
	assert.Len(t, year.Months, 12)

	cmp, err := tr.CompareWeeks(ctx, testUser)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, cmp.ThisWeek.Summary.TotalDistanceKm, 1e-9)
	assert.InDelta(t, 5.0, cmp.LastWeek.Summary.TotalDistanceKm, 1e-9)
	require.NotNil(t, cmp.DistanceChangePct)
	assert.InDelta(t, 100.0, *cmp.DistanceChangePct, 1e-9)

	assert.Error(t, tr.SetGoal(ctx, models.NewGoal(testUser, day(t, "2025-03-01"))))
}

func TestTracker_PredictAndZones(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	_, err := tr.Predict(ctx, testUser)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)

	for i, d := range []string{"2025-03-01", "2025-03-05", "2025-03-09"} {
		r := models.NewRun(testUser, day(t, d), 5, 1500+i*10).WithHeartRate(130 + i*20)
		_, err := tr.AddRun(ctx, r)
		require.NoError(t, err)
	}

	preds, err := tr.Predict(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, preds.Races, 4)
	assert.Equal(t, 3, preds.DataQuality.TotalRuns)

	w, err := analytics.NamedWindow("month", tr.Today())
	require.NoError(t, err)

	zones, err := tr.Zones(ctx, testUser, w, 0)
	require.NoError(t, err)
	assert.Equal(t, 190, zones.MaxHR)
	assert.Equal(t, 3, zones.RunsWithHR)

	zones, err = tr.Zones(ctx, testUser, w, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, zones.MaxHR)
}

func TestTracker_Dashboard(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	addRun(t, tr, "2025-03-09", 5, 1500)
	addRun(t, tr, "2025-03-10", 8, 2500)

	dash, err := tr.Dashboard(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Week.Summary.TotalRuns, "Sunday belongs to the previous week")
	assert.Equal(t, 2, dash.Month.Summary.TotalRuns)
	assert.Equal(t, 2, dash.Year.Summary.TotalRuns)
	assert.InDelta(t, 5.0, dash.Comparison.LastWeek.Summary.TotalDistanceKm, 1e-9)
	assert.Equal(t, 2, dash.Streak.Current)
	assert.NotEmpty(t, dash.Records)
	assert.Nil(t, dash.Predictions)
	assert.Nil(t, dash.Zones)
	assert.Len(t, dash.Notes, 2)
}

// TestTracker_RandomHistoryMatchesReplay adds a random history in random order and
// checks the incrementally maintained records and streaks against a full replay.
func TestTracker_RandomHistoryMatchesReplay(t *testing.T) {
	faker := gofakeit.New(42)

	for round := 0; round < 5; round++ {
		t.Run(fmt.Sprintf("round-%d", round), func(t *testing.T) {
			tr, repo := newTracker(t)
			start := day(t, "2025-01-01")

			var runs []*models.Run
			for i := 0; i < 25; i++ {
				km := faker.Float64Range(3, 25)
				secPerKm := faker.Float64Range(270, 420)
				d := start.AddDays(faker.Number(0, 40))
				run := models.NewRun(testUser, d, km, int(km*secPerKm))
				_, err := tr.AddRun(context.Background(), run)
				require.NoError(t, err)
				runs = append(runs, run)
			}

			assertMatchesReplay(t, repo, runs)
		})
	}
}

func TestTracker_ConcurrentAddRun(t *testing.T) {
	tr, repo := newTracker(t)
	faker := gofakeit.New(7)
	start := day(t, "2025-02-01")

	runs := make([]*models.Run, 20)
	for i := range runs {
		km := faker.Float64Range(4, 12)
		runs[i] = models.NewRun(testUser, start.AddDays(faker.Number(0, 20)), km, int(km*faker.Float64Range(280, 400)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(runs))
	for _, r := range runs {
		wg.Add(1)
		go func(r *models.Run) {
			defer wg.Done()
			if _, err := tr.AddRun(context.Background(), r); err != nil {
				errs <- err
			}
		}(r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("AddRun failed: %v", err)
	}

	assertMatchesReplay(t, repo, runs)
}

func assertMatchesReplay(t *testing.T, repo storage.Repository, runs []*models.Run) {
	t.Helper()

	want := map[models.RecordType]float64{}
	for _, rec := range analytics.BestRecords(testUser, runs) {
		want[rec.RecordType] = rec.Value
	}
	recs, err := repo.GetRecords(testUser)
	require.NoError(t, err)
	got := map[models.RecordType]float64{}
	for _, rec := range recs {
		got[rec.RecordType] = rec.Value
	}
	assert.Equal(t, want, got)

	type span struct {
		Start  civil.Date
		Length int
		Active bool
	}
	var wantSpans []span
	for _, s := range analytics.Rebuild(testUser, analytics.DistinctDates(runs)) {
		wantSpans = append(wantSpans, span{s.StartDate, s.Length, s.IsActive})
	}
	streaks, err := repo.ListStreaks(testUser)
	require.NoError(t, err)
	sort.Slice(streaks, func(i, j int) bool { return streaks[i].StartDate.Before(streaks[j].StartDate) })
	var gotSpans []span
	for _, s := range streaks {
		gotSpans = append(gotSpans, span{s.StartDate, s.Length, s.IsActive})
	}
	assert.Equal(t, wantSpans, gotSpans)

	active, err := repo.GetActiveStreak(testUser)
	if errors.Is(err, storage.ErrNotFound) {
		assert.Empty(t, wantSpans)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, wantSpans[len(wantSpans)-1].Start, active.StartDate)
}
