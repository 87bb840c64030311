// ABOUTME: Dashboard view combining stats, records, streaks, predictions and zones.
// ABOUTME: Sections load concurrently; insufficient-data sections are left empty.
package tracker

import (
	"context"
	"errors"

	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the one-screen overview of a user's running.
type Dashboard struct {
	Week        analytics.WindowReport   `json:"week"`
	Month       analytics.WindowReport   `json:"month"`
	Year        analytics.WindowReport   `json:"year"`
	Records     []*models.PersonalRecord `json:"records"`
	Streak      analytics.StreakSnapshot `json:"streak"`
	Predictions *analytics.Predictions   `json:"predictions,omitempty"`
	Zones       *analytics.ZoneProfile   `json:"zones,omitempty"`
	Shoes       []*models.Shoe           `json:"shoes"`
	Comparison  analytics.WeekComparison `json:"comparison"`
	Notes       []string                 `json:"notes,omitempty"`
}

// Dashboard loads every section. Zones cover the current month.
func (t *Tracker) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	today := t.Today()
	d := &Dashboard{}

	var predictErr, zonesErr error

	g, ctx := errgroup.WithContext(ctx)
	for name, dst := range map[string]*analytics.WindowReport{
		analytics.WindowWeek:  &d.Week,
		analytics.WindowMonth: &d.Month,
		analytics.WindowYear:  &d.Year,
	} {
		name, dst := name, dst
		g.Go(func() error {
			report, err := t.NamedStats(ctx, userID, name)
			if err != nil {
				return err
			}
			*dst = report
			return nil
		})
	}
	g.Go(func() (err error) {
		d.Records, err = t.Records(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Streak, err = t.Streak(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Comparison, err = t.CompareWeeks(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Shoes, err = t.Shoes(ctx, userID, false)
		return err
	})
	g.Go(func() error {
		p, err := t.Predict(ctx, userID)
		if errors.Is(err, analytics.ErrInsufficientData) {
			predictErr = err
			return nil
		}
		d.Predictions = p
		return err
	})
	g.Go(func() error {
		z, err := t.Zones(ctx, userID, analytics.MonthWindow(today.Year, today.Month), 0)
		if errors.Is(err, analytics.ErrInsufficientData) {
			zonesErr = err
			return nil
		}
		d.Zones = z
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, err := range []error{predictErr, zonesErr} {
		if err != nil {
			d.Notes = append(d.Notes, err.Error())
		}
	}
	return d, nil
}
