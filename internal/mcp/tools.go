// ABOUTME: MCP tool implementations for run logging and analytics.
// ABOUTME: Wraps tracker operations: runs, stats, records, streaks, predictions, zones, gear, goals.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_run",
		Description: "Log a run. Updates personal records, the running streak and shoe mileage.",
	}, s.handleAddRun)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent runs, newest first, optionally within a date range",
	}, s.handleListRuns)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_run",
		Description: "Get a run by ID or ID prefix",
	}, s.handleGetRun)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_run",
		Description: "Delete a run by ID or ID prefix. Records and streaks are recomputed.",
	}, s.handleDeleteRun)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_stats",
		Description: "Distance, time and pace totals for this week, month, year, all time or a date range",
	}, s.handleGetStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_month_report",
		Description: "Calendar month report with weekly buckets and goal progress",
	}, s.handleMonthReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_year_report",
		Description: "Calendar year report with monthly buckets, longest streak and most active weekday",
	}, s.handleYearReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "compare_weeks",
		Description: "Compare this week's running with last week's",
	}, s.handleCompareWeeks)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_records",
		Description: "Personal records: 5K, 10K, half, marathon, longest run and fastest pace",
	}, s.handleGetRecords)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_streak",
		Description: "Current and longest running streak in consecutive days",
	}, s.handleGetStreak)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "predict_races",
		Description: "Predict 5K, 10K, half and full marathon times from the last 3 months of runs",
	}, s.handlePredictRaces)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_zones",
		Description: "Heart rate zone distribution and 80/20 easy/hard balance",
	}, s.handleGetZones)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "One-shot overview: stats, records, streak, predictions, zones and shoes",
	}, s.handleDashboard)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_shoe",
		Description: "Register a pair of running shoes for mileage tracking",
	}, s.handleAddShoe)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_shoes",
		Description: "List shoes with accumulated mileage",
	}, s.handleListShoes)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_goal",
		Description: "Set a monthly distance and/or run count goal",
	}, s.handleSetGoal)
}

// Tool input/output types

type addRunInput struct {
	Date           string  `json:"date,omitempty" jsonschema:"Run date (YYYY-MM-DD, today or yesterday), defaults to today"`
	DistanceKm     float64 `json:"distance_km" jsonschema:"Distance in kilometers"`
	Duration       string  `json:"duration,omitempty" jsonschema:"Duration as mm:ss or h:mm:ss"`
	DurationS      int     `json:"duration_s,omitempty" jsonschema:"Duration in seconds, used when duration is empty"`
	AvgHeartRate   int     `json:"avg_heart_rate,omitempty" jsonschema:"Average heart rate in bpm"`
	ElevationGainM float64 `json:"elevation_gain_m,omitempty" jsonschema:"Elevation gain in meters"`
	ShoeID         string  `json:"shoe_id,omitempty" jsonschema:"Shoe ID or prefix"`
	Notes          string  `json:"notes,omitempty" jsonschema:"Optional notes"`
}

type runOutput struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	DistanceKm float64  `json:"distance_km"`
	Duration   string   `json:"duration"`
	Pace       string   `json:"pace"`
	NewRecords []string `json:"new_records,omitempty"`
	StreakDays int      `json:"streak_days"`
	Message    string   `json:"message"`
}

type listRunsInput struct {
	From  string `json:"from,omitempty" jsonschema:"Earliest date (YYYY-MM-DD)"`
	To    string `json:"to,omitempty" jsonschema:"Latest date (YYYY-MM-DD)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type idInput struct {
	ID string `json:"id" jsonschema:"ID or ID prefix"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type statsInput struct {
	Period string `json:"period,omitempty" jsonschema:"week, month, year or all (default week)"`
	From   string `json:"from,omitempty" jsonschema:"Range start (YYYY-MM-DD), overrides period"`
	To     string `json:"to,omitempty" jsonschema:"Range end (YYYY-MM-DD), overrides period"`
}

type monthInput struct {
	Month string `json:"month,omitempty" jsonschema:"Month as YYYY-MM, defaults to the current month"`
}

type yearInput struct {
	Year int `json:"year,omitempty" jsonschema:"Calendar year, defaults to the current year"`
}

type emptyInput struct{}

type recordOutput struct {
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Display    string  `json:"display"`
	AchievedAt string  `json:"achieved_at"`
	RunID      string  `json:"run_id"`
}

type recordsOutput struct {
	Records []recordOutput `json:"records"`
	Message string         `json:"message,omitempty"`
}

type zonesInput struct {
	Period string `json:"period,omitempty" jsonschema:"week, month, year or all (default month)"`
	MaxHR  int    `json:"max_hr,omitempty" jsonschema:"Max heart rate override in bpm"`
}

type addShoeInput struct {
	Brand    string `json:"brand" jsonschema:"Shoe brand"`
	Model    string `json:"model" jsonschema:"Shoe model"`
	Nickname string `json:"nickname,omitempty" jsonschema:"Optional nickname"`
}

type listShoesInput struct {
	IncludeRetired bool `json:"include_retired,omitempty" jsonschema:"Include retired shoes"`
}

type setGoalInput struct {
	Month      string  `json:"month,omitempty" jsonschema:"Month as YYYY-MM, defaults to the current month"`
	DistanceKm float64 `json:"distance_km,omitempty" jsonschema:"Target distance in kilometers"`
	Runs       int     `json:"runs,omitempty" jsonschema:"Target number of runs"`
}

// Tool handlers

func (s *Server) handleAddRun(ctx context.Context, req *mcp.CallToolRequest, input addRunInput) (*mcp.CallToolResult, runOutput, error) {
	date, err := analytics.ParseDay(input.Date, s.tracker.Today())
	if err != nil {
		return nil, runOutput{}, err
	}

	secs := input.DurationS
	if input.Duration != "" {
		if secs, err = models.ParseDuration(input.Duration); err != nil {
			return nil, runOutput{}, err
		}
	}

	run := models.NewRun(s.userID, date, input.DistanceKm, secs)
	if input.AvgHeartRate > 0 {
		run.WithHeartRate(input.AvgHeartRate)
	}
	if input.ElevationGainM > 0 {
		run.WithElevationGain(input.ElevationGainM)
	}
	if input.ShoeID != "" {
		shoe, err := s.tracker.Shoe(ctx, s.userID, input.ShoeID)
		if err != nil {
			return nil, runOutput{}, fmt.Errorf("shoe not found: %s", input.ShoeID)
		}
		run.WithShoe(shoe.ID)
	}
	if input.Notes != "" {
		run.WithNotes(input.Notes)
	}

	res, err := s.tracker.AddRun(ctx, run)
	if err != nil {
		if res != nil {
			s.logger.Error("run saved but derived state failed", "id", run.ID, "err", err)
		}
		return nil, runOutput{}, fmt.Errorf("failed to add run: %w", err)
	}

	out := runOutput{
		ID:         run.ID.String()[:8],
		Date:       run.Date.String(),
		DistanceKm: run.DistanceKm,
		Duration:   models.FormatDuration(run.DurationS),
		Pace:       models.FormatPace(run.Pace()),
	}
	for _, d := range res.NewRecords {
		out.NewRecords = append(out.NewRecords, d.Type.Label())
	}
	if res.Streak != nil {
		out.StreakDays = res.Streak.Length
	}

	out.Message = fmt.Sprintf("Logged %.2f km in %s (%s /km) on %s (ID: %s)",
		out.DistanceKm, out.Duration, out.Pace, out.Date, out.ID)
	if len(out.NewRecords) > 0 {
		out.Message += ". New records: " + strings.Join(out.NewRecords, ", ")
	}
	if out.StreakDays > 1 {
		out.Message += fmt.Sprintf(". Streak: %d days", out.StreakDays)
	}
	return nil, out, nil
}

func (s *Server) handleListRuns(ctx context.Context, req *mcp.CallToolRequest, input listRunsInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	filter := storage.RunFilter{Limit: input.Limit}
	var err error
	if input.From != "" {
		if filter.From, err = analytics.ParseDay(input.From, s.tracker.Today()); err != nil {
			return nil, nil, err
		}
	}
	if input.To != "" {
		if filter.To, err = analytics.ParseDay(input.To, s.tracker.Today()); err != nil {
			return nil, nil, err
		}
	}

	runs, err := s.tracker.ListRuns(ctx, s.userID, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		return nil, map[string]interface{}{"message": "No runs found."}, nil
	}

	return nil, map[string]interface{}{"runs": runs, "count": len(runs)}, nil
}

func (s *Server) handleGetRun(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, any, error) {
	run, err := s.tracker.GetRun(ctx, s.userID, input.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("run not found: %s", input.ID)
	}
	return nil, run, nil
}

func (s *Server) handleDeleteRun(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, simpleOutput, error) {
	run, err := s.tracker.DeleteRun(ctx, s.userID, input.ID)
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete run: %w", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted run %s (%.2f km on %s)", run.ID.String()[:8], run.DistanceKm, run.Date),
	}, nil
}

func (s *Server) handleGetStats(ctx context.Context, req *mcp.CallToolRequest, input statsInput) (*mcp.CallToolResult, any, error) {
	w, err := s.window(input.Period, analytics.WindowWeek, input.From, input.To)
	if err != nil {
		return nil, nil, err
	}
	report, err := s.tracker.Stats(ctx, s.userID, w)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return nil, report, nil
}

func (s *Server) handleMonthReport(ctx context.Context, req *mcp.CallToolRequest, input monthInput) (*mcp.CallToolResult, any, error) {
	month, err := analytics.ParseMonth(input.Month, s.tracker.Today())
	if err != nil {
		return nil, nil, err
	}
	report, err := s.tracker.MonthReport(ctx, s.userID, month.Year, month.Month)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build month report: %w", err)
	}
	return nil, report, nil
}

func (s *Server) handleYearReport(ctx context.Context, req *mcp.CallToolRequest, input yearInput) (*mcp.CallToolResult, any, error) {
	year := input.Year
	if year == 0 {
		year = s.tracker.Today().Year
	}
	report, err := s.tracker.YearReport(ctx, s.userID, year)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build year report: %w", err)
	}
	return nil, report, nil
}

func (s *Server) handleCompareWeeks(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	cmp, err := s.tracker.CompareWeeks(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compare weeks: %w", err)
	}
	return nil, cmp, nil
}

func (s *Server) handleGetRecords(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, recordsOutput, error) {
	recs, err := s.tracker.Records(ctx, s.userID)
	if err != nil {
		return nil, recordsOutput{}, fmt.Errorf("failed to get records: %w", err)
	}

	out := recordsOutput{Records: []recordOutput{}}
	for _, rec := range recs {
		out.Records = append(out.Records, recordOutput{
			Type:       string(rec.RecordType),
			Label:      rec.RecordType.Label(),
			Value:      rec.Value,
			Unit:       rec.RecordType.Unit(),
			Display:    rec.RecordType.FormatValue(rec.Value),
			AchievedAt: rec.AchievedAt.String(),
			RunID:      rec.RunID.String()[:8],
		})
	}
	if len(out.Records) == 0 {
		out.Message = "No personal records yet."
	}
	return nil, out, nil
}

func (s *Server) handleGetStreak(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	snap, err := s.tracker.Streak(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return nil, snap, nil
}

func (s *Server) handlePredictRaces(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	preds, err := s.tracker.Predict(ctx, s.userID)
	if errors.Is(err, analytics.ErrInsufficientData) {
		return nil, map[string]interface{}{"message": err.Error()}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to predict races: %w", err)
	}
	return nil, preds, nil
}

func (s *Server) handleGetZones(ctx context.Context, req *mcp.CallToolRequest, input zonesInput) (*mcp.CallToolResult, any, error) {
	w, err := s.window(input.Period, analytics.WindowMonth, "", "")
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.tracker.Zones(ctx, s.userID, w, input.MaxHR)
	if errors.Is(err, analytics.ErrInsufficientData) {
		return nil, map[string]interface{}{"message": err.Error()}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute zones: %w", err)
	}
	return nil, map[string]interface{}{
		"profile": profile,
		"verdict": profile.Compliance.Message(),
	}, nil
}

func (s *Server) handleDashboard(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	dash, err := s.tracker.Dashboard(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return nil, dash, nil
}

func (s *Server) handleAddShoe(ctx context.Context, req *mcp.CallToolRequest, input addShoeInput) (*mcp.CallToolResult, simpleOutput, error) {
	shoe := models.NewShoe(s.userID, input.Brand, input.Model)
	if input.Nickname != "" {
		shoe.WithNickname(input.Nickname)
	}
	if err := s.tracker.AddShoe(ctx, shoe); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to add shoe: %w", err)
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Added shoe %s (ID: %s)", shoe.DisplayName(), shoe.ID.String()[:8]),
	}, nil
}

func (s *Server) handleListShoes(ctx context.Context, req *mcp.CallToolRequest, input listShoesInput) (*mcp.CallToolResult, any, error) {
	shoes, err := s.tracker.Shoes(ctx, s.userID, input.IncludeRetired)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list shoes: %w", err)
	}
	if len(shoes) == 0 {
		return nil, map[string]interface{}{"message": "No shoes found."}, nil
	}
	return nil, map[string]interface{}{"shoes": shoes}, nil
}

func (s *Server) handleSetGoal(ctx context.Context, req *mcp.CallToolRequest, input setGoalInput) (*mcp.CallToolResult, simpleOutput, error) {
	month, err := analytics.ParseMonth(input.Month, s.tracker.Today())
	if err != nil {
		return nil, simpleOutput{}, err
	}

	goal := models.NewGoal(s.userID, month)
	if input.DistanceKm > 0 {
		goal.TargetDistanceKm = &input.DistanceKm
	}
	if input.Runs > 0 {
		goal.TargetRuns = &input.Runs
	}
	if err := s.tracker.SetGoal(ctx, goal); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to set goal: %w", err)
	}

	var parts []string
	if goal.TargetDistanceKm != nil {
		parts = append(parts, fmt.Sprintf("%.1f km", *goal.TargetDistanceKm))
	}
	if goal.TargetRuns != nil {
		parts = append(parts, fmt.Sprintf("%d runs", *goal.TargetRuns))
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Goal for %s: %s", goal.Month.In(time.UTC).Format("January 2006"), strings.Join(parts, ", ")),
	}, nil
}

// window resolves a named period, or an explicit range when from or to is set.
func (s *Server) window(period, fallback, from, to string) (analytics.Window, error) {
	today := s.tracker.Today()
	if from != "" || to != "" {
		var start, end civil.Date
		var err error
		if from != "" {
			if start, err = analytics.ParseDay(from, today); err != nil {
				return analytics.Window{}, err
			}
		}
		if to != "" {
			if end, err = analytics.ParseDay(to, today); err != nil {
				return analytics.Window{}, err
			}
		}
		return analytics.RangeWindow(start, end)
	}
	if period == "" {
		period = fallback
	}
	return analytics.NamedWindow(period, today)
}
