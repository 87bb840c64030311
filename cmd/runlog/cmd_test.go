// ABOUTME: Tests for runlog CLI commands and helper functions.
// ABOUTME: Drives the root command against a temporary SQLite store.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/harperreed/runlog/internal/config"
	"github.com/harperreed/runlog/internal/models"
	"github.com/harperreed/runlog/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const testUser = "tester"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"empty string", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPadding(t *testing.T) {
	if got := padRight("5K", 5); got != "5K   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padLeft("5K", 5); got != "   5K" {
		t.Errorf("padLeft = %q", got)
	}
	if got := padRight("longer", 3); got != "longer" {
		t.Errorf("padRight should not cut, got %q", got)
	}
	if got := padLeft("longer", 3); got != "longer" {
		t.Errorf("padLeft should not cut, got %q", got)
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "day", "days"); got != "day" {
		t.Errorf("plural(1) = %q", got)
	}
	for _, n := range []int{0, 2, 10} {
		if got := plural(n, "day", "days"); got != "days" {
			t.Errorf("plural(%d) = %q", n, got)
		}
	}
}

func TestRootCmdFlags(t *testing.T) {
	if rootCmd.Use != "runlog" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "runlog")
	}
	if rootCmd.Short == "" {
		t.Error("Expected rootCmd.Short to be non-empty")
	}
	for _, name := range []string{"backend", "data-dir", "user", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent --%s flag", name)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{
		"add", "list", "show", "delete", "stats", "month", "year", "compare",
		"records", "streak", "predict", "zones", "dashboard", "shoe", "goal",
		"export", "import", "migrate", "mcp", "sync", "config", "install-skill", "version",
	} {
		if !names[want] {
			t.Errorf("Expected %s command to be registered", want)
		}
	}
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		parent *cobra.Command
		want   []string
	}{
		{shoeCmd, []string{"add", "list", "retire"}},
		{goalCmd, []string{"set", "show"}},
		{syncCmd, []string{"link", "unlink", "status", "repair", "reset", "wipe"}},
		{configCmd, []string{"show", "set"}},
	}

	for _, tt := range tests {
		names := make(map[string]bool)
		for _, cmd := range tt.parent.Commands() {
			names[cmd.Name()] = true
		}
		for _, want := range tt.want {
			if !names[want] {
				t.Errorf("Expected %s %s subcommand", tt.parent.Name(), want)
			}
		}
	}
}

func TestAddCmdFlags(t *testing.T) {
	for _, name := range []string{"date", "hr", "elevation", "shoe", "notes"} {
		if addCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected --%s flag on add command", name)
		}
	}
	if addCmd.Flags().ShorthandLookup("d") == nil {
		t.Error("Expected -d shorthand for --date")
	}
}

func TestListCmdFlags(t *testing.T) {
	limitFlag := listCmd.Flags().Lookup("limit")
	if limitFlag == nil {
		t.Fatal("Expected --limit flag on list command")
	}
	if limitFlag.DefValue != "20" {
		t.Errorf("Expected default limit 20, got %s", limitFlag.DefValue)
	}
}

func TestCommandAliases(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		alias string
	}{
		{addCmd, "log"},
		{listCmd, "ls"},
		{deleteCmd, "rm"},
		{recordsCmd, "prs"},
		{dashboardCmd, "dash"},
	}
	for _, tt := range tests {
		found := false
		for _, a := range tt.cmd.Aliases {
			if a == tt.alias {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected alias %q on %s", tt.alias, tt.cmd.Name())
		}
	}
}

func TestExportCmdValidArgs(t *testing.T) {
	want := map[string]bool{"json": true, "yaml": true}
	if len(exportCmd.ValidArgs) != len(want) {
		t.Fatalf("Expected %d valid args, got %v", len(want), exportCmd.ValidArgs)
	}
	for _, arg := range exportCmd.ValidArgs {
		if !want[arg] {
			t.Errorf("Unexpected valid arg %q", arg)
		}
	}
}

func TestStorageFreeCommands(t *testing.T) {
	for _, cmd := range []*cobra.Command{
		syncLinkCmd, syncUnlinkCmd, syncRepairCmd, syncResetCmd, syncWipeCmd,
		configShowCmd, configSetCmd, installSkillCmd,
	} {
		if cmd.Annotations[skipStorage] != "true" {
			t.Errorf("Expected %s to skip opening storage", cmd.CommandPath())
		}
	}
	if syncStatusCmd.Annotations[skipStorage] == "true" {
		t.Error("sync status needs storage for its counts")
	}
}

func TestSetConfigValue(t *testing.T) {
	c := &config.Config{}

	for key, value := range map[string]string{
		"backend":    "badger",
		"data_dir":   "/tmp/runlog",
		"user_id":    "alice",
		"age":        "41",
		"max_hr":     "183",
		"log_level":  "debug",
		"charm_host": "charm.example.com",
	} {
		if err := setConfigValue(c, key, value); err != nil {
			t.Errorf("setConfigValue(%s) failed: %v", key, err)
		}
	}

	if c.Backend != "badger" || c.DataDir != "/tmp/runlog" || c.UserID != "alice" {
		t.Errorf("String values not applied: %+v", c)
	}
	if c.Age != 41 || c.MaxHR != 183 {
		t.Errorf("Numeric values not applied: age=%d max_hr=%d", c.Age, c.MaxHR)
	}

	if err := setConfigValue(c, "age", "forty"); err == nil {
		t.Error("Expected error for non-numeric age")
	}
	if err := setConfigValue(c, "shoe_size", "44"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

// setupTestCLI points config and data at temp directories and returns the
// data directory. Every command runs as testUser on the sqlite backend.
func setupTestCLI(t *testing.T) string {
	t.Helper()

	dataDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("RUNLOG_DATA_DIR", dataDir)
	t.Setenv("RUNLOG_BACKEND", "sqlite")
	t.Setenv("RUNLOG_USER", testUser)
	t.Setenv("RUNLOG_LOG_LEVEL", "error")

	t.Cleanup(func() {
		_ = closeStorage()
	})
	return dataDir
}

// resetFlags restores every flag to its default so commands do not leak
// state into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()

	// A failed RunE skips PersistentPostRunE, so close anything left open.
	_ = closeStorage()
	resetFlags(rootCmd)

	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func mustRun(t *testing.T, args ...string) {
	t.Helper()
	if err := runCLI(t, args...); err != nil {
		t.Fatalf("runlog %s failed: %v", strings.Join(args, " "), err)
	}
}

// openTestDB opens the CLI's sqlite store for assertions.
func openTestDB(t *testing.T, dataDir string) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(dataDir, "runlog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddCmdWithDB(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "add", "5", "25:00", "--date", "2025-03-10", "--hr", "150", "--elevation", "42", "-n", "easy loop")

	db := openTestDB(t, dataDir)
	runs, err := db.ListRuns(testUser, storage.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}

	r := runs[0]
	if r.DistanceKm != 5 || r.DurationS != 1500 {
		t.Errorf("Unexpected run: %.2f km in %ds", r.DistanceKm, r.DurationS)
	}
	if r.Date != (civil.Date{Year: 2025, Month: 3, Day: 10}) {
		t.Errorf("Unexpected date %s", r.Date)
	}
	if r.AvgHeartRate == nil || *r.AvgHeartRate != 150 {
		t.Errorf("Expected heart rate 150, got %v", r.AvgHeartRate)
	}
	if r.ElevationGainM == nil || *r.ElevationGainM != 42 {
		t.Errorf("Expected elevation 42, got %v", r.ElevationGainM)
	}
	if r.Notes == nil || *r.Notes != "easy loop" {
		t.Errorf("Expected notes, got %v", r.Notes)
	}

	recs, err := db.GetRecords(testUser)
	if err != nil {
		t.Fatalf("GetRecords failed: %v", err)
	}
	var has5K bool
	for _, rec := range recs {
		if rec.RecordType == models.Record5K {
			has5K = true
			if rec.Value != 1500 {
				t.Errorf("Expected 5K record 1500s, got %v", rec.Value)
			}
		}
	}
	if !has5K {
		t.Error("Expected a 5K record after the first 5 km run")
	}

	streak, err := db.GetActiveStreak(testUser)
	if err != nil {
		t.Fatalf("GetActiveStreak failed: %v", err)
	}
	if streak.Length != 1 {
		t.Errorf("Expected 1-day streak, got %d", streak.Length)
	}
}

func TestAddCmdFlagsDoNotLeak(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "add", "5", "25:00", "--date", "2025-03-10", "--hr", "150")
	mustRun(t, "add", "6", "31:00", "--date", "2025-03-11")

	db := openTestDB(t, dataDir)
	runs, err := db.ListRuns(testUser, storage.RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	// newest first
	if runs[0].AvgHeartRate != nil {
		t.Errorf("Second run should have no heart rate, got %d", *runs[0].AvgHeartRate)
	}
}

func TestAddCmdRejectsBadInput(t *testing.T) {
	setupTestCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{"non-numeric distance", []string{"add", "five", "25:00"}},
		{"zero distance", []string{"add", "0", "25:00"}},
		{"infinite distance", []string{"add", "inf", "25:00"}},
		{"NaN distance", []string{"add", "NaN", "25:00"}},
		{"bad duration", []string{"add", "5", "25:99"}},
		{"bad date", []string{"add", "5", "25:00", "--date", "2025-13-01"}},
		{"unknown shoe", []string{"add", "5", "25:00", "--shoe", "ffffffff"}},
		{"missing duration", []string{"add", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, tt.args...); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}

func TestShoeWorkflow(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "shoe", "add", "Nike", "Pegasus", "--nickname", "daily")

	db := openTestDB(t, dataDir)
	shoes, err := db.ListShoes(testUser, true)
	if err != nil || len(shoes) != 1 {
		t.Fatalf("Expected 1 shoe, got %d (%v)", len(shoes), err)
	}
	prefix := shoes[0].ID.String()[:8]

	mustRun(t, "add", "10", "50:00", "--date", "2025-03-10", "--shoe", prefix)
	mustRun(t, "add", "5", "26:00", "--date", "2025-03-11", "--shoe", prefix)
	mustRun(t, "shoe", "list")

	shoe, err := db.GetShoe(testUser, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if shoe.TotalDistanceKm != 15 {
		t.Errorf("Expected 15 km on shoe, got %.2f", shoe.TotalDistanceKm)
	}

	mustRun(t, "shoe", "retire", prefix)
	if err := runCLI(t, "add", "5", "26:00", "--date", "2025-03-12", "--shoe", prefix); err == nil {
		t.Error("Expected error logging a run on a retired shoe")
	}
	mustRun(t, "shoe", "list", "--all")
}

func TestDeleteCmdRecomputes(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "add", "5", "24:00", "--date", "2025-03-10")
	mustRun(t, "add", "5", "26:00", "--date", "2025-03-11")

	db := openTestDB(t, dataDir)
	runs, err := db.ListRuns(testUser, storage.RunFilter{})
	if err != nil || len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d (%v)", len(runs), err)
	}
	// runs[1] is the faster, older run holding the 5K record.
	mustRun(t, "delete", runs[1].ID.String()[:8])

	remaining, err := db.ListRuns(testUser, storage.RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 {
		t.Fatalf("Expected 1 run after delete, got %d", len(remaining))
	}

	recs, err := db.GetRecords(testUser)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range recs {
		if rec.RecordType == models.Record5K && rec.Value != 1560 {
			t.Errorf("Expected 5K record to fall back to 1560s, got %v", rec.Value)
		}
	}

	if err := runCLI(t, "delete", "ffffffff"); err == nil {
		t.Error("Expected error deleting an unknown run")
	}
}

func TestReportCommands(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "add", "5", "25:00", "--date", "2025-03-08", "--hr", "140")
	mustRun(t, "add", "10", "52:00", "--date", "2025-03-09", "--hr", "165")
	mustRun(t, "add", "21.1", "1:55:00", "--date", "2025-03-10", "--hr", "150")

	db := openTestDB(t, dataDir)
	runs, err := db.ListRuns(testUser, storage.RunFilter{Limit: 1})
	if err != nil || len(runs) != 1 {
		t.Fatalf("Expected a run, got %d (%v)", len(runs), err)
	}

	for _, args := range [][]string{
		{"list"},
		{"list", "--from", "2025-03-09", "-n", "5"},
		{"show", runs[0].ID.String()[:8]},
		{"stats"},
		{"stats", "-p", "all"},
		{"stats", "--from", "2025-03-01", "--to", "2025-03-31"},
		{"stats", "--from", "2025-03-09"},
		{"month", "2025-03"},
		{"year", "2025"},
		{"compare"},
		{"records"},
		{"streak"},
		{"predict"},
		{"zones", "-p", "all"},
		{"zones", "-p", "all", "--max-hr", "185"},
		{"dashboard"},
		{"dashboard", "--json"},
		{"version"},
	} {
		if err := runCLI(t, args...); err != nil {
			t.Errorf("runlog %s failed: %v", strings.Join(args, " "), err)
		}
	}
}

func TestReportCommandsRejectBadInput(t *testing.T) {
	setupTestCLI(t)

	for _, args := range [][]string{
		{"stats", "-p", "fortnight"},
		{"stats", "--from", "2025-03-31", "--to", "2025-03-01"},
		{"month", "March"},
		{"year", "twenty"},
		{"zones", "-p", "decade"},
		{"show", "ffffffff"},
	} {
		if err := runCLI(t, args...); err == nil {
			t.Errorf("Expected error for runlog %s", strings.Join(args, " "))
		}
	}
}

func TestGoalCommands(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "goal", "show", "--month", "2025-03")
	mustRun(t, "goal", "set", "--distance", "100", "--runs", "12", "--month", "2025-03")
	mustRun(t, "add", "10", "55:00", "--date", "2025-03-05")
	mustRun(t, "goal", "show", "--month", "2025-03")

	db := openTestDB(t, dataDir)
	goal, err := db.GetGoal(testUser, civil.Date{Year: 2025, Month: 3, Day: 1})
	if err != nil {
		t.Fatalf("GetGoal failed: %v", err)
	}
	if goal.TargetDistanceKm == nil || *goal.TargetDistanceKm != 100 {
		t.Errorf("Expected 100 km target, got %v", goal.TargetDistanceKm)
	}
	if goal.TargetRuns == nil || *goal.TargetRuns != 12 {
		t.Errorf("Expected 12 run target, got %v", goal.TargetRuns)
	}

	if err := runCLI(t, "goal", "set", "--month", "2025-04"); err == nil {
		t.Error("Expected error for a goal without targets")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "shoe", "add", "Asics", "Novablast")
	mustRun(t, "add", "5", "25:00", "--date", "2025-03-10")
	mustRun(t, "add", "8", "42:00", "--date", "2025-03-11")

	backup := filepath.Join(t.TempDir(), "backup.json")
	mustRun(t, "export", "json", "-o", backup)
	mustRun(t, "export", "yaml", "-o", filepath.Join(t.TempDir(), "backup.yaml"))

	if err := runCLI(t, "export", "csv"); err == nil {
		t.Error("Expected error for unknown export format")
	}

	freshDir := t.TempDir()
	t.Setenv("RUNLOG_DATA_DIR", freshDir)
	mustRun(t, "import", backup)

	db := openTestDB(t, freshDir)
	runs, err := db.ListRuns(testUser, storage.RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 imported runs, got %d", len(runs))
	}
	shoes, err := db.ListShoes(testUser, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(shoes) != 1 {
		t.Errorf("Expected 1 imported shoe, got %d", len(shoes))
	}

	if err := runCLI(t, "import", filepath.Join(freshDir, "missing.json")); err == nil {
		t.Error("Expected error importing a missing file")
	}
}

func TestMigrateToBadger(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "add", "5", "25:00", "--date", "2025-03-10")
	mustRun(t, "add", "6", "30:00", "--date", "2025-03-11")

	mustRun(t, "migrate", "--to", "badger", "--dry-run")
	if _, err := os.Stat(filepath.Join(dataDir, "badger")); !os.IsNotExist(err) {
		t.Error("Dry run should not create the destination")
	}

	mustRun(t, "migrate", "--to", "badger")

	if err := runCLI(t, "migrate", "--to", "badger"); err == nil {
		t.Error("Expected error migrating into a non-empty destination")
	}

	kv, err := storage.OpenBadger(filepath.Join(dataDir, "badger"))
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	dst := storage.NewKVStore(kv)
	defer dst.Close()

	runs, err := dst.ListRuns(testUser, storage.RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 migrated runs, got %d", len(runs))
	}
	streaks, err := dst.ListStreaks(testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(streaks) != 1 || streaks[0].Length != 2 {
		t.Errorf("Expected one 2-day streak, got %+v", streaks)
	}
}

func TestMigrateRejectsSameStore(t *testing.T) {
	setupTestCLI(t)

	if err := runCLI(t, "migrate", "--to", "sqlite"); err == nil {
		t.Error("Expected error migrating a store onto itself")
	}
	if err := runCLI(t, "migrate"); err == nil {
		t.Error("Expected error when --to is missing")
	}
}

func TestConfigSetAndShow(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "config", "set", "max_hr", "188")
	mustRun(t, "config", "show")

	saved, err := config.LoadFile()
	if err != nil {
		t.Fatal(err)
	}
	if saved.MaxHR != 188 {
		t.Errorf("Expected saved max_hr 188, got %d", saved.MaxHR)
	}
	if saved.Backend != "" {
		t.Errorf("Env backend must not be persisted, got %q", saved.Backend)
	}

	if err := runCLI(t, "config", "set", "max_hr", "999"); err == nil {
		t.Error("Expected error for out-of-range max_hr")
	}
	if err := runCLI(t, "config", "set", "favorite_route", "park"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestUserFlagScopesData(t *testing.T) {
	dataDir := setupTestCLI(t)

	mustRun(t, "add", "5", "25:00", "--date", "2025-03-10")
	mustRun(t, "--user", "someone-else", "add", "7", "35:00", "--date", "2025-03-10")

	db := openTestDB(t, dataDir)
	mine, err := db.ListRuns(testUser, storage.RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := db.ListRuns("someone-else", storage.RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || len(theirs) != 1 {
		t.Errorf("Expected one run per user, got %d and %d", len(mine), len(theirs))
	}
}
