package recurring

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/config"
	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/lifecycle"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/storage/sqlite"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer, func()) {
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Ctx:    context.Background(),
		Store:  store,
		Config: config.Default(),
		Out:    out,
		Coordinator: lifecycle.New(store, lifecycle.WithClock(func() time.Time {
			return date(2025, 1, 1)
		})),
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	}
	return ctx, out, cleanup
}

func addProject(t *testing.T, ctx *cli.Context) models.Project {
	t.Helper()
	p, err := ctx.Store.AddProject(ctx.Ctx, models.Project{
		Name:             "Website",
		StartDate:        date(2025, 1, 1),
		EndDate:          models.TimePtr(date(2025, 3, 31)),
		EstimatedHours:   40,
		AutoEstimateDays: models.DefaultWeekdayMask(),
	})
	if err != nil {
		t.Fatalf("failed to add project: %v", err)
	}
	return p
}

func TestRecurringSetCmd_Config(t *testing.T) {
	weekly := &RecurringSetCmd{Type: "weekly", Interval: 2, Weekday: "thu"}
	cfg, err := weekly.Config()
	if err != nil {
		t.Fatalf("weekly config failed: %v", err)
	}
	if cfg.Type != constants.RecurrenceWeekly || cfg.Interval != 2 || cfg.WeeklyDayOfWeek == nil || *cfg.WeeklyDayOfWeek != 4 {
		t.Errorf("unexpected weekly config: %+v", cfg)
	}

	byDate := &RecurringSetCmd{Type: "monthly", Interval: 1, Day: 15}
	cfg, err = byDate.Config()
	if err != nil {
		t.Fatalf("monthly date config failed: %v", err)
	}
	if cfg.MonthlyPattern != constants.MonthlyPatternDate || cfg.MonthlyDate == nil || *cfg.MonthlyDate != 15 {
		t.Errorf("unexpected monthly date config: %+v", cfg)
	}

	byWeekday := &RecurringSetCmd{Type: "monthly", Interval: 1, Week: "last", Weekday: "fri"}
	cfg, err = byWeekday.Config()
	if err != nil {
		t.Fatalf("monthly weekday config failed: %v", err)
	}
	if cfg.MonthlyPattern != constants.MonthlyPatternDayOfWeek ||
		cfg.MonthlyWeekOfMonth == nil || *cfg.MonthlyWeekOfMonth != constants.WeekOfMonthLast ||
		cfg.MonthlyDayOfWeek == nil || *cfg.MonthlyDayOfWeek != 5 {
		t.Errorf("unexpected monthly weekday config: %+v", cfg)
	}

	if _, err := (&RecurringSetCmd{Type: "weekly", Interval: 1, Weekday: "funday"}).Config(); err == nil {
		t.Error("expected an error for an unknown weekday")
	}
}

func TestRecurringSetCmd_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     RecurringSetCmd
		wantErr bool
	}{
		{"daily", RecurringSetCmd{Type: "daily"}, false},
		{"weekly without weekday", RecurringSetCmd{Type: "weekly"}, true},
		{"monthly with day", RecurringSetCmd{Type: "monthly", Day: 10}, false},
		{"monthly with day and week", RecurringSetCmd{Type: "monthly", Day: 10, Week: "1", Weekday: "mon"}, true},
		{"monthly with neither", RecurringSetCmd{Type: "monthly"}, true},
		{"monthly week without weekday", RecurringSetCmd{Type: "monthly", Week: "2"}, true},
	}
	for _, tt := range tests {
		err := tt.cmd.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestRecurringLifecycle(t *testing.T) {
	ctx, out, cleanup := setupTestDB(t)
	defer cleanup()
	project := addProject(t, ctx)

	set := &RecurringSetCmd{Project: "website", Name: "Weekly sync", Type: "weekly", Interval: 1, Hours: 1, Weekday: "mon"}
	if err := set.Run(ctx); err != nil {
		t.Fatalf("recurring set failed: %v", err)
	}
	if !strings.Contains(out.String(), "13 occurrence(s) scheduled") {
		t.Errorf("unexpected set output: %s", out.String())
	}

	state, err := ctx.Coordinator.LoadState(ctx.Ctx, project.ID)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.Pattern.Kind != lifecycle.PatternTemplate {
		t.Fatalf("pattern kind = %v, want template", state.Pattern.Kind)
	}

	out.Reset()
	show := &RecurringShowCmd{Project: project.ID, Limit: 3}
	if err := show.Run(ctx); err != nil {
		t.Fatalf("recurring show failed: %v", err)
	}
	if !strings.Contains(out.String(), "Weekly sync") {
		t.Errorf("show output missing series name: %s", out.String())
	}

	load := &RecurringLoadCmd{Project: project.ID, Hours: 2, Mode: "forward"}
	if err := load.Run(ctx); err != nil {
		t.Fatalf("recurring load failed: %v", err)
	}
	state, err = ctx.Coordinator.LoadState(ctx.Ctx, project.ID)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	for _, occ := range state.Pattern.Instances {
		if occ.TimeAllocation != 2 {
			t.Errorf("occurrence %d has %v hours, want 2", occ.OccurrenceNumber, occ.TimeAllocation)
		}
	}

	ctx.Confirm = func(string, string) (bool, error) { return false, nil }
	del := &RecurringDeleteCmd{Project: project.ID}
	if err := del.Run(ctx); !errors.Is(err, cli.ErrCancelled) {
		t.Fatalf("declined delete error = %v, want ErrCancelled", err)
	}

	ctx.AssumeYes = true
	out.Reset()
	if err := del.Run(ctx); err != nil {
		t.Fatalf("recurring delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 14 recurring phase(s)") {
		t.Errorf("unexpected delete output: %s", out.String())
	}
}

func TestRecurringShowCmd_TopsUpContinuousSeries(t *testing.T) {
	ctx, _, cleanup := setupTestDB(t)
	defer cleanup()

	today := date(2025, 1, 1)
	ctx.Coordinator = lifecycle.New(ctx.Store, lifecycle.WithClock(func() time.Time { return today }))
	project, err := ctx.Store.AddProject(ctx.Ctx, models.Project{
		Name:             "Retainer",
		StartDate:        date(2025, 1, 1),
		Continuous:       true,
		AutoEstimateDays: models.DefaultWeekdayMask(),
	})
	if err != nil {
		t.Fatalf("failed to add project: %v", err)
	}

	set := &RecurringSetCmd{Project: project.ID, Name: "Weekly sync", Type: "weekly", Interval: 1, Hours: 1, Weekday: "mon"}
	if err := set.Run(ctx); err != nil {
		t.Fatalf("recurring set failed: %v", err)
	}

	today = date(2025, 4, 1)
	show := &RecurringShowCmd{Project: project.ID, Limit: 3}
	if err := show.Run(ctx); err != nil {
		t.Fatalf("recurring show failed: %v", err)
	}

	state, err := ctx.Coordinator.LoadState(ctx.Ctx, project.ID)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.Materialized != 39 {
		t.Errorf("materialized = %d after show, want 39", state.Materialized)
	}
}

func TestRecurringEnsureCmd_UnknownProject(t *testing.T) {
	ctx, _, cleanup := setupTestDB(t)
	defer cleanup()

	cmd := &RecurringEnsureCmd{Projects: []string{"nope"}}
	if err := cmd.Run(ctx); err == nil {
		t.Error("expected an error for an unknown project")
	}
}
