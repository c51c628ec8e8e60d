package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/phaseplan/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func setupJSONStore(t *testing.T) (*JSONStore, models.Project) {
	t.Helper()
	store := NewJSONStore(filepath.Join(t.TempDir(), "phaseplan.json"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	project, err := store.AddProject(context.Background(), models.Project{
		Name:             "Website",
		StartDate:        date(2025, 1, 1),
		EndDate:          models.TimePtr(date(2025, 1, 31)),
		EstimatedHours:   28,
		AutoEstimateDays: models.DefaultWeekdayMask(),
	})
	if err != nil {
		t.Fatalf("AddProject() failed: %v", err)
	}
	return store, project
}

func TestJSONStore_InitTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phaseplan.json")
	if err := NewJSONStore(path).Init(); err != nil {
		t.Fatalf("first Init() failed: %v", err)
	}
	if err := NewJSONStore(path).Init(); err == nil {
		t.Error("second Init() should fail when the file exists")
	}
}

func TestJSONStore_NotLoaded(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))
	if err := store.Load(); err == nil {
		t.Error("Load() should fail before Init")
	}
	if _, err := store.ListPhasesForProject(context.Background(), "x"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestJSONStore_PhaseCRUD(t *testing.T) {
	ctx := context.Background()
	store, project := setupJSONStore(t)

	created, err := store.CreatePhase(ctx, models.Phase{
		ProjectID:      project.ID,
		Name:           "Phase 1",
		StartDate:      models.TimePtr(date(2025, 1, 1)),
		EndDate:        date(2025, 1, 16),
		TimeAllocation: 14,
	})
	if err != nil {
		t.Fatalf("CreatePhase() failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Error("CreatePhase() should assign ID and CreatedAt")
	}

	hours := 10.0
	if err := store.UpdatePhase(ctx, created.ID, models.PhasePatch{TimeAllocation: &hours}); err != nil {
		t.Fatalf("UpdatePhase() failed: %v", err)
	}

	got, err := store.GetPhase(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPhase() failed: %v", err)
	}
	if got.TimeAllocation != 10 {
		t.Errorf("TimeAllocation = %v, want 10", got.TimeAllocation)
	}
	if got.StartDate == nil || !got.StartDate.Equal(date(2025, 1, 1)) {
		t.Error("UpdatePhase() should leave the start date untouched")
	}

	if err := store.DeletePhase(ctx, created.ID); err != nil {
		t.Fatalf("DeletePhase() failed: %v", err)
	}
	if _, err := store.GetPhase(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeletePhase(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestJSONStore_CreatePhaseUnknownProject(t *testing.T) {
	store, _ := setupJSONStore(t)
	_, err := store.CreatePhase(context.Background(), models.Phase{ProjectID: "nope", Name: "x", EndDate: date(2025, 1, 2)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJSONStore_ListAndBatchDelete(t *testing.T) {
	ctx := context.Background()
	store, project := setupJSONStore(t)

	var ids []string
	for i, d := range []int{20, 6, 13} {
		p, err := store.CreatePhase(ctx, models.Phase{
			ProjectID:        project.ID,
			Name:             "Sync",
			EndDate:          date(2025, 1, d),
			TemplateID:       "tmpl",
			OccurrenceNumber: i + 1,
		})
		if err != nil {
			t.Fatalf("CreatePhase() failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	phases, err := store.ListPhasesForProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListPhasesForProject() failed: %v", err)
	}
	if len(phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(phases))
	}
	for i := 1; i < len(phases); i++ {
		if phases[i].EndDate.Before(phases[i-1].EndDate) {
			t.Error("phases should be ordered by end date")
		}
	}

	if err := store.DeletePhases(ctx, append(ids[:2], "unknown")); err != nil {
		t.Fatalf("DeletePhases() failed: %v", err)
	}
	phases, _ = store.ListPhasesForProject(ctx, project.ID)
	if len(phases) != 1 {
		t.Errorf("expected 1 phase after batch delete, got %d", len(phases))
	}
}

func TestJSONStore_PersistsAcrossLoad(t *testing.T) {
	ctx := context.Background()
	store, project := setupJSONStore(t)

	cfg := &models.RecurrenceConfig{Type: "weekly", Interval: 1, WeeklyDayOfWeek: models.IntPtr(0)}
	if _, err := store.CreatePhase(ctx, models.Phase{
		ProjectID:       project.ID,
		Name:            "Sync",
		EndDate:         date(2025, 1, 5),
		IsRecurring:     true,
		RecurringConfig: cfg,
	}); err != nil {
		t.Fatalf("CreatePhase() failed: %v", err)
	}
	if _, err := store.AddHoliday(ctx, models.Holiday{Date: date(2025, 1, 20), Name: "MLK Day"}); err != nil {
		t.Fatalf("AddHoliday() failed: %v", err)
	}

	reloaded := NewJSONStore(store.GetConfigPath())
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	phases, err := reloaded.ListPhasesForProject(ctx, project.ID)
	if err != nil || len(phases) != 1 {
		t.Fatalf("expected 1 phase after reload, got %d (err %v)", len(phases), err)
	}
	got := phases[0].RecurringConfig
	if got == nil || got.WeeklyDayOfWeek == nil || *got.WeeklyDayOfWeek != 0 {
		t.Errorf("recurrence config did not round trip: %+v", got)
	}

	holidays, _ := reloaded.GetHolidays(ctx)
	if len(holidays) != 1 || holidays[0].Name != "MLK Day" {
		t.Errorf("unexpected holidays after reload: %+v", holidays)
	}
}

func TestJSONStore_DeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	store, project := setupJSONStore(t)

	if _, err := store.CreatePhase(ctx, models.Phase{ProjectID: project.ID, Name: "x", EndDate: date(2025, 1, 2)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddEvent(ctx, models.CalendarEvent{ProjectID: project.ID, Title: "Kickoff", Date: date(2025, 1, 2), Hours: 2}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject() failed: %v", err)
	}

	phases, _ := store.ListPhasesForProject(ctx, project.ID)
	events, _ := store.GetEventsForProject(ctx, project.ID)
	if len(phases) != 0 || len(events) != 0 {
		t.Errorf("expected phases and events to be removed, got %d phases %d events", len(phases), len(events))
	}
}
