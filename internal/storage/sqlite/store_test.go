package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func setupTestStore(t *testing.T) (*Store, models.Project) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "phaseplan.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	project, err := store.AddProject(context.Background(), models.Project{
		Name:             "Retainer",
		Client:           "Acme",
		StartDate:        date(2025, 1, 1),
		EstimatedHours:   0,
		Continuous:       true,
		AutoEstimateDays: models.DefaultWeekdayMask(),
	})
	if err != nil {
		t.Fatalf("AddProject() failed: %v", err)
	}
	return store, project
}

func TestInitCreatesDefaultSettings(t *testing.T) {
	store, _ := setupTestStore(t)

	settings, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() failed: %v", err)
	}
	if settings.Timezone != "Local" || !settings.NotificationsEnabled {
		t.Errorf("unexpected default settings: %+v", settings)
	}

	settings.Timezone = "America/New_York"
	settings.NotificationsEnabled = false
	if err := store.SaveSettings(context.Background(), settings); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}
	got, _ := store.GetSettings(context.Background())
	if got != settings {
		t.Errorf("settings did not round trip: %+v", got)
	}
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); err == nil {
		t.Error("Load() should fail before Init")
	}
}

func TestLoadAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phaseplan.db")
	first := NewStore(path)
	if err := first.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	first.Close()

	second := NewStore(path)
	if err := second.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	defer second.Close()
	if second.GetDB() == nil {
		t.Error("GetDB() should be non-nil after Load")
	}
}

func TestProjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, project := setupTestStore(t)

	got, err := store.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject() failed: %v", err)
	}
	if !got.Continuous || got.EndDate != nil || got.Client != "Acme" {
		t.Errorf("unexpected project: %+v", got)
	}
	if got.AutoEstimateDays != models.DefaultWeekdayMask() {
		t.Errorf("weekday mask did not round trip: %s", got.AutoEstimateDays)
	}

	got.Continuous = false
	got.EndDate = models.TimePtr(date(2025, 6, 30))
	got.EstimatedHours = 120
	if err := store.UpdateProject(ctx, got); err != nil {
		t.Fatalf("UpdateProject() failed: %v", err)
	}

	updated, _ := store.GetProject(ctx, project.ID)
	if updated.EndDate == nil || !updated.EndDate.Equal(date(2025, 6, 30)) || updated.EstimatedHours != 120 {
		t.Errorf("update not persisted: %+v", updated)
	}

	if _, err := store.GetProject(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPhaseLifecycle(t *testing.T) {
	ctx := context.Background()
	store, project := setupTestStore(t)

	template, err := store.CreatePhase(ctx, models.Phase{
		ProjectID:      project.ID,
		Name:           "Weekly report",
		EndDate:        date(2025, 1, 6),
		TimeAllocation: 2,
		IsRecurring:    true,
		RecurringConfig: &models.RecurrenceConfig{
			Type:            constants.RecurrenceWeekly,
			Interval:        1,
			WeeklyDayOfWeek: models.IntPtr(1),
		},
	})
	if err != nil {
		t.Fatalf("CreatePhase(template) failed: %v", err)
	}

	var ids []string
	for i := 1; i <= 3; i++ {
		occ, err := store.CreatePhase(ctx, models.Phase{
			ProjectID:        project.ID,
			Name:             "Weekly report",
			EndDate:          date(2025, 1, 6+7*(i-1)),
			TimeAllocation:   2,
			TemplateID:       template.ID,
			OccurrenceNumber: i,
		})
		if err != nil {
			t.Fatalf("CreatePhase(occurrence %d) failed: %v", i, err)
		}
		ids = append(ids, occ.ID)
	}

	phases, err := store.ListPhasesForProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListPhasesForProject() failed: %v", err)
	}
	if len(phases) != 4 {
		t.Fatalf("expected 4 phases, got %d", len(phases))
	}

	var gotTemplate models.Phase
	for _, p := range phases {
		if p.IsTemplate() {
			gotTemplate = p
		}
	}
	if gotTemplate.RecurringConfig == nil || *gotTemplate.RecurringConfig.WeeklyDayOfWeek != 1 {
		t.Errorf("template config did not round trip: %+v", gotTemplate.RecurringConfig)
	}

	hours := 3.0
	newEnd := date(2025, 1, 7)
	if err := store.UpdatePhase(ctx, ids[0], models.PhasePatch{TimeAllocation: &hours, EndDate: &newEnd}); err != nil {
		t.Fatalf("UpdatePhase() failed: %v", err)
	}
	first, _ := store.GetPhase(ctx, ids[0])
	if first.TimeAllocation != 3 || !first.EndDate.Equal(newEnd) || first.TemplateID != template.ID {
		t.Errorf("unexpected phase after update: %+v", first)
	}

	if err := store.UpdatePhase(ctx, "missing", models.PhasePatch{TimeAllocation: &hours}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing phase, got %v", err)
	}

	if err := store.DeletePhases(ctx, append(ids, template.ID)); err != nil {
		t.Fatalf("DeletePhases() failed: %v", err)
	}
	phases, _ = store.ListPhasesForProject(ctx, project.ID)
	if len(phases) != 0 {
		t.Errorf("expected no phases after batch delete, got %d", len(phases))
	}
}

func TestSplitPhaseStartDate(t *testing.T) {
	ctx := context.Background()
	store, project := setupTestStore(t)

	created, err := store.CreatePhase(ctx, models.Phase{
		ProjectID: project.ID,
		Name:      "Phase 1",
		StartDate: models.TimePtr(date(2025, 1, 1)),
		EndDate:   date(2025, 1, 16),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.UpdatePhase(ctx, created.ID, models.PhasePatch{ClearStartDate: true}); err != nil {
		t.Fatalf("UpdatePhase() failed: %v", err)
	}
	got, _ := store.GetPhase(ctx, created.ID)
	if got.StartDate != nil {
		t.Errorf("start date should be cleared, got %v", got.StartDate)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	store, project := setupTestStore(t)

	if _, err := store.CreatePhase(ctx, models.Phase{ProjectID: project.ID, Name: "x", EndDate: date(2025, 1, 2)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddEvent(ctx, models.CalendarEvent{ProjectID: project.ID, Title: "Kickoff", Date: date(2025, 1, 2), Hours: 1}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject() failed: %v", err)
	}

	phases, _ := store.ListPhasesForProject(ctx, project.ID)
	events, _ := store.GetEventsForProject(ctx, project.ID)
	if len(phases) != 0 || len(events) != 0 {
		t.Errorf("expected cascade delete, got %d phases %d events", len(phases), len(events))
	}
}

func TestHolidaysUpsertByDate(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	if _, err := store.AddHoliday(ctx, models.Holiday{Date: date(2025, 12, 25), Name: "Xmas"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddHoliday(ctx, models.Holiday{Date: date(2025, 12, 25), Name: "Christmas Day"}); err != nil {
		t.Fatal(err)
	}

	holidays, err := store.GetHolidays(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(holidays) != 1 || holidays[0].Name != "Christmas Day" {
		t.Errorf("expected one renamed holiday, got %+v", holidays)
	}
}
