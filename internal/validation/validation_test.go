package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func splitPhase(id, name string, start, end time.Time, hours float64) models.Phase {
	return models.Phase{
		ID:             id,
		ProjectID:      "proj",
		Name:           name,
		StartDate:      models.TimePtr(start),
		EndDate:        end,
		TimeAllocation: hours,
	}
}

func boundedProject() models.Project {
	return models.Project{
		ID:               "proj",
		Name:             "Website",
		StartDate:        date(2025, 1, 1),
		EndDate:          models.TimePtr(date(2025, 1, 31)),
		EstimatedHours:   28,
		AutoEstimateDays: models.DefaultWeekdayMask(),
	}
}

func countType(result ValidationResult, ct ConflictType) int {
	n := 0
	for _, c := range result.Conflicts {
		if c.Type == ct {
			n++
		}
	}
	return n
}

func TestValidatePhasesContinuity_Contiguous(t *testing.T) {
	validator := New()
	phases := []models.Phase{
		splitPhase("p2", "Phase 2", date(2025, 1, 17), date(2025, 1, 31), 14),
		splitPhase("p1", "Phase 1", date(2025, 1, 1), date(2025, 1, 16), 14),
	}

	result := validator.ValidatePhasesContinuity(phases, date(2025, 1, 1), date(2025, 1, 31))

	if result.HasConflicts() {
		t.Errorf("Expected no conflicts, got: %s", result.FormatReport())
	}
}

func TestValidatePhasesContinuity_DuplicateEndDatesOverlap(t *testing.T) {
	validator := New()
	phases := []models.Phase{
		{ID: "a", Name: "Deliverable A", EndDate: date(2025, 1, 10)},
		{ID: "b", Name: "Deliverable B", EndDate: date(2025, 1, 10)},
	}

	result := validator.ValidatePhasesContinuity(phases, date(2025, 1, 10), date(2025, 1, 10))

	if countType(result, ConflictOverlappingPhases) != 1 {
		t.Errorf("Expected one overlap conflict, got: %s", result.FormatReport())
	}
	if countType(result, ConflictPhaseGap) != 0 {
		t.Error("Duplicate end dates must not be reported as a gap")
	}
	if !result.HasErrors() {
		t.Error("Expected overlap to be an error")
	}
}

func TestValidatePhasesContinuity_GapIsWarning(t *testing.T) {
	validator := New()
	phases := []models.Phase{
		splitPhase("p1", "Phase 1", date(2025, 1, 1), date(2025, 1, 10), 10),
		splitPhase("p2", "Phase 2", date(2025, 1, 15), date(2025, 1, 31), 10),
	}

	result := validator.ValidatePhasesContinuity(phases, date(2025, 1, 1), date(2025, 1, 31))

	if result.HasErrors() {
		t.Errorf("Expected no errors, got: %v", result.Errors())
	}
	warnings := result.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(warnings))
	}
	if !strings.Contains(warnings[0], "4 day(s)") {
		t.Errorf("Expected gap length in warning, got %q", warnings[0])
	}
}

func TestValidatePhasesContinuity_BoundaryMismatch(t *testing.T) {
	validator := New()
	phases := []models.Phase{
		splitPhase("p1", "Phase 1", date(2025, 1, 2), date(2025, 1, 16), 14),
		splitPhase("p2", "Phase 2", date(2025, 1, 17), date(2025, 1, 30), 14),
	}

	result := validator.ValidatePhasesContinuity(phases, date(2025, 1, 1), date(2025, 1, 31))

	if countType(result, ConflictStartMismatch) != 1 {
		t.Error("Expected start mismatch conflict")
	}
	if countType(result, ConflictEndMismatch) != 1 {
		t.Error("Expected end mismatch conflict")
	}
}

func TestValidatePhasesContinuity_Empty(t *testing.T) {
	validator := New()
	result := validator.ValidatePhasesContinuity(nil, date(2025, 1, 1), date(2025, 1, 31))
	if result.HasConflicts() {
		t.Error("Expected empty phase set to have no conflicts")
	}
	if result.FormatReport() != "No conflicts detected." {
		t.Errorf("Unexpected report: %q", result.FormatReport())
	}
}

func TestCheckExclusivity(t *testing.T) {
	validator := New()
	template := models.Phase{
		ID:              "t",
		Name:            "Weekly sync",
		EndDate:         date(2025, 1, 6),
		IsRecurring:     true,
		RecurringConfig: &models.RecurrenceConfig{Type: constants.RecurrenceWeekly, Interval: 1, WeeklyDayOfWeek: models.IntPtr(1)},
	}
	split := splitPhase("p1", "Phase 1", date(2025, 1, 1), date(2025, 1, 16), 14)
	milestone := models.Phase{ID: "m", Name: "Launch", EndDate: date(2025, 1, 20)}

	tests := []struct {
		name      string
		phases    []models.Phase
		wantSplit bool
		wantTmpl  bool
		wantErr   bool
	}{
		{"empty", nil, false, false, false},
		{"milestones only", []models.Phase{milestone}, false, false, false},
		{"split only", []models.Phase{split, milestone}, true, false, false},
		{"template only", []models.Phase{template, milestone}, false, true, false},
		{"both", []models.Phase{split, template}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := validator.CheckExclusivity(tt.phases)
			if ex.HasSplitPhases != tt.wantSplit {
				t.Errorf("HasSplitPhases = %v, want %v", ex.HasSplitPhases, tt.wantSplit)
			}
			if ex.HasRecurringTemplate != tt.wantTmpl {
				t.Errorf("HasRecurringTemplate = %v, want %v", ex.HasRecurringTemplate, tt.wantTmpl)
			}
			if err := ex.Err(); (err != nil) != tt.wantErr {
				t.Errorf("Err() = %v, wantErr %v", err, tt.wantErr)
			} else if tt.wantErr && !errors.Is(err, ErrMixedModes) {
				t.Errorf("Expected ErrMixedModes, got %v", err)
			}
		})
	}
}

func TestValidatePhase(t *testing.T) {
	validator := New()
	project := boundedProject()

	tests := []struct {
		name     string
		phase    models.Phase
		problems int
	}{
		{"valid split", splitPhase("p", "Phase", date(2025, 1, 1), date(2025, 1, 10), 5), 0},
		{"valid milestone", models.Phase{Name: "Launch", EndDate: date(2025, 1, 31)}, 0},
		{"empty name", models.Phase{Name: "  ", EndDate: date(2025, 1, 5)}, 1},
		{"negative hours", models.Phase{Name: "x", EndDate: date(2025, 1, 5), TimeAllocation: -1}, 1},
		{"end before start", splitPhase("p", "Phase", date(2025, 1, 10), date(2025, 1, 5), 0), 1},
		{"end outside range", models.Phase{Name: "Late", EndDate: date(2025, 2, 3)}, 1},
		{"start outside range", splitPhase("p", "Early", date(2024, 12, 30), date(2025, 1, 3), 0), 1},
		{"missing end", models.Phase{Name: "x"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := validator.ValidatePhase(tt.phase, project)
			if len(problems) != tt.problems {
				t.Errorf("Expected %d problems, got %d: %v", tt.problems, len(problems), problems)
			}
		})
	}
}

func TestValidatePhase_ContinuousProjectIgnoresEnd(t *testing.T) {
	validator := New()
	project := boundedProject()
	project.Continuous = true

	phase := models.Phase{Name: "Far future", EndDate: date(2027, 6, 1)}
	if problems := validator.ValidatePhase(phase, project); len(problems) != 0 {
		t.Errorf("Expected no problems for continuous project, got %v", problems)
	}
}

func TestValidateProject(t *testing.T) {
	validator := New()
	project := boundedProject()
	template := models.Phase{
		ID:              "t",
		Name:            "Weekly sync",
		EndDate:         date(2025, 1, 6),
		IsRecurring:     true,
		RecurringConfig: &models.RecurrenceConfig{Type: constants.RecurrenceWeekly, Interval: 1, WeeklyDayOfWeek: models.IntPtr(1)},
	}
	phases := []models.Phase{
		splitPhase("p1", "Phase 1", date(2025, 1, 1), date(2025, 1, 16), 14),
		splitPhase("p2", "Phase 2", date(2025, 1, 16), date(2025, 1, 31), 14),
		template,
	}

	result := validator.ValidateProject(project, phases)

	if countType(result, ConflictMixedModes) != 1 {
		t.Error("Expected mixed modes conflict")
	}
	if countType(result, ConflictOverlappingPhases) != 1 {
		t.Error("Expected overlap between split phases")
	}
	if countType(result, ConflictInvalidPhase) != 0 {
		t.Errorf("Expected no field problems, got: %s", result.FormatReport())
	}
}
