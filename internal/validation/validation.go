package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingPhases ConflictType = "overlapping_phases"
	ConflictPhaseGap          ConflictType = "phase_gap"
	ConflictStartMismatch     ConflictType = "start_mismatch"
	ConflictEndMismatch       ConflictType = "end_mismatch"
	ConflictMixedModes        ConflictType = "mixed_modes"
	ConflictInvalidPhase      ConflictType = "invalid_phase"
)

// Severity separates blocking errors from informational warnings
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ErrMixedModes is returned when a project holds split phases and a recurring
// template at the same time.
var ErrMixedModes = errors.New("project has both split phases and a recurring template; delete one before creating the other")

// Conflict represents a detected problem in a project's phase set
type Conflict struct {
	Type        ConflictType
	Severity    Severity
	Description string
	Items       []string // Phase names involved
	PhaseIDs    []string // IDs of phases involved (for repairs)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// HasErrors returns true if any conflict is an error
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors()) > 0
}

// Errors returns the descriptions of error conflicts
func (vr *ValidationResult) Errors() []string {
	return vr.descriptions(SeverityError)
}

// Warnings returns the descriptions of warning conflicts
func (vr *ValidationResult) Warnings() []string {
	return vr.descriptions(SeverityWarning)
}

func (vr *ValidationResult) descriptions(sev Severity) []string {
	var out []string
	for _, c := range vr.Conflicts {
		if c.Severity == sev {
			out = append(out, c.Description)
		}
	}
	return out
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- [%s] %s\n", conflict.Severity, conflict.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

// Exclusivity describes which planning mode a phase set is in
type Exclusivity struct {
	HasSplitPhases       bool
	HasRecurringTemplate bool
}

// Err returns ErrMixedModes when both modes are present
func (e Exclusivity) Err() error {
	if e.HasSplitPhases && e.HasRecurringTemplate {
		return ErrMixedModes
	}
	return nil
}

// Validator validates phase sets for conflicts
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// CheckExclusivity classifies the phase set. Split phases are phases with a
// start date that are not recurring; a recurring template is any phase with
// the recurring flag.
func (v *Validator) CheckExclusivity(phases []models.Phase) Exclusivity {
	var ex Exclusivity
	for _, p := range phases {
		if p.IsSplit() {
			ex.HasSplitPhases = true
		}
		if p.IsRecurring {
			ex.HasRecurringTemplate = true
		}
	}
	return ex
}

// ValidatePhasesContinuity checks that phases sorted by start cover the
// project timeline. Overlapping neighbours are errors; gaps are warnings,
// since a gap is a deliberate pause with no estimate.
func (v *Validator) ValidatePhasesContinuity(phases []models.Phase, projectStart, projectEnd time.Time) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	if len(phases) == 0 {
		return result
	}

	sorted := models.ClonePhases(phases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveStart().Before(sorted[j].EffectiveStart())
	})

	first := sorted[0]
	if !utils.SameDay(first.EffectiveStart(), projectStart) {
		result.add(Conflict{
			Type:     ConflictStartMismatch,
			Severity: SeverityError,
			Description: fmt.Sprintf("First phase \"%s\" starts %s but the project starts %s",
				first.Name, utils.FormatDate(first.EffectiveStart()), utils.FormatDate(projectStart)),
			Items:    []string{first.Name},
			PhaseIDs: []string{first.ID},
		})
	}

	last := sorted[len(sorted)-1]
	if !utils.SameDay(last.EndDate, projectEnd) {
		result.add(Conflict{
			Type:     ConflictEndMismatch,
			Severity: SeverityError,
			Description: fmt.Sprintf("Last phase \"%s\" ends %s but the project ends %s",
				last.Name, utils.FormatDate(last.EndDate), utils.FormatDate(projectEnd)),
			Items:    []string{last.Name},
			PhaseIDs: []string{last.ID},
		})
	}

	for i := 0; i < len(sorted)-1; i++ {
		current, next := sorted[i], sorted[i+1]
		currentEnd := utils.NormalizeToMidnight(current.EndDate)
		nextStart := utils.NormalizeToMidnight(next.EffectiveStart())

		if !currentEnd.Before(nextStart) {
			result.add(Conflict{
				Type:     ConflictOverlappingPhases,
				Severity: SeverityError,
				Description: fmt.Sprintf("Phases overlap: \"%s\" ends %s but \"%s\" starts %s",
					current.Name, utils.FormatDate(currentEnd), next.Name, utils.FormatDate(nextStart)),
				Items:    []string{current.Name, next.Name},
				PhaseIDs: []string{current.ID, next.ID},
			})
			continue
		}

		if gap := utils.DayDifference(currentEnd, nextStart) - 1; gap > 0 {
			result.add(Conflict{
				Type:     ConflictPhaseGap,
				Severity: SeverityWarning,
				Description: fmt.Sprintf("Gap of %d day(s) between \"%s\" and \"%s\" has no estimate",
					gap, current.Name, next.Name),
				Items:    []string{current.Name, next.Name},
				PhaseIDs: []string{current.ID, next.ID},
			})
		}
	}

	return result
}

// ValidatePhase checks a single phase's fields against its project and
// returns human-readable problems. An empty result means the phase is valid.
func (v *Validator) ValidatePhase(phase models.Phase, project models.Project) []string {
	var problems []string

	if strings.TrimSpace(phase.Name) == "" {
		problems = append(problems, "phase name cannot be empty")
	}
	if phase.TimeAllocation < 0 {
		problems = append(problems, fmt.Sprintf("time allocation cannot be negative (got %.2f)", phase.TimeAllocation))
	}
	if phase.EndDate.IsZero() {
		problems = append(problems, "end date is required")
		return problems
	}
	if phase.StartDate != nil && phase.EndDate.Before(*phase.StartDate) {
		problems = append(problems, fmt.Sprintf("end date %s is before start date %s",
			utils.FormatDate(phase.EndDate), utils.FormatDate(*phase.StartDate)))
	}

	if phase.StartDate != nil && !project.Contains(*phase.StartDate) {
		problems = append(problems, fmt.Sprintf("start date %s is outside the project range", utils.FormatDate(*phase.StartDate)))
	}
	if !project.Contains(phase.EndDate) {
		problems = append(problems, fmt.Sprintf("end date %s is outside the project range", utils.FormatDate(phase.EndDate)))
	}

	return problems
}

// ValidateProject runs every phase-level check over a project: field
// validation, mode exclusivity and, for split phase sets, continuity.
func (v *Validator) ValidateProject(project models.Project, phases []models.Phase) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	for _, p := range phases {
		for _, problem := range v.ValidatePhase(p, project) {
			result.add(Conflict{
				Type:        ConflictInvalidPhase,
				Severity:    SeverityError,
				Description: fmt.Sprintf("Phase \"%s\": %s", p.Name, problem),
				Items:       []string{p.Name},
				PhaseIDs:    []string{p.ID},
			})
		}
	}

	ex := v.CheckExclusivity(phases)
	if err := ex.Err(); err != nil {
		result.add(Conflict{
			Type:        ConflictMixedModes,
			Severity:    SeverityError,
			Description: err.Error(),
		})
	}

	if end, bounded := project.End(); bounded && ex.HasSplitPhases {
		var split []models.Phase
		for _, p := range phases {
			if p.IsSplit() {
				split = append(split, p)
			}
		}
		continuity := v.ValidatePhasesContinuity(split, project.StartDate, end)
		result.Conflicts = append(result.Conflicts, continuity.Conflicts...)
	}

	return result
}
