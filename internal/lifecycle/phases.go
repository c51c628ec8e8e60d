package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/phaseplan/internal/budget"
	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/metrics"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/phases"
	"github.com/julianstephens/phaseplan/internal/storage"
	"github.com/julianstephens/phaseplan/internal/utils"
	"github.com/julianstephens/phaseplan/internal/validation"
)

// MilestoneRequest describes a deadline-only phase to add.
type MilestoneRequest struct {
	Name    string
	EndDate time.Time
	Hours   float64
	// Confirmed acknowledges that an active recurring series is deleted.
	Confirmed bool
}

// AddMilestone adds a pure milestone. Adding one to a project in recurring
// mode switches it to milestone mode, which deletes the series and requires
// confirmation.
func (c *Coordinator) AddMilestone(ctx context.Context, projectID string, req MilestoneRequest) (models.Phase, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return models.Phase{}, err
	}

	phase := models.Phase{
		ProjectID:      projectID,
		Name:           strings.TrimSpace(req.Name),
		EndDate:        utils.NormalizeToMidnight(req.EndDate),
		TimeAllocation: req.Hours,
	}
	if err := invalid(c.validator.ValidatePhase(phase, state.Project)...); err != nil {
		return models.Phase{}, err
	}
	if err := phases.CheckEndDate(phase, phase.EndDate, c.today()); err != nil {
		return models.Phase{}, err
	}

	var doomed []string
	if state.Pattern.Kind == PatternTemplate {
		doomed = state.SeriesIDs()
	}
	if len(doomed) > 0 && !req.Confirmed {
		return models.Phase{}, fmt.Errorf("%w: adding a milestone deletes the recurring series (%d phase(s))", ErrConfirmationRequired, len(doomed))
	}

	if err := c.checkBudget(state.Project, without(state.Phases, doomed), phase.TimeAllocation, false, "milestone"); err != nil {
		return models.Phase{}, err
	}

	if len(doomed) > 0 {
		if err := c.runBackup(ctx, "switch to milestones"); err != nil {
			return models.Phase{}, c.fail(ctx, "Could not add milestone", err)
		}
		if err := c.store.DeletePhases(ctx, doomed); err != nil {
			return models.Phase{}, c.fail(ctx, "Could not remove recurring series", err)
		}
		c.changed(projectID)
	}

	created, err := c.store.CreatePhase(ctx, phase)
	if err != nil {
		return models.Phase{}, c.fail(ctx, "Could not add milestone", err)
	}
	c.changed(projectID)

	c.succeed(ctx, "Milestone added", fmt.Sprintf("%s due %s", created.Name, utils.FormatDate(created.EndDate)))
	return created, nil
}

// UpdatePhase applies a property edit after re-running field validation,
// the minimum end date rule and the budget gate. Moving a split phase's end
// cascades into the following phases.
func (c *Coordinator) UpdatePhase(ctx context.Context, projectID, phaseID string, patch models.PhasePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return err
	}
	phase, ok := findPhase(state.Phases, phaseID)
	if !ok {
		return fmt.Errorf("phase %s: %w", phaseID, storage.ErrNotFound)
	}
	if phase.IsTemplate() && patch.TimeAllocation != nil {
		return invalid("the hours of a recurring template are changed through a load edit")
	}

	updated := phase.Apply(patch)
	if err := invalid(c.validator.ValidatePhase(updated, state.Project)...); err != nil {
		return err
	}

	if patch.EndDate != nil {
		check := phase
		check.TimeAllocation = updated.TimeAllocation
		if err := phases.CheckEndDate(check, *patch.EndDate, c.today()); err != nil {
			return err
		}
	}

	if patch.TimeAllocation != nil {
		existing := budget.ExcludingPhase(state.Phases, phaseID)
		if err := c.checkBudget(state.Project, existing, updated.TimeAllocation, phase.IsOccurrence(), "edit"); err != nil {
			return err
		}
	}

	var moved []models.Phase
	if patch.EndDate != nil && updated.IsSplit() {
		edited := make([]models.Phase, len(state.Phases))
		for i, p := range state.Phases {
			if p.ID == phaseID {
				p = updated
			}
			edited[i] = p
		}
		_, changed, err := phases.CascadeDateMove(edited, phaseID, *patch.EndDate)
		if err != nil {
			return err
		}
		moved = changed[1:]
		if err := c.checkShifted(state.Project, moved); err != nil {
			return err
		}
	}

	if err := c.store.UpdatePhase(ctx, phaseID, patch); err != nil {
		return c.fail(ctx, "Could not update phase", err)
	}
	for _, m := range moved {
		shift := models.PhasePatch{StartDate: m.StartDate, EndDate: models.TimePtr(m.EndDate)}
		if err := c.store.UpdatePhase(ctx, m.ID, shift); err != nil {
			c.changed(projectID)
			return c.fail(ctx, "Could not shift following phases", err)
		}
	}
	if len(moved) > 0 {
		metrics.AddPhaseRepairs("cascade", len(moved))
		c.log.Debug("cascaded date move", "phase", phaseID, "shifted", len(moved))
	}
	c.changed(projectID)

	c.succeed(ctx, "Phase updated", updated.Name)
	return nil
}

// DeletePhase deletes one phase. Deleting a recurring template deletes its
// whole series.
func (c *Coordinator) DeletePhase(ctx context.Context, projectID, phaseID string) error {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return err
	}
	phase, ok := findPhase(state.Phases, phaseID)
	if !ok {
		return fmt.Errorf("phase %s: %w", phaseID, storage.ErrNotFound)
	}
	if phase.IsTemplate() {
		_, err := c.DeleteRecurringTemplate(ctx, projectID)
		return err
	}

	if err := c.store.DeletePhase(ctx, phaseID); err != nil {
		return c.fail(ctx, "Could not delete phase", err)
	}
	c.changed(projectID)

	c.succeed(ctx, "Phase deleted", phase.Name)
	return nil
}

// SplitEstimate divides a bounded project's timeline and budget into two
// phases at the midpoint. A recurring series is deleted first, which
// requires confirmation.
func (c *Coordinator) SplitEstimate(ctx context.Context, projectID string, confirmed bool) ([]models.Phase, error) {
	flow := c.Workflow(projectID)
	if err := flow.Begin(constants.StateSplitting); err != nil {
		return nil, err
	}
	defer flow.Done()

	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return nil, err
	}
	end, bounded := state.Project.End()
	if !bounded {
		return nil, invalid("continuous projects cannot be split")
	}
	if len(state.Split()) > 0 {
		return nil, ErrAlreadySplit
	}

	spans, err := phases.CalculateSplit(state.Project.StartDate, end, state.Project.EstimatedHours)
	if err != nil {
		return nil, err
	}

	var doomed []string
	if state.Pattern.Kind == PatternTemplate {
		doomed = state.SeriesIDs()
	}
	if len(doomed) > 0 && !confirmed {
		if err := flow.AwaitConfirmation(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: splitting deletes the recurring series (%d phase(s))", ErrConfirmationRequired, len(doomed))
	}

	if err := c.checkBudget(state.Project, without(state.Phases, doomed), state.Project.EstimatedHours, false, "split"); err != nil {
		return nil, err
	}

	if len(doomed) > 0 {
		if err := c.runBackup(ctx, "split estimate"); err != nil {
			return nil, c.fail(ctx, "Could not split estimate", err)
		}
		if err := c.store.DeletePhases(ctx, doomed); err != nil {
			return nil, c.fail(ctx, "Could not remove recurring series", err)
		}
		c.changed(projectID)
	}

	var created []models.Phase
	for _, span := range spans {
		p, err := c.store.CreatePhase(ctx, span.Phase(projectID))
		if err != nil {
			c.changed(projectID)
			return created, c.fail(ctx, "Could not create split phase", err)
		}
		created = append(created, p)
	}
	c.changed(projectID)

	c.succeed(ctx, "Estimate split", fmt.Sprintf("%s and %s", created[0].Name, created[1].Name))
	return created, nil
}

// AddSplitPhase shrinks the last split phase to make room for a new one at
// the end of the timeline.
func (c *Coordinator) AddSplitPhase(ctx context.Context, projectID, name string, hours float64) (models.Phase, error) {
	flow := c.Workflow(projectID)
	if err := flow.Begin(constants.StateSplitting); err != nil {
		return models.Phase{}, err
	}
	defer flow.Done()

	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "phase name cannot be empty")
	}
	if hours < 0 {
		problems = append(problems, "time allocation cannot be negative")
	}
	if err := invalid(problems...); err != nil {
		return models.Phase{}, err
	}

	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return models.Phase{}, err
	}
	if state.Mode.HasRecurringTemplate {
		return models.Phase{}, fmt.Errorf("add split phase: %w", validation.ErrMixedModes)
	}

	ins, err := phases.PlanInsertion(state.Phases, strings.TrimSpace(name), hours)
	if err != nil {
		return models.Phase{}, err
	}
	if err := c.checkBudget(state.Project, state.Phases, hours, false, "split"); err != nil {
		return models.Phase{}, err
	}

	if err := c.store.UpdatePhase(ctx, ins.Shrunk.ID, models.PhasePatch{EndDate: models.TimePtr(ins.Shrunk.EndDate)}); err != nil {
		return models.Phase{}, c.fail(ctx, "Could not shrink last phase", err)
	}
	created, err := c.store.CreatePhase(ctx, ins.New.Phase(projectID))
	if err != nil {
		c.changed(projectID)
		return models.Phase{}, c.fail(ctx, "Could not add split phase", err)
	}
	c.changed(projectID)

	c.succeed(ctx, "Phase added", fmt.Sprintf("%s %s..%s", created.Name,
		utils.FormatDate(*created.StartDate), utils.FormatDate(created.EndDate)))
	return created, nil
}

// RepairPhases pushes overlapping split phases apart and returns how many
// phases moved.
func (c *Coordinator) RepairPhases(ctx context.Context, projectID string) (int, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return 0, err
	}

	_, changed := phases.RepairOverlaps(state.Phases)
	if err := c.checkShifted(state.Project, changed); err != nil {
		return 0, err
	}
	for _, p := range changed {
		patch := models.PhasePatch{StartDate: p.StartDate, EndDate: models.TimePtr(p.EndDate)}
		if err := c.store.UpdatePhase(ctx, p.ID, patch); err != nil {
			c.changed(projectID)
			return 0, c.fail(ctx, "Could not repair phases", err)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	metrics.AddPhaseRepairs("overlap", len(changed))
	c.changed(projectID)

	c.succeed(ctx, "Phases repaired", fmt.Sprintf("%d phase(s) moved", len(changed)))
	return len(changed), nil
}

// checkShifted rejects a cascade or repair that would push a phase outside
// the project range. Nothing is written when it fails.
func (c *Coordinator) checkShifted(project models.Project, shifted []models.Phase) error {
	var problems []string
	for _, p := range shifted {
		for _, msg := range c.validator.ValidatePhase(p, project) {
			problems = append(problems, p.Name+": "+msg)
		}
	}
	return invalid(problems...)
}

// Validate reports field, exclusivity and continuity conflicts.
func (c *Coordinator) Validate(ctx context.Context, projectID string) (validation.ValidationResult, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return validation.ValidationResult{}, err
	}
	return c.validator.ValidateProject(state.Project, state.Phases), nil
}

// Summary reconciles the project's budget against its phases.
func (c *Coordinator) Summary(ctx context.Context, projectID string) (budget.Summary, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return budget.Summary{}, err
	}
	return budget.Summarize(state.Project, state.Phases), nil
}

// Distribution returns the memoized per-day auto-estimate for the project.
func (c *Coordinator) Distribution(ctx context.Context, projectID string, holidays []models.Holiday, events []models.CalendarEvent) ([]budget.DayAllocation, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return c.distributor.Distribute(projectID, budget.DistributionInput{
		ProjectStart: state.Project.StartDate,
		Phases:       state.Phases,
		Mask:         state.Project.AutoEstimateDays,
		Holidays:     utils.HolidaySetFrom(holidays),
		Events:       events,
	}), nil
}
