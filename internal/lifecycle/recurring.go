package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/recurrence"
)

// TemplateRequest describes a recurring series to configure.
type TemplateRequest struct {
	Name   string
	Hours  float64
	Config models.RecurrenceConfig
	// Confirmed acknowledges that every existing phase of the project is
	// deleted first.
	Confirmed bool
}

// ConfigureRecurrence replaces the project's phases with a recurring
// template and materializes its occurrences. Any existing split phases,
// milestones or previous series are deleted first, which requires
// confirmation; without it the workflow parks in confirmingOverwrite and
// ErrConfirmationRequired is returned.
func (c *Coordinator) ConfigureRecurrence(ctx context.Context, projectID string, req TemplateRequest) (State, error) {
	flow := c.Workflow(projectID)
	if err := flow.Begin(constants.StateConfiguringRecurrence); err != nil {
		return State{}, err
	}
	defer flow.Done()

	var problems []string
	if strings.TrimSpace(req.Name) == "" {
		problems = append(problems, "name is required")
	}
	if req.Hours < 0 {
		problems = append(problems, "hours per occurrence cannot be negative")
	}
	problems = append(problems, recurrence.Validate(req.Config)...)
	if err := invalid(problems...); err != nil {
		return State{}, err
	}

	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return State{}, err
	}

	plan, err := c.planSeries(state.Project, req.Config)
	if err != nil {
		return state, err
	}
	if plan.mode == "bounded" && plan.target == 0 {
		return state, invalid("no occurrence of this pattern falls within the project range")
	}

	doomed := phaseIDs(state.Phases)
	if len(doomed) > 0 && !req.Confirmed {
		if err := flow.AwaitConfirmation(); err != nil {
			return state, err
		}
		return state, fmt.Errorf("%w: configuring recurrence deletes %d existing phase(s)", ErrConfirmationRequired, len(doomed))
	}

	if err := c.checkBudget(state.Project, nil, req.Hours*float64(plan.target), true, "recurring"); err != nil {
		return state, err
	}

	if len(doomed) > 0 {
		if err := c.runBackup(ctx, "configure recurrence"); err != nil {
			return state, c.fail(ctx, "Could not configure recurrence", err)
		}
		if err := c.store.DeletePhases(ctx, doomed); err != nil {
			return state, c.fail(ctx, "Could not remove existing phases", err)
		}
		c.changed(projectID)
	}

	cfg := req.Config.Clone()
	_, err = c.store.CreatePhase(ctx, models.Phase{
		ProjectID:       projectID,
		Name:            strings.TrimSpace(req.Name),
		EndDate:         recurrence.FirstOccurrence(cfg, state.Project.StartDate),
		TimeAllocation:  req.Hours,
		IsRecurring:     true,
		RecurringConfig: &cfg,
	})
	if err != nil {
		return state, c.fail(ctx, "Could not save recurring template", err)
	}
	c.changed(projectID)

	created, err := c.materialize(ctx, projectID)
	if err != nil {
		return state, c.fail(ctx, "Some occurrences were not created", err)
	}

	c.succeed(ctx, "Recurring milestones configured",
		fmt.Sprintf("%s, %d occurrence(s) scheduled", recurrence.Describe(cfg), created))
	return c.LoadState(ctx, projectID)
}

// UpdateLoad changes the per-occurrence hours of the active template.
// LoadForward keeps past occurrences and rewrites the future ones;
// LoadForwardAndBack stores the new hours on the template first, then
// deletes every occurrence and regenerates the series.
func (c *Coordinator) UpdateLoad(ctx context.Context, projectID string, hours float64, mode LoadMode) error {
	flow := c.Workflow(projectID)
	if err := flow.BeginEditLoad(mode); err != nil {
		return err
	}
	defer flow.Done()

	if hours < 0 {
		return invalid("hours per occurrence cannot be negative")
	}

	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return err
	}
	if state.Pattern.Kind != PatternTemplate {
		return ErrNoTemplate
	}
	plan, err := c.planSeries(state.Project, state.Pattern.Config)
	if err != nil {
		return err
	}

	tmpl := state.Pattern.Template
	others := state.Milestones()
	past, future := splitByDate(state.Pattern.Instances, c.today())

	switch mode {
	case LoadForward:
		remaining := max(plan.target-len(past), 0)
		if err := c.checkBudget(state.Project, append(others, past...), hours*float64(remaining), true, "load"); err != nil {
			return err
		}
		if err := c.store.UpdatePhase(ctx, tmpl.ID, models.PhasePatch{TimeAllocation: &hours}); err != nil {
			return c.fail(ctx, "Could not update recurring load", err)
		}
		for _, occ := range future {
			if err := c.store.UpdatePhase(ctx, occ.ID, models.PhasePatch{TimeAllocation: &hours}); err != nil {
				c.changed(projectID)
				return c.fail(ctx, "Could not update recurring load", fmt.Errorf("occurrence %d: %w", occ.OccurrenceNumber, err))
			}
		}
		c.changed(projectID)

	case LoadForwardAndBack:
		if err := c.checkBudget(state.Project, others, hours*float64(plan.target), true, "load"); err != nil {
			return err
		}
		if err := c.runBackup(ctx, "regenerate series"); err != nil {
			return c.fail(ctx, "Could not update recurring load", err)
		}
		if err := c.store.UpdatePhase(ctx, tmpl.ID, models.PhasePatch{TimeAllocation: &hours}); err != nil {
			return c.fail(ctx, "Could not update recurring load", err)
		}
		if err := c.store.DeletePhases(ctx, phaseIDs(state.Pattern.Instances)); err != nil {
			old := tmpl.TimeAllocation
			if rerr := c.store.UpdatePhase(ctx, tmpl.ID, models.PhasePatch{TimeAllocation: &old}); rerr != nil {
				c.log.Warn("could not restore template load", "template", tmpl.ID, "error", rerr)
			}
			c.changed(projectID)
			return c.fail(ctx, "Could not remove occurrences", err)
		}
		c.changed(projectID)
		if _, err := c.materialize(ctx, projectID); err != nil {
			return c.fail(ctx, "Some occurrences were not regenerated", err)
		}
	}

	c.succeed(ctx, "Recurring load updated", fmt.Sprintf("%.2fh per occurrence (%s)", hours, mode))
	return nil
}

// DeleteRecurringTemplate deletes the active series, template and
// occurrences together, and returns how many phases were removed. A legacy
// numbered series is removed the same way.
func (c *Coordinator) DeleteRecurringTemplate(ctx context.Context, projectID string) (int, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if state.Pattern.Kind == PatternNone {
		return 0, ErrNoTemplate
	}

	ids := state.SeriesIDs()
	if err := c.runBackup(ctx, "delete recurring series"); err != nil {
		return 0, c.fail(ctx, "Could not delete recurring milestones", err)
	}
	if err := c.store.DeletePhases(ctx, ids); err != nil {
		return 0, c.fail(ctx, "Could not delete recurring milestones", err)
	}
	c.changed(projectID)

	c.succeed(ctx, "Recurring milestones deleted", fmt.Sprintf("%d phase(s) removed", len(ids)))
	return len(ids), nil
}

func phaseIDs(phases []models.Phase) []string {
	ids := make([]string, 0, len(phases))
	for _, p := range phases {
		ids = append(ids, p.ID)
	}
	return ids
}

func without(phases []models.Phase, ids []string) []models.Phase {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var out []models.Phase
	for _, p := range phases {
		if !drop[p.ID] {
			out = append(out, p)
		}
	}
	return out
}
