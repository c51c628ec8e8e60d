package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/phaseplan/internal/metrics"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/recurrence"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// createConcurrency bounds in-flight create calls within one batch.
const createConcurrency = 4

// seriesPlan is how far a series should be materialized right now.
type seriesPlan struct {
	mode   string
	window recurrence.Window
	target int
}

// planSeries computes the materialization target. Continuous projects keep
// a rolling runway: everything through today plus the runway, but never more
// than the cadence past what has already elapsed, nor the series cap. Bounded
// projects materialize the whole range up to the bounded cap.
func (c *Coordinator) planSeries(project models.Project, cfg models.RecurrenceConfig) (seriesPlan, error) {
	start := utils.NormalizeToMidnight(project.StartDate)

	if end, ok := project.End(); ok {
		end = utils.NormalizeToMidnight(end)
		window := recurrence.Window{Start: start, End: &end}
		n, err := recurrence.Count(cfg, window, c.limits.BoundedCap)
		if err != nil {
			return seriesPlan{}, err
		}
		return seriesPlan{mode: "bounded", window: window, target: min(n, c.limits.BoundedCap, c.limits.HardCeiling)}, nil
	}

	today := c.today()
	runwayEnd := today.AddDate(0, c.runway, 0)
	window := recurrence.Window{Start: start, End: &runwayEnd}

	through, err := recurrence.Count(cfg, window, c.limits.SeriesCap)
	if err != nil {
		return seriesPlan{}, err
	}
	elapsed, err := recurrence.Count(cfg, recurrence.Window{Start: start, End: &today}, c.limits.SeriesCap)
	if err != nil {
		return seriesPlan{}, err
	}

	target := min(through, elapsed+c.limits.ContinuousCadence, c.limits.SeriesCap, c.limits.HardCeiling)
	return seriesPlan{mode: "continuous", window: window, target: target}, nil
}

// EnsureOccurrences materializes the next batch of a project's recurring
// series when fewer occurrences are stored than the plan calls for. Missing
// occurrence numbers are filled in order, so a retry picks up exactly what a
// failed batch left behind. It is background work and never notifies. A
// batch that fails partway keeps the occurrences already created and returns
// the joined failures.
func (c *Coordinator) EnsureOccurrences(ctx context.Context, projectID string) (int, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return c.ensure(ctx, state)
}

// Refresh loads a project's state for display. A continuous project's
// series is topped up first; a failed top-up is logged and the stored
// occurrences are shown as they are.
func (c *Coordinator) Refresh(ctx context.Context, projectID string) (State, error) {
	state, err := c.LoadState(ctx, projectID)
	if err != nil {
		return State{}, err
	}
	if !state.Project.Continuous || state.Pattern.Kind != PatternTemplate {
		return state, nil
	}
	created, err := c.ensure(ctx, state)
	if err != nil {
		c.log.Warn("could not top up recurring series", "project", projectID, "error", err)
	}
	if created == 0 {
		return state, nil
	}
	return c.LoadState(ctx, projectID)
}

func (c *Coordinator) ensure(ctx context.Context, state State) (int, error) {
	if state.Pattern.Kind != PatternTemplate {
		return 0, nil
	}
	if state.Materialized >= c.limits.HardCeiling {
		c.log.Debug("series at hard ceiling, not generating", "project", state.Project.ID, "materialized", state.Materialized)
		return 0, nil
	}

	plan, err := c.planSeries(state.Project, state.Pattern.Config)
	if err != nil {
		return 0, err
	}
	missing := plan.target - state.Materialized
	if missing <= 0 {
		return 0, nil
	}

	occ, err := recurrence.Generate(state.Pattern.Config, plan.window, plan.target)
	if err != nil {
		return 0, err
	}
	have := make(map[int]bool, len(state.Pattern.Instances))
	for _, inst := range state.Pattern.Instances {
		have[inst.OccurrenceNumber] = true
	}
	var todo []recurrence.Occurrence
	for _, o := range occ {
		if !have[o.Number] {
			todo = append(todo, o)
		}
		if len(todo) == min(missing, c.limits.BatchSize) {
			break
		}
	}
	if len(todo) == 0 {
		return 0, nil
	}

	created, err := c.createOccurrences(ctx, state.Pattern.Template, todo)
	if created > 0 {
		metrics.AddOccurrencesGenerated(plan.mode, created)
		c.changed(state.Project.ID)
	}
	c.log.Debug("generated occurrences", "project", state.Project.ID, "mode", plan.mode,
		"created", created, "requested", len(todo), "target", plan.target)
	return created, err
}

// createOccurrences issues one create call per occurrence concurrently.
// Every call runs to completion regardless of the others.
func (c *Coordinator) createOccurrences(ctx context.Context, tmpl models.Phase, occ []recurrence.Occurrence) (int, error) {
	errs := make([]error, len(occ))

	var g errgroup.Group
	g.SetLimit(createConcurrency)
	for i, o := range occ {
		g.Go(func() error {
			_, err := c.store.CreatePhase(ctx, models.Phase{
				ProjectID:        tmpl.ProjectID,
				Name:             fmt.Sprintf("%s %d", tmpl.Name, o.Number),
				EndDate:          o.Date,
				TimeAllocation:   tmpl.TimeAllocation,
				TemplateID:       tmpl.ID,
				OccurrenceNumber: o.Number,
			})
			if err != nil {
				errs[i] = fmt.Errorf("occurrence %d (%s): %w", o.Number, utils.FormatDate(o.Date), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			metrics.IncrementGenerationFailure()
		}
	}
	created := len(occ) - failed
	if failed > 0 {
		return created, fmt.Errorf("created %d of %d occurrences: %w", created, len(occ), errors.Join(errs...))
	}
	return created, nil
}

// materialize runs batches until the plan is met, a batch creates nothing or
// a batch fails.
func (c *Coordinator) materialize(ctx context.Context, projectID string) (int, error) {
	total := 0
	maxRounds := c.limits.HardCeiling/max(c.limits.BatchSize, 1) + 1
	for range maxRounds {
		state, err := c.LoadState(ctx, projectID)
		if err != nil {
			return total, err
		}
		created, err := c.ensure(ctx, state)
		total += created
		if err != nil || created == 0 {
			return total, err
		}
	}
	return total, nil
}

// splitByDate partitions instances into those ending before day and the rest.
func splitByDate(instances []models.Phase, day time.Time) (past, future []models.Phase) {
	for _, inst := range instances {
		if utils.NormalizeToMidnight(inst.EndDate).Before(day) {
			past = append(past, inst)
		} else {
			future = append(future, inst)
		}
	}
	return past, future
}
