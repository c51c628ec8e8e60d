// Package lifecycle orchestrates the recurring milestone and split phase
// workflows on top of the recurrence, budget and phase reconciliation
// packages.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/phaseplan/internal/budget"
	"github.com/julianstephens/phaseplan/internal/config"
	"github.com/julianstephens/phaseplan/internal/logger"
	"github.com/julianstephens/phaseplan/internal/metrics"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/notifier"
	"github.com/julianstephens/phaseplan/internal/storage"
	"github.com/julianstephens/phaseplan/internal/utils"
	"github.com/julianstephens/phaseplan/internal/validation"
)

// Store is the storage the coordinator needs.
type Store interface {
	storage.PhaseStore
	GetProject(ctx context.Context, id string) (models.Project, error)
}

// BackupFunc is called before an operation deletes stored phases.
type BackupFunc func(ctx context.Context, reason string) error

type Coordinator struct {
	store       Store
	notifier    notifier.Notifier
	distributor *budget.Distributor
	validator   *validation.Validator
	flowMu      sync.Mutex
	flows       map[string]*Workflow
	limits      config.Limits
	runway      int
	now         func() time.Time
	backup      BackupFunc
	log         *log.Logger
}

type Option func(*Coordinator)

// WithNotifier sets the notifier for user-initiated workflows.
func WithNotifier(n notifier.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithConfig applies generation limits and runway from the settings file.
func WithConfig(cfg config.Config) Option {
	return func(c *Coordinator) {
		c.limits = cfg.Limits
		c.runway = cfg.RunwayMonths
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithDistributor shares a distribution memo with other callers.
func WithDistributor(d *budget.Distributor) Option {
	return func(c *Coordinator) { c.distributor = d }
}

// WithBackup installs a hook run before destructive operations.
func WithBackup(fn BackupFunc) Option {
	return func(c *Coordinator) { c.backup = fn }
}

func New(store Store, opts ...Option) *Coordinator {
	defaults := config.Default()
	c := &Coordinator{
		store:       store,
		notifier:    notifier.Discard{},
		distributor: budget.NewDistributor(),
		validator:   validation.New(),
		flows:       map[string]*Workflow{},
		limits:      defaults.Limits,
		runway:      defaults.RunwayMonths,
		now:         time.Now,
		log:         logger.With("lifecycle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.New(io.Discard)
	}
	return c
}

// Workflow returns the session state machine of a project, creating it idle
// on first use. A session parked awaiting confirmation only blocks further
// sessions of the same project.
func (c *Coordinator) Workflow(projectID string) *Workflow {
	c.flowMu.Lock()
	defer c.flowMu.Unlock()
	w, ok := c.flows[projectID]
	if !ok {
		w = NewWorkflow()
		c.flows[projectID] = w
	}
	return w
}

// Distributor exposes the shared distribution memo.
func (c *Coordinator) Distributor() *budget.Distributor {
	return c.distributor
}

func (c *Coordinator) today() time.Time {
	return utils.NormalizeToMidnight(c.now())
}

// State is the derived view of one project's phases. It is rebuilt from
// storage on every call and never patched in place.
type State struct {
	Project models.Project
	Phases  []models.Phase
	Pattern Pattern
	Mode    validation.Exclusivity
	// Materialized counts stored occurrences of the detected series.
	Materialized int
}

// Split returns the project's split phases ordered by start date.
func (s State) Split() []models.Phase {
	var out []models.Phase
	for _, p := range s.Phases {
		if p.IsSplit() {
			out = append(out, p)
		}
	}
	sortByStart(out)
	return out
}

// Milestones returns phases that belong to no split set or series.
func (s State) Milestones() []models.Phase {
	inSeries := make(map[string]bool, len(s.Pattern.Instances))
	for _, inst := range s.Pattern.Instances {
		inSeries[inst.ID] = true
	}
	var out []models.Phase
	for _, p := range s.Phases {
		if p.StartDate == nil && !p.IsRecurring && p.TemplateID == "" && !inSeries[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// SeriesIDs returns the template id (when stored) and every instance id.
func (s State) SeriesIDs() []string {
	var ids []string
	if s.Pattern.Kind == PatternTemplate {
		ids = append(ids, s.Pattern.Template.ID)
	}
	for _, inst := range s.Pattern.Instances {
		ids = append(ids, inst.ID)
	}
	return ids
}

// LoadState reads the project and its phases and derives the active pattern.
func (c *Coordinator) LoadState(ctx context.Context, projectID string) (State, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load project: %w", err)
	}
	phases, err := c.store.ListPhasesForProject(ctx, projectID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load phases: %w", err)
	}

	pattern := Detect(phases)
	return State{
		Project:      project,
		Phases:       phases,
		Pattern:      pattern,
		Mode:         c.validator.CheckExclusivity(phases),
		Materialized: len(pattern.Instances),
	}, nil
}

// checkBudget applies the budget gate. Continuous projects driven by a
// recurring series have no applicable budget.
func (c *Coordinator) checkBudget(project models.Project, existing []models.Phase, candidate float64, recurring bool, site string) error {
	if project.Continuous && recurring {
		return nil
	}
	check := budget.WouldExceedBudget(budget.Allocatable(existing), candidate, project.EstimatedHours)
	if err := check.Err(); err != nil {
		metrics.IncrementBudgetRejection(site)
		return err
	}
	return nil
}

// changed invalidates derived caches after a write to the project.
func (c *Coordinator) changed(projectID string) {
	if n := c.distributor.Invalidate(projectID); n > 0 {
		c.log.Debug("invalidated distributions", "project", projectID, "entries", n)
	}
}

func (c *Coordinator) runBackup(ctx context.Context, reason string) error {
	if c.backup == nil {
		return nil
	}
	if err := c.backup(ctx, reason); err != nil {
		return fmt.Errorf("backup before %s failed: %w", reason, err)
	}
	return nil
}

// succeed reports a completed user-initiated action.
func (c *Coordinator) succeed(ctx context.Context, title, description string) {
	if err := c.notifier.Notify(ctx, notifier.Success(title, description)); err != nil {
		c.log.Warn("notification failed", "title", title, "error", err)
	}
}

// fail logs and reports a persistence failure, returning it unchanged.
func (c *Coordinator) fail(ctx context.Context, title string, err error) error {
	c.log.Error(title, "error", err)
	if nerr := c.notifier.Notify(ctx, notifier.Failure(title, err)); nerr != nil {
		c.log.Warn("notification failed", "title", title, "error", nerr)
	}
	return err
}

func findPhase(phases []models.Phase, id string) (models.Phase, bool) {
	for _, p := range phases {
		if p.ID == id {
			return p, true
		}
	}
	return models.Phase{}, false
}

func sortByStart(phases []models.Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		return phases[i].EffectiveStart().Before(phases[j].EffectiveStart())
	})
}
