package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/phaseplan/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotLoaded is returned when a store is used before Init or Load.
var ErrNotLoaded = errors.New("storage not loaded")

// PhaseStore is the persistence surface the lifecycle coordinator depends on.
// Implementations must be safe for concurrent use.
type PhaseStore interface {
	// CreatePhase persists a new phase and returns it with ID and CreatedAt set.
	CreatePhase(ctx context.Context, phase models.Phase) (models.Phase, error)
	GetPhase(ctx context.Context, id string) (models.Phase, error)
	UpdatePhase(ctx context.Context, id string, patch models.PhasePatch) error
	DeletePhase(ctx context.Context, id string) error
	// DeletePhases removes every phase in ids. Unknown ids are ignored.
	DeletePhases(ctx context.Context, ids []string) error
	ListPhasesForProject(ctx context.Context, projectID string) ([]models.Phase, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	// Projects
	AddProject(ctx context.Context, project models.Project) (models.Project, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	GetAllProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, project models.Project) error
	// DeleteProject removes the project with its phases and events.
	DeleteProject(ctx context.Context, id string) error

	// Phases
	PhaseStore

	// Calendar
	AddHoliday(ctx context.Context, holiday models.Holiday) (models.Holiday, error)
	GetHolidays(ctx context.Context) ([]models.Holiday, error)
	AddEvent(ctx context.Context, event models.CalendarEvent) (models.CalendarEvent, error)
	GetEventsForProject(ctx context.Context, projectID string) ([]models.CalendarEvent, error)

	// Utils
	GetConfigPath() string
}
