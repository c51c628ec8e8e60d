package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type Store struct {
	Version  int                             `json:"version"`
	Settings models.Settings                 `json:"settings"`
	Projects map[string]models.Project       `json:"projects"`
	Phases   map[string]models.Phase         `json:"phases"`
	Holidays map[string]models.Holiday       `json:"holidays"`
	Events   map[string]models.CalendarEvent `json:"events"`
}

// JSONStore keeps everything in one JSON file. Every write rewrites the file.
type JSONStore struct {
	mu    sync.Mutex
	path  string
	store *Store
	now   func() time.Time
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
		now:  time.Now,
	}
}

func (s *JSONStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.store = &Store{
		Version:  1,
		Settings: models.Settings{Timezone: "Local", NotificationsEnabled: true},
	}
	s.store.ensureMaps()

	return s.save()
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'phaseplan init' first")
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	s.store = &Store{}
	if err := json.Unmarshal(data, s.store); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	s.store.ensureMaps()

	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (st *Store) ensureMaps() {
	if st.Projects == nil {
		st.Projects = make(map[string]models.Project)
	}
	if st.Phases == nil {
		st.Phases = make(map[string]models.Phase)
	}
	if st.Holidays == nil {
		st.Holidays = make(map[string]models.Holiday)
	}
	if st.Events == nil {
		st.Events = make(map[string]models.CalendarEvent)
	}
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}

	return nil
}

// locked runs fn with the mutex held after checking that the store is loaded.
func (s *JSONStore) locked(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ErrNotLoaded
	}
	return fn()
}

func (s *JSONStore) GetSettings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := s.locked(ctx, func() error {
		out = s.store.Settings
		return nil
	})
	return out, err
}

func (s *JSONStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	return s.locked(ctx, func() error {
		s.store.Settings = settings
		return s.save()
	})
}

func (s *JSONStore) AddProject(ctx context.Context, project models.Project) (models.Project, error) {
	project = PrepareProject(project, s.now())
	err := s.locked(ctx, func() error {
		if _, exists := s.store.Projects[project.ID]; exists {
			return fmt.Errorf("project %s already exists", project.ID)
		}
		s.store.Projects[project.ID] = project
		return s.save()
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (s *JSONStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	var out models.Project
	err := s.locked(ctx, func() error {
		p, ok := s.store.Projects[id]
		if !ok {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		out = p
		return nil
	})
	return out, err
}

func (s *JSONStore) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := s.locked(ctx, func() error {
		for _, p := range s.store.Projects {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (s *JSONStore) UpdateProject(ctx context.Context, project models.Project) error {
	return s.locked(ctx, func() error {
		if _, ok := s.store.Projects[project.ID]; !ok {
			return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
		}
		s.store.Projects[project.ID] = project
		return s.save()
	})
}

func (s *JSONStore) DeleteProject(ctx context.Context, id string) error {
	return s.locked(ctx, func() error {
		if _, ok := s.store.Projects[id]; !ok {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		delete(s.store.Projects, id)
		for pid, p := range s.store.Phases {
			if p.ProjectID == id {
				delete(s.store.Phases, pid)
			}
		}
		for eid, e := range s.store.Events {
			if e.ProjectID == id {
				delete(s.store.Events, eid)
			}
		}
		return s.save()
	})
}

func (s *JSONStore) CreatePhase(ctx context.Context, phase models.Phase) (models.Phase, error) {
	phase = PreparePhase(phase, s.now())
	err := s.locked(ctx, func() error {
		if _, ok := s.store.Projects[phase.ProjectID]; !ok {
			return fmt.Errorf("project %s: %w", phase.ProjectID, ErrNotFound)
		}
		s.store.Phases[phase.ID] = phase
		return s.save()
	})
	if err != nil {
		return models.Phase{}, err
	}
	return phase.Clone(), nil
}

func (s *JSONStore) GetPhase(ctx context.Context, id string) (models.Phase, error) {
	var out models.Phase
	err := s.locked(ctx, func() error {
		p, ok := s.store.Phases[id]
		if !ok {
			return fmt.Errorf("phase %s: %w", id, ErrNotFound)
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (s *JSONStore) UpdatePhase(ctx context.Context, id string, patch models.PhasePatch) error {
	return s.locked(ctx, func() error {
		p, ok := s.store.Phases[id]
		if !ok {
			return fmt.Errorf("phase %s: %w", id, ErrNotFound)
		}
		s.store.Phases[id] = PreparePhase(p.Apply(patch), s.now())
		return s.save()
	})
}

func (s *JSONStore) DeletePhase(ctx context.Context, id string) error {
	return s.locked(ctx, func() error {
		if _, ok := s.store.Phases[id]; !ok {
			return fmt.Errorf("phase %s: %w", id, ErrNotFound)
		}
		delete(s.store.Phases, id)
		return s.save()
	})
}

func (s *JSONStore) DeletePhases(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.locked(ctx, func() error {
		for _, id := range ids {
			delete(s.store.Phases, id)
		}
		return s.save()
	})
}

func (s *JSONStore) ListPhasesForProject(ctx context.Context, projectID string) ([]models.Phase, error) {
	var out []models.Phase
	err := s.locked(ctx, func() error {
		for _, p := range s.store.Phases {
			if p.ProjectID == projectID {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	SortPhases(out)
	return out, err
}

func (s *JSONStore) AddHoliday(ctx context.Context, holiday models.Holiday) (models.Holiday, error) {
	if holiday.ID == "" {
		holiday.ID = NewID()
	}
	holiday.Date = utils.NormalizeToMidnight(holiday.Date)
	err := s.locked(ctx, func() error {
		s.store.Holidays[holiday.ID] = holiday
		return s.save()
	})
	return holiday, err
}

func (s *JSONStore) GetHolidays(ctx context.Context) ([]models.Holiday, error) {
	var out []models.Holiday
	err := s.locked(ctx, func() error {
		for _, h := range s.store.Holidays {
			out = append(out, h)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}

func (s *JSONStore) AddEvent(ctx context.Context, event models.CalendarEvent) (models.CalendarEvent, error) {
	if event.ID == "" {
		event.ID = NewID()
	}
	event.Date = utils.NormalizeToMidnight(event.Date)
	err := s.locked(ctx, func() error {
		if _, ok := s.store.Projects[event.ProjectID]; !ok {
			return fmt.Errorf("project %s: %w", event.ProjectID, ErrNotFound)
		}
		s.store.Events[event.ID] = event
		return s.save()
	})
	return event, err
}

func (s *JSONStore) GetEventsForProject(ctx context.Context, projectID string) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	err := s.locked(ctx, func() error {
		for _, e := range s.store.Events {
			if e.ProjectID == projectID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

// SortPhases orders phases by end date, then occurrence number, then name,
// matching the ORDER BY of the SQL backends.
func SortPhases(phases []models.Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		a, b := phases[i], phases[j]
		if !a.EndDate.Equal(b.EndDate) {
			return a.EndDate.Before(b.EndDate)
		}
		if a.OccurrenceNumber != b.OccurrenceNumber {
			return a.OccurrenceNumber < b.OccurrenceNumber
		}
		return a.Name < b.Name
	})
}
