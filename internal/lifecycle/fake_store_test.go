package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/notifier"
	"github.com/julianstephens/phaseplan/internal/storage"
)

// memStore is an in-memory Store. failCreate, failUpdate and failDelete,
// when set, are consulted before the matching write.
type memStore struct {
	mu         sync.Mutex
	projects   map[string]models.Project
	phases     map[string]models.Phase
	seq        int
	failCreate func(models.Phase) error
	failUpdate func(id string, patch models.PhasePatch) error
	failDelete func(ids []string) error
	creates    int
}

func newMemStore(projects ...models.Project) *memStore {
	s := &memStore{projects: map[string]models.Project{}, phases: map[string]models.Phase{}}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	return s
}

func (s *memStore) GetProject(_ context.Context, id string) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *memStore) CreatePhase(_ context.Context, phase models.Phase) (models.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.failCreate != nil {
		if err := s.failCreate(phase); err != nil {
			return models.Phase{}, err
		}
	}
	if phase.ID == "" {
		s.seq++
		phase.ID = fmt.Sprintf("ph-%03d", s.seq)
	}
	s.phases[phase.ID] = phase.Clone()
	return phase, nil
}

func (s *memStore) GetPhase(_ context.Context, id string) (models.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phases[id]
	if !ok {
		return models.Phase{}, fmt.Errorf("phase %s: %w", id, storage.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *memStore) UpdatePhase(_ context.Context, id string, patch models.PhasePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		if err := s.failUpdate(id, patch); err != nil {
			return err
		}
	}
	p, ok := s.phases[id]
	if !ok {
		return fmt.Errorf("phase %s: %w", id, storage.ErrNotFound)
	}
	s.phases[id] = p.Apply(patch).Clone()
	return nil
}

func (s *memStore) DeletePhase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phases[id]; !ok {
		return fmt.Errorf("phase %s: %w", id, storage.ErrNotFound)
	}
	delete(s.phases, id)
	return nil
}

func (s *memStore) DeletePhases(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		if err := s.failDelete(ids); err != nil {
			return err
		}
	}
	for _, id := range ids {
		delete(s.phases, id)
	}
	return nil
}

func (s *memStore) ListPhasesForProject(_ context.Context, projectID string) ([]models.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Phase
	for _, p := range s.phases {
		if p.ProjectID == projectID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) add(p models.Phase) models.Phase {
	created, err := s.CreatePhase(context.Background(), p)
	if err != nil {
		panic(err)
	}
	return created
}

func (s *memStore) all(projectID string) []models.Phase {
	phases, _ := s.ListPhasesForProject(context.Background(), projectID)
	return phases
}

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifier.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notifier.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.Title)
	}
	return out
}
