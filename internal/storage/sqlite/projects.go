package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/storage"
)

func (s *Store) AddProject(ctx context.Context, project models.Project) (models.Project, error) {
	project = storage.PrepareProject(project, s.now())
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects ("+storage.ProjectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		storage.ProjectArgs(project)...)
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to add project: %w", err)
	}
	return project, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	var row storage.ProjectRow
	err := s.db.QueryRowContext(ctx, "SELECT "+storage.ProjectColumns+" FROM projects WHERE id = ?", id).Scan(row.Dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
		}
		return models.Project{}, err
	}
	return row.Project()
}

func (s *Store) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+storage.ProjectColumns+" FROM projects ORDER BY start_date, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var row storage.ProjectRow
		if err := rows.Scan(row.Dest()...); err != nil {
			return nil, err
		}
		p, err := row.Project()
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, project models.Project) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE projects SET name = ?, client = ?, group_name = ?, start_date = ?, end_date = ?,
       estimated_hours = ?, continuous = ?, auto_estimate_days = ?
WHERE id = ?`,
		project.Name, project.Client, project.Group,
		storage.EncodeDate(project.StartDate), storage.EncodeOptionalDate(project.EndDate),
		project.EstimatedHours, project.Continuous, project.AutoEstimateDays.Bits(), project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRow(res, "project", project.ID)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(res, "project", id)
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
