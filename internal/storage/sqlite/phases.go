package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/phaseplan/internal/metrics"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/storage"
)

func (s *Store) CreatePhase(ctx context.Context, phase models.Phase) (models.Phase, error) {
	defer metrics.ObserveStoreOp("create_phase", time.Now())

	phase = storage.PreparePhase(phase, s.now())
	args, err := storage.PhaseArgs(phase)
	if err != nil {
		return models.Phase{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO phases ("+storage.PhaseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	if err != nil {
		return models.Phase{}, fmt.Errorf("failed to create phase %q: %w", phase.Name, err)
	}
	return phase, nil
}

func (s *Store) GetPhase(ctx context.Context, id string) (models.Phase, error) {
	var row storage.PhaseRow
	err := s.db.QueryRowContext(ctx, "SELECT "+storage.PhaseColumns+" FROM phases WHERE id = ?", id).Scan(row.Dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Phase{}, fmt.Errorf("phase %s: %w", id, storage.ErrNotFound)
		}
		return models.Phase{}, err
	}
	return row.Phase()
}

func (s *Store) UpdatePhase(ctx context.Context, id string, patch models.PhasePatch) error {
	defer metrics.ObserveStoreOp("update_phase", time.Now())

	sets, args := storage.PatchAssignments(patch, func(int) string { return "?" })
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE phases SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update phase: %w", err)
	}
	return requireRow(res, "phase", id)
}

func (s *Store) DeletePhase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM phases WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete phase: %w", err)
	}
	return requireRow(res, "phase", id)
}

func (s *Store) DeletePhases(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	defer metrics.ObserveStoreOp("delete_phases", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM phases WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete phase %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListPhasesForProject(ctx context.Context, projectID string) ([]models.Phase, error) {
	defer metrics.ObserveStoreOp("list_phases", time.Now())

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+storage.PhaseColumns+" FROM phases WHERE project_id = ? ORDER BY end_date, occurrence_number, name",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []models.Phase
	for rows.Next() {
		var row storage.PhaseRow
		if err := rows.Scan(row.Dest()...); err != nil {
			return nil, err
		}
		p, err := row.Phase()
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}
