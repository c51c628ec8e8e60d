package sqlite

import (
	"context"
	"fmt"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/storage"
	"github.com/julianstephens/phaseplan/internal/utils"
)

func (s *Store) AddHoliday(ctx context.Context, holiday models.Holiday) (models.Holiday, error) {
	if holiday.ID == "" {
		holiday.ID = storage.NewID()
	}
	holiday.Date = utils.NormalizeToMidnight(holiday.Date)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO holidays (id, date, name) VALUES (?, ?, ?) ON CONFLICT(date) DO UPDATE SET name = excluded.name",
		holiday.ID, storage.EncodeDate(holiday.Date), holiday.Name)
	if err != nil {
		return models.Holiday{}, fmt.Errorf("failed to add holiday: %w", err)
	}
	return holiday, nil
}

func (s *Store) GetHolidays(ctx context.Context) ([]models.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, date, name FROM holidays ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []models.Holiday
	for rows.Next() {
		var h models.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = storage.DecodeDate(date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) AddEvent(ctx context.Context, event models.CalendarEvent) (models.CalendarEvent, error) {
	if event.ID == "" {
		event.ID = storage.NewID()
	}
	event.Date = utils.NormalizeToMidnight(event.Date)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO calendar_events (id, project_id, title, date, hours) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.ProjectID, event.Title, storage.EncodeDate(event.Date), event.Hours)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to add event: %w", err)
	}
	return event, nil
}

func (s *Store) GetEventsForProject(ctx context.Context, projectID string) ([]models.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_id, title, date, hours FROM calendar_events WHERE project_id = ? ORDER BY date", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var e models.CalendarEvent
		var date string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Title, &date, &e.Hours); err != nil {
			return nil, err
		}
		if e.Date, err = storage.DecodeDate(date); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
