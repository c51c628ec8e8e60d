package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/julianstephens/phaseplan/internal/models"
)

const (
	settingTimezone             = "timezone"
	settingNotificationsEnabled = "notifications_enabled"
)

func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	return s.getSettings()
}

func (s *Store) getSettings() (models.Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	settings := models.Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case settingTimezone:
			settings.Timezone = value
		case settingNotificationsEnabled:
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", settingNotificationsEnabled, err)
			}
			settings.NotificationsEnabled = enabled
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}
	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings not found")
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.saveSettings(settings)
}

func (s *Store) saveSettings(settings models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(settingTimezone, settings.Timezone); err != nil {
		return err
	}
	if _, err := stmt.Exec(settingNotificationsEnabled, strconv.FormatBool(settings.NotificationsEnabled)); err != nil {
		return err
	}
	return tx.Commit()
}
