package models

import "time"

// Holiday is a date excluded from working-day math for every project.
type Holiday struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// CalendarEvent is already-scheduled time on a date. Any event on a date
// suppresses automatic estimates for that date.
type CalendarEvent struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Hours     float64   `json:"hours"`
}
