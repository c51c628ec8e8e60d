package models

// Settings represents application-wide settings stored alongside the data
type Settings struct {
	Timezone             string `json:"timezone"`              // IANA timezone name, or "Local"
	NotificationsEnabled bool   `json:"notifications_enabled"` // whether user-facing notifications are shown
}
