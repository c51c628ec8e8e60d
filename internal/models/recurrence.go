package models

import "github.com/julianstephens/phaseplan/internal/constants"

// RecurrenceConfig is the persisted recurrence shape of a recurring template.
// Optional selectors are pointers so that 0 (Sunday) survives a round trip
// and absent fields stay absent.
type RecurrenceConfig struct {
	Type               constants.RecurrenceType `json:"type"`
	Interval           int                      `json:"interval"`
	WeeklyDayOfWeek    *int                     `json:"weeklyDayOfWeek,omitempty"`
	MonthlyPattern     constants.MonthlyPattern `json:"monthlyPattern,omitempty"`
	MonthlyDate        *int                     `json:"monthlyDate,omitempty"`
	MonthlyWeekOfMonth *int                     `json:"monthlyWeekOfMonth,omitempty"`
	MonthlyDayOfWeek   *int                     `json:"monthlyDayOfWeek,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Clone returns a deep copy of the config.
func (c RecurrenceConfig) Clone() RecurrenceConfig {
	out := c
	out.WeeklyDayOfWeek = copyInt(c.WeeklyDayOfWeek)
	out.MonthlyDate = copyInt(c.MonthlyDate)
	out.MonthlyWeekOfMonth = copyInt(c.MonthlyWeekOfMonth)
	out.MonthlyDayOfWeek = copyInt(c.MonthlyDayOfWeek)
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
