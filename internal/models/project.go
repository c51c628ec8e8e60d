package models

import (
	"fmt"
	"strings"
	"time"
)

// WeekdayMask flags which weekdays receive automatic hour distribution.
// It is indexed by time.Weekday.
type WeekdayMask [7]bool

// DefaultWeekdayMask enables Monday through Friday.
func DefaultWeekdayMask() WeekdayMask {
	return WeekdayMask{false, true, true, true, true, true, false}
}

// Includes reports whether the weekday is enabled.
func (m WeekdayMask) Includes(wd time.Weekday) bool {
	return m[wd]
}

// IsEmpty reports whether no weekday is enabled.
func (m WeekdayMask) IsEmpty() bool {
	for _, on := range m {
		if on {
			return false
		}
	}
	return true
}

func (m WeekdayMask) String() string {
	var days []string
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if m[wd] {
			days = append(days, wd.String()[:3])
		}
	}
	if len(days) == 0 {
		return "none"
	}
	return strings.Join(days, ",")
}

// Bits encodes the mask as seven 0/1 characters starting with Sunday.
func (m WeekdayMask) Bits() string {
	var b strings.Builder
	for _, on := range m {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseWeekdayMaskBits decodes the output of Bits.
func ParseWeekdayMaskBits(bits string) (WeekdayMask, error) {
	var m WeekdayMask
	if len(bits) != 7 {
		return m, fmt.Errorf("weekday mask must have 7 digits, got %q", bits)
	}
	for i, c := range bits {
		switch c {
		case '1':
			m[i] = true
		case '0':
		default:
			return m, fmt.Errorf("invalid weekday mask digit %q", c)
		}
	}
	return m, nil
}

// ParseWeekdayMask accepts a comma-separated list of weekday names such as
// "mon,tue,fri". Full names and three-letter abbreviations are accepted.
func ParseWeekdayMask(list string) (WeekdayMask, error) {
	var m WeekdayMask
	for _, raw := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			full := strings.ToLower(wd.String())
			if name == full || name == full[:3] {
				m[wd] = true
				found = true
				break
			}
		}
		if !found {
			return m, fmt.Errorf("unknown weekday %q", raw)
		}
	}
	return m, nil
}

type Project struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Client           string      `json:"client,omitempty"`
	Group            string      `json:"group,omitempty"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          *time.Time  `json:"end_date,omitempty"` // ignored when Continuous
	EstimatedHours   float64     `json:"estimated_hours"`
	Continuous       bool        `json:"continuous"`
	AutoEstimateDays WeekdayMask `json:"auto_estimate_days"`
	CreatedAt        time.Time   `json:"created_at"`
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("project start date is required")
	}
	if p.EstimatedHours < 0 {
		return fmt.Errorf("estimated hours cannot be negative")
	}
	if !p.Continuous {
		if p.EndDate == nil {
			return fmt.Errorf("project end date is required unless the project is continuous")
		}
		if p.EndDate.Before(p.StartDate) {
			return fmt.Errorf("project end date (%s) is before start date (%s)",
				p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
		}
	}
	return nil
}

// End returns the end date used for range math. The second value is false
// for continuous projects, whose end date is never used.
func (p *Project) End() (time.Time, bool) {
	if p.Continuous || p.EndDate == nil {
		return time.Time{}, false
	}
	return *p.EndDate, true
}

// Contains reports whether the date falls within the project's range.
// Continuous projects only bound the start.
func (p *Project) Contains(date time.Time) bool {
	if date.Before(p.StartDate) {
		return false
	}
	end, bounded := p.End()
	return !bounded || !date.After(end)
}
