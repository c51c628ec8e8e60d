package utils

import (
	"time"

	"github.com/julianstephens/phaseplan/internal/models"
)

// NormalizeToMidnight drops the time of day, keeping the date in t's location.
func NormalizeToMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves the date by n calendar days. Calendar stepping keeps the
// wall clock across DST transitions.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DayDifference returns the whole number of calendar days from a to b.
// It is negative when b is before a.
func DayDifference(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	// Compare civil dates in UTC so DST never produces 23 or 25 hour days
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// SameDay reports whether both times fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MaxDate returns the later of two dates.
func MaxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// MinDate returns the earlier of two dates.
func MinDate(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// HolidaySet is a set of calendar dates keyed by YYYY-MM-DD.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from plain dates.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[FormatDate(d)] = struct{}{}
	}
	return set
}

// HolidaySetFrom builds a set from stored holidays.
func HolidaySetFrom(holidays []models.Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[FormatDate(h.Date)] = struct{}{}
	}
	return set
}

// Contains reports whether the date is a holiday. A nil set contains nothing.
func (h HolidaySet) Contains(date time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[FormatDate(date)]
	return ok
}

// IsBusinessDay reports whether the date is a weekday that is not a holiday.
func IsBusinessDay(date time.Time, holidays HolidaySet) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !holidays.Contains(date)
}

// IsWorkingDay reports whether the date is enabled by the weekday mask and is
// not a holiday.
func IsWorkingDay(date time.Time, mask models.WeekdayMask, holidays HolidaySet) bool {
	return mask.Includes(date.Weekday()) && !holidays.Contains(date)
}

// AddBusinessDays steps n business days forward (or backward when n is
// negative). The start date itself is never counted.
func AddBusinessDays(date time.Time, n int, holidays HolidaySet) time.Time {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	current := date
	for n > 0 {
		current = AddDays(current, step)
		if IsBusinessDay(current, holidays) {
			n--
		}
	}
	return current
}

// CountWorkingDays counts the working days in the inclusive range [start, end].
func CountWorkingDays(start, end time.Time, mask models.WeekdayMask, holidays HolidaySet) int {
	count := 0
	for d := NormalizeToMidnight(start); !d.After(end); d = AddDays(d, 1) {
		if IsWorkingDay(d, mask, holidays) {
			count++
		}
	}
	return count
}
