// Package recurrence expands recurrence configurations into bounded,
// deterministic sequences of occurrence dates.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// Window bounds an expansion. A nil End is open-ended; the occurrence cap
// is then the only bound.
type Window struct {
	Start time.Time
	End   *time.Time
}

// Occurrence is one generated date with its 1-indexed position in the series.
type Occurrence struct {
	Number int
	Date   time.Time
}

// InvalidConfigError carries the validation problems of a rejected config.
type InvalidConfigError struct {
	Problems []string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid recurrence config: %s", strings.Join(e.Problems, "; "))
}

// Generate expands the config into at most maxOccurrences dates inside the
// window, starting with occurrence number 1.
func Generate(cfg models.RecurrenceConfig, w Window, maxOccurrences int) ([]Occurrence, error) {
	return GenerateFrom(cfg, w, 0, maxOccurrences)
}

// GenerateFrom skips the first skip occurrences of the series and returns up
// to count of the following ones. Occurrence numbers continue from skip+1, so
// a series can be materialized in batches.
func GenerateFrom(cfg models.RecurrenceConfig, w Window, skip, count int) ([]Occurrence, error) {
	if problems := Validate(cfg); len(problems) > 0 {
		return nil, &InvalidConfigError{Problems: problems}
	}
	if skip < 0 {
		skip = 0
	}
	if count <= 0 || count > constants.HardOccurrenceCeiling {
		count = constants.HardOccurrenceCeiling
	}

	first := FirstOccurrence(cfg, w.Start)
	out := make([]Occurrence, 0, min(count, 64))
	for k := skip; len(out) < count && k < constants.HardOccurrenceCeiling; k++ {
		d := nthOccurrence(cfg, first, k)
		if w.End != nil && d.After(*w.End) {
			break
		}
		out = append(out, Occurrence{Number: k + 1, Date: d})
	}
	return out, nil
}

// Count returns how many occurrences fall inside the window, up to maxOccurrences.
func Count(cfg models.RecurrenceConfig, w Window, maxOccurrences int) (int, error) {
	occ, err := Generate(cfg, w, maxOccurrences)
	if err != nil {
		return 0, err
	}
	return len(occ), nil
}

// FirstOccurrence returns the first date of the series anchored at start.
// The config must be valid.
func FirstOccurrence(cfg models.RecurrenceConfig, start time.Time) time.Time {
	start = utils.NormalizeToMidnight(start)

	switch cfg.Type {
	case constants.RecurrenceDaily:
		return utils.AddDays(start, cfg.Interval)
	case constants.RecurrenceWeekly:
		offset := (*cfg.WeeklyDayOfWeek - int(start.Weekday()) + 7) % 7
		return utils.AddDays(start, offset)
	case constants.RecurrenceMonthly:
		candidate := monthlyDateFor(cfg, start.Year(), start.Month(), start.Location())
		if candidate.Before(start) {
			candidate = monthlyDateFor(cfg, start.Year(), start.Month()+1, start.Location())
		}
		return candidate
	}
	return start
}

// nthOccurrence computes the k-th (0-based) occurrence directly from the
// first one. Monthly series re-derive the day for every target month so a
// clamped short month never drags later months with it.
func nthOccurrence(cfg models.RecurrenceConfig, first time.Time, k int) time.Time {
	switch cfg.Type {
	case constants.RecurrenceDaily:
		return utils.AddDays(first, k*cfg.Interval)
	case constants.RecurrenceWeekly:
		return utils.AddDays(first, 7*k*cfg.Interval)
	case constants.RecurrenceMonthly:
		return monthlyDateFor(cfg, first.Year(), first.Month()+time.Month(k*cfg.Interval), first.Location())
	}
	return first
}

// monthlyDateFor applies the monthly rule to a month. Months outside 1-12
// are normalized the way time.Date does.
func monthlyDateFor(cfg models.RecurrenceConfig, year int, month time.Month, loc *time.Location) time.Time {
	anchor := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	year, month = anchor.Year(), anchor.Month()

	if cfg.MonthlyPattern == constants.MonthlyPatternDayOfWeek {
		return WeekdayOfMonth(year, month, time.Weekday(*cfg.MonthlyDayOfWeek), *cfg.MonthlyWeekOfMonth, loc)
	}
	return ClampedDayOfMonth(year, month, *cfg.MonthlyDate, loc)
}

// ClampedDayOfMonth returns the given day of the month, clamped to the
// month's last day.
func ClampedDayOfMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	day = min(day, utils.DaysInMonth(year, month))
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// WeekdayOfMonth returns the week-th occurrence of the weekday in the month.
// week 1-4 are literal, 6 is the last occurrence and 5 the second-to-last.
// An nth occurrence that does not exist falls back to the last one, and a
// second-to-last that would leave the month also degrades to the last.
func WeekdayOfMonth(year int, month time.Month, weekday time.Weekday, week int, loc *time.Location) time.Time {
	days := utils.DaysInMonth(year, month)
	lastDate := time.Date(year, month, days, 0, 0, 0, 0, loc)
	last := days - (int(lastDate.Weekday())-int(weekday)+7)%7

	switch week {
	case constants.WeekOfMonthLast:
		return time.Date(year, month, last, 0, 0, 0, 0, loc)
	case constants.WeekOfMonthSecondLast:
		if last-7 < 1 {
			return time.Date(year, month, last, 0, 0, 0, 0, loc)
		}
		return time.Date(year, month, last-7, 0, 0, 0, 0, loc)
	}

	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	day := 1 + (int(weekday)-int(firstOfMonth.Weekday())+7)%7 + (week-1)*7
	if day > days {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
