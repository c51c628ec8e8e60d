package recurrence

import (
	"fmt"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
)

// Validate checks a recurrence config and returns human-readable problems.
// An empty result means the config is valid.
func Validate(cfg models.RecurrenceConfig) []string {
	var problems []string

	switch cfg.Type {
	case constants.RecurrenceDaily, constants.RecurrenceWeekly, constants.RecurrenceMonthly:
	default:
		problems = append(problems, fmt.Sprintf("recurrence type must be daily, weekly or monthly (got %q)", cfg.Type))
	}

	if cfg.Interval < 1 {
		problems = append(problems, "interval must be at least 1")
	}

	switch cfg.Type {
	case constants.RecurrenceWeekly:
		if !inRange(cfg.WeeklyDayOfWeek, 0, 6) {
			problems = append(problems, "weekly recurrence requires a day of week between 0 (Sunday) and 6 (Saturday)")
		}
	case constants.RecurrenceMonthly:
		switch cfg.MonthlyPattern {
		case constants.MonthlyPatternDate:
			if !inRange(cfg.MonthlyDate, 1, 31) {
				problems = append(problems, "monthly date pattern requires a day of month between 1 and 31")
			}
		case constants.MonthlyPatternDayOfWeek:
			if !inRange(cfg.MonthlyWeekOfMonth, 1, 6) {
				problems = append(problems, "monthly day-of-week pattern requires a week of month between 1 and 6")
			}
			if !inRange(cfg.MonthlyDayOfWeek, 0, 6) {
				problems = append(problems, "monthly day-of-week pattern requires a day of week between 0 and 6")
			}
		default:
			problems = append(problems, fmt.Sprintf("monthly pattern must be date or dayOfWeek (got %q)", cfg.MonthlyPattern))
		}
	}

	return problems
}

func inRange(v *int, lo, hi int) bool {
	return v != nil && *v >= lo && *v <= hi
}
