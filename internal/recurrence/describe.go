package recurrence

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
)

// Describe formats a recurrence config into a human-readable string
func Describe(cfg models.RecurrenceConfig) string {
	if len(Validate(cfg)) > 0 {
		return "invalid recurrence"
	}

	switch cfg.Type {
	case constants.RecurrenceDaily:
		if cfg.Interval == 1 {
			return "every day"
		}
		return fmt.Sprintf("every %d days", cfg.Interval)
	case constants.RecurrenceWeekly:
		day := time.Weekday(*cfg.WeeklyDayOfWeek).String()
		if cfg.Interval == 1 {
			return fmt.Sprintf("every week on %s", day)
		}
		return fmt.Sprintf("every %d weeks on %s", cfg.Interval, day)
	case constants.RecurrenceMonthly:
		every := "every month"
		if cfg.Interval > 1 {
			every = fmt.Sprintf("every %d months", cfg.Interval)
		}
		if cfg.MonthlyPattern == constants.MonthlyPatternDate {
			return fmt.Sprintf("%s on the %s", every, humanize.Ordinal(*cfg.MonthlyDate))
		}
		return fmt.Sprintf("%s on the %s %s", every, weekOfMonthLabel(*cfg.MonthlyWeekOfMonth),
			time.Weekday(*cfg.MonthlyDayOfWeek))
	}
	return "unknown"
}

func weekOfMonthLabel(week int) string {
	switch week {
	case constants.WeekOfMonthLast:
		return "last"
	case constants.WeekOfMonthSecondLast:
		return "second-last"
	default:
		return humanize.Ordinal(week)
	}
}
