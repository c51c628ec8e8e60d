package lifecycle

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// PatternKind tags the result of Detect.
type PatternKind int

const (
	PatternNone PatternKind = iota
	PatternTemplate
	PatternLegacyNumbered
)

func (k PatternKind) String() string {
	switch k {
	case PatternTemplate:
		return "template"
	case PatternLegacyNumbered:
		return "legacyNumbered"
	default:
		return "none"
	}
}

// Pattern is the recurring series found in a stored phase set.
//
// For PatternTemplate, Template is the stored template and Config its
// recurrence config. For PatternLegacyNumbered, Template is a synthesized,
// unsaved template named BaseName with an inferred Config. Instances holds
// the materialized occurrences ordered by end date.
type Pattern struct {
	Kind      PatternKind
	Template  models.Phase
	Config    models.RecurrenceConfig
	BaseName  string
	Instances []models.Phase
}

// numberedSuffix matches names like "Weekly report 3". It also matches any
// user-chosen name ending in a space and digits ("Review 2"), so it only
// runs over rows without a series identifier.
var numberedSuffix = regexp.MustCompile(`\s\d+$`)

// Detect finds the active recurring pattern. A stored template with a config
// wins; otherwise numbered milestones without a start date or series id are
// read as a legacy series. Split phases never take part.
func Detect(phases []models.Phase) Pattern {
	for _, p := range phases {
		if p.IsRecurring && p.RecurringConfig != nil {
			var instances []models.Phase
			for _, q := range phases {
				if q.TemplateID == p.ID && !q.IsRecurring {
					instances = append(instances, q.Clone())
				}
			}
			sortByEnd(instances)
			return Pattern{
				Kind:      PatternTemplate,
				Template:  p.Clone(),
				Config:    p.RecurringConfig.Clone(),
				BaseName:  p.Name,
				Instances: instances,
			}
		}
	}

	var numbered []models.Phase
	for _, p := range phases {
		if p.StartDate != nil || p.IsRecurring || p.TemplateID != "" {
			continue
		}
		if numberedSuffix.MatchString(p.Name) {
			numbered = append(numbered, p.Clone())
		}
	}
	if len(numbered) == 0 {
		return Pattern{Kind: PatternNone}
	}
	sortByEnd(numbered)

	delta := 0
	if len(numbered) > 1 {
		delta = utils.DayDifference(numbered[0].EndDate, numbered[1].EndDate)
	}
	cfg := InferConfig(delta, numbered[0].EndDate.Weekday(), numbered[0].EndDate.Day())
	base := strings.TrimSpace(numberedSuffix.ReplaceAllString(numbered[0].Name, ""))

	return Pattern{
		Kind: PatternLegacyNumbered,
		Template: models.Phase{
			ProjectID:       numbered[0].ProjectID,
			Name:            base,
			EndDate:         numbered[0].EndDate,
			TimeAllocation:  numbered[0].TimeAllocation,
			IsRecurring:     true,
			RecurringConfig: &cfg,
		},
		Config:    cfg,
		BaseName:  base,
		Instances: numbered,
	}
}

// InferConfig maps the day delta between two consecutive occurrences to a
// recurrence config: 1 is daily, multiples of 7 are weekly, 28-31 monthly by
// date, anything else daily with the delta as interval. A delta below 1
// (a single instance or duplicate dates) reads as weekly.
func InferConfig(delta int, weekday time.Weekday, dayOfMonth int) models.RecurrenceConfig {
	weekly := func(interval int) models.RecurrenceConfig {
		return models.RecurrenceConfig{
			Type:            constants.RecurrenceWeekly,
			Interval:        interval,
			WeeklyDayOfWeek: models.IntPtr(int(weekday)),
		}
	}

	switch {
	case delta < 1:
		return weekly(1)
	case delta == 1:
		return models.RecurrenceConfig{Type: constants.RecurrenceDaily, Interval: 1}
	case delta%7 == 0:
		return weekly(delta / 7)
	case delta >= 28 && delta <= 31:
		return models.RecurrenceConfig{
			Type:           constants.RecurrenceMonthly,
			Interval:       1,
			MonthlyPattern: constants.MonthlyPatternDate,
			MonthlyDate:    models.IntPtr(dayOfMonth),
		}
	default:
		return models.RecurrenceConfig{Type: constants.RecurrenceDaily, Interval: delta}
	}
}

func sortByEnd(phases []models.Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		if !phases[i].EndDate.Equal(phases[j].EndDate) {
			return phases[i].EndDate.Before(phases[j].EndDate)
		}
		return phases[i].OccurrenceNumber < phases[j].OccurrenceNumber
	})
}
