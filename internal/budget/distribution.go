package budget

import (
	"sort"
	"time"

	"github.com/julianstephens/phaseplan/internal/cache"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// DayAllocation is the auto-estimated hours a phase places on one date.
type DayAllocation struct {
	Date    time.Time
	PhaseID string
	Hours   float64
	// Fallback is set when the phase had no working day in its segment and
	// all of its hours landed on the end date.
	Fallback bool
}

// DistributionInput describes one project's distribution problem.
type DistributionInput struct {
	ProjectStart time.Time
	Phases       []models.Phase
	Mask         models.WeekdayMask
	Holidays     utils.HolidaySet
	Events       []models.CalendarEvent
}

// Distribute spreads each phase's hours evenly over the working days of its
// segment. Phases are ordered by end date; a segment runs from the day after
// the previous phase's end (or the project start) through the phase's end.
// Dates holding any calendar event receive no auto-estimate. A segment without
// working days puts all of its hours on the end date.
func Distribute(in DistributionInput) []DayAllocation {
	phases := sortedByEnd(Allocatable(in.Phases))

	eventDays := make(map[string]bool, len(in.Events))
	for _, e := range in.Events {
		eventDays[utils.FormatDate(e.Date)] = true
	}

	var out []DayAllocation
	if len(phases) == 0 {
		return out
	}
	segStart := utils.NormalizeToMidnight(in.ProjectStart)
	if in.ProjectStart.IsZero() {
		segStart = utils.NormalizeToMidnight(phases[0].EffectiveStart())
	}
	for _, p := range phases {
		end := utils.NormalizeToMidnight(p.EndDate)

		var working []time.Time
		for d := segStart; !d.After(end); d = utils.AddDays(d, 1) {
			if utils.IsWorkingDay(d, in.Mask, in.Holidays) {
				working = append(working, d)
			}
		}

		if len(working) == 0 {
			if p.TimeAllocation > 0 {
				out = append(out, DayAllocation{Date: end, PhaseID: p.ID, Hours: p.TimeAllocation, Fallback: true})
			}
		} else {
			perDay := p.TimeAllocation / float64(len(working))
			for _, d := range working {
				if eventDays[utils.FormatDate(d)] || perDay == 0 {
					continue
				}
				out = append(out, DayAllocation{Date: d, PhaseID: p.ID, Hours: perDay})
			}
		}

		segStart = utils.MaxDate(segStart, utils.AddDays(end, 1))
	}
	return out
}

// HoursByDate totals allocations per YYYY-MM-DD date.
func HoursByDate(allocs []DayAllocation) map[string]float64 {
	out := make(map[string]float64)
	for _, a := range allocs {
		out[utils.FormatDate(a.Date)] += a.Hours
	}
	return out
}

func sortedByEnd(phases []models.Phase) []models.Phase {
	out := models.ClonePhases(phases)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type phaseKey struct {
	ID    string
	End   string
	Hours float64
	Kind  string
}

type distributionKey struct {
	ProjectID    string
	ProjectStart string
	Mask         [7]bool
	Phases       []phaseKey
	Holidays     []string
	EventDates   []string
}

// Distributor memoizes Distribute per project. Callers invalidate a project
// after any change to its phases, holidays or events.
type Distributor struct {
	memo *cache.Memo[distributionKey, []DayAllocation]
}

func NewDistributor() *Distributor {
	return &Distributor{memo: cache.New[distributionKey, []DayAllocation]()}
}

// Distribute returns the memoized distribution for the project.
func (d *Distributor) Distribute(projectID string, in DistributionInput) []DayAllocation {
	key := keyFor(projectID, in)
	allocs, _ := d.memo.Get(key, func() ([]DayAllocation, error) {
		return Distribute(in), nil
	})
	return allocs
}

// Invalidate drops every memoized distribution of the project.
func (d *Distributor) Invalidate(projectID string) int {
	return d.memo.InvalidateWhere(func(k distributionKey) bool {
		return k.ProjectID == projectID
	})
}

// Reset drops every memoized distribution, for changes such as holidays
// that affect all projects.
func (d *Distributor) Reset() {
	d.memo.Reset()
}

// Stats exposes the memo counters.
func (d *Distributor) Stats() cache.Stats {
	return d.memo.Stats()
}

func keyFor(projectID string, in DistributionInput) distributionKey {
	key := distributionKey{
		ProjectID:    projectID,
		ProjectStart: utils.FormatDate(in.ProjectStart),
		Mask:         in.Mask,
	}
	for _, p := range in.Phases {
		key.Phases = append(key.Phases, phaseKey{
			ID:    p.ID,
			End:   utils.FormatDate(p.EndDate),
			Hours: p.TimeAllocation,
			Kind:  string(p.Kind()),
		})
	}
	for h := range in.Holidays {
		key.Holidays = append(key.Holidays, h)
	}
	sort.Strings(key.Holidays)
	for _, e := range in.Events {
		key.EventDates = append(key.EventDates, utils.FormatDate(e.Date))
	}
	sort.Strings(key.EventDates)
	return key
}
