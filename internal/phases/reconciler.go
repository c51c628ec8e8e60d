// Package phases reconciles split-phase sets: the initial midpoint split,
// insertion of a new phase at the tail, overlap repair, cascading date moves
// and the minimum end-date rule.
package phases

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

var (
	// ErrNoRoom is returned when a timeline is too short to be divided.
	ErrNoRoom = errors.New("not enough days to make room for another phase")
	// ErrPhaseNotFound is returned when a cascade targets an unknown phase.
	ErrPhaseNotFound = errors.New("phase not found")
	// ErrEndBeforeMinimum is returned when a phase with hours would end too early.
	ErrEndBeforeMinimum = errors.New("end date is before the minimum permissible end date")
)

// Span is a date range with an hour allocation, used for planned phases
// that have not been persisted yet.
type Span struct {
	Name  string
	Start time.Time
	End   time.Time
	Hours float64
}

// Days returns the inclusive day count of the span.
func (s Span) Days() int {
	return utils.DayDifference(s.Start, s.End) + 1
}

// Phase converts the span into an unsaved split phase for the project.
func (s Span) Phase(projectID string) models.Phase {
	return models.Phase{
		ProjectID:      projectID,
		Name:           s.Name,
		StartDate:      models.TimePtr(s.Start),
		EndDate:        s.End,
		TimeAllocation: s.Hours,
	}
}

// CalculateSplit divides the range at its temporal midpoint and the budget
// in half. The second span starts the day after the first ends.
func CalculateSplit(start, end time.Time, budget float64) ([2]Span, error) {
	start = utils.NormalizeToMidnight(start)
	end = utils.NormalizeToMidnight(end)

	total := utils.DayDifference(start, end)
	if total < 1 {
		return [2]Span{}, fmt.Errorf("split %s..%s: %w", utils.FormatDate(start), utils.FormatDate(end), ErrNoRoom)
	}

	mid := utils.AddDays(start, total/2)
	half := budget / 2
	return [2]Span{
		{Name: "Phase 1", Start: start, End: mid, Hours: half},
		{Name: "Phase 2", Start: utils.AddDays(mid, 1), End: end, Hours: budget - half},
	}, nil
}

// InsertionLength returns how many days a new tail phase takes from a last
// phase spanning the given number of days.
func InsertionLength(lastSpanDays int) int {
	if lastSpanDays <= constants.ShortPhaseThresholdDays {
		return constants.ShortPhaseInsertDays
	}
	return constants.LongPhaseInsertDays
}

// Insertion is the result of PlanInsertion: the shrunk last phase and the
// span the new phase occupies.
type Insertion struct {
	Shrunk models.Phase
	New    Span
}

// PlanInsertion makes room for a new split phase by shrinking the last one.
// The new phase ends where the last phase used to end.
func PlanInsertion(phases []models.Phase, name string, hours float64) (Insertion, error) {
	split := SortedSplit(phases)
	if len(split) == 0 {
		return Insertion{}, fmt.Errorf("insert phase: no split phases to shrink")
	}

	last := split[len(split)-1]
	lastStart := utils.NormalizeToMidnight(*last.StartDate)
	lastEnd := utils.NormalizeToMidnight(last.EndDate)

	span := utils.DayDifference(lastStart, lastEnd) + 1
	n := InsertionLength(span)
	if span <= n {
		return Insertion{}, fmt.Errorf("insert phase after %q: %w", last.Name, ErrNoRoom)
	}

	newStart := utils.AddDays(lastEnd, -(n - 1))
	last.EndDate = utils.AddDays(newStart, -1)

	return Insertion{
		Shrunk: last,
		New:    Span{Name: name, Start: newStart, End: lastEnd, Hours: hours},
	}, nil
}

// RepairOverlaps walks split phases by start date in a single forward pass
// and pushes each start past the previous end. Returns the repaired set and
// the phases that changed. Phases without a start date pass through.
func RepairOverlaps(phases []models.Phase) (repaired []models.Phase, changed []models.Phase) {
	split := SortedSplit(phases)

	for i := 1; i < len(split); i++ {
		prevEnd := utils.NormalizeToMidnight(split[i-1].EndDate)
		cur := &split[i]
		if prevEnd.Before(utils.NormalizeToMidnight(*cur.StartDate)) {
			continue
		}
		newStart := utils.AddDays(prevEnd, 1)
		cur.StartDate = models.TimePtr(newStart)
		if cur.EndDate.Before(newStart) {
			cur.EndDate = newStart
		}
		changed = append(changed, cur.Clone())
	}

	return mergeByID(phases, split), changed
}

// CascadeDateMove sets the end date of one split phase and shifts every
// following phase forward by the minimal number of days needed to keep one
// day of spacing. The cascade stops at the first phase that already starts
// after its predecessor ends. Returns the full set and the changed phases.
func CascadeDateMove(phases []models.Phase, id string, newEnd time.Time) ([]models.Phase, []models.Phase, error) {
	split := SortedSplit(phases)
	newEnd = utils.NormalizeToMidnight(newEnd)

	idx := -1
	for i := range split {
		if split[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, fmt.Errorf("cascade %s: %w", id, ErrPhaseNotFound)
	}
	if newEnd.Before(utils.NormalizeToMidnight(*split[idx].StartDate)) {
		return nil, nil, fmt.Errorf("cascade %s: end %s is before start %s", id,
			utils.FormatDate(newEnd), utils.FormatDate(*split[idx].StartDate))
	}

	split[idx].EndDate = newEnd
	changed := []models.Phase{split[idx].Clone()}

	for i := idx + 1; i < len(split); i++ {
		prevEnd := utils.NormalizeToMidnight(split[i-1].EndDate)
		start := utils.NormalizeToMidnight(*split[i].StartDate)
		if start.After(prevEnd) {
			break
		}
		shift := utils.DayDifference(start, prevEnd) + 1
		split[i].StartDate = models.TimePtr(utils.AddDays(start, shift))
		split[i].EndDate = utils.AddDays(split[i].EndDate, shift)
		changed = append(changed, split[i].Clone())
	}

	return mergeByID(phases, split), changed, nil
}

// MinimumEndDate returns the earliest end date a phase may be given. A phase
// carrying hours may not end before today or its current end date. Phases
// without hours are only bounded by their own start; the zero time means
// unbounded.
func MinimumEndDate(phase models.Phase, today time.Time) time.Time {
	if phase.TimeAllocation > 0 {
		return utils.MaxDate(utils.NormalizeToMidnight(today), utils.NormalizeToMidnight(phase.EndDate))
	}
	if phase.StartDate != nil {
		return utils.NormalizeToMidnight(*phase.StartDate)
	}
	return time.Time{}
}

// CheckEndDate returns ErrEndBeforeMinimum when newEnd is earlier than
// MinimumEndDate.
func CheckEndDate(phase models.Phase, newEnd, today time.Time) error {
	minEnd := MinimumEndDate(phase, today)
	if !minEnd.IsZero() && utils.NormalizeToMidnight(newEnd).Before(minEnd) {
		return fmt.Errorf("%w: %s must end on or after %s", ErrEndBeforeMinimum, phase.Name, utils.FormatDate(minEnd))
	}
	return nil
}

// SortedSplit returns copies of the split phases ordered by start date.
func SortedSplit(phases []models.Phase) []models.Phase {
	var split []models.Phase
	for _, p := range phases {
		if p.IsSplit() {
			split = append(split, p.Clone())
		}
	}
	sort.SliceStable(split, func(i, j int) bool {
		return split[i].StartDate.Before(*split[j].StartDate)
	})
	return split
}

// mergeByID replaces phases in the original order with updated copies.
func mergeByID(original, updated []models.Phase) []models.Phase {
	byID := make(map[string]models.Phase, len(updated))
	for _, p := range updated {
		byID[p.ID] = p
	}
	out := make([]models.Phase, len(original))
	for i, p := range original {
		if u, ok := byID[p.ID]; ok && p.IsSplit() {
			out[i] = u
			continue
		}
		out[i] = p.Clone()
	}
	return out
}
