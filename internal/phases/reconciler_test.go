package phases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/phaseplan/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func split(id string, start, end time.Time, hours float64) models.Phase {
	return models.Phase{
		ID:             id,
		ProjectID:      "proj",
		Name:           id,
		StartDate:      models.TimePtr(start),
		EndDate:        end,
		TimeAllocation: hours,
	}
}

func byID(phases []models.Phase) map[string]models.Phase {
	out := make(map[string]models.Phase, len(phases))
	for _, p := range phases {
		out[p.ID] = p
	}
	return out
}

func TestCalculateSplit_Midpoint(t *testing.T) {
	spans, err := CalculateSplit(day(2025, 1, 1), day(2025, 1, 31), 28)
	require.NoError(t, err)

	assert.Equal(t, day(2025, 1, 1), spans[0].Start)
	assert.Equal(t, day(2025, 1, 16), spans[0].End)
	assert.Equal(t, 14.0, spans[0].Hours)
	assert.Equal(t, day(2025, 1, 17), spans[1].Start)
	assert.Equal(t, day(2025, 1, 31), spans[1].End)
	assert.Equal(t, 14.0, spans[1].Hours)
	assert.True(t, spans[0].End.Before(spans[1].Start))
}

func TestCalculateSplit_TwoDayRange(t *testing.T) {
	spans, err := CalculateSplit(day(2025, 3, 1), day(2025, 3, 2), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, spans[0].Days())
	assert.Equal(t, 1, spans[1].Days())
	assert.InDelta(t, 5.0, spans[0].Hours+spans[1].Hours, 1e-9)
}

func TestCalculateSplit_SingleDay(t *testing.T) {
	_, err := CalculateSplit(day(2025, 3, 1), day(2025, 3, 1), 5)
	assert.ErrorIs(t, err, ErrNoRoom)
}

func TestInsertionLength(t *testing.T) {
	assert.Equal(t, 1, InsertionLength(7))
	assert.Equal(t, 1, InsertionLength(21))
	assert.Equal(t, 6, InsertionLength(22))
}

func TestPlanInsertion_ShortLastPhase(t *testing.T) {
	phases := []models.Phase{
		split("p1", day(2025, 1, 1), day(2025, 1, 16), 14),
		split("p2", day(2025, 1, 17), day(2025, 1, 31), 14),
	}

	ins, err := PlanInsertion(phases, "Phase 3", 0)
	require.NoError(t, err)

	assert.Equal(t, "p2", ins.Shrunk.ID)
	assert.Equal(t, day(2025, 1, 30), ins.Shrunk.EndDate)
	assert.Equal(t, day(2025, 1, 31), ins.New.Start)
	assert.Equal(t, day(2025, 1, 31), ins.New.End)
	assert.Equal(t, "Phase 3", ins.New.Name)
}

func TestPlanInsertion_LongLastPhase(t *testing.T) {
	phases := []models.Phase{
		split("p1", day(2025, 1, 1), day(2025, 1, 31), 10),
		split("p2", day(2025, 2, 1), day(2025, 2, 28), 10),
	}

	ins, err := PlanInsertion(phases, "Wrap-up", 4)
	require.NoError(t, err)

	assert.Equal(t, day(2025, 2, 22), ins.Shrunk.EndDate)
	assert.Equal(t, day(2025, 2, 23), ins.New.Start)
	assert.Equal(t, day(2025, 2, 28), ins.New.End)
	assert.Equal(t, 6, ins.New.Days())
	assert.Equal(t, 4.0, ins.New.Hours)
	// original slice is untouched
	assert.Equal(t, day(2025, 2, 28), phases[1].EndDate)
}

func TestPlanInsertion_NoRoom(t *testing.T) {
	phases := []models.Phase{split("p1", day(2025, 1, 31), day(2025, 1, 31), 1)}
	_, err := PlanInsertion(phases, "x", 0)
	assert.ErrorIs(t, err, ErrNoRoom)

	_, err = PlanInsertion(nil, "x", 0)
	assert.Error(t, err)
}

func TestRepairOverlaps(t *testing.T) {
	phases := []models.Phase{
		split("p1", day(2025, 1, 1), day(2025, 1, 10), 5),
		split("p2", day(2025, 1, 10), day(2025, 1, 20), 5),
		split("p3", day(2025, 1, 15), day(2025, 1, 25), 5),
		{ID: "m", Name: "Launch", EndDate: day(2025, 1, 12)},
	}

	repaired, changed := RepairOverlaps(phases)
	got := byID(repaired)

	assert.Len(t, changed, 2)
	assert.Equal(t, day(2025, 1, 11), *got["p2"].StartDate)
	assert.Equal(t, day(2025, 1, 21), *got["p3"].StartDate)
	assert.Equal(t, day(2025, 1, 25), got["p3"].EndDate)
	assert.Nil(t, got["m"].StartDate)
	assert.Equal(t, "m", repaired[3].ID, "order of the input is preserved")
}

func TestRepairOverlaps_Idempotent(t *testing.T) {
	phases := []models.Phase{
		split("p1", day(2025, 1, 1), day(2025, 1, 20), 5),
		split("p2", day(2025, 1, 5), day(2025, 1, 10), 5),
		split("p3", day(2025, 1, 8), day(2025, 1, 30), 5),
	}

	once, _ := RepairOverlaps(phases)
	twice, changed := RepairOverlaps(once)

	assert.Empty(t, changed)
	assert.Equal(t, once, twice)

	got := byID(once)
	assert.Equal(t, day(2025, 1, 21), *got["p2"].StartDate)
	assert.Equal(t, day(2025, 1, 21), got["p2"].EndDate, "inverted phase end is lifted to its start")
	assert.Equal(t, day(2025, 1, 22), *got["p3"].StartDate)
}

func TestCascadeDateMove_StopsAtGap(t *testing.T) {
	phases := []models.Phase{
		split("p1", day(2025, 1, 1), day(2025, 1, 10), 5),
		split("p2", day(2025, 1, 11), day(2025, 1, 20), 5),
		split("p3", day(2025, 1, 25), day(2025, 1, 31), 5),
	}

	all, changed, err := CascadeDateMove(phases, "p1", day(2025, 1, 14))
	require.NoError(t, err)
	got := byID(all)

	assert.Len(t, changed, 2)
	assert.Equal(t, day(2025, 1, 14), got["p1"].EndDate)
	assert.Equal(t, day(2025, 1, 15), *got["p2"].StartDate)
	assert.Equal(t, day(2025, 1, 24), got["p2"].EndDate)
	assert.Equal(t, day(2025, 1, 25), *got["p3"].StartDate)
}

func TestCascadeDateMove_Transitive(t *testing.T) {
	phases := []models.Phase{
		split("p1", day(2025, 1, 1), day(2025, 1, 10), 5),
		split("p2", day(2025, 1, 11), day(2025, 1, 20), 5),
		split("p3", day(2025, 1, 25), day(2025, 1, 31), 5),
	}

	all, changed, err := CascadeDateMove(phases, "p1", day(2025, 1, 16))
	require.NoError(t, err)
	got := byID(all)

	assert.Len(t, changed, 3)
	assert.Equal(t, day(2025, 1, 17), *got["p2"].StartDate)
	assert.Equal(t, day(2025, 1, 26), got["p2"].EndDate)
	assert.Equal(t, day(2025, 1, 27), *got["p3"].StartDate)
	assert.Equal(t, day(2025, 2, 2), got["p3"].EndDate)
}

func TestCascadeDateMove_Errors(t *testing.T) {
	phases := []models.Phase{split("p1", day(2025, 1, 5), day(2025, 1, 10), 5)}

	_, _, err := CascadeDateMove(phases, "missing", day(2025, 1, 12))
	assert.ErrorIs(t, err, ErrPhaseNotFound)

	_, _, err = CascadeDateMove(phases, "p1", day(2025, 1, 4))
	assert.Error(t, err)
}

func TestMinimumEndDate(t *testing.T) {
	today := day(2025, 1, 15)

	withHours := split("p", day(2025, 1, 1), day(2025, 1, 10), 8)
	assert.Equal(t, today, MinimumEndDate(withHours, today))

	withHours.EndDate = day(2025, 1, 20)
	assert.Equal(t, day(2025, 1, 20), MinimumEndDate(withHours, today))

	noHours := split("p", day(2025, 1, 1), day(2025, 1, 10), 0)
	assert.Equal(t, day(2025, 1, 1), MinimumEndDate(noHours, today))

	milestone := models.Phase{Name: "m", EndDate: day(2025, 1, 3)}
	assert.True(t, MinimumEndDate(milestone, today).IsZero())
}

func TestCheckEndDate(t *testing.T) {
	today := day(2025, 1, 15)
	p := split("p", day(2025, 1, 1), day(2025, 1, 20), 8)

	assert.ErrorIs(t, CheckEndDate(p, day(2025, 1, 14), today), ErrEndBeforeMinimum)
	assert.NoError(t, CheckEndDate(p, day(2025, 1, 20), today))
	assert.NoError(t, CheckEndDate(p, day(2025, 2, 1), today))
}
