package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/recurrence"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func weeklyOn(dow int) models.RecurrenceConfig {
	return models.RecurrenceConfig{
		Type:            constants.RecurrenceWeekly,
		Interval:        1,
		WeeklyDayOfWeek: models.IntPtr(dow),
	}
}

func milestone(id, name string, end time.Time, hours float64) models.Phase {
	return models.Phase{ID: id, ProjectID: "p1", Name: name, EndDate: end, TimeAllocation: hours}
}

func TestDetect_TemplateWins(t *testing.T) {
	cfg := weeklyOn(1)
	phases := []models.Phase{
		{ID: "t", ProjectID: "p1", Name: "Report", EndDate: day(2025, 1, 6), IsRecurring: true, RecurringConfig: &cfg},
		{ID: "o2", ProjectID: "p1", Name: "Report 2", EndDate: day(2025, 1, 13), TemplateID: "t", OccurrenceNumber: 2},
		{ID: "o1", ProjectID: "p1", Name: "Report 1", EndDate: day(2025, 1, 6), TemplateID: "t", OccurrenceNumber: 1},
		milestone("m", "Review 2", day(2025, 2, 1), 1),
	}

	p := Detect(phases)
	require.Equal(t, PatternTemplate, p.Kind)
	assert.Equal(t, "t", p.Template.ID)
	assert.Equal(t, constants.RecurrenceWeekly, p.Config.Type)
	require.Len(t, p.Instances, 2)
	assert.Equal(t, "o1", p.Instances[0].ID)
}

func TestDetect_LegacyNumberedWeekly(t *testing.T) {
	phases := []models.Phase{
		milestone("b", "Standup 2", day(2025, 1, 13), 2),
		milestone("a", "Standup 1", day(2025, 1, 6), 2),
		milestone("c", "Standup 3", day(2025, 1, 20), 2),
		milestone("x", "Launch", day(2025, 2, 1), 5),
	}

	p := Detect(phases)
	require.Equal(t, PatternLegacyNumbered, p.Kind)
	assert.Equal(t, "Standup", p.BaseName)
	assert.Equal(t, constants.RecurrenceWeekly, p.Config.Type)
	assert.Equal(t, 1, p.Config.Interval)
	assert.Equal(t, int(time.Monday), *p.Config.WeeklyDayOfWeek)
	assert.Len(t, p.Instances, 3)
	assert.True(t, p.Template.IsRecurring)
	assert.Empty(t, p.Template.ID, "legacy template is virtual")
}

func TestDetect_SplitPhasesAreExcluded(t *testing.T) {
	phases := []models.Phase{
		{ID: "s1", Name: "Phase 1", StartDate: models.TimePtr(day(2025, 1, 1)), EndDate: day(2025, 1, 16)},
		{ID: "s2", Name: "Phase 2", StartDate: models.TimePtr(day(2025, 1, 17)), EndDate: day(2025, 1, 31)},
	}
	assert.Equal(t, PatternNone, Detect(phases).Kind)
}

func TestDetect_RecurringFlagWithoutConfigFallsBack(t *testing.T) {
	phases := []models.Phase{
		{ID: "t", Name: "Broken", EndDate: day(2025, 1, 6), IsRecurring: true},
		milestone("m", "Plain", day(2025, 1, 8), 1),
	}
	assert.Equal(t, PatternNone, Detect(phases).Kind)
}

func TestInferConfig(t *testing.T) {
	tests := []struct {
		delta    int
		typ      constants.RecurrenceType
		interval int
	}{
		{0, constants.RecurrenceWeekly, 1},
		{1, constants.RecurrenceDaily, 1},
		{7, constants.RecurrenceWeekly, 1},
		{14, constants.RecurrenceWeekly, 2},
		{28, constants.RecurrenceWeekly, 4},
		{29, constants.RecurrenceMonthly, 1},
		{31, constants.RecurrenceMonthly, 1},
		{10, constants.RecurrenceDaily, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("delta %d", tt.delta), func(t *testing.T) {
			cfg := InferConfig(tt.delta, time.Wednesday, 15)
			assert.Equal(t, tt.typ, cfg.Type)
			assert.Equal(t, tt.interval, cfg.Interval)
			assert.Empty(t, recurrence.Validate(cfg))
		})
	}
}

func TestDetect_RoundTripsGeneratedSeries(t *testing.T) {
	end := day(2025, 6, 30)
	window := recurrence.Window{Start: day(2025, 1, 1), End: &end}

	configs := map[string]models.RecurrenceConfig{
		"daily":    {Type: constants.RecurrenceDaily, Interval: 1},
		"weekly":   weeklyOn(3),
		"biweekly": {Type: constants.RecurrenceWeekly, Interval: 2, WeeklyDayOfWeek: models.IntPtr(5)},
		"monthly":  {Type: constants.RecurrenceMonthly, Interval: 1, MonthlyPattern: constants.MonthlyPatternDate, MonthlyDate: models.IntPtr(15)},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			occ, err := recurrence.Generate(cfg, window, 10)
			require.NoError(t, err)

			var phases []models.Phase
			for _, o := range occ {
				phases = append(phases, milestone(fmt.Sprint(o.Number), fmt.Sprintf("Check-in %d", o.Number), o.Date, 1))
			}

			p := Detect(phases)
			require.Equal(t, PatternLegacyNumbered, p.Kind)
			assert.Equal(t, cfg.Type, p.Config.Type)
			assert.Equal(t, cfg.Interval, p.Config.Interval)
		})
	}
}
