package budget

import (
	"math"
	"sort"
	"time"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// Stats are derived, non-authoritative figures over a phase set.
type Stats struct {
	Count   int
	Min     float64
	Max     float64
	Average float64
	Median  float64
	// Pressure compares the ideal spacing of deadlines over the project with
	// their actual average spacing, clamped to 1.
	Pressure float64
}

// ComputeStats summarizes allocations. An empty phase set yields zeros.
func ComputeStats(phases []models.Phase, projectStart time.Time, projectEnd *time.Time) Stats {
	phases = Allocatable(phases)
	if len(phases) == 0 {
		return Stats{}
	}

	hours := make([]float64, len(phases))
	for i, p := range phases {
		hours[i] = p.TimeAllocation
	}
	sort.Float64s(hours)

	s := Stats{
		Count:   len(hours),
		Min:     hours[0],
		Max:     hours[len(hours)-1],
		Average: TotalAllocation(phases) / float64(len(hours)),
	}
	mid := len(hours) / 2
	if len(hours)%2 == 0 {
		s.Median = (hours[mid-1] + hours[mid]) / 2
	} else {
		s.Median = hours[mid]
	}

	s.Pressure = timelinePressure(phases, projectStart, projectEnd)
	return s
}

func timelinePressure(phases []models.Phase, projectStart time.Time, projectEnd *time.Time) float64 {
	if projectEnd == nil || len(phases) < 2 {
		return 0
	}
	ordered := sortedByEnd(phases)

	totalDays := utils.DayDifference(projectStart, *projectEnd)
	if totalDays <= 0 {
		return 0
	}
	idealGap := float64(totalDays) / float64(len(ordered))
	actualGap := float64(utils.DayDifference(ordered[0].EndDate, ordered[len(ordered)-1].EndDate)) / float64(len(ordered)-1)
	if actualGap <= 0 {
		return 1
	}
	return math.Min(1, idealGap/actualGap)
}
