// Package budget implements budget-versus-allocation arithmetic over phase
// sets: totals, utilization, the budget gate used before every phase write,
// and per-day hour distribution.
package budget

import (
	"errors"
	"fmt"
	"math"

	"github.com/julianstephens/phaseplan/internal/models"
)

// ErrBudgetExceeded is matched by every *ExceededError.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ExceededError reports a rejected allocation and by how much it overshoots.
type ExceededError struct {
	Budget    float64
	Allocated float64
	Overage   float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("allocation of %.2fh exceeds the %.2fh budget by %.2fh", e.Allocated, e.Budget, e.Overage)
}

func (e *ExceededError) Unwrap() error {
	return ErrBudgetExceeded
}

// TotalAllocation sums the hours of every phase.
func TotalAllocation(phases []models.Phase) float64 {
	total := 0.0
	for _, p := range phases {
		total += p.TimeAllocation
	}
	return total
}

// Utilization returns allocated as a percentage of budget, or 0 when there is
// no positive budget.
func Utilization(allocated, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return allocated / budget * 100
}

// Remaining returns the unallocated part of the budget, never negative.
func Remaining(allocated, budget float64) float64 {
	return math.Max(0, budget-allocated)
}

// Overage returns how far allocated exceeds budget, never negative.
func Overage(allocated, budget float64) float64 {
	return math.Max(0, allocated-budget)
}

// Check is the verdict of the budget gate.
type Check struct {
	Exceeds bool
	Total   float64
	Budget  float64
	Overage float64
}

// Err returns an *ExceededError when the check failed, nil otherwise.
func (c Check) Err() error {
	if !c.Exceeds {
		return nil
	}
	return &ExceededError{Budget: c.Budget, Allocated: c.Total, Overage: c.Overage}
}

// WouldExceedBudget is the single gate applied before accepting a new or
// edited allocation. For edits, pass the existing set without the phase being
// edited (see ExcludingPhase).
func WouldExceedBudget(existing []models.Phase, candidateHours, budget float64) Check {
	total := TotalAllocation(existing) + candidateHours
	return Check{
		Exceeds: total > budget,
		Total:   total,
		Budget:  budget,
		Overage: Overage(total, budget),
	}
}

// ExcludingPhase returns the phases without the one with the given id.
func ExcludingPhase(phases []models.Phase, id string) []models.Phase {
	out := make([]models.Phase, 0, len(phases))
	for _, p := range phases {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Allocatable filters out recurring templates, whose hours are a per-occurrence
// rate rather than an allocation.
func Allocatable(phases []models.Phase) []models.Phase {
	out := make([]models.Phase, 0, len(phases))
	for _, p := range phases {
		if !p.IsTemplate() {
			out = append(out, p)
		}
	}
	return out
}

// Summary is the budget reconciliation of a project.
type Summary struct {
	Budget       float64
	Allocated    float64
	Remaining    float64
	Overage      float64
	Utilization  float64
	IsOverBudget bool
	PhaseCount   int
	// NotApplicable is set for continuous projects driven by a recurring
	// template; the budget has no meaning for an unbounded series.
	NotApplicable bool
}

// Summarize reconciles a project's budget against its stored phases.
func Summarize(project models.Project, phases []models.Phase) Summary {
	hasTemplate := false
	for _, p := range phases {
		if p.IsTemplate() {
			hasTemplate = true
			break
		}
	}

	counted := Allocatable(phases)
	allocated := TotalAllocation(counted)
	return Summary{
		Budget:        project.EstimatedHours,
		Allocated:     allocated,
		Remaining:     Remaining(allocated, project.EstimatedHours),
		Overage:       Overage(allocated, project.EstimatedHours),
		Utilization:   Utilization(allocated, project.EstimatedHours),
		IsOverBudget:  allocated > project.EstimatedHours,
		PhaseCount:    len(counted),
		NotApplicable: project.Continuous && hasTemplate,
	}
}
