package models

import (
	"time"

	"github.com/julianstephens/phaseplan/internal/constants"
)

// Phase is a time-bounded allocation of project hours. A phase without a
// start date is a pure milestone (deadline only).
type Phase struct {
	ID               string            `json:"id"`
	ProjectID        string            `json:"project_id"`
	Name             string            `json:"name"`
	StartDate        *time.Time        `json:"start_date,omitempty"`
	EndDate          time.Time         `json:"end_date"`
	TimeAllocation   float64           `json:"time_allocation"`
	IsRecurring      bool              `json:"is_recurring,omitempty"`
	RecurringConfig  *RecurrenceConfig `json:"recurring_config,omitempty"`
	TemplateID       string            `json:"template_id,omitempty"`
	OccurrenceNumber int               `json:"occurrence_number,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// IsSplit reports whether the phase is part of a split-phase set.
func (p Phase) IsSplit() bool {
	return p.StartDate != nil && !p.IsRecurring
}

// IsTemplate reports whether the phase is a recurring template.
func (p Phase) IsTemplate() bool {
	return p.IsRecurring
}

// IsOccurrence reports whether the phase was generated from a template.
func (p Phase) IsOccurrence() bool {
	return p.TemplateID != "" && !p.IsRecurring
}

func (p Phase) Kind() constants.PhaseKind {
	switch {
	case p.IsTemplate():
		return constants.PhaseKindTemplate
	case p.IsOccurrence():
		return constants.PhaseKindOccurrence
	case p.IsSplit():
		return constants.PhaseKindSplit
	default:
		return constants.PhaseKindMilestone
	}
}

// EffectiveStart is the start date, or the end date for pure milestones.
func (p Phase) EffectiveStart() time.Time {
	if p.StartDate != nil {
		return *p.StartDate
	}
	return p.EndDate
}

// PhasePatch is a partial update. Nil fields are left untouched.
type PhasePatch struct {
	Name           *string
	StartDate      *time.Time
	ClearStartDate bool
	EndDate        *time.Time
	TimeAllocation *float64
}

// IsEmpty reports whether the patch changes nothing.
func (pp PhasePatch) IsEmpty() bool {
	return pp.Name == nil && pp.StartDate == nil && !pp.ClearStartDate &&
		pp.EndDate == nil && pp.TimeAllocation == nil
}

// Apply returns a copy of the phase with the patch applied.
func (p Phase) Apply(pp PhasePatch) Phase {
	out := p
	if pp.Name != nil {
		out.Name = *pp.Name
	}
	if pp.ClearStartDate {
		out.StartDate = nil
	}
	if pp.StartDate != nil {
		start := *pp.StartDate
		out.StartDate = &start
	}
	if pp.EndDate != nil {
		out.EndDate = *pp.EndDate
	}
	if pp.TimeAllocation != nil {
		out.TimeAllocation = *pp.TimeAllocation
	}
	return out
}

// Clone returns a copy that shares no pointers with p.
func (p Phase) Clone() Phase {
	out := p
	if p.StartDate != nil {
		start := *p.StartDate
		out.StartDate = &start
	}
	if p.RecurringConfig != nil {
		cfg := p.RecurringConfig.Clone()
		out.RecurringConfig = &cfg
	}
	return out
}

// ClonePhases deep-copies a phase slice.
func ClonePhases(phases []Phase) []Phase {
	out := make([]Phase, len(phases))
	for i, p := range phases {
		out[i] = p.Clone()
	}
	return out
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
