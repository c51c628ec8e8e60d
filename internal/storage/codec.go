package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// Helpers shared by the SQL backends. Dates are stored as YYYY-MM-DD text
// and decoded to local midnight; timestamps as RFC 3339.

// NewID returns a fresh row identifier.
func NewID() string {
	return uuid.New().String()
}

// EncodeDate formats a calendar date for storage.
func EncodeDate(t time.Time) string {
	return utils.FormatDate(t)
}

// EncodeOptionalDate returns NULL for a nil date.
func EncodeOptionalDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: EncodeDate(*t), Valid: true}
}

// DecodeDate parses a stored calendar date.
func DecodeDate(s string) (time.Time, error) {
	t, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return t, nil
}

// DecodeOptionalDate parses a nullable stored date.
func DecodeOptionalDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := DecodeDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EncodeTimestamp formats a creation timestamp.
func EncodeTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DecodeTimestamp parses a stored timestamp, returning the zero time for
// empty values.
func DecodeTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// EncodeConfig serializes a recurrence config in its persisted JSON shape.
func EncodeConfig(cfg *models.RecurrenceConfig) (sql.NullString, error) {
	if cfg == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode recurrence config: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// DecodeConfig parses a nullable recurrence config column.
func DecodeConfig(ns sql.NullString) (*models.RecurrenceConfig, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var cfg models.RecurrenceConfig
	if err := json.Unmarshal([]byte(ns.String), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode recurrence config: %w", err)
	}
	return &cfg, nil
}

// PreparePhase fills the ID and CreatedAt of a phase about to be inserted
// and normalizes its dates.
func PreparePhase(phase models.Phase, now time.Time) models.Phase {
	out := phase.Clone()
	if out.ID == "" {
		out.ID = NewID()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now.UTC().Truncate(time.Second)
	}
	if out.StartDate != nil {
		out.StartDate = models.TimePtr(utils.NormalizeToMidnight(*out.StartDate))
	}
	out.EndDate = utils.NormalizeToMidnight(out.EndDate)
	return out
}

// PhaseRow holds the raw columns of a phase row.
type PhaseRow struct {
	ID               string
	ProjectID        string
	Name             string
	StartDate        sql.NullString
	EndDate          string
	TimeAllocation   float64
	IsRecurring      bool
	RecurringConfig  sql.NullString
	TemplateID       sql.NullString
	OccurrenceNumber int
	CreatedAt        string
}

// Dest returns scan destinations in column order.
func (r *PhaseRow) Dest() []any {
	return []any{
		&r.ID, &r.ProjectID, &r.Name, &r.StartDate, &r.EndDate, &r.TimeAllocation,
		&r.IsRecurring, &r.RecurringConfig, &r.TemplateID, &r.OccurrenceNumber, &r.CreatedAt,
	}
}

// PhaseColumns lists the columns matched by PhaseRow.Dest.
const PhaseColumns = "id, project_id, name, start_date, end_date, time_allocation, is_recurring, recurring_config, template_id, occurrence_number, created_at"

// Phase decodes the row.
func (r *PhaseRow) Phase() (models.Phase, error) {
	start, err := DecodeOptionalDate(r.StartDate)
	if err != nil {
		return models.Phase{}, err
	}
	end, err := DecodeDate(r.EndDate)
	if err != nil {
		return models.Phase{}, err
	}
	cfg, err := DecodeConfig(r.RecurringConfig)
	if err != nil {
		return models.Phase{}, err
	}
	created, err := DecodeTimestamp(r.CreatedAt)
	if err != nil {
		return models.Phase{}, err
	}
	return models.Phase{
		ID:               r.ID,
		ProjectID:        r.ProjectID,
		Name:             r.Name,
		StartDate:        start,
		EndDate:          end,
		TimeAllocation:   r.TimeAllocation,
		IsRecurring:      r.IsRecurring,
		RecurringConfig:  cfg,
		TemplateID:       r.TemplateID.String,
		OccurrenceNumber: r.OccurrenceNumber,
		CreatedAt:        created,
	}, nil
}

// PhaseArgs returns insert arguments in PhaseColumns order.
func PhaseArgs(p models.Phase) ([]any, error) {
	cfg, err := EncodeConfig(p.RecurringConfig)
	if err != nil {
		return nil, err
	}
	templateID := sql.NullString{String: p.TemplateID, Valid: p.TemplateID != ""}
	return []any{
		p.ID, p.ProjectID, p.Name, EncodeOptionalDate(p.StartDate), EncodeDate(p.EndDate), p.TimeAllocation,
		p.IsRecurring, cfg, templateID, p.OccurrenceNumber, EncodeTimestamp(p.CreatedAt),
	}, nil
}

// PatchAssignments translates a patch into column assignments. The
// placeholder function renders the n-th (1-based) bind parameter.
func PatchAssignments(patch models.PhasePatch, placeholder func(n int) string) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.ClearStartDate && patch.StartDate == nil {
		add("start_date", sql.NullString{})
	}
	if patch.StartDate != nil {
		add("start_date", EncodeOptionalDate(patch.StartDate))
	}
	if patch.EndDate != nil {
		add("end_date", EncodeDate(*patch.EndDate))
	}
	if patch.TimeAllocation != nil {
		add("time_allocation", *patch.TimeAllocation)
	}
	return sets, args
}

// ProjectRow holds the raw columns of a project row.
type ProjectRow struct {
	ID               string
	Name             string
	Client           string
	Group            string
	StartDate        string
	EndDate          sql.NullString
	EstimatedHours   float64
	Continuous       bool
	AutoEstimateDays string
	CreatedAt        string
}

// ProjectColumns lists the columns matched by ProjectRow.Dest.
const ProjectColumns = "id, name, client, group_name, start_date, end_date, estimated_hours, continuous, auto_estimate_days, created_at"

// Dest returns scan destinations in column order.
func (r *ProjectRow) Dest() []any {
	return []any{
		&r.ID, &r.Name, &r.Client, &r.Group, &r.StartDate, &r.EndDate,
		&r.EstimatedHours, &r.Continuous, &r.AutoEstimateDays, &r.CreatedAt,
	}
}

// Project decodes the row.
func (r *ProjectRow) Project() (models.Project, error) {
	start, err := DecodeDate(r.StartDate)
	if err != nil {
		return models.Project{}, err
	}
	end, err := DecodeOptionalDate(r.EndDate)
	if err != nil {
		return models.Project{}, err
	}
	mask, err := models.ParseWeekdayMaskBits(r.AutoEstimateDays)
	if err != nil {
		return models.Project{}, err
	}
	created, err := DecodeTimestamp(r.CreatedAt)
	if err != nil {
		return models.Project{}, err
	}
	return models.Project{
		ID:               r.ID,
		Name:             r.Name,
		Client:           r.Client,
		Group:            r.Group,
		StartDate:        start,
		EndDate:          end,
		EstimatedHours:   r.EstimatedHours,
		Continuous:       r.Continuous,
		AutoEstimateDays: mask,
		CreatedAt:        created,
	}, nil
}

// ProjectArgs returns insert arguments in ProjectColumns order.
func ProjectArgs(p models.Project) []any {
	return []any{
		p.ID, p.Name, p.Client, p.Group, EncodeDate(p.StartDate), EncodeOptionalDate(p.EndDate),
		p.EstimatedHours, p.Continuous, p.AutoEstimateDays.Bits(), EncodeTimestamp(p.CreatedAt),
	}
}

// PrepareProject fills the ID and CreatedAt of a project about to be
// inserted and normalizes its dates.
func PrepareProject(p models.Project, now time.Time) models.Project {
	out := p
	if out.ID == "" {
		out.ID = NewID()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now.UTC().Truncate(time.Second)
	}
	out.StartDate = utils.NormalizeToMidnight(out.StartDate)
	if out.EndDate != nil {
		out.EndDate = models.TimePtr(utils.NormalizeToMidnight(*out.EndDate))
	}
	return out
}
