package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/phaseplan/internal/config"
	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/lifecycle"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/recurrence"
	"github.com/julianstephens/phaseplan/internal/storage"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// ErrCancelled is returned when the user declines a confirmation prompt.
var ErrCancelled = errors.New("cancelled")

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(title, description string) (bool, error)

type Context struct {
	Ctx         context.Context
	Store       storage.Provider
	Coordinator *lifecycle.Coordinator
	Config      config.Config
	Out         io.Writer
	// AssumeYes answers every confirmation prompt with yes.
	AssumeYes bool
	Confirm   ConfirmFunc
}

// PromptConfirm asks on the terminal with a huh confirm field.
func PromptConfirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeBase()).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return ok, nil
}

// ConfirmAction asks before a destructive command.
func (c *Context) ConfirmAction(title, description string) error {
	if c.AssumeYes {
		return nil
	}
	confirm := c.Confirm
	if confirm == nil {
		confirm = PromptConfirm
	}
	ok, err := confirm(title, description)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

// WithConfirmation runs op unconfirmed and, when the coordinator asks for
// confirmation, prompts and runs it again confirmed. Declining cancels the
// parked workflow of the project.
func (c *Context) WithConfirmation(projectID, title string, op func(confirmed bool) error) error {
	err := op(c.AssumeYes)
	if !errors.Is(err, lifecycle.ErrConfirmationRequired) {
		return err
	}

	if cerr := c.ConfirmAction(title, err.Error()); cerr != nil {
		c.Coordinator.Workflow(projectID).Cancel()
		return cerr
	}
	return op(true)
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Println writes a line to the command output.
func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// Today returns the current date in the configured timezone.
func (c *Context) Today() time.Time {
	today, err := utils.GetTodayInTimezone(c.Config.Timezone)
	if err != nil {
		return utils.NormalizeToMidnight(time.Now())
	}
	return today
}

// ResolveProject finds a project by id, or by case-insensitive name when the
// name is unique.
func (c *Context) ResolveProject(ref string) (models.Project, error) {
	project, err := c.Store.GetProject(c.Ctx, ref)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Project{}, err
	}

	all, err := c.Store.GetAllProjects(c.Ctx)
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to list projects: %w", err)
	}
	var matches []models.Project
	for _, p := range all {
		if strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return models.Project{}, fmt.Errorf("no project matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Project{}, fmt.Errorf("%d projects are named %q, use the project id", len(matches), ref)
	}
}

// ParseDate parses a YYYY-MM-DD flag value.
func ParseDate(flag, value string) (time.Time, error) {
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", flag, value)
	}
	return t, nil
}

// ParseWeekday accepts a weekday name, its three-letter abbreviation, or a
// number from 0 (Sunday) to 6.
func ParseWeekday(s string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return int(wd), nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n <= 6 {
		return n, nil
	}
	return 0, fmt.Errorf("invalid weekday: %s", s)
}

// ParseWeekOfMonth accepts 1-4, "last" or "second-last".
func ParseWeekOfMonth(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last":
		return constants.WeekOfMonthLast, nil
	case "second-last", "second_last", "secondlast":
		return constants.WeekOfMonthSecondLast, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 4 {
		return 0, fmt.Errorf("invalid week of month %q (use 1-4, last or second-last)", s)
	}
	return n, nil
}

// ModeLabel names the planning mode of a project.
func ModeLabel(state lifecycle.State) string {
	switch {
	case state.Mode.Err() != nil:
		return "mixed (run 'phaseplan validate')"
	case state.Pattern.Kind == lifecycle.PatternTemplate:
		return "recurring (" + recurrence.Describe(state.Pattern.Config) + ")"
	case state.Pattern.Kind == lifecycle.PatternLegacyNumbered:
		return "numbered milestones (" + recurrence.Describe(state.Pattern.Config) + ")"
	case state.Mode.HasSplitPhases:
		return "split phases"
	default:
		return "milestones"
	}
}
