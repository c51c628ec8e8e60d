package recurring

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/lifecycle"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/recurrence"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type RecurringSetCmd struct {
	Project  string  `arg:"" help:"Project ID or name."`
	Name     string  `arg:"" help:"Base name for the occurrences (e.g. \"Weekly sync\")."`
	Type     string  `short:"t" help:"Recurrence type." enum:"daily,weekly,monthly" default:"weekly"`
	Interval int     `short:"i" help:"Repeat every N days, weeks or months." default:"1"`
	Hours    float64 `short:"H" help:"Hours per occurrence."`
	Weekday  string  `short:"d" help:"Weekday for weekly, or for monthly --week patterns (e.g. mon)."`
	Day      int     `help:"Day of month (1-31) for monthly recurrence on a date."`
	Week     string  `help:"Week of month for monthly recurrence on a weekday: 1-4, last or second-last."`
}

func (c *RecurringSetCmd) Validate() error {
	switch c.Type {
	case "weekly":
		if c.Weekday == "" {
			return fmt.Errorf("--weekday is required for weekly recurrence")
		}
	case "monthly":
		if (c.Day == 0) == (c.Week == "") {
			return fmt.Errorf("monthly recurrence needs exactly one of --day or --week")
		}
		if c.Week != "" && c.Weekday == "" {
			return fmt.Errorf("--weekday is required with --week")
		}
	}
	return nil
}

// Config builds the recurrence config from the flags.
func (c *RecurringSetCmd) Config() (models.RecurrenceConfig, error) {
	cfg := models.RecurrenceConfig{
		Type:     constants.RecurrenceType(c.Type),
		Interval: c.Interval,
	}

	var weekday *int
	if c.Weekday != "" {
		wd, err := cli.ParseWeekday(c.Weekday)
		if err != nil {
			return cfg, err
		}
		weekday = models.IntPtr(wd)
	}

	switch cfg.Type {
	case constants.RecurrenceWeekly:
		cfg.WeeklyDayOfWeek = weekday
	case constants.RecurrenceMonthly:
		if c.Day != 0 {
			cfg.MonthlyPattern = constants.MonthlyPatternDate
			cfg.MonthlyDate = models.IntPtr(c.Day)
			break
		}
		week, err := cli.ParseWeekOfMonth(c.Week)
		if err != nil {
			return cfg, err
		}
		cfg.MonthlyPattern = constants.MonthlyPatternDayOfWeek
		cfg.MonthlyWeekOfMonth = models.IntPtr(week)
		cfg.MonthlyDayOfWeek = weekday
	}
	return cfg, nil
}

func (c *RecurringSetCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}

	var state lifecycle.State
	err = ctx.WithConfirmation(project.ID, "Replace existing phases of "+project.Name+"?", func(confirmed bool) error {
		var err error
		state, err = ctx.Coordinator.ConfigureRecurrence(ctx.Ctx, project.ID, lifecycle.TemplateRequest{
			Name:      c.Name,
			Hours:     c.Hours,
			Config:    cfg,
			Confirmed: confirmed,
		})
		return err
	})
	if err != nil {
		return err
	}

	ctx.Printf("%s: %s, %d occurrence(s) scheduled\n", state.Pattern.Template.Name, recurrence.Describe(cfg), state.Materialized)
	return nil
}

type RecurringShowCmd struct {
	Project string `arg:"" help:"Project ID or name."`
	Limit   int    `short:"n" help:"Number of upcoming occurrences to show." default:"10"`
}

func (c *RecurringShowCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	state, err := ctx.Coordinator.Refresh(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}

	pattern := state.Pattern
	switch pattern.Kind {
	case lifecycle.PatternNone:
		ctx.Println("No recurring series configured.")
		return nil
	case lifecycle.PatternLegacyNumbered:
		ctx.Println(cli.WarnStyle.Render(fmt.Sprintf(
			"Numbered milestones \"%s N\" look like a series without a stored template; the pattern below is inferred.", pattern.BaseName)))
	}

	ctx.Println(cli.Table([]string{"Field", "Value"}, [][]string{
		{"Name", pattern.Template.Name},
		{"Pattern", recurrence.Describe(pattern.Config)},
		{"Hours each", cli.Hours(pattern.Template.TimeAllocation)},
		{"Stored", humanize.Comma(int64(state.Materialized))},
	}))

	today := ctx.Today()
	var rows [][]string
	for _, inst := range pattern.Instances {
		if inst.EndDate.Before(today) {
			continue
		}
		rows = append(rows, []string{
			humanize.Ordinal(inst.OccurrenceNumber),
			utils.FormatDate(inst.EndDate),
			inst.EndDate.Weekday().String()[:3],
			cli.Hours(inst.TimeAllocation),
		})
		if len(rows) == c.Limit {
			break
		}
	}
	if len(rows) == 0 {
		ctx.Println("No upcoming occurrences stored.")
		return nil
	}
	ctx.Println(cli.Table([]string{"#", "Date", "Day", "Hours"}, rows))
	return nil
}

type RecurringLoadCmd struct {
	Project string  `arg:"" help:"Project ID or name."`
	Hours   float64 `short:"H" help:"New hours per occurrence." required:""`
	Mode    string  `short:"m" help:"forward keeps past occurrences; both regenerates the whole series." enum:"forward,both,forward-and-back" default:"forward"`
}

func (c *RecurringLoadCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	mode, err := lifecycle.ParseLoadMode(c.Mode)
	if err != nil {
		return err
	}
	if mode == lifecycle.LoadForwardAndBack {
		if err := ctx.ConfirmAction("Regenerate every occurrence?", "Past occurrences are deleted and recreated with the new load."); err != nil {
			return err
		}
	}

	if err := ctx.Coordinator.UpdateLoad(ctx.Ctx, project.ID, c.Hours, mode); err != nil {
		return err
	}
	ctx.Printf("Recurring load set to %s (%s)\n", cli.Hours(c.Hours), mode)
	return nil
}

type RecurringDeleteCmd struct {
	Project string `arg:"" help:"Project ID or name."`
}

func (c *RecurringDeleteCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	if err := ctx.ConfirmAction("Delete the recurring series of "+project.Name+"?", "The template and every occurrence are deleted."); err != nil {
		return err
	}
	n, err := ctx.Coordinator.DeleteRecurringTemplate(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}
	ctx.Printf("Deleted %d recurring phase(s)\n", n)
	return nil
}

type RecurringEnsureCmd struct {
	Projects []string `arg:"" optional:"" help:"Project IDs or names. Defaults to every project."`
}

// Run tops up each series by one batch. Failures are reported per project
// and do not stop the others.
func (c *RecurringEnsureCmd) Run(ctx *cli.Context) error {
	var projects []models.Project
	if len(c.Projects) == 0 {
		all, err := ctx.Store.GetAllProjects(ctx.Ctx)
		if err != nil {
			return fmt.Errorf("failed to get projects: %w", err)
		}
		projects = all
	}
	for _, ref := range c.Projects {
		p, err := ctx.ResolveProject(ref)
		if err != nil {
			return err
		}
		projects = append(projects, p)
	}

	var failed []string
	for _, p := range projects {
		n, err := ctx.Coordinator.EnsureOccurrences(ctx.Ctx, p.ID)
		if err != nil {
			ctx.Printf("%s %s: %v\n", cli.ErrorStyle.Render("✗"), p.Name, err)
			failed = append(failed, p.Name)
		}
		if n > 0 {
			ctx.Printf("%s %s: %d occurrence(s) generated\n", cli.OKStyle.Render("✓"), p.Name, n)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("generation failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
