package projects

import (
	"fmt"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type ProjectAddCmd struct {
	Name       string  `arg:"" help:"Project name."`
	Start      string  `short:"s" help:"Start date (YYYY-MM-DD). Defaults to today."`
	End        string  `short:"e" help:"End date (YYYY-MM-DD). Required unless --continuous."`
	Hours      float64 `short:"H" help:"Estimated hours (the budget)."`
	Continuous bool    `short:"c" help:"The project has no end date."`
	Client     string  `help:"Client name."`
	Group      string  `help:"Group label."`
	Workdays   string  `short:"w" help:"Comma-separated weekdays that receive auto-estimates (e.g. mon,tue,wed)."`
}

func (c *ProjectAddCmd) Run(ctx *cli.Context) error {
	start := ctx.Today()
	if c.Start != "" {
		var err error
		if start, err = cli.ParseDate("start", c.Start); err != nil {
			return err
		}
	}

	project := models.Project{
		Name:           c.Name,
		Client:         c.Client,
		Group:          c.Group,
		StartDate:      start,
		EstimatedHours: c.Hours,
		Continuous:     c.Continuous,
	}
	if c.End != "" {
		if c.Continuous {
			return fmt.Errorf("--end cannot be combined with --continuous")
		}
		end, err := cli.ParseDate("end", c.End)
		if err != nil {
			return err
		}
		project.EndDate = &end
	}

	mask, err := ctx.Config.Workdays()
	if c.Workdays != "" {
		mask, err = models.ParseWeekdayMask(c.Workdays)
	}
	if err != nil {
		return err
	}
	if mask.IsEmpty() {
		return fmt.Errorf("at least one workday is required")
	}
	project.AutoEstimateDays = mask

	if err := project.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}
	created, err := ctx.Store.AddProject(ctx.Ctx, project)
	if err != nil {
		return err
	}

	ctx.Printf("Added project: %s (ID: %s)\n", created.Name, created.ID)
	return nil
}

type ProjectListCmd struct {
	Client string `help:"Only show projects for this client."`
}

func (c *ProjectListCmd) Run(ctx *cli.Context) error {
	projects, err := ctx.Store.GetAllProjects(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get projects: %w", err)
	}

	var rows [][]string
	for _, p := range projects {
		if c.Client != "" && p.Client != c.Client {
			continue
		}
		end := utils.FormatOptionalDate(p.EndDate)
		if p.Continuous {
			end = "ongoing"
		}
		rows = append(rows, []string{p.ID, p.Name, p.Client, utils.FormatDate(p.StartDate), end, cli.Hours(p.EstimatedHours)})
	}
	if len(rows) == 0 {
		ctx.Println("No projects found")
		return nil
	}

	ctx.Println(cli.Table([]string{"ID", "Name", "Client", "Start", "End", "Budget"}, rows))
	return nil
}

type ProjectShowCmd struct {
	Project string `arg:"" help:"Project ID or name."`
}

func (c *ProjectShowCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	state, err := ctx.Coordinator.Refresh(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}
	summary, err := ctx.Coordinator.Summary(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}

	ctx.Println(cli.HeadingStyle.Render(project.Name))
	if project.Client != "" || project.Group != "" {
		ctx.Println(cli.MutedStyle.Render(fmt.Sprintf("client: %s  group: %s", project.Client, project.Group)))
	}

	end := utils.FormatOptionalDate(project.EndDate)
	if project.Continuous {
		end = "ongoing"
	}
	rows := [][]string{
		{"ID", project.ID},
		{"Dates", utils.FormatDate(project.StartDate) + " to " + end},
		{"Workdays", project.AutoEstimateDays.String()},
		{"Mode", cli.ModeLabel(state)},
		{"Phases", fmt.Sprint(len(state.Phases))},
	}
	if summary.NotApplicable {
		rows = append(rows, []string{"Budget", "n/a (continuous recurring series)"})
	} else {
		rows = append(rows,
			[]string{"Budget", cli.Hours(summary.Budget)},
			[]string{"Allocated", fmt.Sprintf("%s (%s)", cli.Hours(summary.Allocated), cli.Percent(summary.Utilization))},
		)
	}
	ctx.Println(cli.Table([]string{"Field", "Value"}, rows))
	return nil
}

type ProjectDeleteCmd struct {
	Project string `arg:"" help:"Project ID or name."`
}

func (c *ProjectDeleteCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	if err := ctx.ConfirmAction("Delete "+project.Name+"?", "Its phases and calendar events are deleted with it."); err != nil {
		return err
	}
	if err := ctx.Store.DeleteProject(ctx.Ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	ctx.Coordinator.Distributor().Invalidate(project.ID)
	ctx.Printf("Deleted project: %s (ID: %s)\n", project.Name, project.ID)
	return nil
}
