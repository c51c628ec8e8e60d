package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/phaseplan/internal/budget"
	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type BudgetCmd struct {
	Project string `arg:"" help:"Project ID or name."`
}

func (c *BudgetCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	state, err := ctx.Coordinator.Refresh(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}
	summary := budget.Summarize(state.Project, state.Phases)

	ctx.Println(cli.HeadingStyle.Render(project.Name + " budget"))
	if summary.NotApplicable {
		ctx.Println(cli.MutedStyle.Render("Not applicable: continuous projects driven by a recurring series have no fixed budget."))
		return nil
	}

	status := cli.OKStyle.Render("within budget")
	if summary.IsOverBudget {
		status = cli.ErrorStyle.Render(fmt.Sprintf("over budget by %s", cli.Hours(summary.Overage)))
	}
	rows := [][]string{
		{"Budget", cli.Hours(summary.Budget)},
		{"Allocated", cli.Hours(summary.Allocated)},
		{"Remaining", cli.Hours(summary.Remaining)},
		{"Utilization", cli.Percent(summary.Utilization)},
		{"Phases counted", fmt.Sprint(summary.PhaseCount)},
		{"Status", status},
	}

	stats := budget.ComputeStats(state.Phases, state.Project.StartDate, state.Project.EndDate)
	if stats.Count > 0 {
		rows = append(rows,
			[]string{"Per phase", fmt.Sprintf("min %s, median %s, max %s",
				cli.Hours(stats.Min), cli.Hours(stats.Median), cli.Hours(stats.Max))},
			[]string{"Timeline pressure", cli.Percent(stats.Pressure * 100)},
		)
	}
	ctx.Println(cli.Table([]string{"", ""}, rows))
	return nil
}

type DistributeCmd struct {
	Project string `arg:"" help:"Project ID or name."`
	From    string `help:"First date to show (YYYY-MM-DD)."`
	To      string `help:"Last date to show (YYYY-MM-DD)."`
	ByPhase bool   `help:"Show one row per phase and day instead of daily totals."`
}

func (c *DistributeCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	from, to, err := c.window()
	if err != nil {
		return err
	}

	holidays, err := ctx.Store.GetHolidays(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get holidays: %w", err)
	}
	events, err := ctx.Store.GetEventsForProject(ctx.Ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	if _, err := ctx.Coordinator.Refresh(ctx.Ctx, project.ID); err != nil {
		return err
	}
	allocs, err := ctx.Coordinator.Distribution(ctx.Ctx, project.ID, holidays, events)
	if err != nil {
		return err
	}

	inWindow := func(d time.Time) bool {
		return (from.IsZero() || !d.Before(from)) && (to.IsZero() || !d.After(to))
	}

	var rows [][]string
	if c.ByPhase {
		names := map[string]string{}
		phases, err := ctx.Store.ListPhasesForProject(ctx.Ctx, project.ID)
		if err != nil {
			return err
		}
		for _, p := range phases {
			names[p.ID] = p.Name
		}
		for _, a := range allocs {
			if !inWindow(a.Date) {
				continue
			}
			note := ""
			if a.Fallback {
				note = "no working day, placed on due date"
			}
			rows = append(rows, []string{utils.FormatDate(a.Date), names[a.PhaseID], cli.Hours(a.Hours), note})
		}
		if len(rows) == 0 {
			ctx.Println("Nothing to distribute.")
			return nil
		}
		ctx.Println(cli.Table([]string{"Date", "Phase", "Hours", ""}, rows))
		return nil
	}

	byDate := budget.HoursByDate(allocs)
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	total := 0.0
	for _, d := range dates {
		day, _ := utils.ParseDate(d)
		if !inWindow(day) {
			continue
		}
		total += byDate[d]
		rows = append(rows, []string{d, day.Weekday().String()[:3], cli.Hours(byDate[d])})
	}
	if len(rows) == 0 {
		ctx.Println("Nothing to distribute.")
		return nil
	}
	ctx.Println(cli.Table([]string{"Date", "Day", "Hours"}, rows))
	ctx.Printf("Total: %s over %d day(s)\n", cli.Hours(total), len(rows))
	return nil
}

func (c *DistributeCmd) window() (from, to time.Time, err error) {
	if c.From != "" {
		if from, err = cli.ParseDate("from", c.From); err != nil {
			return
		}
	}
	if c.To != "" {
		if to, err = cli.ParseDate("to", c.To); err != nil {
			return
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		err = fmt.Errorf("--to is before --from")
	}
	return
}

type ValidateCmd struct {
	Project string `arg:"" optional:"" help:"Project ID or name. Defaults to every project."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	var ids []string
	if c.Project != "" {
		p, err := ctx.ResolveProject(c.Project)
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
	} else {
		all, err := ctx.Store.GetAllProjects(ctx.Ctx)
		if err != nil {
			return fmt.Errorf("failed to get projects: %w", err)
		}
		for _, p := range all {
			ids = append(ids, p.ID)
		}
	}

	failed := 0
	for _, id := range ids {
		project, err := ctx.Store.GetProject(ctx.Ctx, id)
		if err != nil {
			return err
		}
		result, err := ctx.Coordinator.Validate(ctx.Ctx, id)
		if err != nil {
			return err
		}
		ctx.Println(cli.HeadingStyle.Render(project.Name))
		ctx.Println(result.FormatReport())
		if result.HasErrors() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d project(s) failed validation", failed)
	}
	return nil
}
