package phases

import (
	"fmt"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/lifecycle"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type PhaseAddCmd struct {
	Project string  `arg:"" help:"Project ID or name."`
	Name    string  `arg:"" help:"Milestone name."`
	End     string  `short:"e" help:"Due date (YYYY-MM-DD)." required:""`
	Hours   float64 `short:"H" help:"Hours allocated to the milestone."`
}

func (c *PhaseAddCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	end, err := cli.ParseDate("end", c.End)
	if err != nil {
		return err
	}

	var created models.Phase
	err = ctx.WithConfirmation(project.ID, "Switch "+project.Name+" to milestones?", func(confirmed bool) error {
		var err error
		created, err = ctx.Coordinator.AddMilestone(ctx.Ctx, project.ID, lifecycle.MilestoneRequest{
			Name:      c.Name,
			EndDate:   end,
			Hours:     c.Hours,
			Confirmed: confirmed,
		})
		return err
	})
	if err != nil {
		return err
	}

	ctx.Printf("Added milestone: %s due %s (ID: %s)\n", created.Name, utils.FormatDate(created.EndDate), created.ID)
	return nil
}

type PhaseEditCmd struct {
	Project    string   `arg:"" help:"Project ID or name."`
	ID         string   `arg:"" help:"Phase ID."`
	Name       string   `help:"New name."`
	Start      string   `short:"s" help:"New start date (YYYY-MM-DD)."`
	ClearStart bool     `help:"Remove the start date, turning the phase into a milestone."`
	End        string   `short:"e" help:"New end date (YYYY-MM-DD). Moving a split phase shifts the ones after it."`
	Hours      *float64 `short:"H" help:"New hour allocation."`
}

func (c *PhaseEditCmd) Validate() error {
	if c.Start != "" && c.ClearStart {
		return fmt.Errorf("--start cannot be combined with --clear-start")
	}
	if c.Hours != nil && *c.Hours < 0 {
		return fmt.Errorf("hours cannot be negative")
	}
	return nil
}

func (c *PhaseEditCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}

	patch := models.PhasePatch{ClearStartDate: c.ClearStart, TimeAllocation: c.Hours}
	if c.Name != "" {
		patch.Name = &c.Name
	}
	if c.Start != "" {
		start, err := cli.ParseDate("start", c.Start)
		if err != nil {
			return err
		}
		patch.StartDate = &start
	}
	if c.End != "" {
		end, err := cli.ParseDate("end", c.End)
		if err != nil {
			return err
		}
		patch.EndDate = &end
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to change")
	}

	if err := ctx.Coordinator.UpdatePhase(ctx.Ctx, project.ID, c.ID, patch); err != nil {
		return err
	}
	ctx.Printf("Updated phase %s\n", c.ID)
	return nil
}

type PhaseDeleteCmd struct {
	Project string `arg:"" help:"Project ID or name."`
	ID      string `arg:"" help:"Phase ID."`
}

func (c *PhaseDeleteCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	phase, err := ctx.Store.GetPhase(ctx.Ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find phase with ID %s: %w", c.ID, err)
	}
	if phase.IsTemplate() {
		if err := ctx.ConfirmAction("Delete the recurring series?", "The template and every generated occurrence are deleted."); err != nil {
			return err
		}
	}

	if err := ctx.Coordinator.DeletePhase(ctx.Ctx, project.ID, c.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted phase: %s (ID: %s)\n", phase.Name, c.ID)
	return nil
}

type PhaseListCmd struct {
	Project string `arg:"" help:"Project ID or name."`
	All     bool   `short:"a" help:"Include generated occurrences."`
}

func (c *PhaseListCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	state, err := ctx.Coordinator.Refresh(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}
	if len(state.Phases) == 0 {
		ctx.Println("No phases found")
		return nil
	}

	var rows [][]string
	hidden := 0
	for _, p := range state.Phases {
		if p.IsOccurrence() && !c.All {
			hidden++
			continue
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			string(p.Kind()),
			utils.FormatOptionalDate(p.StartDate),
			utils.FormatDate(p.EndDate),
			cli.Hours(p.TimeAllocation),
		})
	}

	ctx.Printf("%s  %s\n", cli.HeadingStyle.Render(project.Name), cli.MutedStyle.Render(cli.ModeLabel(state)))
	ctx.Println(cli.Table([]string{"ID", "Name", "Kind", "Start", "End", "Hours"}, rows))
	if hidden > 0 {
		ctx.Println(cli.MutedStyle.Render(fmt.Sprintf("%d generated occurrences hidden (use --all)", hidden)))
	}
	return nil
}

type PhaseRepairCmd struct {
	Project string `arg:"" help:"Project ID or name."`
}

func (c *PhaseRepairCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	n, err := ctx.Coordinator.RepairPhases(ctx.Ctx, project.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		ctx.Println("No overlapping phases found.")
		return nil
	}
	ctx.Printf("Repaired %d overlapping phase(s).\n", n)
	return nil
}
