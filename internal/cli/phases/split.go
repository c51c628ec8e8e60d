package phases

import (
	"fmt"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// SplitCmd splits the project estimate into two phases, or with "add",
// appends a phase to an existing split.
type SplitCmd struct {
	Estimate SplitEstimateCmd `cmd:"" default:"withargs" help:"Split the estimate into two phases at the midpoint."`
	Add      SplitAddCmd      `cmd:"" help:"Carve a new phase out of the end of the last split phase."`
}

type SplitEstimateCmd struct {
	Project string `arg:"" help:"Project ID or name."`
}

func (c *SplitEstimateCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}

	var split []models.Phase
	err = ctx.WithConfirmation(project.ID, "Replace the recurring series with split phases?", func(confirmed bool) error {
		var err error
		split, err = ctx.Coordinator.SplitEstimate(ctx.Ctx, project.ID, confirmed)
		return err
	})
	if err != nil {
		return err
	}

	ctx.Printf("Split %s into %d phases:\n", project.Name, len(split))
	printSpans(ctx, split)
	return nil
}

type SplitAddCmd struct {
	Project string  `arg:"" help:"Project ID or name."`
	Name    string  `arg:"" help:"Phase name."`
	Hours   float64 `short:"H" help:"Hours allocated to the new phase."`
}

func (c *SplitAddCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	created, err := ctx.Coordinator.AddSplitPhase(ctx.Ctx, project.ID, c.Name, c.Hours)
	if err != nil {
		return err
	}
	printSpans(ctx, []models.Phase{created})
	return nil
}

func printSpans(ctx *cli.Context, phases []models.Phase) {
	rows := make([][]string, 0, len(phases))
	for _, p := range phases {
		days := 0
		if p.StartDate != nil {
			days = utils.DayDifference(*p.StartDate, p.EndDate) + 1
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			utils.FormatOptionalDate(p.StartDate),
			utils.FormatDate(p.EndDate),
			fmt.Sprint(days),
			cli.Hours(p.TimeAllocation),
		})
	}
	ctx.Println(cli.Table([]string{"ID", "Name", "Start", "End", "Days", "Hours"}, rows))
}
