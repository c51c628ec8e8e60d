package calendar

import (
	"fmt"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type HolidayAddCmd struct {
	Date string `arg:"" help:"Holiday date (YYYY-MM-DD)."`
	Name string `arg:"" help:"Holiday name."`
}

// Run adds the holiday or renames the one already on that date. Every
// cached distribution depends on holidays, so all of them are dropped.
func (c *HolidayAddCmd) Run(ctx *cli.Context) error {
	date, err := cli.ParseDate("date", c.Date)
	if err != nil {
		return err
	}
	holiday, err := ctx.Store.AddHoliday(ctx.Ctx, models.Holiday{Date: date, Name: c.Name})
	if err != nil {
		return err
	}
	ctx.Coordinator.Distributor().Reset()
	ctx.Printf("Added holiday: %s on %s\n", holiday.Name, utils.FormatDate(holiday.Date))
	return nil
}

type HolidayListCmd struct {
	Year int `help:"Only show holidays in this year."`
}

func (c *HolidayListCmd) Run(ctx *cli.Context) error {
	holidays, err := ctx.Store.GetHolidays(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get holidays: %w", err)
	}

	var rows [][]string
	for _, h := range holidays {
		if c.Year != 0 && h.Date.Year() != c.Year {
			continue
		}
		rows = append(rows, []string{utils.FormatDate(h.Date), h.Date.Weekday().String()[:3], h.Name})
	}
	if len(rows) == 0 {
		ctx.Println("No holidays found")
		return nil
	}
	ctx.Println(cli.Table([]string{"Date", "Day", "Name"}, rows))
	return nil
}

type EventAddCmd struct {
	Project string  `arg:"" help:"Project ID or name."`
	Date    string  `arg:"" help:"Event date (YYYY-MM-DD)."`
	Title   string  `arg:"" help:"Event title."`
	Hours   float64 `short:"H" help:"Hours already booked by the event."`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	project, err := ctx.ResolveProject(c.Project)
	if err != nil {
		return err
	}
	date, err := cli.ParseDate("date", c.Date)
	if err != nil {
		return err
	}
	if c.Hours < 0 {
		return fmt.Errorf("hours cannot be negative")
	}

	event, err := ctx.Store.AddEvent(ctx.Ctx, models.CalendarEvent{
		ProjectID: project.ID,
		Title:     c.Title,
		Date:      date,
		Hours:     c.Hours,
	})
	if err != nil {
		return err
	}
	ctx.Coordinator.Distributor().Invalidate(project.ID)
	ctx.Printf("Added event: %s on %s; no auto-estimate will be placed on that day\n", event.Title, utils.FormatDate(event.Date))
	return nil
}
