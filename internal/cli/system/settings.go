package system

import (
	"fmt"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/utils"
)

type SettingsCmd struct {
	Timezone      string `help:"IANA timezone name, or Local."`
	Notifications string `help:"Turn notifications on or off." placeholder:"on|off"`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.Timezone == "" && c.Notifications == "" {
		ctx.Println(cli.Table([]string{"Setting", "Value"}, [][]string{
			{"timezone", settings.Timezone},
			{"notifications", fmt.Sprint(settings.NotificationsEnabled)},
		}))
		return nil
	}

	if c.Timezone != "" {
		if !utils.ValidateTimezone(c.Timezone) {
			return fmt.Errorf("unknown timezone %q", c.Timezone)
		}
		settings.Timezone = c.Timezone
	}
	switch c.Notifications {
	case "":
	case "on":
		settings.NotificationsEnabled = true
	case "off":
		settings.NotificationsEnabled = false
	default:
		return fmt.Errorf("--notifications must be on or off, got %q", c.Notifications)
	}
	if err := ctx.Store.SaveSettings(ctx.Ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Println("Settings updated.")
	return nil
}
