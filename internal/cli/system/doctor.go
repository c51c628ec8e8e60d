package system

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/julianstephens/phaseplan/internal/backup"
	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/migration"
	"github.com/julianstephens/phaseplan/internal/storage/sqlite"
	"github.com/julianstephens/phaseplan/internal/utils"
	"github.com/julianstephens/phaseplan/migrations"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(ctx *cli.Context) error
	// warnOnly checks report problems without failing the command.
	warnOnly bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Database reachable", run: checkDBReachable},
		{name: "Schema version", run: checkSchemaVersion},
		{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
		{name: "Project validation", run: checkProjects, warnOnly: true},
		{name: "Clock/timezone", run: checkClockTimezone},
	}

	failed := false
	reachable := true
	for _, c := range checks {
		if !reachable && c.name != "Clock/timezone" {
			ctx.Printf("%s %s: SKIPPED (database not reachable)\n", cli.MutedStyle.Render("⊘"), c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("%s %s: OK\n", cli.OKStyle.Render("✓"), c.name)
		case c.warnOnly:
			ctx.Printf("%s %s: WARNING\n   %v\n", cli.WarnStyle.Render("⚠"), c.name, err)
		default:
			ctx.Printf("%s %s: FAIL\n   Error: %v\n", cli.ErrorStyle.Render("✗"), c.name, err)
			failed = true
			if c.name == "Database reachable" {
				reachable = false
			}
		}
	}

	ctx.Println()
	if failed {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.GetSettings(ctx.Ctx); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	return nil
}

// checkSchemaVersion compares the applied and embedded migration versions.
// PostgreSQL stores validate their version on Load.
func checkSchemaVersion(ctx *cli.Context) error {
	store, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return nil
	}
	db := store.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return err
	}

	runner := migration.NewRunner(db, subFS)
	current, err := runner.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	switch {
	case current > latest:
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	case current < latest:
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found, consider creating one with 'phaseplan backup create'")
	}
	return nil
}

func checkProjects(ctx *cli.Context) error {
	projects, err := ctx.Store.GetAllProjects(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get projects: %w", err)
	}
	var broken []string
	for _, p := range projects {
		result, err := ctx.Coordinator.Validate(ctx.Ctx, p.ID)
		if err != nil {
			return err
		}
		if result.HasErrors() {
			broken = append(broken, p.Name)
		}
	}
	if len(broken) > 0 {
		return fmt.Errorf("%d project(s) have phase conflicts: %v (run 'phaseplan validate')", len(broken), broken)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if !utils.ValidateTimezone(ctx.Config.Timezone) {
		return fmt.Errorf("configured timezone %q is unknown", ctx.Config.Timezone)
	}
	return nil
}
