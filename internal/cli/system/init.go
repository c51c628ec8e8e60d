package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/storage"
	"github.com/julianstephens/phaseplan/internal/storage/postgres"
	"github.com/julianstephens/phaseplan/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Delete an existing SQLite database before initialization."`
	Source string `help:"Database path or PostgreSQL connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized phaseplan storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyFrom(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return fmt.Errorf("--force is only supported for SQLite databases")
	}

	dbPath := ctx.Store.GetConfigPath()
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}
	if c.Source != "" {
		if absSource, err := filepath.Abs(c.Source); err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

func openSource(source string) (storage.Provider, error) {
	if !strings.HasPrefix(source, "postgres://") && !strings.HasPrefix(source, "postgresql://") {
		if strings.EqualFold(filepath.Ext(source), ".json") {
			return storage.NewJSONStore(source), nil
		}
		return sqlite.NewStore(source), nil
	}
	if ok, err := postgres.ValidateConnString(source); !ok {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return nil, fmt.Errorf("source connection string contains a password, use PGPASSWORD or .pgpass instead")
		}
		return nil, err
	}
	return postgres.New(source), nil
}

// copyFrom copies every row from the source store. Templates are copied
// before their occurrences, so series ids stay intact.
func (c *InitCmd) copyFrom(ctx *cli.Context, source string) error {
	src, err := openSource(source)
	if err != nil {
		return err
	}
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	settings, err := src.GetSettings(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(ctx.Ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	holidays, err := src.GetHolidays(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get holidays from source: %w", err)
	}
	for _, h := range holidays {
		if _, err := ctx.Store.AddHoliday(ctx.Ctx, h); err != nil {
			return fmt.Errorf("failed to add holiday %s: %w", h.Name, err)
		}
	}
	ctx.Printf("  Copied %d holidays\n", len(holidays))

	projects, err := src.GetAllProjects(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to get projects from source: %w", err)
	}
	phaseCount, eventCount := 0, 0
	for _, p := range projects {
		if _, err := ctx.Store.AddProject(ctx.Ctx, p); err != nil {
			return fmt.Errorf("failed to add project %s: %w", p.Name, err)
		}

		phases, err := src.ListPhasesForProject(ctx.Ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to get phases for %s: %w", p.Name, err)
		}
		storage.SortPhases(phases)
		for _, tmplFirst := range []bool{true, false} {
			for _, ph := range phases {
				if ph.IsTemplate() != tmplFirst {
					continue
				}
				if _, err := ctx.Store.CreatePhase(ctx.Ctx, ph); err != nil {
					return fmt.Errorf("failed to add phase %s: %w", ph.Name, err)
				}
				phaseCount++
			}
		}

		events, err := src.GetEventsForProject(ctx.Ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to get events for %s: %w", p.Name, err)
		}
		for _, e := range events {
			if _, err := ctx.Store.AddEvent(ctx.Ctx, e); err != nil {
				return fmt.Errorf("failed to add event %s: %w", e.Title, err)
			}
			eventCount++
		}
	}
	ctx.Printf("  Copied %d projects, %d phases and %d events\n", len(projects), phaseCount, eventCount)
	return nil
}
