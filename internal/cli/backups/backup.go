package backups

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/phaseplan/internal/backup"
	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/storage/sqlite"
)

func manager(ctx *cli.Context) (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for SQLite databases")
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	ctx.Printf("%s Backup created: %s\n", cli.OKStyle.Render("✓"), filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.Println("No backups found.")
		ctx.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, []string{
			b.Timestamp.Format("2006-01-02 15:04:05"),
			filepath.Base(b.Path),
			humanize.Bytes(uint64(b.Size)),
			humanize.Time(b.Timestamp),
		})
	}
	ctx.Printf("Available backups (%d total, keeping most recent %d):\n", len(backups), backup.MaxBackups)
	ctx.Println(cli.Table([]string{"Created", "File", "Size", "Age"}, rows))
	ctx.Println(cli.MutedStyle.Render("Backup directory: " + mgr.Dir()))
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}

	path, err := resolve(c.BackupFile, mgr.Dir())
	if err != nil {
		return err
	}

	err = ctx.ConfirmAction("Restore from "+filepath.Base(path)+"?",
		"This replaces the current database. Stop other phaseplan processes first; a backup of the current database is taken before restoring.")
	if err != nil {
		return err
	}

	if err := ctx.Store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
	}
	if err := mgr.Restore(ctx.Ctx, path); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	ctx.Printf("%s Database restored from %s\n", cli.OKStyle.Render("✓"), filepath.Base(path))
	return nil
}

// resolve finds the backup as given, relative to the working directory, or
// inside the backup directory.
func resolve(name, dir string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return filepath.Abs(name)
	}
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", dir)
}
