package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/phaseplan/internal/backup"
	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/cli/backups"
	"github.com/julianstephens/phaseplan/internal/cli/calendar"
	"github.com/julianstephens/phaseplan/internal/cli/phases"
	"github.com/julianstephens/phaseplan/internal/cli/projects"
	"github.com/julianstephens/phaseplan/internal/cli/recurring"
	"github.com/julianstephens/phaseplan/internal/cli/reports"
	"github.com/julianstephens/phaseplan/internal/cli/system"
	"github.com/julianstephens/phaseplan/internal/config"
	"github.com/julianstephens/phaseplan/internal/constants"
	apperrors "github.com/julianstephens/phaseplan/internal/errors"
	"github.com/julianstephens/phaseplan/internal/keyring"
	"github.com/julianstephens/phaseplan/internal/lifecycle"
	"github.com/julianstephens/phaseplan/internal/logger"
	"github.com/julianstephens/phaseplan/internal/metrics"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/notifier"
	"github.com/julianstephens/phaseplan/internal/storage"
	"github.com/julianstephens/phaseplan/internal/storage/postgres"
	"github.com/julianstephens/phaseplan/internal/storage/sqlite"
	"github.com/julianstephens/phaseplan/internal/utils"
)

var CLI struct {
	Version      kong.VersionFlag
	Config       string `help:"SQLite database path, a .json file for the single-file store, a PostgreSQL connection string without a password, or \"postgres\" to read the connection string from ${conn_env} or the OS keyring." env:"PHASEPLAN_CONFIG" default:"${default_config}"`
	SettingsFile string `name:"settings" help:"YAML settings file with generation limits and workday defaults." type:"path" env:"PHASEPLAN_SETTINGS" default:"${default_settings}"`
	Debug        bool   `help:"Log debug output to stderr." env:"PHASEPLAN_DEBUG"`
	MetricsFile  string `help:"Write Prometheus metrics to this textfile on exit." type:"path" env:"PHASEPLAN_METRICS_FILE"`
	Yes          bool   `short:"y" help:"Answer yes to every confirmation prompt."`

	Init     system.InitCmd     `cmd:"" help:"Initialize phaseplan storage."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Settings system.SettingsCmd `cmd:"" help:"Show or change application settings."`
	Keyring  system.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Project  struct {
		Add    projects.ProjectAddCmd    `cmd:"" help:"Add a project."`
		List   projects.ProjectListCmd   `cmd:"" help:"List projects."`
		Show   projects.ProjectShowCmd   `cmd:"" help:"Show a project with its budget."`
		Delete projects.ProjectDeleteCmd `cmd:"" help:"Delete a project and its phases."`
	} `cmd:"" help:"Manage projects."`
	Phase struct {
		Add    phases.PhaseAddCmd    `cmd:"" help:"Add a milestone."`
		Edit   phases.PhaseEditCmd   `cmd:"" help:"Edit a phase or milestone."`
		Delete phases.PhaseDeleteCmd `cmd:"" help:"Delete a phase or milestone."`
		List   phases.PhaseListCmd   `cmd:"" help:"List the phases of a project."`
		Repair phases.PhaseRepairCmd `cmd:"" help:"Push overlapping split phases apart."`
	} `cmd:"" help:"Manage phases and milestones."`
	Split     phases.SplitCmd `cmd:"" help:"Split a project's estimate into sequential phases."`
	Recurring struct {
		Set    recurring.RecurringSetCmd    `cmd:"" help:"Configure a recurring milestone series."`
		Show   recurring.RecurringShowCmd   `cmd:"" help:"Show the recurring series and upcoming occurrences."`
		Load   recurring.RecurringLoadCmd   `cmd:"" help:"Change the hours per occurrence."`
		Delete recurring.RecurringDeleteCmd `cmd:"" help:"Delete the recurring series."`
		Ensure recurring.RecurringEnsureCmd `cmd:"" help:"Generate the next batch of occurrences."`
	} `cmd:"" help:"Manage recurring milestones."`
	Budget     reports.BudgetCmd     `cmd:"" help:"Show budget reconciliation for a project."`
	Distribute reports.DistributeCmd `cmd:"" help:"Show the per-day auto-estimate of a project."`
	Validate   reports.ValidateCmd   `cmd:"" help:"Validate phases for conflicts."`
	Holiday    struct {
		Add  calendar.HolidayAddCmd  `cmd:"" help:"Add a holiday."`
		List calendar.HolidayListCmd `cmd:"" help:"List holidays."`
	} `cmd:"" help:"Manage holidays."`
	Event struct {
		Add calendar.EventAddCmd `cmd:"" help:"Add a calendar event to a project."`
	} `cmd:"" help:"Manage calendar events."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Project phase, recurring milestone and budget planner"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":          constants.Version,
			"conn_env":         constants.ConnectionEnvVar,
			"default_config":   constants.DefaultConfigPath,
			"default_settings": constants.DefaultSettingsPath,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, kctx)
	stop()
	if err != nil {
		if errors.Is(err, cli.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(1)
		}
		apperrors.Fatal(err)
	}
}

func run(ctx context.Context, kctx *kong.Context) error {
	cfg, err := config.Load(CLI.SettingsFile)
	if err != nil {
		return err
	}

	store, logDir, err := openStore(CLI.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: logDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{
		Ctx:       ctx,
		Store:     store,
		Config:    cfg,
		Out:       os.Stdout,
		AssumeYes: CLI.Yes,
		Confirm:   cli.PromptConfirm,
	}

	settings := models.Settings{Timezone: cfg.Timezone, NotificationsEnabled: true}
	if needsLoad(kctx.Command()) {
		if err := store.Load(); err != nil {
			return err
		}
		if settings, err = store.GetSettings(ctx); err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}
		if cfg.Timezone == "Local" && settings.Timezone != "" {
			appCtx.Config.Timezone = settings.Timezone
		}
	}
	appCtx.Coordinator = newCoordinator(store, appCtx.Config, settings)

	err = kctx.Run(appCtx)

	if CLI.MetricsFile != "" {
		if merr := metrics.WriteTextfile(CLI.MetricsFile); merr != nil {
			logger.Warn("Failed to write metrics file", "path", CLI.MetricsFile, "error", merr)
		}
	}
	return err
}

// needsLoad reports whether the command works on an initialized store.
// init creates it, and doctor and keyring must run without one.
func needsLoad(command string) bool {
	for _, prefix := range []string{"init", "doctor", "keyring"} {
		if strings.HasPrefix(command, prefix) {
			return false
		}
	}
	return true
}

// openStore picks the backend from the --config value. It also returns the
// directory the log file goes in.
func openStore(value string) (storage.Provider, string, error) {
	defaultDir := filepath.Dir(config.ExpandHome(constants.DefaultConfigPath))

	connStr := value
	if value == "postgres" || value == "postgresql" {
		resolved, err := keyring.ResolveConnectionString()
		if err != nil {
			return nil, "", fmt.Errorf("no PostgreSQL connection string found in %s or the OS keyring: %w", constants.ConnectionEnvVar, err)
		}
		connStr = resolved
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") || strings.Contains(connStr, "host=") {
		if ok, err := postgres.ValidateConnString(connStr); !ok {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, "", fmt.Errorf("%w\n  use one of:\n"+
					"  1. OS keyring:  phaseplan keyring set \"postgresql://user@host:5432/phaseplan\" (password via PGPASSWORD or .pgpass)\n"+
					"  2. Environment: export %s=\"postgresql://user@host:5432/phaseplan\"\n"+
					"  3. .pgpass:     keep the password in ~/.pgpass", err, constants.ConnectionEnvVar)
			}
			return nil, "", err
		}
		return postgres.New(connStr), defaultDir, nil
	}

	path := config.ExpandHome(value)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return storage.NewJSONStore(path), filepath.Dir(path), nil
	}
	return sqlite.NewStore(path), filepath.Dir(path), nil
}

func newCoordinator(store storage.Provider, cfg config.Config, settings models.Settings) *lifecycle.Coordinator {
	opts := []lifecycle.Option{
		lifecycle.WithConfig(cfg),
		lifecycle.WithClock(func() time.Time {
			now, err := utils.NowInTimezone(cfg.Timezone)
			if err != nil {
				return time.Now()
			}
			return now
		}),
	}
	if settings.NotificationsEnabled {
		opts = append(opts, lifecycle.WithNotifier(notifier.Multi{
			notifier.NewTerminal(os.Stdout),
			notifier.Optional(notifier.NewDesktop()),
		}))
	}
	if sq, ok := store.(*sqlite.Store); ok {
		opts = append(opts, lifecycle.WithBackup(backup.NewManager(sq.GetConfigPath()).Snapshot))
	}
	return lifecycle.New(store, opts...)
}
