package main

import (
	"context"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/grove/internal/bamboo"
	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/cli/backups"
	"github.com/julianstephens/grove/internal/cli/calendar"
	"github.com/julianstephens/grove/internal/cli/garden"
	"github.com/julianstephens/grove/internal/cli/habits"
	"github.com/julianstephens/grove/internal/cli/points"
	"github.com/julianstephens/grove/internal/cli/quests"
	"github.com/julianstephens/grove/internal/cli/system"
	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/config"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/logger"
	"github.com/julianstephens/grove/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path (default ~/.config/grove/config.toml)." type:"path"`
	DB      string `help:"Storage location: sqlite path, json:<dir>, mongodb:// URI or PostgreSQL connection string. PostgreSQL credentials must NOT be embedded; use the environment, .pgpass or the OS keyring." name:"db"`
	User    string `help:"Act as this user id instead of the local guest." short:"u"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init     system.InitCmd       `cmd:"" help:"Initialize grove storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve    system.ServeCmd      `cmd:"" help:"Serve the HTTP API."`
	Export   system.ExportCmd     `cmd:"" help:"Export state as compressed JSON lines."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage secrets in the OS keyring."`
	Backup   backups.BackupCmd    `cmd:"" help:"Manage database backups."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits and completions."`
	Quest    quests.QuestCmd      `cmd:"" help:"Show daily quests."`
	Points   points.PointsCmd     `cmd:"" help:"Show and manage points."`
	Garden   garden.GardenCmd     `cmd:"" help:"Tend your bamboo garden."`
	Calendar calendar.CalendarCmd `cmd:"" help:"Show a month of habit completion."`
}

// commands that open storage themselves or never touch it
var skipOpen = map[string]bool{
	"init":    true,
	"migrate": true,
	"doctor":  true,
	"keyring": true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with points, daily quests and a bamboo garden"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configPath := CLI.Config
	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		errors.Fatal(err)
	}
	configDir := filepath.Dir(configPath)

	cfg, err := config.Load(configPath)
	errors.Fatal(err)

	errors.Fatal(logger.Init(logger.Config{
		Debug:     CLI.Debug || cfg.Log.Debug,
		Level:     cfg.Log.Level,
		ConfigDir: configDir,
	}))

	userID := CLI.User
	if userID == "" {
		userID = cfg.Engine.User
	}
	id, err := identity.Resolve(userID, configDir)
	errors.Fatal(err)

	clk, err := clock.NewSystem(cfg.Engine.Timezone)
	errors.Fatal(err)

	catalog, err := bamboo.LoadCatalog(cfg.Engine.Catalog)
	errors.Fatal(err)

	dsn, err := cfg.ResolveDSN(CLI.DB)
	errors.Fatal(err)
	store, err := storage.New(dsn)
	errors.Fatal(err)

	appCtx := &cli.Context{
		Store:      store,
		Config:     cfg,
		ConfigDir:  configDir,
		ConfigPath: configPath,
		Identity:   id,
		Clock:      clk,
		Catalog:    catalog,
	}

	command := ""
	if selected := ctx.Selected(); selected != nil {
		command = selected.Name
		for p := selected.Parent; p != nil && p.Parent != nil; p = p.Parent {
			command = p.Name
		}
	}
	if !skipOpen[command] {
		if err := store.Open(context.Background()); err != nil {
			errors.Fatal(err)
		}
	}
	logger.Debug("Running command", "command", command, "identity", id.String(), "storage", store.GetConfigPath())

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	errors.Fatal(err)
}
