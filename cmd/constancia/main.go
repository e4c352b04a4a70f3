package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/constancia/internal/cli"
	"github.com/julianstephens/constancia/internal/config"
	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/keyring"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/storage"
	"github.com/julianstephens/constancia/internal/utils"
)

var CLI struct {
	Version   kong.VersionFlag
	Config    string `help:"Database path or PostgreSQL connection string. PostgreSQL credentials must NOT be embedded; use the keyring, CONSTANCIA_DB_CONNECTION or .pgpass." type:"string" default:"${default_config}"`
	Debug     bool   `help:"Log debug output to stderr." env:"CONSTANCIA_DEBUG"`
	Timezone  string `help:"IANA timezone for date keys (overrides config.yaml)."`
	Ephemeral bool   `help:"Keep everything in memory for this run."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize constancia storage."`
	Migrate  cli.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Habit    cli.HabitCmd    `cmd:"" help:"Manage habits and daily completions."`
	Calendar cli.CalendarCmd `cmd:"" help:"Show the habit calendar."`
	Dream    cli.DreamCmd    `cmd:"" help:"Manage the dream board."`
	Timer    cli.TimerCmd    `cmd:"" help:"Focus/break timer."`
	Verse    cli.VerseCmd    `cmd:"" help:"Show or change the verse of the day."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage database backups."`
	Keyring  cli.KeyringCmd  `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit streaks, a dream board and a focus timer"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"default_config": constants.DefaultConfigPath,
		},
	)

	location := CLI.Config
	if !storage.IsPostgresURL(location) {
		expanded, err := config.ExpandPath(location)
		if err != nil {
			errors.Fatal(err)
		}
		location = expanded
	}

	configDir := filepath.Dir(constants.DefaultConfigPath)
	if expanded, err := config.ExpandPath(configDir); err == nil {
		configDir = expanded
	}
	if !storage.IsPostgresURL(location) {
		configDir = filepath.Dir(location)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir, Level: cfg.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	if CLI.Timezone != "" {
		cfg.Timezone = CLI.Timezone
	}
	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		errors.Fatal(err)
	}

	store, err := selectStore(location, cfg)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	appCtx := &cli.Context{
		Store:     store,
		Config:    cfg,
		ConfigDir: configDir,
		Location:  loc,
	}

	logger.Debug("Running command", "command", ctx.Command(), "storage", store.GetConfigPath())
	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errors.Fatal(err)
	}
}

// selectStore picks the storage backend: --ephemeral, then a PostgreSQL URL
// given with --config, then the backend named in config.yaml.
func selectStore(location string, cfg *config.Config) (storage.Provider, error) {
	if CLI.Ephemeral {
		return storage.NewMemoryStore(), nil
	}

	if storage.IsPostgresURL(location) {
		if err := storage.ValidateConnString(location); err != nil {
			return nil, fmt.Errorf("%w\n       Store credentials with 'constancia keyring set', in %s, or in .pgpass",
				err, constants.EnvDBConnection)
		}
		return storage.NewPostgresStore(location), nil
	}

	switch cfg.Database {
	case config.BackendPostgres:
		connStr, source, err := keyring.Resolve("")
		if err != nil {
			return nil, err
		}
		if source == keyring.SourceNone {
			return nil, fmt.Errorf("database is postgres but no connection string is configured; run 'constancia keyring set' or set %s", constants.EnvDBConnection)
		}
		logger.Debug("Using PostgreSQL", "source", source, "connection", storage.Redact(connStr))
		return storage.NewPostgresStore(connStr), nil
	case config.BackendJSON:
		if !strings.HasSuffix(location, ".json") {
			location = strings.TrimSuffix(location, filepath.Ext(location)) + ".json"
		}
		return storage.NewJSONStore(location), nil
	default:
		return storage.New(location), nil
	}
}
