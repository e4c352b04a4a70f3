package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/constancia/internal/backup"
	apperrors "github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/lock"
	"github.com/julianstephens/constancia/internal/storage"
	"github.com/julianstephens/constancia/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	// needsDB checks are skipped when storage cannot be opened
	needsDB bool
	// warnOnly failures do not fail the command
	warnOnly bool
	run      func(*Context) error
}

var doctorChecks = []check{
	{name: "Database reachable", run: checkDBReachable},
	{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
	{name: "Stored data", needsDB: true, run: checkStoredData},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Timer lock", warnOnly: true, run: checkTimerLock},
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	dbReachable := true
	for _, c := range doctorChecks {
		if c.needsDB && !dbReachable {
			ctx.printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.printf("⚠ %s: WARNING\n", c.name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("❌ %s: FAIL\n", c.name)
			ctx.println("   " + apperrors.Formatf("%v", err))
			hasError = true
			if c.name == doctorChecks[0].name {
				dbReachable = false
			}
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *Context) error {
	err := ctx.Store.Open()
	if errors.Is(err, apperrors.ErrMalformed) {
		// reported by the stored data check
		ctx.openWarnings = append(ctx.openWarnings, err)
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	var db *sql.DB
	switch s := ctx.Store.(type) {
	case *storage.SQLiteStore:
		db = s.GetDB()
	case *storage.PostgresStore:
		db = s.GetDB()
	default:
		return nil
	}
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkMigrationsComplete(ctx *Context) error {
	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return nil
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("%d pending migration(s), run 'constancia migrate'", pending)
	}
	return nil
}

func checkStoredData(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	if len(s.Warnings) == 0 {
		return nil
	}
	msgs := make([]string, len(s.Warnings))
	for i, w := range s.Warnings {
		msgs[i] = w.Error()
	}
	return errors.New(strings.Join(msgs, "; "))
}

func checkBackupsPresent(ctx *Context) error {
	switch ctx.Store.(type) {
	case *storage.SQLiteStore, *storage.JSONStore:
	default:
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups in %s, run 'constancia backup create'", mgr.Dir())
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now, err := utils.NowInTimezone(ctx.config().Timezone)
	if err != nil {
		return err
	}
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format("2006-01-02"))
	}
	return nil
}

func checkTimerLock(ctx *Context) error {
	if ctx.ConfigDir == "" {
		return nil
	}
	h, running, err := lock.Status(ctx.ConfigDir)
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("timer running in pid %d", h.PID)
	}
	return nil
}
