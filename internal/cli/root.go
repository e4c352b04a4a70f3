package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/constancia/internal/backup"
	"github.com/julianstephens/constancia/internal/calendar"
	"github.com/julianstephens/constancia/internal/config"
	"github.com/julianstephens/constancia/internal/dreams"
	apperrors "github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/habits"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/storage"
	"github.com/julianstephens/constancia/internal/timer"
	"github.com/julianstephens/constancia/internal/utils"
	"github.com/julianstephens/constancia/internal/verse"
)

type Context struct {
	Store     storage.Provider
	Config    *config.Config
	ConfigDir string
	Location  *time.Location
	Now       func() time.Time
	Out       io.Writer

	session *Session
	// openWarnings are recoverable errors from opening the provider.
	openWarnings []error
}

// Session holds the stores every command works against.
type Session struct {
	Habits   *habits.Store
	Calendar *calendar.Aggregator
	Dreams   *dreams.Store
	Timer    *timer.Timer
	Verse    *verse.Store

	// Warnings are recoverable load errors the stores fell back from.
	Warnings []error
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now().In(c.location())
	}
	return time.Now().In(c.location())
}

func (c *Context) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c *Context) config() *config.Config {
	if c.Config == nil {
		c.Config = config.DefaultConfig()
	}
	return c.Config
}

// OpenStore opens the provider, creating it on first use. A provider that
// recovered from malformed data opens normally and the error is kept as a
// session warning.
func (c *Context) OpenStore() error {
	err := c.Store.Open()
	if errors.Is(err, storage.ErrNotInitialized) {
		logger.Info("Initializing storage on first run", "path", c.Store.GetConfigPath())
		err = c.Store.Init()
	}
	if errors.Is(err, apperrors.ErrMalformed) {
		c.openWarnings = append(c.openWarnings, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	return nil
}

// Session opens storage and loads every store once per process. Recoverable
// load errors are collected in Session.Warnings rather than returned.
func (c *Context) Session(sched timer.Scheduler) (*Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	if err := c.OpenStore(); err != nil {
		return nil, err
	}
	if sched == nil {
		sched = timer.TickerScheduler{}
	}

	cfg := c.config()
	clock := func() time.Time { return c.now() }
	s := &Session{
		Habits: habits.New(c.Store, habits.WithClock(clock), habits.WithLocation(c.location())),
		Dreams: dreams.New(c.Store, dreams.WithClock(clock)),
		Timer: timer.New(sched,
			timer.WithGateway(c.Store),
			timer.WithClock(clock),
			timer.WithDefaults(cfg.Timer.FocusMinutes*60, cfg.Timer.BreakMinutes*60)),
		Verse:    verse.New(c.Store),
		Warnings: c.openWarnings,
	}
	s.Calendar = calendar.New(s.Habits)

	for _, load := range []func() error{s.Habits.Load, s.Dreams.Load, s.Timer.Load, s.Verse.Load} {
		if err := load(); err != nil {
			s.Warnings = append(s.Warnings, err)
		}
	}

	c.session = s
	return s, nil
}

// warn prints recoverable errors without failing the command.
func (c *Context) warn(err error) {
	if err == nil {
		return
	}
	if apperrors.IsRecoverable(err) {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return
	}
	logger.Warn("Unexpected error", "error", err)
}

// afterMutation reports a failed flush as a warning; the change itself
// has been applied.
func (c *Context) afterMutation(err error) error {
	if errors.Is(err, apperrors.ErrPersistence) {
		c.warn(err)
		return nil
	}
	return err
}

// PerformAutomaticBackup backs up file storage and only logs failures
func (c *Context) PerformAutomaticBackup() {
	cfg := c.config()
	if !cfg.Backups.Auto {
		return
	}
	switch c.Store.(type) {
	case *storage.SQLiteStore, *storage.JSONStore:
	default:
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath(), backup.WithKeep(cfg.Backups.Keep))
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ParseDay accepts YYYY-MM-DD, "today" or "yesterday".
func ParseDay(s string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return utils.FormatDateKey(now), nil
	case "yesterday":
		return utils.FormatDateKey(now.AddDate(0, 0, -1)), nil
	}
	if _, err := utils.ParseDateKey(s, now.Location()); err != nil {
		return "", apperrors.Validation("date", fmt.Sprintf("%q is not YYYY-MM-DD, today or yesterday", s))
	}
	return s, nil
}

// ParseMonth accepts YYYY-MM; empty means the current month.
func ParseMonth(s string, now time.Time) (int, time.Month, error) {
	if strings.TrimSpace(s) == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, apperrors.Validation("month", fmt.Sprintf("%q is not YYYY-MM", s))
	}
	return t.Year(), t.Month(), nil
}

// findHabit resolves a habit by numeric id or, failing that, by name.
func findHabit(s *habits.Store, ref string) (models.Habit, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if h, err := s.Get(id); err == nil {
			return h, nil
		}
	}
	if h, ok := s.FindByName(ref); ok {
		return h, nil
	}
	return models.Habit{}, &apperrors.NotFoundError{Kind: "habit", Name: ref}
}

func parseID(kind, ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, apperrors.Validation(kind+" id", fmt.Sprintf("%q is not a number", ref))
	}
	return id, nil
}
