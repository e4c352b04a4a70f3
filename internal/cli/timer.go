package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/constancia/internal/lock"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/timer"
)

type TimerCmd struct {
	Run     TimerRunCmd     `cmd:"" help:"Run the focus/break timer in this terminal."`
	Config  TimerConfigCmd  `cmd:"" help:"Set focus and break durations."`
	Status  TimerStatusCmd  `cmd:"" help:"Show timer settings and whether a countdown is running." default:"1"`
	History TimerHistoryCmd `cmd:"" help:"List completed focus and break phases."`
}

type TimerRunCmd struct {
	Phases int `help:"Stop after this many completed phases (0 runs until interrupted)."`
}

func (c *TimerRunCmd) Run(ctx *Context) error {
	l, err := lock.Acquire(ctx.ConfigDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			ctx.warn(err)
		}
	}()

	s, err := ctx.Session(timer.TickerScheduler{})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Callbacks run on the scheduler goroutine and only hand events over;
	// all output happens here.
	events := make(chan any, 16)
	quit := make(chan struct{})
	defer close(quit)
	send := func(ev any) {
		select {
		case events <- ev:
		case <-quit:
		}
	}

	t := s.Timer
	t.OnTick(func(st timer.State) { send(st) })
	t.OnModeChange(func(mc timer.ModeChange) { send(mc) })

	v := s.Verse.Get()
	ctx.printf("“%s” (%s)\n", v.Text, v.Reference)
	st := t.Snapshot()
	ctx.printf("%-6s %s ", st.Mode, timer.Format(st.Remaining))
	t.Start()

	completed := 0
loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case ev := <-events:
			switch ev := ev.(type) {
			case timer.State:
				ctx.printf("\r%-6s %s ", ev.Mode, timer.Format(ev.Remaining))
			case timer.ModeChange:
				completed++
				ctx.printf("\a\n%s finished, starting %s\n", ev.From, ev.To)
				if c.Phases > 0 && completed >= c.Phases {
					break loop
				}
			}
		}
	}
	t.Pause()
	ctx.println()
	return nil
}

type TimerConfigCmd struct {
	Focus int `arg:"" help:"Focus minutes."`
	Break int `arg:"" help:"Break minutes."`
}

func (c *TimerConfigCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	if err := ctx.afterMutation(s.Timer.Configure(c.Focus*60, c.Break*60)); err != nil {
		return err
	}
	ctx.printf("Timer set to %d min focus / %d min break\n", c.Focus, c.Break)
	return nil
}

type TimerStatusCmd struct{}

func (c *TimerStatusCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	st := s.Timer.Snapshot()
	ctx.printf("Focus: %s  Break: %s\n", timer.Format(st.FocusSeconds), timer.Format(st.BreakSeconds))

	h, running, err := lock.Status(ctx.ConfigDir)
	if err != nil {
		return err
	}
	if running {
		ctx.printf("Running in pid %d since %s\n", h.PID, h.Started.Local().Format("15:04"))
	} else {
		ctx.println("Not running")
	}
	return nil
}

type TimerHistoryCmd struct {
	Limit int `help:"Show at most this many phases." default:"20"`
}

func (c *TimerHistoryCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	history := s.Timer.History()
	if len(history) == 0 {
		ctx.println("No completed phases yet.")
		return nil
	}
	if c.Limit > 0 && len(history) > c.Limit {
		history = history[len(history)-c.Limit:]
	}

	focusTotal := 0
	for _, fs := range history {
		ctx.printf("%s  %-5s %s\n", fs.CompletedAt.In(ctx.location()).Format("2006-01-02 15:04"), fs.Mode, timer.Format(fs.PlannedSeconds))
		if fs.Mode == models.ModeFocus {
			focusTotal += fs.PlannedSeconds
		}
	}
	ctx.printf("Focused %d min across %d phases\n", focusTotal/60, len(history))
	return nil
}
