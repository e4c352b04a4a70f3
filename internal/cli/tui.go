package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/constancia/internal/lock"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/timer"
	"github.com/julianstephens/constancia/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	sched := timer.NewManualScheduler()
	s, err := ctx.Session(sched)
	if err != nil {
		return err
	}

	// Back up after a successful load so a bad session can be rolled back
	ctx.PerformAutomaticBackup()

	if l, err := lock.Acquire(ctx.ConfigDir); err != nil {
		logger.Warn("Timer lock not acquired", "error", err)
	} else {
		defer func() {
			if err := l.Release(); err != nil {
				logger.Warn("Failed to release timer lock", "error", err)
			}
		}()
	}

	m := tui.NewModel(tui.Deps{
		Habits:    s.Habits,
		Calendar:  s.Calendar,
		Dreams:    s.Dreams,
		Timer:     s.Timer,
		Verse:     s.Verse,
		Scheduler: sched,
		Now:       ctx.now,
		Warnings:  s.Warnings,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI exited with error: %w", err)
	}
	return nil
}
