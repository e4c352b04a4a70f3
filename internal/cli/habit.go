package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/constancia/internal/habits"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/utils"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with streaks." default:"1"`
	Toggle HabitToggleCmd `cmd:"" help:"Mark or unmark a habit for a day."`
	Rename HabitRenameCmd `cmd:"" help:"Rename a habit."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit permanently."`
	Week   HabitWeekCmd   `cmd:"" help:"Show this week's completions."`
}

func swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

type HabitAddCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}

	h, err := s.Habits.Create(c.Name)
	if err = ctx.afterMutation(err); err != nil {
		return err
	}
	ctx.printf("Added habit: %s %s (id %d)\n", swatch(h.Color), h.Name, h.ID)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	for _, w := range s.Warnings {
		ctx.warn(w)
	}

	list := s.Habits.List()
	if len(list) == 0 {
		ctx.println("No habits yet. Add one with 'constancia habit add <name>'.")
		return nil
	}

	today := s.Habits.Today()
	for _, h := range list {
		mark := " "
		if h.Done(today) {
			mark = "✓"
		}
		ctx.printf("%s [%s] %-24s streak %-3d record %-3d id %d\n",
			swatch(h.Color), mark, h.Name, h.Streak, h.Record, h.ID)
	}
	return nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Date  string `help:"Day to toggle: YYYY-MM-DD, today or yesterday." default:"today"`
}

func (c *HabitToggleCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}

	h, err := findHabit(s.Habits, c.Habit)
	if err != nil {
		return err
	}
	day, err := ParseDay(c.Date, ctx.now())
	if err != nil {
		return err
	}

	h, err = s.Habits.Toggle(h.ID, day)
	if err = ctx.afterMutation(err); err != nil {
		return err
	}

	state := "not done"
	if h.Done(day) {
		state = "done"
	}
	ctx.printf("%s marked %s on %s (streak %d, record %d)\n", h.Name, state, day, h.Streak, h.Record)
	return nil
}

type HabitRenameCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
	Name  string `arg:"" help:"New name."`
}

func (c *HabitRenameCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}

	h, err := findHabit(s.Habits, c.Habit)
	if err != nil {
		return err
	}
	old := h.Name
	h, err = s.Habits.Rename(h.ID, c.Name)
	if err = ctx.afterMutation(err); err != nil {
		return err
	}
	ctx.printf("Renamed %s to %s\n", old, h.Name)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or name."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}

	h, err := findHabit(s.Habits, c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.afterMutation(s.Habits.Delete(h.ID)); err != nil {
		return err
	}
	ctx.printf("Deleted habit: %s\n", h.Name)
	return nil
}

type HabitWeekCmd struct {
	Date string `help:"Any day in the week to show." default:"today"`
}

func (c *HabitWeekCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}

	day, err := ParseDay(c.Date, ctx.now())
	if err != nil {
		return err
	}
	ref, err := utils.ParseDateKey(day, ctx.location())
	if err != nil {
		return err
	}

	list := s.Habits.List()
	if len(list) == 0 {
		ctx.println("No habits yet.")
		return nil
	}

	ctx.printf("%-28s S M T W T F S\n", "")
	for _, h := range list {
		week, err := s.Habits.Week(h.ID, ref)
		if err != nil {
			return err
		}
		ctx.printf("%s %-26s %s\n", swatch(h.Color), h.Name, weekRow(h, week))
	}
	return nil
}

func weekRow(h models.Habit, week []habits.DayStatus) string {
	cells := make([]string, len(week))
	for i, d := range week {
		switch {
		case d.Done:
			cells[i] = swatch(h.Color)
		case d.Future:
			cells[i] = "·"
		default:
			cells[i] = "○"
		}
	}
	return strings.Join(cells, " ")
}
