package cli

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/constancia/internal/calendar"
)

type CalendarCmd struct {
	Month CalendarMonthCmd `cmd:"" help:"Show a month heat-map." default:"1"`
	Stats CalendarStatsCmd `cmd:"" help:"Show per-habit month and year totals."`
}

type CalendarMonthCmd struct {
	Month string `arg:"" optional:"" help:"Month as YYYY-MM (default: current month)."`
}

func (c *CalendarMonthCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	year, month, err := ParseMonth(c.Month, ctx.now())
	if err != nil {
		return err
	}

	grid := s.Calendar.MonthGrid(year, month)
	today := s.Habits.Today()
	todayStyle := lipgloss.NewStyle().Bold(true).Underline(true)

	ctx.printf("%s %d\n", month, year)
	ctx.println(" Su  Mo  Tu  We  Th  Fr  Sa")

	var row strings.Builder
	col := calendar.LeadingBlanks(year, month)
	row.WriteString(strings.Repeat("    ", col))
	for _, cell := range grid {
		num := lipgloss.NewStyle().Width(3).Align(lipgloss.Right).Render(strconv.Itoa(cell.Day))
		if cell.Key == today {
			num = todayStyle.Render(num)
		}
		if len(cell.Colors) > 0 {
			num = lipgloss.NewStyle().Foreground(lipgloss.Color(cell.Colors[0])).Render(num)
		}
		row.WriteString(num)
		row.WriteString(dotFor(len(cell.Colors)))

		col++
		if col == 7 {
			ctx.println(row.String())
			row.Reset()
			col = 0
		}
	}
	if row.Len() > 0 {
		ctx.println(row.String())
	}
	return nil
}

// dotFor marks days with more than one completed habit.
func dotFor(n int) string {
	if n > 1 {
		return "+"
	}
	return " "
}

type CalendarStatsCmd struct {
	Month string `arg:"" optional:"" help:"Month as YYYY-MM (default: current month)."`
}

func (c *CalendarStatsCmd) Run(ctx *Context) error {
	s, err := ctx.Session(nil)
	if err != nil {
		return err
	}
	year, month, err := ParseMonth(c.Month, ctx.now())
	if err != nil {
		return err
	}

	stats := s.Calendar.MonthYearStats(year, month)
	if len(stats) == 0 {
		ctx.println("No habits yet.")
		return nil
	}

	ctx.printf("%-28s %8s %8s\n", "", month.String()[:3], strconv.Itoa(year))
	for _, st := range stats {
		ctx.printf("%s %-26s %8d %8d\n", swatch(st.Color), st.Name, st.MonthCount, st.YearCount)
	}
	return nil
}
