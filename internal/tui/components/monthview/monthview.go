package monthview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/constancia/internal/calendar"
)

// maxDots caps the habit dots drawn in one day cell.
const maxDots = 3

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	weekdayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(8)

	cellStyle = lipgloss.NewStyle().
			Width(8)

	todayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Bold(true).
			Underline(true)

	statsNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(24)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type Model struct {
	viewport viewport.Model
	year     int
	month    time.Month
	cells    []calendar.DayCell
	stats    []calendar.HabitStats
	today    string
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

// SetMonth replaces the displayed month. today is highlighted when it
// falls inside the grid.
func (m *Model) SetMonth(year int, month time.Month, cells []calendar.DayCell, stats []calendar.HabitStats, today string) {
	m.year = year
	m.month = month
	m.cells = cells
	m.stats = stats
	m.today = today
	m.Render()
}

func (m *Model) Render() {
	if len(m.cells) == 0 {
		m.viewport.SetContent("No month loaded.")
		return
	}
	m.viewport.SetContent(Grid(m.year, m.month, m.cells, m.today) + "\n\n" + Stats(m.stats))
}

// Grid lays out a Sunday-first month with one dot per completed habit.
func Grid(year int, month time.Month, cells []calendar.DayCell, today string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %d", month, year)))
	b.WriteString("\n\n")

	var row []string
	for _, wd := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		row = append(row, weekdayStyle.Render(wd))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
	b.WriteString("\n")

	row = row[:0]
	for range calendar.LeadingBlanks(year, month) {
		row = append(row, cellStyle.Render(""))
	}
	for _, c := range cells {
		row = append(row, cellStyle.Render(cell(c, today)))
		if len(row) == 7 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
			b.WriteString("\n")
			row = row[:0]
		}
	}
	if len(row) > 0 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}
	return b.String()
}

func cell(c calendar.DayCell, today string) string {
	day := fmt.Sprintf("%2d", c.Day)
	if c.Key == today {
		day = todayStyle.Render(day)
	}

	var dots strings.Builder
	for i, color := range c.Colors {
		if i == maxDots {
			dots.WriteString("+")
			break
		}
		dots.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●"))
	}
	if dots.Len() == 0 {
		return day
	}
	return day + " " + dots.String()
}

// Stats renders the per-habit month and year counts.
func Stats(stats []calendar.HabitStats) string {
	if len(stats) == 0 {
		return countStyle.Render("No habits to count.")
	}
	var b strings.Builder
	for _, s := range stats {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("●")
		fmt.Fprintf(&b, "%s %s %s\n", dot, statsNameStyle.Render(s.Name),
			countStyle.Render(fmt.Sprintf("%d this month | %d this year", s.MonthCount, s.YearCount)))
	}
	return b.String()
}
