package habitlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/constancia/internal/habits"
	"github.com/julianstephens/constancia/internal/models"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	ID int64
}

type RenameHabitMsg struct {
	Habit models.Habit
}

type DeleteHabitMsg struct {
	Habit models.Habit
}

var futureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

// Item is one habit row with its current week strip.
type Item struct {
	Habit models.Habit
	Today string
	Week  []habits.DayStatus
}

func (i Item) Title() string {
	mark := "○"
	if i.Habit.Done(i.Today) {
		mark = "✓"
	}
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(i.Habit.Color)).Render("●")
	return fmt.Sprintf("%s %s %s", mark, dot, i.Habit.Name)
}

func (i Item) Description() string {
	return fmt.Sprintf("%s  streak %d | best %d", WeekStrip(i.Habit.Color, i.Week), i.Habit.Streak, i.Habit.Record)
}

func (i Item) FilterValue() string { return i.Habit.Name }

// WeekStrip renders a Sunday-first week as colored dots.
func WeekStrip(color string, week []habits.DayStatus) string {
	done := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	var b strings.Builder
	for _, d := range week {
		switch {
		case d.Future:
			b.WriteString(futureStyle.Render("·"))
		case d.Done:
			b.WriteString(done.Render("●"))
		default:
			b.WriteString("○")
		}
	}
	return b.String()
}

type KeyMap struct {
	Add    key.Binding
	Toggle key.Binding
	Rename key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "toggle today"),
		),
		Rename: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(items []Item, width, height int) Model {
	l := list.New(toListItems(items), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Rename, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Rename, keys.Delete}
	}

	return Model{list: l, keys: keys}
}

func toListItems(items []Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func (m *Model) SetItems(items []Item) {
	m.list.SetItems(toListItems(items))
}

func (m Model) Keys() KeyMap {
	return m.keys
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: i.Habit.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Rename):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return RenameHabitMsg{Habit: i.Habit} }
			}
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{Habit: i.Habit} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Filtering reports whether the list is capturing keys for its filter.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}
