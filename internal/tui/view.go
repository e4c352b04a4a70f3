package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/timer"
	"github.com/julianstephens/constancia/internal/utils"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string

	switch m.state {
	case StateHabits:
		content = docStyle.Render(m.habitList.View())
	case StateCalendar:
		content = docStyle.Render(m.monthView.View())
	case StateDreams:
		content = m.viewDreams()
	case StateTimer:
		content = m.viewTimer()
	case StateHabitForm, StateDreamForm, StateTimerForm, StateVerseForm:
		content = docStyle.Render(m.form.View())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	parts := []string{m.viewTabs(), content}
	if m.status != "" {
		parts = append(parts, warningStyle.Render(m.status))
	}
	parts = append(parts, m.help.View(m))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	var tabs []string
	active := m.state
	if active >= tabCount {
		active = m.previousState
	}
	for i, title := range tabTitles {
		if active == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewDreams() string {
	banner := mutedStyle.Render("Add a dream to start the board.")
	if m.banner != "" {
		banner = bannerStyle.Render(m.banner)
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, banner, m.dreamList.View()))
}

func (m Model) viewTimer() string {
	s := m.deps.Timer.Snapshot()

	border := focusColor
	if s.Mode == models.ModeBreak {
		border = breakColor
	}
	clock := clockStyle.BorderForeground(border).Render(timer.Format(s.Remaining))

	mode := "Focus"
	if s.Mode == models.ModeBreak {
		mode = "Break"
	}

	v := m.deps.Verse.Get()
	body := lipgloss.JoinVertical(lipgloss.Center,
		modeStyle.Render(mode),
		clock,
		fmt.Sprintf("[ %s ]", timer.Label(s)),
		mutedStyle.Render(fmt.Sprintf("focus %s | break %s | %d focus sessions today",
			timer.Format(s.FocusSeconds), timer.Format(s.BreakSeconds), m.focusSessionsToday())),
		"",
		verseStyle.Render(fmt.Sprintf("%q", v.Text)),
		mutedStyle.Render(v.Reference),
	)

	return lipgloss.Place(m.width, max(m.height-4, 0), lipgloss.Center, lipgloss.Center, body)
}

func (m Model) focusSessionsToday() int {
	n := 0
	loc := m.deps.Now().Location()
	for _, s := range m.deps.Timer.History() {
		if s.Mode == models.ModeFocus && utils.FormatDateKey(s.CompletedAt.In(loc)) == m.today {
			n++
		}
	}
	return n
}

func (m Model) viewConfirmDelete() string {
	kind := "dream"
	if m.pending.habit {
		kind = "habit"
	}
	return lipgloss.Place(m.width, max(m.height-4, 0),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %s %q?", kind, m.pending.name)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
