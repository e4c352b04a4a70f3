package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/constancia/internal/calendar"
	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/dreams"
	"github.com/julianstephens/constancia/internal/habits"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/storage"
	"github.com/julianstephens/constancia/internal/timer"
	"github.com/julianstephens/constancia/internal/tui/components/habitlist"
	"github.com/julianstephens/constancia/internal/verse"
)

var jan10 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestDeps(t *testing.T, dreamNames ...string) Deps {
	t.Helper()
	mem := storage.NewMemoryStore()
	clock := func() time.Time { return jan10 }
	sched := timer.NewManualScheduler()

	deps := Deps{
		Habits:    habits.New(mem, habits.WithClock(clock), habits.WithLocation(time.UTC)),
		Dreams:    dreams.New(mem, dreams.WithClock(clock)),
		Timer:     timer.New(sched, timer.WithGateway(mem), timer.WithClock(clock), timer.WithDefaults(2, 1)),
		Verse:     verse.New(mem),
		Scheduler: sched,
		Now:       clock,
	}
	deps.Calendar = calendar.New(deps.Habits)
	for _, load := range []func() error{deps.Habits.Load, deps.Dreams.Load, deps.Timer.Load, deps.Verse.Load} {
		if err := load(); err != nil {
			t.Fatalf("load failed: %v", err)
		}
	}
	for _, name := range dreamNames {
		if _, err := deps.Dreams.Add(name, ""); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	return deps
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabCycling(t *testing.T) {
	m := NewModel(newTestDeps(t))

	tests := []struct {
		msg  tea.Msg
		want SessionState
	}{
		{tea.KeyMsg{Type: tea.KeyTab}, StateCalendar},
		{tea.KeyMsg{Type: tea.KeyTab}, StateDreams},
		{tea.KeyMsg{Type: tea.KeyTab}, StateTimer},
		{tea.KeyMsg{Type: tea.KeyTab}, StateHabits},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, StateTimer},
	}
	for _, tt := range tests {
		m = send(t, m, tt.msg)
		if m.state != tt.want {
			t.Errorf("expected state %d, got %d", tt.want, m.state)
		}
	}
}

func TestToggleHabit(t *testing.T) {
	deps := newTestDeps(t)
	h, err := deps.Habits.Create("Read")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m := NewModel(deps)

	m = send(t, m, habitlist.ToggleHabitMsg{ID: h.ID})
	got, _ := deps.Habits.Get(h.ID)
	if !got.Done("2025-01-10") {
		t.Fatal("expected habit done today")
	}
	if got.Streak != 1 {
		t.Errorf("expected streak 1, got %d", got.Streak)
	}
	if m.status != "" {
		t.Errorf("unexpected status: %s", m.status)
	}
}

func TestDeleteHabitNeedsConfirmation(t *testing.T) {
	deps := newTestDeps(t)
	h, _ := deps.Habits.Create("Read")
	m := NewModel(deps)

	m = send(t, m, habitlist.DeleteHabitMsg{Habit: h})
	if m.state != StateConfirmDelete {
		t.Fatalf("expected confirm state, got %d", m.state)
	}
	if !strings.Contains(m.View(), "Read") {
		t.Error("expected the habit name in the confirmation")
	}

	m = send(t, m, runes("n"))
	if m.state != StateHabits || deps.Habits.Len() != 1 {
		t.Fatal("expected cancel to keep the habit")
	}

	m = send(t, m, habitlist.DeleteHabitMsg{Habit: h}, runes("y"))
	if m.state != StateHabits {
		t.Errorf("expected to return to habits, got %d", m.state)
	}
	if deps.Habits.Len() != 0 {
		t.Error("expected habit deleted")
	}
}

func TestMonthNavigation(t *testing.T) {
	m := NewModel(newTestDeps(t))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m = send(t, m, runes("h"))
	if m.month.Year() != 2024 || m.month.Month() != time.December {
		t.Fatalf("expected December 2024, got %v", m.month)
	}
	m = send(t, m, runes("l"), runes("l"))
	if m.month.Month() != time.February {
		t.Fatalf("expected February 2025, got %v", m.month)
	}
	m = send(t, m, runes("t"))
	if m.month.Month() != time.January || m.month.Year() != 2025 {
		t.Errorf("expected January 2025, got %v", m.month)
	}
}

func TestHeartbeatDrivesTimer(t *testing.T) {
	deps := newTestDeps(t)
	m := NewModel(deps)
	m.state = StateTimer

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if !deps.Timer.Snapshot().Running {
		t.Fatal("expected timer running")
	}

	m = send(t, m, tickMsg(jan10), tickMsg(jan10))
	if s := deps.Timer.Snapshot(); s.Remaining != 0 || s.Mode != models.ModeFocus {
		t.Fatalf("expected focus at 0, got %+v", s)
	}

	m = send(t, m, tickMsg(jan10))
	s := deps.Timer.Snapshot()
	if s.Mode != models.ModeBreak || s.Remaining != 1 || !s.Running {
		t.Fatalf("expected running break, got %+v", s)
	}
	if !strings.Contains(m.status, "break") {
		t.Errorf("expected a switch message, got %q", m.status)
	}
	if m.focusSessionsToday() != 1 {
		t.Errorf("expected 1 focus session today, got %d", m.focusSessionsToday())
	}
}

func TestDreamBannerRotates(t *testing.T) {
	deps := newTestDeps(t, "Sail", "Paint")
	m := NewModel(deps)
	if m.banner != "Sail" {
		t.Fatalf("expected Sail, got %q", m.banner)
	}

	ticks := int(constants.DreamRotationInterval / constants.TickInterval)
	for range ticks {
		m = send(t, m, tickMsg(jan10))
	}
	if m.banner != "Paint" {
		t.Fatalf("expected Paint, got %q", m.banner)
	}

	// edits restart the rotation
	if _, err := deps.Dreams.Add("Fly", ""); err != nil {
		t.Fatal(err)
	}
	m = send(t, m, tickMsg(jan10))
	if m.banner != "Sail" {
		t.Errorf("expected rotation to restart at Sail, got %q", m.banner)
	}
}

func TestEmptyBoardHasNoBanner(t *testing.T) {
	m := NewModel(newTestDeps(t))
	if m.banner != "" {
		t.Errorf("expected no banner, got %q", m.banner)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(newTestDeps(t))
	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if next.(Model).View() != "" {
		t.Error("expected empty view after quitting")
	}
}

func TestViewShowsTabs(t *testing.T) {
	m := send(t, NewModel(newTestDeps(t)), tea.WindowSizeMsg{Width: 100, Height: 40})
	view := m.View()
	for _, title := range tabTitles {
		if !strings.Contains(view, title) {
			t.Errorf("expected %q in view", title)
		}
	}
}
