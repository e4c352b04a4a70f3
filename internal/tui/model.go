package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/constancia/internal/calendar"
	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/dreams"
	"github.com/julianstephens/constancia/internal/habits"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/timer"
	"github.com/julianstephens/constancia/internal/tui/components/dreamlist"
	"github.com/julianstephens/constancia/internal/tui/components/habitlist"
	"github.com/julianstephens/constancia/internal/tui/components/monthview"
	"github.com/julianstephens/constancia/internal/utils"
	"github.com/julianstephens/constancia/internal/verse"
)

type SessionState int

const (
	StateHabits SessionState = iota
	StateCalendar
	StateDreams
	StateTimer
	StateHabitForm
	StateDreamForm
	StateTimerForm
	StateVerseForm
	StateConfirmDelete
)

// tabCount is the number of states reachable with tab.
const tabCount = 4

var tabTitles = []string{"Habits", "Calendar", "Dreams", "Timer"}

// Deps are the loaded stores the TUI drives. Timer must have been built
// on Scheduler, which the TUI advances once per heartbeat.
type Deps struct {
	Habits    *habits.Store
	Calendar  *calendar.Aggregator
	Dreams    *dreams.Store
	Timer     *timer.Timer
	Verse     *verse.Store
	Scheduler *timer.ManualScheduler
	Now       func() time.Time
	Warnings  []error
}

// changes collects store notifications raised while handling a message.
type changes struct {
	habits   bool
	dreams   bool
	switched *timer.ModeChange
}

type pendingDelete struct {
	habit bool
	id    int64
	name  string
}

type Model struct {
	deps          Deps
	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model
	habitList     habitlist.Model
	monthView     monthview.Model
	dreamList     dreamlist.Model
	form          *huh.Form
	habitForm     *HabitFormModel
	dreamForm     *DreamFormModel
	timerForm     *TimerFormModel
	verseForm     *VerseFormModel
	editingID     int64 // habit or dream being edited, 0 when adding
	pending       pendingDelete
	month         time.Time
	today         string
	cursor        *dreams.Cursor
	banner        string
	sinceRotation time.Duration
	changes       *changes
	status        string
	quitting      bool
	width         int
	height        int
}

func NewModel(deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	ch := &changes{}
	deps.Habits.Subscribe(func(habits.Event) { ch.habits = true })
	deps.Dreams.Subscribe(func(dreams.Event) { ch.dreams = true })
	deps.Timer.OnModeChange(func(mc timer.ModeChange) { ch.switched = &mc })

	now := deps.Now()
	m := Model{
		deps:      deps,
		state:     StateHabits,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		habitList: habitlist.New(nil, 0, 0),
		monthView: monthview.New(0, 0),
		dreamList: dreamlist.New(deps.Dreams.List(), 0, 0),
		month:     time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
		cursor:    dreams.NewCursor(deps.Dreams.Rotation()),
		changes:   ch,
	}
	m.refreshHabits()
	m.rotate()

	if len(deps.Warnings) > 0 {
		m.status = deps.Warnings[0].Error()
		for _, w := range deps.Warnings {
			logger.Warn("Loaded with fallback data", "error", w)
		}
	}
	return m
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(constants.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateHabits:
		hk := m.habitList.Keys()
		keys = append(keys, hk.Add, hk.Toggle, hk.Rename, hk.Delete)
	case StateCalendar:
		keys = append(keys, m.keys.PrevMonth, m.keys.NextMonth, m.keys.ThisMonth)
	case StateDreams:
		dk := m.dreamList.Keys()
		keys = append(keys, dk.Add, dk.Edit, dk.Delete)
	case StateTimer:
		keys = append(keys, m.keys.StartPause, m.keys.Reset, m.keys.Configure, m.keys.EditVerse)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}

	var actions []key.Binding
	switch m.state {
	case StateHabits:
		hk := m.habitList.Keys()
		actions = []key.Binding{hk.Add, hk.Toggle, hk.Rename, hk.Delete}
	case StateCalendar:
		actions = []key.Binding{m.keys.PrevMonth, m.keys.NextMonth, m.keys.ThisMonth}
	case StateDreams:
		dk := m.dreamList.Keys()
		actions = []key.Binding{dk.Add, dk.Edit, dk.Delete}
	case StateTimer:
		actions = []key.Binding{m.keys.StartPause, m.keys.Reset, m.keys.Configure, m.keys.EditVerse}
	}

	return [][]key.Binding{global, actions}
}

// refreshHabits rebuilds the habit rows and the month view from the store.
func (m *Model) refreshHabits() {
	m.today = m.deps.Habits.Today()
	now := m.deps.Now()

	list := m.deps.Habits.List()
	items := make([]habitlist.Item, 0, len(list))
	for _, h := range list {
		week, err := m.deps.Habits.Week(h.ID, now)
		if err != nil {
			continue
		}
		items = append(items, habitlist.Item{Habit: h, Today: m.today, Week: week})
	}
	m.habitList.SetItems(items)
	m.refreshMonth()
}

func (m *Model) refreshMonth() {
	y, mo := m.month.Year(), m.month.Month()
	m.monthView.SetMonth(y, mo, m.deps.Calendar.MonthGrid(y, mo), m.deps.Calendar.MonthYearStats(y, mo), m.today)
}

func (m *Model) refreshDreams() {
	m.dreamList.SetDreams(m.deps.Dreams.List())
	m.cursor.Reset(m.deps.Dreams.Rotation())
	m.sinceRotation = 0
	m.rotate()
}

// rotate advances the dream banner by one name.
func (m *Model) rotate() {
	name, ok := m.cursor.Next()
	if !ok {
		m.banner = ""
		return
	}
	m.banner = name
}

// applyChanges refreshes whatever the stores reported since the last call.
func (m *Model) applyChanges() {
	if m.changes.habits {
		m.changes.habits = false
		m.refreshHabits()
	}
	if m.changes.dreams {
		m.changes.dreams = false
		m.refreshDreams()
	}
	if mc := m.changes.switched; mc != nil {
		m.changes.switched = nil
		m.status = switchMessage(*mc)
	}
}

func switchMessage(mc timer.ModeChange) string {
	if mc.To == models.ModeBreak {
		return "Focus session complete. Time for a break."
	}
	return "Break over. Back to focus."
}

func (m *Model) resize() {
	w, h := m.width-4, m.height-8
	if h < 0 {
		h = 0
	}
	m.habitList.SetSize(w, h)
	m.monthView.SetSize(w, h)
	// the dream banner takes three rows
	m.dreamList.SetSize(w, max(h-3, 0))
}

// setMonth moves the calendar to the month containing t.
func (m *Model) setMonth(t time.Time) {
	m.month = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	m.refreshMonth()
}

func (m Model) todayTime() time.Time {
	t, err := utils.ParseDateKey(m.today, m.deps.Now().Location())
	if err != nil {
		return m.deps.Now()
	}
	return t
}
