package tui

import (
	"errors"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/constancia/internal/calendar"
	"github.com/julianstephens/constancia/internal/constants"
	apperrors "github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/tui/components/dreamlist"
	"github.com/julianstephens/constancia/internal/tui/components/habitlist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()

	case tickMsg:
		m.heartbeat()
		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
	}

	switch m.state {
	case StateHabitForm, StateDreamForm, StateTimerForm, StateVerseForm:
		cmd := m.updateForm(msg)
		m.applyChanges()
		return m, cmd
	case StateConfirmDelete:
		m.updateConfirm(msg)
		m.applyChanges()
		return m, nil
	}

	if handled, cmd := m.handleComponentMsg(msg); handled {
		m.applyChanges()
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok && !m.filtering() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		if handled, cmd := m.handleTabKeys(msg); handled {
			m.applyChanges()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateHabits:
		m.habitList, cmd = m.habitList.Update(msg)
	case StateCalendar:
		m.monthView, cmd = m.monthView.Update(msg)
	case StateDreams:
		m.dreamList, cmd = m.dreamList.Update(msg)
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.deps.Timer.Pause()
	m.cursor.Stop()
	return m, tea.Quit
}

func (m Model) filtering() bool {
	switch m.state {
	case StateHabits:
		return m.habitList.Filtering()
	case StateDreams:
		return m.dreamList.Filtering()
	}
	return false
}

// heartbeat drives the timer and the dream banner once per tick interval.
func (m *Model) heartbeat() {
	m.deps.Scheduler.Advance(1)

	m.sinceRotation += constants.TickInterval
	if m.sinceRotation >= constants.DreamRotationInterval {
		m.sinceRotation = 0
		m.rotate()
	}

	// a new day changes streaks and the week strips
	if m.deps.Habits.Today() != m.today {
		m.refreshHabits()
	}
	m.applyChanges()
}

// report shows the outcome of a mutation in the status line. A failed save
// is only a warning; the change is still applied in memory.
func (m *Model) report(err error) {
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, apperrors.ErrPersistence):
		logger.Warn("Change not saved", "error", err)
		m.status = "Warning: " + err.Error()
	default:
		m.status = apperrors.Format(err)
	}
}

func (m *Model) openForm(state SessionState, form *huh.Form) tea.Cmd {
	m.form = form
	m.previousState = m.state
	m.state = state
	return m.form.Init()
}

func (m *Model) handleComponentMsg(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case habitlist.AddHabitMsg:
		m.editingID = 0
		m.habitForm = &HabitFormModel{}
		return true, m.openForm(StateHabitForm, NewHabitForm(m.habitForm))

	case habitlist.ToggleHabitMsg:
		_, err := m.deps.Habits.Toggle(msg.ID, m.deps.Habits.Today())
		m.report(err)
		return true, nil

	case habitlist.RenameHabitMsg:
		m.editingID = msg.Habit.ID
		m.habitForm = &HabitFormModel{Name: msg.Habit.Name}
		return true, m.openForm(StateHabitForm, NewHabitForm(m.habitForm))

	case habitlist.DeleteHabitMsg:
		m.pending = pendingDelete{habit: true, id: msg.Habit.ID, name: msg.Habit.Name}
		m.previousState = m.state
		m.state = StateConfirmDelete
		return true, nil

	case dreamlist.AddDreamMsg:
		m.editingID = 0
		m.dreamForm = &DreamFormModel{}
		return true, m.openForm(StateDreamForm, NewDreamForm(m.dreamForm))

	case dreamlist.EditDreamMsg:
		m.editingID = msg.Dream.ID
		m.dreamForm = &DreamFormModel{Name: msg.Dream.Name, Img: msg.Dream.Img}
		return true, m.openForm(StateDreamForm, NewDreamForm(m.dreamForm))

	case dreamlist.DeleteDreamMsg:
		m.pending = pendingDelete{id: msg.Dream.ID, name: msg.Dream.Name}
		m.previousState = m.state
		m.state = StateConfirmDelete
		return true, nil
	}
	return false, nil
}

func (m *Model) handleTabKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch m.state {
	case StateCalendar:
		switch {
		case key.Matches(msg, m.keys.PrevMonth):
			m.changeMonth(-1)
			return true, nil
		case key.Matches(msg, m.keys.NextMonth):
			m.changeMonth(1)
			return true, nil
		case key.Matches(msg, m.keys.ThisMonth):
			m.setMonth(m.todayTime())
			return true, nil
		}

	case StateTimer:
		switch {
		case key.Matches(msg, m.keys.StartPause):
			m.deps.Timer.Toggle()
			m.status = ""
			return true, nil
		case key.Matches(msg, m.keys.Reset):
			m.deps.Timer.Reset()
			return true, nil
		case key.Matches(msg, m.keys.Configure):
			s := m.deps.Timer.Snapshot()
			m.timerForm = &TimerFormModel{
				FocusMinutes: strconv.Itoa(s.FocusSeconds / 60),
				BreakMinutes: strconv.Itoa(s.BreakSeconds / 60),
			}
			return true, m.openForm(StateTimerForm, NewTimerForm(m.timerForm))
		case key.Matches(msg, m.keys.EditVerse):
			v := m.deps.Verse.Get()
			m.verseForm = &VerseFormModel{Reference: v.Reference, Text: v.Text}
			return true, m.openForm(StateVerseForm, NewVerseForm(m.verseForm))
		}
	}
	return false, nil
}

func (m *Model) changeMonth(direction int) {
	t, err := calendar.ChangeMonth(m.month, direction)
	if err != nil {
		m.report(err)
		return
	}
	m.setMonth(t)
}

func (m *Model) updateForm(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.report(m.submitForm())
		m.state = m.previousState
	case huh.StateAborted:
		m.state = m.previousState
	}
	return cmd
}

func (m *Model) submitForm() error {
	switch m.state {
	case StateHabitForm:
		if m.editingID == 0 {
			_, err := m.deps.Habits.Create(m.habitForm.Name)
			return err
		}
		_, err := m.deps.Habits.Rename(m.editingID, m.habitForm.Name)
		return err

	case StateDreamForm:
		if m.editingID == 0 {
			_, err := m.deps.Dreams.Add(m.dreamForm.Name, m.dreamForm.Img)
			return err
		}
		_, err := m.deps.Dreams.Update(m.editingID, &m.dreamForm.Name, &m.dreamForm.Img)
		return err

	case StateTimerForm:
		return m.deps.Timer.Configure(minutes(m.timerForm.FocusMinutes)*60, minutes(m.timerForm.BreakMinutes)*60)

	case StateVerseForm:
		return m.deps.Verse.Set(models.Verse{Reference: m.verseForm.Reference, Text: m.verseForm.Text})
	}
	return nil
}

func (m *Model) updateConfirm(msg tea.Msg) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch {
	case key.Matches(k, m.keys.Confirm):
		if m.pending.habit {
			m.report(m.deps.Habits.Delete(m.pending.id))
		} else {
			m.report(m.deps.Dreams.Delete(m.pending.id))
		}
		m.pending = pendingDelete{}
		m.state = m.previousState
	case key.Matches(k, m.keys.Cancel):
		m.pending = pendingDelete{}
		m.state = m.previousState
	}
}
