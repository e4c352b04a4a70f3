// Package timer implements the focus/break countdown.
package timer

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/logger"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/storage"
)

// State is a copy of the timer as seen from outside.
type State struct {
	Mode         models.TimerMode
	FocusSeconds int
	BreakSeconds int
	Remaining    int
	Running      bool
}

// ModeChange is emitted when a phase runs out and the timer flips mode.
type ModeChange struct {
	From    models.TimerMode
	To      models.TimerMode
	Session models.FocusSession
}

type Option func(*Timer)

// WithGateway persists durations and completed sessions.
func WithGateway(gw storage.Gateway) Option {
	return func(t *Timer) { t.gw = gw }
}

// WithDefaults sets the durations used when nothing is stored.
func WithDefaults(focusSeconds, breakSeconds int) Option {
	return func(t *Timer) {
		if focusSeconds > 0 {
			t.defaults.FocusSeconds = focusSeconds
		}
		if breakSeconds > 0 {
			t.defaults.BreakSeconds = breakSeconds
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

type Timer struct {
	mu       sync.Mutex
	sched    Scheduler
	gw       storage.Gateway
	now      func() time.Time
	defaults models.TimerConfig
	state    State
	cancel   func()
	// gen identifies the live scheduler registration; ticks from an older
	// registration are dropped
	gen      uint64
	sessions []models.FocusSession

	onModeChange []func(ModeChange)
	onTick       []func(State)
}

func New(sched Scheduler, opts ...Option) *Timer {
	t := &Timer{
		sched: sched,
		now:   time.Now,
		defaults: models.TimerConfig{
			FocusSeconds: constants.DefaultFocusSeconds,
			BreakSeconds: constants.DefaultBreakSeconds,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.state.FocusSeconds = t.defaults.FocusSeconds
	t.state.BreakSeconds = t.defaults.BreakSeconds
	t.resetLocked()
	return t
}

// OnModeChange registers fn for phase switches.
func (t *Timer) OnModeChange(fn func(ModeChange)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onModeChange = append(t.onModeChange, fn)
}

// OnTick registers fn to receive the state after every tick.
func (t *Timer) OnTick(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = append(t.onTick, fn)
}

// Load restores durations and session history, then resets the countdown.
// Unreadable or invalid data falls back to defaults and is returned.
func (t *Timer) Load() error {
	if t.gw == nil {
		return nil
	}

	cfg, cfgErr := t.readConfig()
	sessions, sessErr := t.readSessions()

	t.mu.Lock()
	t.state.FocusSeconds = cfg.FocusSeconds
	t.state.BreakSeconds = cfg.BreakSeconds
	t.sessions = sessions
	t.pauseLocked()
	t.resetLocked()
	t.mu.Unlock()

	err := stderrors.Join(cfgErr, sessErr)
	if err != nil {
		logger.Warn("Timer state fell back to defaults", "error", err)
	}
	return err
}

func (t *Timer) readConfig() (models.TimerConfig, error) {
	raw, err := t.gw.Load(constants.KeyPomodoro)
	if err != nil {
		return t.defaults, &errors.PersistenceError{Op: "load", Key: constants.KeyPomodoro, Err: err}
	}
	if raw == nil {
		return t.defaults, nil
	}

	var cfg models.TimerConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return t.defaults, &errors.MalformedDataError{Key: constants.KeyPomodoro, Err: err}
	}
	if cfg.FocusSeconds <= 0 || cfg.BreakSeconds <= 0 {
		return t.defaults, &errors.MalformedDataError{
			Key: constants.KeyPomodoro,
			Err: fmt.Errorf("durations must be positive, got %d/%d", cfg.FocusSeconds, cfg.BreakSeconds),
		}
	}
	return cfg, nil
}

func (t *Timer) readSessions() ([]models.FocusSession, error) {
	raw, err := t.gw.Load(constants.KeySessions)
	if err != nil {
		return nil, &errors.PersistenceError{Op: "load", Key: constants.KeySessions, Err: err}
	}
	if raw == nil {
		return nil, nil
	}

	var sessions []models.FocusSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, &errors.MalformedDataError{Key: constants.KeySessions, Err: err}
	}
	return sessions, nil
}

// Start begins counting down in the current mode. Starting a running timer
// does nothing.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
}

func (t *Timer) startLocked() {
	if t.state.Running {
		return
	}
	t.state.Running = true
	t.gen++
	gen := t.gen
	t.cancel = t.sched.Every(constants.TickInterval, func() { t.tick(gen) })
}

// Pause stops the countdown and keeps the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
}

func (t *Timer) pauseLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.state.Running = false
}

// Toggle pauses a running timer and starts a stopped one.
func (t *Timer) Toggle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Running {
		t.pauseLocked()
	} else {
		t.startLocked()
	}
}

// Reset stops the countdown and returns to a full focus phase.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
	t.resetLocked()
}

func (t *Timer) resetLocked() {
	t.state.Mode = models.ModeFocus
	t.state.Remaining = t.state.FocusSeconds
	t.state.Running = false
}

// Tick advances a running timer by one second. When the remaining time
// drops below zero the timer switches mode and keeps running.
func (t *Timer) Tick() {
	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()
	t.tick(gen)
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if !t.state.Running || gen != t.gen {
		t.mu.Unlock()
		return
	}

	t.state.Remaining--
	var change *ModeChange
	var saveErr error
	if t.state.Remaining < 0 {
		mc, err := t.switchModeLocked()
		change, saveErr = &mc, err
	}
	state := t.state
	tickObs := append([]func(State){}, t.onTick...)
	modeObs := append([]func(ModeChange){}, t.onModeChange...)
	t.mu.Unlock()

	if saveErr != nil {
		logger.Warn("Failed to record focus session", "error", saveErr)
	}
	if change != nil {
		logger.Debug("Timer switched mode", "from", change.From, "to", change.To)
		for _, fn := range modeObs {
			fn(*change)
		}
	}
	for _, fn := range tickObs {
		fn(state)
	}
}

func (t *Timer) switchModeLocked() (ModeChange, error) {
	from := t.state.Mode
	session := models.FocusSession{
		ID:             uuid.NewString(),
		Mode:           from,
		PlannedSeconds: t.durationLocked(from),
		CompletedAt:    t.now(),
	}
	saveErr := t.recordLocked(session)

	t.pauseLocked()
	t.state.Mode = from.Other()
	t.state.Remaining = t.durationLocked(t.state.Mode)
	t.startLocked()

	return ModeChange{From: from, To: t.state.Mode, Session: session}, saveErr
}

func (t *Timer) durationLocked(mode models.TimerMode) int {
	if mode == models.ModeBreak {
		return t.state.BreakSeconds
	}
	return t.state.FocusSeconds
}

func (t *Timer) recordLocked(s models.FocusSession) error {
	t.sessions = append(t.sessions, s)
	if over := len(t.sessions) - constants.MaxSessionHistory; over > 0 {
		t.sessions = append([]models.FocusSession(nil), t.sessions[over:]...)
	}
	if t.gw == nil {
		return nil
	}
	if err := t.gw.Save(constants.KeySessions, t.sessions); err != nil {
		return &errors.PersistenceError{Op: "save", Key: constants.KeySessions, Err: err}
	}
	return nil
}

// Configure sets both durations and resets the timer. Both must be positive.
func (t *Timer) Configure(focusSeconds, breakSeconds int) error {
	if focusSeconds <= 0 {
		return errors.Validation("focus duration", "must be positive")
	}
	if breakSeconds <= 0 {
		return errors.Validation("break duration", "must be positive")
	}

	t.mu.Lock()
	t.state.FocusSeconds = focusSeconds
	t.state.BreakSeconds = breakSeconds
	t.pauseLocked()
	t.resetLocked()
	gw := t.gw
	t.mu.Unlock()

	if gw == nil {
		return nil
	}
	cfg := models.TimerConfig{FocusSeconds: focusSeconds, BreakSeconds: breakSeconds}
	if err := gw.Save(constants.KeyPomodoro, cfg); err != nil {
		logger.Warn("Failed to save timer config", "error", err)
		return &errors.PersistenceError{Op: "save", Key: constants.KeyPomodoro, Err: err}
	}
	return nil
}

func (t *Timer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ButtonLabel is the caption for the start/pause control.
func (t *Timer) ButtonLabel() string {
	return Label(t.Snapshot())
}

// Label derives the start/pause caption from a state.
func Label(s State) string {
	switch {
	case s.Running:
		return "Pause"
	case s.Remaining > 0 && s.Remaining < s.FocusSeconds:
		return "Resume"
	default:
		return "Start"
	}
}

// History returns completed phases, oldest first.
func (t *Timer) History() []models.FocusSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.FocusSession(nil), t.sessions...)
}

// Format renders seconds as MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
