package models

import "time"

type TimerMode string

const (
	ModeFocus TimerMode = "focus"
	ModeBreak TimerMode = "break"
)

// Other returns the mode the timer switches to when a phase ends.
func (m TimerMode) Other() TimerMode {
	if m == ModeFocus {
		return ModeBreak
	}
	return ModeFocus
}

// TimerConfig is the persisted part of the timer: durations only.
type TimerConfig struct {
	FocusSeconds int `json:"focus_seconds"`
	BreakSeconds int `json:"break_seconds"`
}

// FocusSession records a timer phase that ran to completion.
type FocusSession struct {
	ID             string    `json:"id"`
	Mode           TimerMode `json:"mode"`
	PlannedSeconds int       `json:"planned_seconds"`
	CompletedAt    time.Time `json:"completed_at"`
}
