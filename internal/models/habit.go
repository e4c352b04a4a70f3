package models

import "time"

// Habit represents a daily practice with its completion history.
type Habit struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Color       string          `json:"color"`
	Completions map[string]bool `json:"completions"` // YYYY-MM-DD -> done
	Record      int             `json:"record"`
	Streak      int             `json:"streak"`
	CreatedAt   time.Time       `json:"created_at,omitzero"`
}

// Done reports whether the habit is marked complete on the given date-key.
func (h Habit) Done(day string) bool {
	return h.Completions[day]
}

// Clone returns a copy that does not share the completions map.
func (h Habit) Clone() Habit {
	c := h
	c.Completions = make(map[string]bool, len(h.Completions))
	for k, v := range h.Completions {
		c.Completions[k] = v
	}
	return c
}
