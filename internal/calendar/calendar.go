// Package calendar derives month and year views from habit completions.
package calendar

import (
	"time"

	"github.com/julianstephens/constancia/internal/errors"
	"github.com/julianstephens/constancia/internal/models"
	"github.com/julianstephens/constancia/internal/utils"
)

// HabitSource is the read side of the habit store.
type HabitSource interface {
	Habits() []models.Habit
}

// DayCell is one day of a month grid with the colors of every habit
// completed that day, in habit insertion order.
type DayCell struct {
	Day    int
	Key    string
	Colors []string
}

// HabitStats counts one habit's completions in a month and its year.
type HabitStats struct {
	HabitID    int64
	Name       string
	Color      string
	MonthCount int
	YearCount  int
}

type Aggregator struct {
	source HabitSource
}

func New(source HabitSource) *Aggregator {
	return &Aggregator{source: source}
}

// MonthGrid returns a cell for each day 1..N of the month.
func (a *Aggregator) MonthGrid(year int, month time.Month) []DayCell {
	habits := a.source.Habits()
	n := utils.DaysIn(year, month)

	cells := make([]DayCell, n)
	for i := range cells {
		day := i + 1
		key := utils.FormatDateKey(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
		cell := DayCell{Day: day, Key: key}
		for _, h := range habits {
			if h.Completions[key] {
				cell.Colors = append(cell.Colors, h.Color)
			}
		}
		cells[i] = cell
	}
	return cells
}

// LeadingBlanks is the number of empty slots before day 1 in a
// Sunday-first week layout.
func LeadingBlanks(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// MonthYearStats counts true completions per habit. Keys that do not parse
// as dates are skipped.
func (a *Aggregator) MonthYearStats(year int, month time.Month) []HabitStats {
	habits := a.source.Habits()
	stats := make([]HabitStats, 0, len(habits))

	for _, h := range habits {
		st := HabitStats{HabitID: h.ID, Name: h.Name, Color: h.Color}
		for key, done := range h.Completions {
			if !done {
				continue
			}
			d, err := utils.ParseDateKey(key, time.UTC)
			if err != nil || d.Year() != year {
				continue
			}
			st.YearCount++
			if d.Month() == month {
				st.MonthCount++
			}
		}
		stats = append(stats, st)
	}
	return stats
}

// ChangeMonth moves current one month forward (direction 1) or back
// (direction -1). The day of month is clamped to the target month, so
// March 31 steps back to the last day of February.
func ChangeMonth(current time.Time, direction int) (time.Time, error) {
	if direction != 1 && direction != -1 {
		return current, errors.Validation("direction", "must be 1 or -1")
	}
	return utils.AddMonthsClamped(current, direction), nil
}
