package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

type HabitFormModel struct {
	Name string
}

type DreamFormModel struct {
	Name string
	Img  string
}

type TimerFormModel struct {
	FocusMinutes string
	BreakMinutes string
}

type VerseFormModel struct {
	Reference string
	Text      string
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func positiveMinutes(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a whole number of minutes above zero")
	}
	return nil
}

func NewHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(notBlank("habit name")),
		),
	).WithTheme(huh.ThemeDracula())
}

func NewDreamForm(fm *DreamFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dream").
				Value(&fm.Name).
				Validate(notBlank("dream name")),
			huh.NewInput().
				Title("Image URL").
				Description("Optional. Leave empty for a placeholder.").
				Value(&fm.Img),
		),
	).WithTheme(huh.ThemeDracula())
}

func NewTimerForm(fm *TimerFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Focus (minutes)").
				Value(&fm.FocusMinutes).
				Validate(positiveMinutes),
			huh.NewInput().
				Title("Break (minutes)").
				Value(&fm.BreakMinutes).
				Validate(positiveMinutes),
		),
	).WithTheme(huh.ThemeDracula())
}

func NewVerseForm(fm *VerseFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reference").
				Value(&fm.Reference).
				Validate(notBlank("reference")),
			huh.NewText().
				Title("Text").
				Value(&fm.Text).
				Validate(notBlank("verse text")),
		),
	).WithTheme(huh.ThemeDracula())
}

// minutes parses a form value already checked by positiveMinutes.
func minutes(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
