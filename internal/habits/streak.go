package habits

import (
	"time"

	"github.com/julianstephens/constancia/internal/utils"
)

// ComputeStreak counts consecutive completed days ending today, or ending
// yesterday when today has not been completed yet. The fallback to yesterday
// happens at most once: an unfinished today never breaks a live streak, but
// two missing days always do.
func ComputeStreak(completions map[string]bool, today time.Time) int {
	if len(completions) == 0 {
		return 0
	}

	day := today
	if !completions[utils.FormatDateKey(day)] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for completions[utils.FormatDateKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
