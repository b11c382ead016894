package syncengine

import (
	"time"

	"github.com/ifuryst/agencylens/pkg/util"
)

// Window is an inclusive range of UTC days to fetch
type Window struct {
	Start    time.Time
	End      time.Time
	Backfill bool
}

// Days counts the days in the window
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// ComputeWindow returns the backfill window [today-lookbackDays, today] for a
// pair that never synced, otherwise the top-up [day of lastSuccessAt, today].
// The most recent day is always re-fetched so intra-day numbers get refreshed.
func ComputeWindow(lastSuccessAt *time.Time, now time.Time, lookbackDays int) Window {
	today := util.StartOfDay(now)
	if lastSuccessAt == nil {
		return Window{Start: today.AddDate(0, 0, -lookbackDays), End: today, Backfill: true}
	}
	start := util.StartOfDay(*lastSuccessAt)
	if start.After(today) {
		start = today
	}
	return Window{Start: start, End: today}
}
