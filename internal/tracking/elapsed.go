package tracking

import (
	"time"

	"jobflow-backend/internal/models"
)

// foldPause closes the open pause window into TotalPauseDuration.
func foldPause(e *models.FileTrackingEntry, now time.Time) {
	if e.PauseStartTimestamp == nil {
		return
	}
	if e.Status == models.FileStatusPaused {
		if window := now.Sub(*e.PauseStartTimestamp).Milliseconds(); window > 0 {
			e.TotalPauseDuration += window
		}
	}
	e.PauseStartTimestamp = nil
}

// OpenPause is the length of the current pause window, zero unless paused.
func OpenPause(e *models.FileTrackingEntry, now time.Time) time.Duration {
	if e.Status != models.FileStatusPaused || e.PauseStartTimestamp == nil {
		return 0
	}
	if d := now.Sub(*e.PauseStartTimestamp); d > 0 {
		return d
	}
	return 0
}

// Elapsed is the working time of an entry: (end or now) - start minus every
// pause window, floored at zero. An entry that never started has none.
func Elapsed(e *models.FileTrackingEntry, now time.Time) time.Duration {
	if e.StartTimestamp == nil {
		return 0
	}
	end := now
	if e.EndTimestamp != nil {
		end = *e.EndTimestamp
	}
	paused := time.Duration(e.TotalPauseDuration)*time.Millisecond + OpenPause(e, now)
	if d := end.Sub(*e.StartTimestamp) - paused; d > 0 {
		return d
	}
	return 0
}
