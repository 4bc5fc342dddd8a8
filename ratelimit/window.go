package ratelimit

import (
	"fmt"
	"time"
)

// Window is the length of one counting period.
type Window time.Duration

const (
	// PerSecond counts permits in one-second periods.
	PerSecond = Window(time.Second)
	// PerMinute counts permits in one-minute periods.
	PerMinute = Window(time.Minute)
	// PerHour counts permits in one-hour periods.
	PerHour = Window(time.Hour)
	// PerDay counts permits in 24-hour periods.
	PerDay = Window(24 * time.Hour)
)

// Every returns a window of arbitrary length.
func Every(d time.Duration) Window {
	return Window(d)
}

// Duration returns the duration of the window. Non-positive windows are
// treated as PerSecond.
func (w Window) Duration() time.Duration {
	if w <= 0 {
		return time.Second
	}
	return time.Duration(w)
}

func (w Window) String() string {
	switch w {
	case PerSecond:
		return "PerSecond"
	case PerMinute:
		return "PerMinute"
	case PerHour:
		return "PerHour"
	case PerDay:
		return "PerDay"
	default:
		return fmt.Sprintf("Every(%s)", w.Duration())
	}
}
