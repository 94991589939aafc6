package workflow

import (
	"fmt"
	"time"
)

// Window is the inclusive day-of-month range in which records can be confirmed
type Window struct {
	StartDay int
	EndDay   int
}

// DefaultWindow is days 2 through 7
func DefaultWindow() Window {
	return Window{StartDay: 2, EndDay: 7}
}

// Contains reports whether t falls inside the window, using t's own location
func (w Window) Contains(t time.Time) bool {
	d := t.Day()
	return d >= w.StartDay && d <= w.EndDay
}

func (w Window) String() string {
	return fmt.Sprintf("days %d–%d", w.StartDay, w.EndDay)
}
