package dispatch

import "time"

// SetClock replaces the throttle's time source.
func (t *Throttle) SetClock(now func() time.Time) {
	t.now = now
}
