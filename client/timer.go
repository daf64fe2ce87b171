package client

import "time"

// newTimer is time.NewTimer with a floor, so a zero-value client still waits
// a beat for the acknowledgment instead of spinning straight past it.
func newTimer(d time.Duration) *time.Timer {
	if d <= 0 {
		d = time.Second
	}
	return time.NewTimer(d)
}
