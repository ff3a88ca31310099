package shared

import "time"

// Clock returns the current time. Services take a Clock so tests can pin it.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}
