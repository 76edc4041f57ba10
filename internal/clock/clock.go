// Package clock provides a small time abstraction so that the master and
// worker can be driven by a deterministic simulated clock in tests instead
// of sleeping on wall time.
package clock

import "time"

// Clock is satisfied by RealClock and SimulatedClock.
type Clock interface {
	// Now returns the current time according to the clock.
	Now() time.Time

	// After returns a channel that receives a time value once the given
	// duration has elapsed according to the clock.
	After(d time.Duration) <-chan time.Time
}
