package executor

import "time"

// Clock is the executor's time source. The soft barrier's delay semantics
// are defined entirely in terms of it, so tests substitute a controllable
// implementation instead of sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that delivers once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// After implements Clock.
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
