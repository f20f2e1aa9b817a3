package poller

import "time"

// Backoff tracks consecutive poll failures and derives the retry delay
// min(initial * factor^failures, max). Any successful tick resets it.
type Backoff struct {
	initial  time.Duration
	factor   int
	max      time.Duration
	failures int
}

// NewBackoff creates a Backoff. A non-positive factor is treated as 2
// and max is raised to initial if it is smaller.
func NewBackoff(initial time.Duration, factor int, max time.Duration) *Backoff {
	if factor < 1 {
		factor = 2
	}
	if max < initial {
		max = initial
	}
	return &Backoff{initial: initial, factor: factor, max: max}
}

// Fail records one more consecutive failure and returns the delay to
// apply before the next attempt.
func (b *Backoff) Fail() time.Duration {
	b.failures++
	return b.Current()
}

// Current returns min(initial * factor^failures, max) for the current
// failure count. The multiplication is capped stepwise so large counts
// cannot overflow.
func (b *Backoff) Current() time.Duration {
	delay := b.initial
	for i := 0; i < b.failures; i++ {
		delay *= time.Duration(b.factor)
		if delay >= b.max || delay <= 0 {
			return b.max
		}
	}
	if delay > b.max {
		return b.max
	}
	return delay
}

// Reset clears the failure count after a successful tick.
func (b *Backoff) Reset() {
	b.failures = 0
}

// Failures returns the current consecutive failure count.
func (b *Backoff) Failures() int {
	return b.failures
}
