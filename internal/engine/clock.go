package engine

import "time"

// Clock abstracts wall-clock reads so tests can simulate date rollovers
// and absences.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a settable time for tests.
type FixedClock struct {
	Time time.Time
}

func (c *FixedClock) Now() time.Time { return c.Time }

// Advance moves the fixed clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.Time = c.Time.Add(d) }
