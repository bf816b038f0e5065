package store

import "sync/atomic"

// Clock is the monotonic logical clock stamping snapshot versions.
//
// The initial snapshot is version 1 and every accepted mutation takes the
// next value, so versions are strictly increasing per store.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
