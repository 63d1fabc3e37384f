package engine

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// Every trade mutation is stamped with a strictly increasing seq from this
// clock, so the order of proposals and confirmations is recorded without
// relying on wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, engine operations are serialized by the state lock, so only one
// goroutine calls Next() at a time in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// The engine uses this to resume after the highest seq already stored.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
