package actionlog

import "sync/atomic"

// Clock hands out entry ids.
//
// Ids increase strictly and are never reused, even after SWEEP or COMMIT
// drop the entries that held them. TOGGLE_ACTION addresses entries by id,
// so a reused id could toggle the wrong action.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first id is 1. Id 0 belongs to @@INIT.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
// Used when restoring a persisted log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next id.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last id handed out without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
