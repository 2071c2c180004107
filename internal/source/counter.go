// Package source implements the per-source remaining-row counter and its
// three-state lifecycle tag.
package source

import "sync/atomic"

// State is the three-state lifecycle tag attached to a Counter. State
// transitions are monotonic: Uninitialized -> Initialized -> Finished.
type State int32

const (
	Uninitialized State = iota
	Initialized
	Finished
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Counter is a signed remaining-row count plus an atomic lifecycle tag.
// remaining may transiently go negative when a non-first page from a
// source arrives before that source's first page; this is not an error.
//
// Both fields are accessed from many goroutines (the transport calling
// AddAndGet, the liveness sweeper and the facade calling State) without
// external locking.
type Counter struct {
	remaining atomic.Int64
	state     atomic.Int32
}

// New returns a fresh Counter: remaining 0, state Uninitialized.
func New() *Counter {
	return &Counter{}
}

// AddAndGet atomically adds delta to remaining and returns the new value.
func (c *Counter) AddAndGet(delta int64) int64 {
	return c.remaining.Add(delta)
}

// Get returns the current remaining count.
func (c *Counter) Get() int64 {
	return c.remaining.Load()
}

// State returns the current lifecycle tag.
func (c *Counter) State() State {
	return State(c.state.Load())
}

// SetState publishes a new lifecycle tag. Callers are responsible for
// only ever moving it forward (Uninitialized -> Initialized -> Finished);
// the type itself does not enforce monotonicity so PageIntake can perform
// its enqueue-before-flip ordering.
func (c *Counter) SetState(s State) {
	c.state.Store(int32(s))
}
