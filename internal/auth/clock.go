package auth

import (
	"sync"
	"time"
)

// Clock supplies the current time as whole seconds since the Unix epoch.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() uint64

// Now calls f.
func (f ClockFunc) Now() uint64 { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current Unix time in seconds.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a controllable clock for tests. It is safe for concurrent use.
type ManualClock struct {
	mu      sync.Mutex
	current uint64
}

// NewManualClock returns a ManualClock fixed at t.
func NewManualClock(t uint64) *ManualClock {
	return &ManualClock{current: t}
}

// Now returns the clock's current reading.
func (m *ManualClock) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set moves the clock to an absolute reading.
func (m *ManualClock) Set(t uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Advance steps the clock forward by d, truncated to whole seconds. A negative
// d panics; use Set to move the clock back.
func (m *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("auth: ManualClock.Advance with negative duration " + d.String())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current += uint64(d / time.Second)
}
