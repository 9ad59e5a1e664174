// Package clock abstracts timers so tick loops can be driven by tests.
package clock

import (
	"sync"
	"time"
)

// Clock creates timers and reports the current time.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is a one-shot timer that can be re-armed with Reset.
type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration) bool
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }

// Manual is a Clock that only moves when Advance is called.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTimer creates an armed timer firing d after the current manual time.
func (m *Manual) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{
		clock:    m,
		ch:       make(chan time.Time, 1),
		deadline: m.now.Add(d),
		armed:    true,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer whose deadline passed.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	for _, t := range m.timers {
		if !t.armed || t.deadline.After(m.now) {
			continue
		}
		t.armed = false
		select {
		case t.ch <- m.now:
		default:
		}
	}
}

// Waiters returns the number of armed timers.
func (m *Manual) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.timers {
		if t.armed {
			count++
		}
	}
	return count
}

type manualTimer struct {
	clock    *Manual
	ch       chan time.Time
	deadline time.Time
	armed    bool
}

func (t *manualTimer) C() <-chan time.Time { return t.ch }

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	wasArmed := t.armed
	t.armed = true
	t.deadline = t.clock.now.Add(d)
	return wasArmed
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	wasArmed := t.armed
	t.armed = false
	return wasArmed
}
