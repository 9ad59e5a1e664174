package events

import (
	"sync"

	"github.com/opencode-ai/animseq/internal/models"
)

// Ring stores the last N events.
type Ring struct {
	mu     sync.Mutex
	size   int
	events []*models.Event
	next   int
	full   bool
}

// NewRing returns a ring buffer sized for the provided event count.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{
		size:   size,
		events: make([]*models.Event, size),
	}
}

// Add stores an event in the ring buffer.
func (r *Ring) Add(event *models.Event) {
	if r == nil || event == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = event
	r.next++
	if r.next >= r.size {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the buffered events oldest first.
func (r *Ring) Snapshot() []*models.Event {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]*models.Event, r.next)
		copy(out, r.events[:r.next])
		return out
	}

	out := make([]*models.Event, r.size)
	copy(out, r.events[r.next:])
	copy(out[r.size-r.next:], r.events[:r.next])
	return out
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return r.size
	}
	return r.next
}
