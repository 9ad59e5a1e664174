package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/animseq/internal/logging"
	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequencer"
)

// Recorder drains sequencer notifications into a repository and a ring of
// recent events. Either sink may be nil.
type Recorder struct {
	repo        Repository
	ring        *Ring
	spriteID    string
	sequencerID string
	logger      zerolog.Logger

	mu          sync.Mutex
	subscribers []chan *models.Event
}

// NewRecorder creates a Recorder.
func NewRecorder(repo Repository, ring *Ring, spriteID, sequencerID string) *Recorder {
	return &Recorder{
		repo:        repo,
		ring:        ring,
		spriteID:    spriteID,
		sequencerID: sequencerID,
		logger:      logging.Component("recorder"),
	}
}

// Ring returns the recent-event buffer.
func (r *Recorder) Ring() *Ring {
	return r.ring
}

// Subscribe returns a channel receiving every recorded event and a function
// that cancels the subscription. Slow subscribers miss events rather than
// block the recorder.
func (r *Recorder) Subscribe(buffer int) (<-chan *models.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *models.Event, buffer)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()

	return ch, func() { r.unsubscribe(ch) }
}

func (r *Recorder) unsubscribe(ch chan *models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subscribers {
		if sub == ch {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Run records notifications until ctx is done or the channel closes.
// Subscriber channels are closed when Run returns.
func (r *Recorder) Run(ctx context.Context, notifications <-chan sequencer.Notification) {
	defer r.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			r.drain(notifications)
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			r.Record(ctx, n)
		}
	}
}

// Record stores a single notification.
func (r *Recorder) Record(ctx context.Context, n sequencer.Notification) {
	event, err := FromNotification(n, r.spriteID, r.sequencerID)
	if err != nil {
		r.logger.Warn().Err(err).Str("type", string(n.Type)).Msg("skipping notification")
		return
	}

	if r.repo != nil {
		if err := r.repo.Create(context.WithoutCancel(ctx), event); err != nil {
			r.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to persist event")
		}
	}
	r.ring.Add(event)

	r.mu.Lock()
	for _, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	r.mu.Unlock()
}

// drain records notifications that are already buffered.
func (r *Recorder) drain(notifications <-chan sequencer.Notification) {
	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				return
			}
			r.Record(context.Background(), n)
		default:
			return
		}
	}
}

func (r *Recorder) closeSubscribers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = nil
}
