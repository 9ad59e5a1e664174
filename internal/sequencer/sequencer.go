// Package sequencer turns high-level commands into timed animation steps.
//
// A Sequencer owns a FIFO schedule of steps. Producers append whole sequences
// with Enqueue; a timer loop pops one step per tick and applies it to the
// Target. At most MaxSequences sequences are in flight; further sequences
// are dropped rather than queued.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/animseq/internal/clock"
	"github.com/opencode-ai/animseq/internal/logging"
	"github.com/opencode-ai/animseq/internal/models"
)

// Sequencer errors.
var (
	ErrAlreadyRunning    = errors.New("sequencer already running")
	ErrNotRunning        = errors.New("sequencer not running")
	ErrUnknownStep       = models.ErrUnknownStep
	ErrNoCatalog         = errors.New("sequencer has no command catalog")
	ErrTargetUnavailable = models.ErrTargetUnavailable
)

// Target is the object whose transform and pose the sequencer mutates.
// It is only mutated from the tick path.
type Target interface {
	Position() (models.Vec3, error)
	MoveBy(dx, dz float32) error
	RotateBy(axis models.Axis, angle float32) error
	SetPose(pose string) error
	Active() bool
	SetActive(active bool) error
}

// Catalog builds the fixed sequence for a command.
type Catalog interface {
	Build(command models.Command) (models.Sequence, error)
}

// Config contains sequencer configuration.
type Config struct {
	// TickInterval is the delay between two ticks.
	// Default: 50 milliseconds.
	TickInterval time.Duration

	// MaxSequences caps the number of in-flight sequences.
	// Default: 4.
	MaxSequences int

	// NotificationBuffer sizes the notification channel.
	// Default: 256.
	NotificationBuffer int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:       50 * time.Millisecond,
		MaxSequences:       4,
		NotificationBuffer: 256,
	}
}

// State is the logical state of the schedule.
type State int

const (
	// StateIdle means the schedule is empty.
	StateIdle State = iota
	// StateRunning means steps are waiting to be applied.
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Notification describes sequencer activity. Notifications are delivered on
// a buffered channel and dropped when nobody keeps up.
type Notification struct {
	Type        models.EventType
	Timestamp   time.Time
	SequenceID  string
	Command     models.Command
	Tags        []string
	Step        *models.Step
	Position    *models.Vec3
	ActiveCount int
	Err         error
}

// Stats contains sequencer statistics.
type Stats struct {
	Running     bool
	Failed      bool
	StartedAt   *time.Time
	LastTickAt  *time.Time
	Enqueued    int64
	Dropped     int64
	Applied     int64
	Completed   int64
	QueueLength int
	ActiveCount int
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(s *Sequencer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithCatalog sets the catalog used by the command wrappers.
func WithCatalog(c Catalog) Option {
	return func(s *Sequencer) {
		s.catalog = c
	}
}

// WithErrorHandler registers a callback invoked once on the first fatal error.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sequencer) {
		s.onError = fn
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

type scheduledStep struct {
	step       models.Step
	sequenceID string
	command    models.Command
}

// Sequencer applies queued animation steps to a Target, one per tick.
type Sequencer struct {
	config  Config
	target  Target
	clock   clock.Clock
	catalog Catalog
	onError func(error)
	logger  zerolog.Logger

	// Schedule state, guarded by mu.
	mu         sync.Mutex
	schedule   []scheduledStep
	active     int
	failure    error
	idle       chan struct{}
	idleClosed bool

	// Runtime state
	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Stats
	stats    Stats
	statsMu  sync.RWMutex
	notifyCh chan Notification
}

// New creates a Sequencer driving target.
func New(config Config, target Target, opts ...Option) *Sequencer {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	if config.MaxSequences <= 0 {
		config.MaxSequences = DefaultConfig().MaxSequences
	}
	if config.NotificationBuffer <= 0 {
		config.NotificationBuffer = DefaultConfig().NotificationBuffer
	}

	idle := make(chan struct{})
	close(idle)

	s := &Sequencer{
		config:     config,
		target:     target,
		clock:      clock.Real(),
		logger:     logging.Component("sequencer"),
		idle:       idle,
		idleClosed: true,
		notifyCh:   make(chan Notification, config.NotificationBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Sequencer) Config() Config {
	return s.config
}

// Enqueue appends every step of seq to the schedule.
//
// It returns false, leaving the schedule untouched, when MaxSequences
// sequences are already in flight, when the sequence is malformed, or after
// a fatal error. A drop is not an error.
func (s *Sequencer) Enqueue(seq models.Sequence) bool {
	if !seq.WellFormed() {
		s.logger.Error().
			Str("sequence_id", seq.ID).
			Str("command", string(seq.Command)).
			Strs("tags", seq.Tags()).
			Msg("rejecting sequence without a single trailing terminal step")
		return false
	}

	s.mu.Lock()
	if s.failure != nil {
		s.mu.Unlock()
		return false
	}
	if s.active >= s.config.MaxSequences {
		active := s.active
		s.mu.Unlock()

		s.statsMu.Lock()
		s.stats.Dropped++
		s.statsMu.Unlock()

		s.logger.Debug().
			Str("command", string(seq.Command)).
			Int("active", active).
			Msg("sequence dropped, schedule saturated")
		s.notify(Notification{
			Type:        models.EventTypeSequenceDropped,
			SequenceID:  seq.ID,
			Command:     seq.Command,
			Tags:        seq.Tags(),
			ActiveCount: active,
		})
		return false
	}

	for _, step := range seq.Steps {
		s.schedule = append(s.schedule, scheduledStep{
			step:       step,
			sequenceID: seq.ID,
			command:    seq.Command,
		})
	}
	s.active++
	active := s.active
	if s.idleClosed {
		s.idle = make(chan struct{})
		s.idleClosed = false
	}
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Enqueued++
	s.statsMu.Unlock()

	s.logger.Debug().
		Str("sequence_id", seq.ID).
		Str("command", string(seq.Command)).
		Int("steps", len(seq.Steps)).
		Int("active", active).
		Msg("sequence enqueued")
	s.notify(Notification{
		Type:        models.EventTypeSequenceEnqueued,
		SequenceID:  seq.ID,
		Command:     seq.Command,
		Tags:        seq.Tags(),
		ActiveCount: active,
	})
	return true
}

// Tick applies at most one step. An empty schedule is a no-op.
//
// A step that cannot be applied is fatal: the error is stored, reported once
// and returned by every later call.
func (s *Sequencer) Tick() error {
	s.mu.Lock()
	if s.failure != nil {
		err := s.failure
		s.mu.Unlock()
		return err
	}
	item, ok := s.dequeueLocked()
	active := s.active
	s.mu.Unlock()

	now := s.clock.Now().UTC()
	s.statsMu.Lock()
	s.stats.LastTickAt = &now
	s.statsMu.Unlock()

	if !ok {
		return nil
	}

	if err := s.apply(item.step); err != nil {
		err = fmt.Errorf("apply step %q of %s: %w", item.step.Tag, item.command, err)
		s.fail(err)
		return err
	}

	s.statsMu.Lock()
	s.stats.Applied++
	if item.step.IsTerminal() {
		s.stats.Completed++
	}
	s.statsMu.Unlock()

	step := item.step
	n := Notification{
		Type:        models.EventTypeStepApplied,
		Timestamp:   now,
		SequenceID:  item.sequenceID,
		Command:     item.command,
		Step:        &step,
		ActiveCount: active,
	}
	if pos, err := s.target.Position(); err == nil {
		n.Position = &pos
	}
	s.notify(n)

	if step.IsTerminal() {
		s.notify(Notification{
			Type:        models.EventTypeSequenceCompleted,
			Timestamp:   now,
			SequenceID:  item.sequenceID,
			Command:     item.command,
			ActiveCount: active,
		})
	}
	return nil
}

// dequeueNext pops the head of the schedule under the schedule lock.
func (s *Sequencer) dequeueNext() (models.Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.dequeueLocked()
	return item.step, ok
}

// dequeueLocked pops the head step and settles the bookkeeping.
// The caller must hold mu.
func (s *Sequencer) dequeueLocked() (scheduledStep, bool) {
	if len(s.schedule) == 0 {
		return scheduledStep{}, false
	}

	item := s.schedule[0]
	s.schedule[0] = scheduledStep{}
	s.schedule = s.schedule[1:]

	if item.step.IsTerminal() && s.active > 0 {
		s.active--
	}
	if len(s.schedule) == 0 {
		s.schedule = nil
		s.markIdleLocked()
	}
	return item, true
}

func (s *Sequencer) markIdleLocked() {
	if !s.idleClosed {
		close(s.idle)
		s.idleClosed = true
	}
}

// apply maps a step to exactly one Target mutation, then sets its pose.
func (s *Sequencer) apply(step models.Step) error {
	if s.target == nil {
		return ErrTargetUnavailable
	}

	switch step.Kind {
	case models.StepKindTranslate:
		switch step.Axis {
		case models.AxisX:
			if err := s.target.MoveBy(step.Amount, 0); err != nil {
				return err
			}
		case models.AxisZ:
			if err := s.target.MoveBy(0, step.Amount); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q translates along axis %q", ErrUnknownStep, step.Tag, step.Axis)
		}
	case models.StepKindRotate:
		if err := s.target.RotateBy(step.Axis, step.Amount); err != nil {
			return err
		}
	case models.StepKindPose:
	case models.StepKindToggle:
		if err := s.target.SetActive(!s.target.Active()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q has kind %q", ErrUnknownStep, step.Tag, step.Kind)
	}

	if step.Pose != "" {
		return s.target.SetPose(step.Pose)
	}
	return nil
}

// fail records the first fatal error and reports it exactly once.
func (s *Sequencer) fail(err error) {
	s.mu.Lock()
	first := s.failure == nil
	if first {
		s.failure = err
		s.markIdleLocked()
	}
	s.mu.Unlock()

	if !first {
		return
	}

	s.statsMu.Lock()
	s.stats.Failed = true
	s.statsMu.Unlock()

	s.logger.Error().Err(err).Msg("sequencer halted")
	s.notify(Notification{
		Type: models.EventTypeSequencerFailed,
		Err:  err,
	})
	if s.onError != nil {
		s.onError(err)
	}
}

// Err returns the fatal error that halted the sequencer, if any.
func (s *Sequencer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// State reports whether steps are waiting.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.schedule) == 0 {
		return StateIdle
	}
	return StateRunning
}

// ActiveCount returns the number of in-flight sequences.
func (s *Sequencer) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Len returns the number of scheduled steps.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.schedule)
}

// Pending returns the tags of the scheduled steps in order.
func (s *Sequencer) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := make([]string, 0, len(s.schedule))
	for _, item := range s.schedule {
		tags = append(tags, item.step.Tag)
	}
	return tags
}

// WaitIdle blocks until the schedule is empty, the sequencer fails or ctx ends.
func (s *Sequencer) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-idle:
		return s.Err()
	}
}

// Start begins the timer loop.
func (s *Sequencer) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	now := s.clock.Now().UTC()
	s.statsMu.Lock()
	s.stats.Running = true
	s.stats.StartedAt = &now
	s.statsMu.Unlock()

	s.logger.Info().
		Dur("tick_interval", s.config.TickInterval).
		Int("max_sequences", s.config.MaxSequences).
		Msg("sequencer starting")
	s.notify(Notification{Type: models.EventTypeSequencerStarted})

	s.wg.Add(1)
	go s.runLoop(loopCtx)

	return nil
}

// Stop halts the timer loop. Scheduled steps are left in place.
func (s *Sequencer) Stop() error {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return ErrNotRunning
	}

	s.cancel()
	s.running = false
	s.runMu.Unlock()

	s.wg.Wait()

	s.statsMu.Lock()
	s.stats.Running = false
	s.statsMu.Unlock()

	s.logger.Info().Msg("sequencer stopped")
	s.notify(Notification{Type: models.EventTypeSequencerStopped})
	return nil
}

// Stats returns current statistics.
func (s *Sequencer) Stats() Stats {
	s.statsMu.RLock()
	stats := s.stats
	s.statsMu.RUnlock()

	s.mu.Lock()
	stats.QueueLength = len(s.schedule)
	stats.ActiveCount = s.active
	s.mu.Unlock()

	return stats
}

// Notifications returns the notification channel.
// Consumers should read from this channel to receive activity records.
func (s *Sequencer) Notifications() <-chan Notification {
	return s.notifyCh
}

// runLoop ticks once per interval, re-arming the timer after each tick.
func (s *Sequencer) runLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := s.clock.NewTimer(s.config.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C():
			if err := s.Tick(); err != nil {
				s.statsMu.Lock()
				s.stats.Running = false
				s.statsMu.Unlock()
				return
			}
			timer.Reset(s.config.TickInterval)
		}
	}
}

func (s *Sequencer) notify(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = s.clock.Now().UTC()
	}
	select {
	case s.notifyCh <- n:
	default:
		// Channel full, drop notification
	}
}
