package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/animseq/internal/clock"
	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequences"
	"github.com/opencode-ai/animseq/internal/sprite"
)

// recordingTarget records every mutation it receives.
type recordingTarget struct {
	mu      sync.Mutex
	calls   []string
	poses   []string
	active  bool
	moveErr error
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{active: true}
}

func (r *recordingTarget) Position() (models.Vec3, error) { return models.Vec3{}, nil }

func (r *recordingTarget) MoveBy(dx, dz float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.moveErr != nil {
		return r.moveErr
	}
	r.calls = append(r.calls, "move")
	return nil
}

func (r *recordingTarget) RotateBy(axis models.Axis, angle float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "rotate-"+string(axis))
	return nil
}

func (r *recordingTarget) SetPose(pose string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses = append(r.poses, pose)
	return nil
}

func (r *recordingTarget) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *recordingTarget) SetActive(active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
	r.calls = append(r.calls, "toggle")
	return nil
}

func (r *recordingTarget) Poses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.poses...)
}

func walkSequence(t *testing.T, tags ...string) models.Sequence {
	t.Helper()
	steps := make([]models.Step, 0, len(tags))
	for _, tag := range tags {
		steps = append(steps, models.Step{
			Tag:    tag,
			Kind:   models.StepKindTranslate,
			Axis:   models.AxisZ,
			Amount: 0.15,
			Pose:   tag,
		})
	}
	seq, err := models.NewSequence(models.CommandForward, steps)
	require.NoError(t, err)
	return seq
}

func newTestSequencer(t *testing.T, target Target, opts ...Option) *Sequencer {
	t.Helper()
	catalog, err := sequences.Builtin(sequences.Units{MoveRate: 0.3, RotateAngle: 0.1})
	require.NoError(t, err)
	opts = append([]Option{WithCatalog(catalog)}, opts...)
	return New(DefaultConfig(), target, opts...)
}

func TestTickAppliesOneStepAndTracksActive(t *testing.T) {
	target := newRecordingTarget()
	s := newTestSequencer(t, target)

	require.True(t, s.Enqueue(walkSequence(t, "walk1", "walk2")))
	assert.Equal(t, []string{"walk1", "walk2", "stand"}, s.Pending())
	assert.Equal(t, 1, s.ActiveCount())
	assert.Equal(t, StateRunning, s.State())

	require.NoError(t, s.Tick())
	assert.Equal(t, 1, s.ActiveCount())
	assert.Equal(t, []string{"walk2", "stand"}, s.Pending())

	require.NoError(t, s.Tick())
	assert.Equal(t, 1, s.ActiveCount())

	require.NoError(t, s.Tick())
	assert.Equal(t, 0, s.ActiveCount())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []string{"walk1", "walk2", "stand"}, target.Poses())
}

func TestEnqueueDropsWhenSaturated(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())

	for i := 0; i < 4; i++ {
		require.Truef(t, s.Enqueue(walkSequence(t, "walk1")), "sequence %d should be accepted", i+1)
	}
	length := s.Len()

	assert.False(t, s.Enqueue(walkSequence(t, "walk1")))
	assert.Equal(t, length, s.Len())
	assert.Equal(t, 4, s.ActiveCount())

	stats := s.Stats()
	assert.Equal(t, int64(4), stats.Enqueued)
	assert.Equal(t, int64(1), stats.Dropped)

	// Completing one sequence frees a slot.
	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	assert.Equal(t, 3, s.ActiveCount())
	assert.True(t, s.Enqueue(walkSequence(t, "walk1")))
}

func TestEnqueueRespectsConfiguredCap(t *testing.T) {
	config := DefaultConfig()
	config.MaxSequences = 1
	s := New(config, newRecordingTarget())

	assert.True(t, s.Enqueue(walkSequence(t, "walk1")))
	assert.False(t, s.Enqueue(walkSequence(t, "walk1")))
}

func TestEnqueueRejectsUnterminatedSequence(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())

	seq := models.Sequence{
		Command: models.CommandForward,
		Steps:   []models.Step{{Tag: "walk1", Kind: models.StepKindPose, Pose: "walk1"}},
	}
	assert.False(t, s.Enqueue(seq))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.ActiveCount())
}

func TestEnqueueRejectsEarlyTerminalStep(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())
	require.True(t, s.Enqueue(walkSequence(t, "walk1")))

	seq := models.Sequence{
		Command: models.CommandPunch,
		Steps: []models.Step{
			models.TerminalStep(),
			{Tag: "punch1", Kind: models.StepKindPose, Pose: "punch1"},
			models.TerminalStep(),
		},
	}
	assert.False(t, s.Enqueue(seq))
	assert.Equal(t, []string{"walk1", "stand"}, s.Pending())
	assert.Equal(t, 1, s.ActiveCount())
	assert.Equal(t, int64(0), s.Stats().Dropped)

	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	assert.Equal(t, 0, s.ActiveCount())
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentEnqueueAndTick(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())
	maxSequences := s.Config().MaxSequences

	seq := walkSequence(t, "walk1", "walk2")
	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Enqueue(seq)
			}
		}()
	}

	produced := make(chan struct{})
	go func() {
		wg.Wait()
		close(produced)
	}()

	ticked := make(chan error, 1)
	go func() {
		for {
			if active := s.ActiveCount(); active > maxSequences {
				ticked <- fmt.Errorf("active count %d exceeds cap %d", active, maxSequences)
				return
			}
			if err := s.Tick(); err != nil {
				ticked <- err
				return
			}
			select {
			case <-produced:
				if s.Len() == 0 {
					ticked <- nil
					return
				}
			default:
			}
		}
	}()

	select {
	case err := <-ticked:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("schedule did not drain")
	}

	stats := s.Stats()
	assert.Equal(t, int64(producers*perProducer), stats.Enqueued+stats.Dropped)
	assert.Equal(t, stats.Enqueued, stats.Completed)
	assert.Equal(t, 0, s.ActiveCount())
	assert.Equal(t, 0, s.Len())
}

func TestTickOnEmptyScheduleIsNoop(t *testing.T) {
	target := newRecordingTarget()
	s := newTestSequencer(t, target)

	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())

	assert.Empty(t, target.calls)
	assert.Empty(t, target.Poses())
	assert.Equal(t, int64(0), s.Stats().Applied)
	assert.NotNil(t, s.Stats().LastTickAt)
}

func TestStepsApplyInFIFOOrder(t *testing.T) {
	target := newRecordingTarget()
	s := newTestSequencer(t, target)

	require.True(t, s.Enqueue(walkSequence(t, "a1", "a2")))
	require.True(t, s.Enqueue(walkSequence(t, "b1")))

	for s.Len() > 0 {
		require.NoError(t, s.Tick())
	}

	assert.Equal(t, []string{"a1", "a2", "stand", "b1", "stand"}, target.Poses())
	assert.Equal(t, int64(2), s.Stats().Completed)
}

func TestDequeueNext(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())

	_, ok := s.dequeueNext()
	assert.False(t, ok)

	require.True(t, s.Enqueue(walkSequence(t, "walk1")))

	step, ok := s.dequeueNext()
	require.True(t, ok)
	assert.Equal(t, "walk1", step.Tag)
	assert.Equal(t, 1, s.ActiveCount())

	step, ok = s.dequeueNext()
	require.True(t, ok)
	assert.True(t, step.IsTerminal())
	assert.Equal(t, 0, s.ActiveCount())
}

func TestForwardRoundTrip(t *testing.T) {
	target := sprite.New()
	s := newTestSequencer(t, target)

	ok, err := s.Forward()
	require.NoError(t, err)
	require.True(t, ok)

	for s.Len() > 0 {
		require.NoError(t, s.Tick())
	}

	state := target.Snapshot()
	assert.InDelta(t, 0, state.Position.X, 1e-5)
	assert.InDelta(t, 0.3, state.Position.Z, 1e-5)
	assert.Equal(t, models.TerminalPose, state.Pose)
	assert.Equal(t, 0, s.ActiveCount())
}

func TestCommandWrappers(t *testing.T) {
	target := newRecordingTarget()
	s := newTestSequencer(t, target)

	wrappers := []func() (bool, error){
		s.Left, s.Right, s.RotateClockwise, s.RotateCounterClockwise,
	}
	for _, wrapper := range wrappers {
		ok, err := wrapper()
		require.NoError(t, err)
		require.True(t, ok)
	}
	for s.Len() > 0 {
		require.NoError(t, s.Tick())
	}
	assert.Equal(t, []string{"move", "move", "move", "move", "rotate-y", "rotate-y"}, target.calls)

	ok, err := s.ToggleActive()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Punch()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Backward()
	require.NoError(t, err)
	require.True(t, ok)

	for s.Len() > 0 {
		require.NoError(t, s.Tick())
	}
	assert.False(t, target.Active())
}

func TestEnqueueCommandErrors(t *testing.T) {
	s := New(DefaultConfig(), newRecordingTarget())

	_, err := s.Forward()
	assert.ErrorIs(t, err, ErrNoCatalog)

	s = newTestSequencer(t, newRecordingTarget())
	_, err = s.EnqueueCommand("moonwalk")
	assert.ErrorIs(t, err, sequences.ErrUnknownCommand)
}

func TestDisposedTargetFailsOnce(t *testing.T) {
	target := sprite.New()
	var reported []error
	s := newTestSequencer(t, target, WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))

	require.True(t, s.Enqueue(walkSequence(t, "walk1")))
	target.Dispose()

	err := s.Tick()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTargetUnavailable)

	err = s.Tick()
	assert.ErrorIs(t, err, ErrTargetUnavailable)

	require.Len(t, reported, 1)
	assert.True(t, s.Stats().Failed)
	assert.False(t, s.Enqueue(walkSequence(t, "walk1")))
}

func TestUnknownStepKindIsFatal(t *testing.T) {
	target := newRecordingTarget()
	s := newTestSequencer(t, target)

	seq := models.Sequence{
		ID:      "bad",
		Command: "dance",
		Steps: []models.Step{
			{Tag: "spin", Kind: "spin"},
			models.TerminalStep(),
		},
	}
	require.True(t, s.Enqueue(seq))

	err := s.Tick()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.ErrorIs(t, s.Err(), ErrUnknownStep)
}

func TestTranslateOnYIsUnknownStep(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())

	seq := models.Sequence{
		Command: "float",
		Steps: []models.Step{
			{Tag: "up", Kind: models.StepKindTranslate, Axis: models.AxisY, Amount: 1},
			models.TerminalStep(),
		},
	}
	require.True(t, s.Enqueue(seq))
	assert.ErrorIs(t, s.Tick(), ErrUnknownStep)
}

func TestTargetErrorIsWrapped(t *testing.T) {
	target := newRecordingTarget()
	target.moveErr = errors.New("boom")
	s := newTestSequencer(t, target)

	require.True(t, s.Enqueue(walkSequence(t, "walk1")))
	err := s.Tick()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "walk1")
	assert.Contains(t, err.Error(), "boom")
}

func TestNotifications(t *testing.T) {
	config := DefaultConfig()
	config.MaxSequences = 1
	s := New(config, newRecordingTarget())

	require.True(t, s.Enqueue(walkSequence(t, "walk1")))
	require.False(t, s.Enqueue(walkSequence(t, "walk1")))
	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())

	var types []models.EventType
	for len(s.Notifications()) > 0 {
		n := <-s.Notifications()
		types = append(types, n.Type)
	}
	assert.Equal(t, []models.EventType{
		models.EventTypeSequenceEnqueued,
		models.EventTypeSequenceDropped,
		models.EventTypeStepApplied,
		models.EventTypeStepApplied,
		models.EventTypeSequenceCompleted,
	}, types)
}

func TestRunLoopTicksOnClock(t *testing.T) {
	manual := clock.NewManual(time.Unix(0, 0))
	target := newRecordingTarget()
	s := newTestSequencer(t, target, WithClock(manual))

	require.True(t, s.Enqueue(walkSequence(t, "walk1", "walk2")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyRunning)

	interval := s.Config().TickInterval
	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool { return manual.Waiters() == 1 }, time.Second, time.Millisecond)
		before := s.Len()
		manual.Advance(interval)
		require.Eventually(t, func() bool { return s.Len() == before-1 }, time.Second, time.Millisecond)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, s.WaitIdle(waitCtx))
	assert.Equal(t, []string{"walk1", "walk2", "stand"}, target.Poses())

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
	assert.False(t, s.Stats().Running)
}

func TestRunLoopStopsOnFailure(t *testing.T) {
	manual := clock.NewManual(time.Unix(0, 0))
	target := sprite.New()
	s := newTestSequencer(t, target, WithClock(manual))

	require.True(t, s.Enqueue(walkSequence(t, "walk1")))
	target.Dispose()

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return manual.Waiters() == 1 }, time.Second, time.Millisecond)
	manual.Advance(s.Config().TickInterval)

	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorIs(t, s.WaitIdle(waitCtx), ErrTargetUnavailable)
	require.Eventually(t, func() bool { return !s.Stats().Running }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestWaitIdleHonoursContext(t *testing.T) {
	s := newTestSequencer(t, newRecordingTarget())
	require.True(t, s.Enqueue(walkSequence(t, "walk1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.WaitIdle(ctx), context.Canceled)
}
