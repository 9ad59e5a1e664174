package sequencer

import (
	"fmt"

	"github.com/opencode-ai/animseq/internal/models"
)

// EnqueueCommand builds the sequence for command and enqueues it.
// The bool reports whether the sequence was accepted; the error reports a
// missing catalog or a command the catalog cannot build.
func (s *Sequencer) EnqueueCommand(command models.Command) (bool, error) {
	if s.catalog == nil {
		return false, ErrNoCatalog
	}
	seq, err := s.catalog.Build(command)
	if err != nil {
		return false, fmt.Errorf("build %s: %w", command, err)
	}
	return s.Enqueue(seq), nil
}

// Forward walks one move unit ahead.
func (s *Sequencer) Forward() (bool, error) {
	return s.EnqueueCommand(models.CommandForward)
}

// Backward walks one move unit back.
func (s *Sequencer) Backward() (bool, error) {
	return s.EnqueueCommand(models.CommandBackward)
}

// Left sidesteps one move unit left.
func (s *Sequencer) Left() (bool, error) {
	return s.EnqueueCommand(models.CommandLeft)
}

// Right sidesteps one move unit right.
func (s *Sequencer) Right() (bool, error) {
	return s.EnqueueCommand(models.CommandRight)
}

// RotateClockwise turns by one rotation unit clockwise.
func (s *Sequencer) RotateClockwise() (bool, error) {
	return s.EnqueueCommand(models.CommandRotateClockwise)
}

// RotateCounterClockwise turns by one rotation unit counter-clockwise.
func (s *Sequencer) RotateCounterClockwise() (bool, error) {
	return s.EnqueueCommand(models.CommandRotateCounterClockwise)
}

// ToggleActive shows or hides the target.
func (s *Sequencer) ToggleActive() (bool, error) {
	return s.EnqueueCommand(models.CommandToggleActive)
}

// Punch plays the punch poses.
func (s *Sequencer) Punch() (bool, error) {
	return s.EnqueueCommand(models.CommandPunch)
}
