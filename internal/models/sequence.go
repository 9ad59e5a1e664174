package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Command is a logical user or game command that expands into a sequence.
type Command string

const (
	CommandForward                Command = "forward"
	CommandBackward               Command = "backward"
	CommandLeft                   Command = "left"
	CommandRight                  Command = "right"
	CommandRotateClockwise        Command = "rotate-clockwise"
	CommandRotateCounterClockwise Command = "rotate-counter-clockwise"
	CommandToggleActive           Command = "toggle-active"
	CommandPunch                  Command = "punch"
)

// Commands lists the builtin commands in display order.
var Commands = []Command{
	CommandForward,
	CommandBackward,
	CommandLeft,
	CommandRight,
	CommandRotateClockwise,
	CommandRotateCounterClockwise,
	CommandToggleActive,
	CommandPunch,
}

// ErrEmptySequence is returned when a sequence has no steps.
var ErrEmptySequence = errors.New("sequence has no steps")

// Sequence is the ordered list of steps for one command.
// Every sequence ends with the terminal step.
type Sequence struct {
	ID      string  `json:"id"`
	Command Command `json:"command"`
	Steps   []Step  `json:"steps"`
}

// NewSequence validates steps and returns a sequence terminated by the terminal step.
// A terminal step anywhere but the end is rejected so that completion is counted once.
func NewSequence(command Command, steps []Step) (Sequence, error) {
	if len(steps) == 0 {
		return Sequence{}, ErrEmptySequence
	}

	out := make([]Step, 0, len(steps)+1)
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return Sequence{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.IsTerminal() && i != len(steps)-1 {
			return Sequence{}, fmt.Errorf("step %d: terminal step %q must be last", i+1, step.Tag)
		}
		out = append(out, step)
	}
	if !out[len(out)-1].IsTerminal() {
		out = append(out, TerminalStep())
	}

	return Sequence{
		ID:      uuid.New().String(),
		Command: command,
		Steps:   out,
	}, nil
}

// WellFormed reports whether s ends in exactly one terminal step.
func (s Sequence) WellFormed() bool {
	if len(s.Steps) == 0 {
		return false
	}
	last := len(s.Steps) - 1
	for i, step := range s.Steps {
		if step.IsTerminal() != (i == last) {
			return false
		}
	}
	return true
}

// Tags returns the step tags in order.
func (s Sequence) Tags() []string {
	tags := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		tags = append(tags, step.Tag)
	}
	return tags
}

func (s Sequence) String() string {
	return fmt.Sprintf("%s[%s]", s.Command, strings.Join(s.Tags(), ","))
}
