// Package models defines the core data types shared across animseq.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStep is returned when a step tag or kind has no effect mapping.
var ErrUnknownStep = errors.New("unknown step")

// StepKind identifies what a step does to its target.
type StepKind string

const (
	// StepKindTranslate moves the target along one axis, relative to its heading.
	StepKindTranslate StepKind = "translate"
	// StepKindRotate rotates the target about one axis.
	StepKindRotate StepKind = "rotate"
	// StepKindPose switches the target's pose without changing its transform.
	StepKindPose StepKind = "pose"
	// StepKindToggle flips the target's active flag.
	StepKindToggle StepKind = "toggle"
)

// Valid reports whether the kind is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepKindTranslate, StepKindRotate, StepKindPose, StepKindToggle:
		return true
	default:
		return false
	}
}

// Axis names a local coordinate axis.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ParseAxis converts a string into an Axis.
func ParseAxis(value string) (Axis, error) {
	switch Axis(strings.ToLower(strings.TrimSpace(value))) {
	case AxisX:
		return AxisX, nil
	case AxisY:
		return AxisY, nil
	case AxisZ:
		return AxisZ, nil
	default:
		return "", fmt.Errorf("unknown axis %q", value)
	}
}

const (
	// TerminalTag marks the end of a sequence.
	TerminalTag = "stand"

	// TerminalPose is the pose the terminal step restores.
	TerminalPose = "stand"
)

// Step is one decoded unit of motion or pose change.
// Steps are immutable values; the tag is kept for bookkeeping and logs.
type Step struct {
	// Tag is the catalogue name the step was decoded from (e.g. "walk1").
	Tag string `json:"tag"`

	// Kind selects the effect applied to the target.
	Kind StepKind `json:"kind"`

	// Axis is the translation or rotation axis. Unused for pose and toggle.
	Axis Axis `json:"axis,omitempty"`

	// Amount is world units for translations and radians for rotations.
	Amount float32 `json:"amount,omitempty"`

	// Pose is set on the target after the transform, when non-empty.
	Pose string `json:"pose,omitempty"`
}

// TerminalStep returns the step that closes every sequence.
func TerminalStep() Step {
	return Step{
		Tag:  TerminalTag,
		Kind: StepKindPose,
		Pose: TerminalPose,
	}
}

// IsTerminal reports whether the step marks sequence completion.
func (s Step) IsTerminal() bool {
	return s.Tag == TerminalTag
}

// Validate checks that the step is internally consistent.
func (s Step) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(s.Tag) == "" {
		validation.AddMessage("tag", "step tag is required")
	}
	switch s.Kind {
	case StepKindTranslate:
		if s.Axis != AxisX && s.Axis != AxisZ {
			validation.AddMessage("axis", "translation axis must be x or z")
		}
	case StepKindRotate:
		if s.Axis != AxisX && s.Axis != AxisY && s.Axis != AxisZ {
			validation.AddMessage("axis", "rotation axis must be x, y or z")
		}
	case StepKindPose:
		if strings.TrimSpace(s.Pose) == "" {
			validation.AddMessage("pose", "pose step requires a pose")
		}
	case StepKindToggle:
	default:
		validation.AddMessage("kind", fmt.Sprintf("unknown step kind %q", s.Kind))
	}
	if s.IsTerminal() && (s.Kind != StepKindPose || s.Pose != TerminalPose) {
		validation.AddMessage("tag", "terminal step must be a pose step setting "+TerminalPose)
	}
	return validation.Err()
}

func (s Step) String() string {
	switch s.Kind {
	case StepKindTranslate, StepKindRotate:
		return fmt.Sprintf("%s(%s %s %.3f)", s.Tag, s.Kind, s.Axis, s.Amount)
	default:
		return fmt.Sprintf("%s(%s)", s.Tag, s.Kind)
	}
}
