// Package sequences provides loading and compiling of command catalogues.
//
// A catalogue file names step tags and the commands built from them:
//
//	name: default
//	steps:
//	  walk1: {kind: translate, axis: z, amount: 0.5, pose: walk1}
//	commands:
//	  - name: forward
//	    steps: [walk1, walk2, stand]
//
// Translation amounts are multiples of the move rate and rotation amounts
// multiples of the rotate angle. The terminal tag "stand" is reserved.
package sequences

import (
	"errors"
	"math"

	"github.com/opencode-ai/animseq/internal/models"
)

// Catalogue errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownStep    = models.ErrUnknownStep
)

// Definition is one catalogue file.
type Definition struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Steps       map[string]StepDef `yaml:"steps"`
	Commands    []CommandDef       `yaml:"commands"`
	Source      string             `yaml:"-"` // file path or "builtin"
}

// StepDef describes the effect bound to a step tag.
type StepDef struct {
	Kind   models.StepKind `yaml:"kind"`
	Axis   string          `yaml:"axis,omitempty"`
	Amount float32         `yaml:"amount,omitempty"`
	Pose   string          `yaml:"pose,omitempty"`
}

// CommandDef names the ordered tags played for a command.
type CommandDef struct {
	Name        models.Command `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Steps       []string       `yaml:"steps"`
}

// Units scale catalogue amounts into world units.
type Units struct {
	// MoveRate is the distance covered by a translation amount of 1.
	MoveRate float32

	// RotateAngle is the rotation, in radians, for a rotation amount of 1.
	RotateAngle float32
}

// DefaultUnits returns a 0.3 move rate and a 10 degree rotate angle.
func DefaultUnits() Units {
	return Units{
		MoveRate:    0.3,
		RotateAngle: float32(10 * math.Pi / 180),
	}
}

// UnitsFromDegrees builds Units from a rotate angle in degrees.
func UnitsFromDegrees(moveRate, rotateDegrees float64) Units {
	return Units{
		MoveRate:    float32(moveRate),
		RotateAngle: float32(rotateDegrees * math.Pi / 180),
	}
}
