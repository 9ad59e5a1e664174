package models

import (
	"errors"
	"fmt"
)

// ErrTargetUnavailable is returned when a target can no longer be mutated.
var ErrTargetUnavailable = errors.New("target unavailable")

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Add returns the component-wise sum.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// SpriteState is a point-in-time copy of a sprite's observable state.
type SpriteState struct {
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
	// Rotation holds accumulated Euler angles in radians; Y is the heading.
	Rotation Vec3   `json:"rotation"`
	Pose     string `json:"pose"`
	Active   bool   `json:"active"`
	Disposed bool   `json:"disposed,omitempty"`
}
