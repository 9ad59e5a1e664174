// Package sprite provides an in-memory animated figure that sequencers drive.
package sprite

import (
	"fmt"
	"math"
	"sync"

	"github.com/chewxy/math32"
	"github.com/google/uuid"

	"github.com/opencode-ai/animseq/internal/models"
)

// ErrTargetUnavailable is returned by every mutation on a disposed sprite.
var ErrTargetUnavailable = models.ErrTargetUnavailable

// Sprite is a figure standing on a square floor centred on the origin.
//
// Moves are relative to the current heading (rotation about Y). An inactive
// sprite ignores moves and rotations but still accepts pose changes. Moves
// that would carry the sprite off the floor are ignored.
type Sprite struct {
	mu        sync.RWMutex
	id        string
	position  models.Vec3
	rotation  models.Vec3
	pose      string
	active    bool
	disposed  bool
	floorSize float32
}

// Option configures a Sprite.
type Option func(*Sprite)

// WithID overrides the generated sprite ID.
func WithID(id string) Option {
	return func(s *Sprite) {
		if id != "" {
			s.id = id
		}
	}
}

// WithPosition sets the starting position.
func WithPosition(pos models.Vec3) Option {
	return func(s *Sprite) {
		s.position = pos
	}
}

// WithFloorSize bounds movement to a size x size floor. Zero means unbounded.
func WithFloorSize(size float32) Option {
	return func(s *Sprite) {
		if size > 0 {
			s.floorSize = size
		}
	}
}

// New creates an active sprite in the terminal pose.
func New(opts ...Option) *Sprite {
	s := &Sprite{
		id:     uuid.New().String(),
		pose:   models.TerminalPose,
		active: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the sprite identifier.
func (s *Sprite) ID() string {
	return s.id
}

// Position returns the current world position.
func (s *Sprite) Position() (models.Vec3, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disposed {
		return models.Vec3{}, s.unavailable()
	}
	return s.position, nil
}

// MoveBy moves the sprite by (dx, dz) in its local frame.
func (s *Sprite) MoveBy(dx, dz float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return s.unavailable()
	}
	if !s.active {
		return nil
	}

	sin, cos := math32.Sincos(s.rotation.Y)
	next := s.position.Add(models.Vec3{
		X: dx*cos + dz*sin,
		Z: -dx*sin + dz*cos,
	})
	if !s.onFloor(next) {
		return nil
	}
	s.position = next
	return nil
}

// RotateBy adds angle radians of rotation about axis.
func (s *Sprite) RotateBy(axis models.Axis, angle float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return s.unavailable()
	}
	if !s.active {
		return nil
	}

	switch axis {
	case models.AxisX:
		s.rotation.X = wrapAngle(s.rotation.X + angle)
	case models.AxisY:
		s.rotation.Y = wrapAngle(s.rotation.Y + angle)
	case models.AxisZ:
		s.rotation.Z = wrapAngle(s.rotation.Z + angle)
	default:
		return fmt.Errorf("unknown axis %q", axis)
	}
	return nil
}

// SetPose switches the displayed pose.
func (s *Sprite) SetPose(pose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return s.unavailable()
	}
	s.pose = pose
	return nil
}

// Active reports whether the sprite is shown and responding to motion.
func (s *Sprite) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive shows or hides the sprite.
func (s *Sprite) SetActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return s.unavailable()
	}
	s.active = active
	return nil
}

// Dispose releases the sprite. Later mutations fail with ErrTargetUnavailable.
func (s *Sprite) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.active = false
}

// Snapshot returns a copy of the sprite's state.
func (s *Sprite) Snapshot() models.SpriteState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.SpriteState{
		ID:       s.id,
		Position: s.position,
		Rotation: s.rotation,
		Pose:     s.pose,
		Active:   s.active,
		Disposed: s.disposed,
	}
}

func (s *Sprite) unavailable() error {
	return fmt.Errorf("sprite %s: %w", s.id, ErrTargetUnavailable)
}

func (s *Sprite) onFloor(pos models.Vec3) bool {
	if s.floorSize <= 0 {
		return true
	}
	half := s.floorSize / 2
	return math32.Abs(pos.X) <= half && math32.Abs(pos.Z) <= half
}

// wrapAngle keeps an angle in (-Pi, Pi].
func wrapAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
