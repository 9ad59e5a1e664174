package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Sequence events
	EventTypeSequenceEnqueued  EventType = "sequence.enqueued"
	EventTypeSequenceDropped   EventType = "sequence.dropped"
	EventTypeSequenceCompleted EventType = "sequence.completed"

	// Step events
	EventTypeStepApplied EventType = "step.applied"

	// Sequencer events
	EventTypeSequencerStarted EventType = "sequencer.started"
	EventTypeSequencerStopped EventType = "sequencer.stopped"
	EventTypeSequencerFailed  EventType = "sequencer.failed"
)

// EventTypes returns every event type in a stable order.
func EventTypes() []EventType {
	return []EventType{
		EventTypeSequenceEnqueued,
		EventTypeSequenceDropped,
		EventTypeSequenceCompleted,
		EventTypeStepApplied,
		EventTypeSequencerStarted,
		EventTypeSequencerStopped,
		EventTypeSequencerFailed,
	}
}

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeSprite    EntityType = "sprite"
	EntityTypeSequence  EntityType = "sequence"
	EntityTypeSequencer EntityType = "sequencer"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// SequencePayload is the payload for sequence.* events.
type SequencePayload struct {
	SequenceID  string   `json:"sequence_id"`
	Command     Command  `json:"command"`
	Tags        []string `json:"tags,omitempty"`
	ActiveCount int      `json:"active_count"`
}

// StepAppliedPayload is the payload for step.applied events.
type StepAppliedPayload struct {
	Tag      string   `json:"tag"`
	Kind     StepKind `json:"kind"`
	Axis     Axis     `json:"axis,omitempty"`
	Amount   float32  `json:"amount,omitempty"`
	Pose     string   `json:"pose,omitempty"`
	Position *Vec3    `json:"position,omitempty"`
}

// ErrorPayload is the payload for sequencer.failed events.
type ErrorPayload struct {
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}
