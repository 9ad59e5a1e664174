// Package events records sequencer activity in the event log.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequencer"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogSequenceEnqueued records an accepted sequence.
func LogSequenceEnqueued(ctx context.Context, repo Repository, seq models.Sequence, activeCount int) error {
	return logSequence(ctx, repo, models.EventTypeSequenceEnqueued, seq.ID, seq.Command, seq.Tags(), activeCount)
}

// LogSequenceDropped records a sequence discarded because the schedule was saturated.
func LogSequenceDropped(ctx context.Context, repo Repository, seq models.Sequence, activeCount int) error {
	return logSequence(ctx, repo, models.EventTypeSequenceDropped, seq.ID, seq.Command, seq.Tags(), activeCount)
}

func logSequence(ctx context.Context, repo Repository, eventType models.EventType, id string, command models.Command, tags []string, activeCount int) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if id == "" {
		return fmt.Errorf("sequence id is required")
	}

	payload, err := json.Marshal(models.SequencePayload{
		SequenceID:  id,
		Command:     command,
		Tags:        tags,
		ActiveCount: activeCount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sequence payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       eventType,
		EntityType: models.EntityTypeSequence,
		EntityID:   id,
		Payload:    payload,
	})
}

// FromNotification converts a sequencer notification into a storable event.
// spriteID names the target; sequencerID names the sequencer instance.
func FromNotification(n sequencer.Notification, spriteID, sequencerID string) (*models.Event, error) {
	event := &models.Event{
		Timestamp: n.Timestamp,
		Type:      n.Type,
	}

	var payload any
	switch n.Type {
	case models.EventTypeSequenceEnqueued, models.EventTypeSequenceDropped, models.EventTypeSequenceCompleted:
		event.EntityType = models.EntityTypeSequence
		event.EntityID = n.SequenceID
		payload = models.SequencePayload{
			SequenceID:  n.SequenceID,
			Command:     n.Command,
			Tags:        n.Tags,
			ActiveCount: n.ActiveCount,
		}

	case models.EventTypeStepApplied:
		if n.Step == nil {
			return nil, fmt.Errorf("step.applied notification without step")
		}
		event.EntityType = models.EntityTypeSprite
		event.EntityID = spriteID
		event.Metadata = map[string]string{
			"sequence_id": n.SequenceID,
			"command":     string(n.Command),
		}
		payload = models.StepAppliedPayload{
			Tag:      n.Step.Tag,
			Kind:     n.Step.Kind,
			Axis:     n.Step.Axis,
			Amount:   n.Step.Amount,
			Pose:     n.Step.Pose,
			Position: n.Position,
		}

	case models.EventTypeSequencerFailed:
		event.EntityType = models.EntityTypeSequencer
		event.EntityID = sequencerID
		msg := ""
		if n.Err != nil {
			msg = n.Err.Error()
		}
		payload = models.ErrorPayload{Error: msg, Context: spriteID}

	case models.EventTypeSequencerStarted, models.EventTypeSequencerStopped:
		event.EntityType = models.EntityTypeSequencer
		event.EntityID = sequencerID

	default:
		return nil, fmt.Errorf("unknown notification type %q", n.Type)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", n.Type, err)
		}
		event.Payload = data
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}
