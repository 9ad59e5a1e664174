package components

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/tui/styles"
)

// RenderEventLog renders the newest events last, at most limit lines.
func RenderEventLog(styleSet styles.Styles, events []*models.Event, limit int) string {
	if len(events) == 0 {
		return EmptyActivity().Render(styleSet)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		ts := styleSet.Muted.Render(event.Timestamp.Local().Format("15:04:05.000"))
		lines = append(lines, fmt.Sprintf("%s %s", ts, DescribeEvent(styleSet, event)))
	}
	return strings.Join(lines, "\n")
}

// DescribeEvent renders a one-line summary of an event.
func DescribeEvent(styleSet styles.Styles, event *models.Event) string {
	switch event.Type {
	case models.EventTypeSequenceEnqueued, models.EventTypeSequenceCompleted, models.EventTypeSequenceDropped:
		var payload models.SequencePayload
		_ = json.Unmarshal(event.Payload, &payload)
		label := fmt.Sprintf("%s %s", event.Type, payload.Command)
		if event.Type == models.EventTypeSequenceDropped {
			return styleSet.Warning.Render(label + " (schedule full)")
		}
		return styleSet.Text.Render(label)

	case models.EventTypeStepApplied:
		var payload models.StepAppliedPayload
		_ = json.Unmarshal(event.Payload, &payload)
		return styleSet.Info.Render(fmt.Sprintf("step %s (%s)", payload.Tag, payload.Kind))

	case models.EventTypeSequencerFailed:
		var payload models.ErrorPayload
		_ = json.Unmarshal(event.Payload, &payload)
		return styleSet.Error.Render("halted: " + payload.Error)

	default:
		return styleSet.Muted.Render(string(event.Type))
	}
}
