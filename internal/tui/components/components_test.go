package components

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequencer"
	"github.com/opencode-ai/animseq/internal/tui/styles"
)

func TestEmptyStateRender(t *testing.T) {
	styleSet := styles.DefaultStyles()

	t.Run("title only", func(t *testing.T) {
		result := EmptyState{Title: "Nothing here"}.Render(styleSet)
		if !strings.Contains(result, "Nothing here") {
			t.Errorf("Expected title in output, got: %s", result)
		}
		if strings.Contains(result, "Try:") {
			t.Errorf("Did not expect hints header, got: %s", result)
		}
	})

	t.Run("with hints", func(t *testing.T) {
		result := EmptyActivity().Render(styleSet)
		if !strings.Contains(result, "Try:") || !strings.Contains(result, "walk forward") {
			t.Errorf("Expected key hints in output, got: %s", result)
		}
	})

	t.Run("compact", func(t *testing.T) {
		result := EmptyActivity().RenderCompact(styleSet)
		if !strings.Contains(result, "Try: w") {
			t.Errorf("Expected first hint in compact output, got: %s", result)
		}
	})
}

func TestFloorCell(t *testing.T) {
	floor := DefaultFloor()

	col, row, ok := floor.Cell(models.Vec3{})
	if !ok || col != 10 || row != 5 {
		t.Fatalf("origin should be centred, got (%d,%d,%v)", col, row, ok)
	}

	col, row, ok = floor.Cell(models.Vec3{X: 3, Z: 3})
	if !ok || col != 20 || row != 0 {
		t.Fatalf("far corner should be top-right, got (%d,%d,%v)", col, row, ok)
	}

	if _, _, ok = floor.Cell(models.Vec3{X: 10}); ok {
		t.Fatal("expected off-grid position")
	}
}

func TestHeading(t *testing.T) {
	tests := []struct {
		yaw  float32
		want string
	}{
		{0, "^"},
		{math.Pi / 2, ">"},
		{-math.Pi / 2, "<"},
		{math.Pi, "v"},
	}
	for _, tt := range tests {
		if got := Heading(tt.yaw); got != tt.want {
			t.Errorf("Heading(%v) = %q, want %q", tt.yaw, got, tt.want)
		}
	}
}

func TestFloorRenderDrawsSprite(t *testing.T) {
	floor := Floor{Cols: 3, Rows: 3, Extent: 1}
	result := floor.Render(styles.DefaultStyles(), models.SpriteState{Active: true})

	lines := strings.Split(result, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "^") {
		t.Errorf("expected sprite in middle row, got %q", lines[1])
	}

	hidden := floor.Render(styles.DefaultStyles(), models.SpriteState{})
	if !strings.Contains(hidden, "o") {
		t.Errorf("expected hidden glyph, got %q", hidden)
	}
}

func TestRenderEventLog(t *testing.T) {
	styleSet := styles.DefaultStyles()

	if result := RenderEventLog(styleSet, nil, 5); !strings.Contains(result, "No activity yet") {
		t.Errorf("expected empty state, got %s", result)
	}

	dropped, _ := json.Marshal(models.SequencePayload{Command: models.CommandPunch})
	step, _ := json.Marshal(models.StepAppliedPayload{Tag: "walk1", Kind: models.StepKindTranslate})
	events := []*models.Event{
		{Timestamp: time.Now(), Type: models.EventTypeSequencerStarted},
		{Timestamp: time.Now(), Type: models.EventTypeStepApplied, Payload: step},
		{Timestamp: time.Now(), Type: models.EventTypeSequenceDropped, Payload: dropped},
	}

	result := RenderEventLog(styleSet, events, 2)
	if strings.Contains(result, "sequencer.started") {
		t.Errorf("expected oldest event to be cut, got %s", result)
	}
	if !strings.Contains(result, "step walk1") || !strings.Contains(result, "schedule full") {
		t.Errorf("expected step and drop lines, got %s", result)
	}
}

func TestSequencerBadge(t *testing.T) {
	styleSet := styles.DefaultStyles()

	if got := RenderSequencerBadge(styleSet, sequencer.StateRunning, false); !strings.Contains(got, "Animating") {
		t.Errorf("unexpected running badge %q", got)
	}
	if got := RenderSequencerBadge(styleSet, sequencer.StateRunning, true); !strings.Contains(got, "Halted") {
		t.Errorf("unexpected failed badge %q", got)
	}
	if got := RenderActiveBadge(styleSet, false); !strings.Contains(got, "Hidden") {
		t.Errorf("unexpected inactive badge %q", got)
	}
}
