package animd

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequences"
)

// EnqueueRequest asks the daemon to enqueue a command.
type EnqueueRequest struct {
	Command models.Command `json:"command"`
}

// EnqueueResponse reports whether the command's sequence was accepted.
// A saturated schedule yields Accepted=false, not an error.
type EnqueueResponse struct {
	Accepted    bool   `json:"accepted"`
	Command     string `json:"command"`
	ActiveCount int    `json:"active_count"`
	QueueLength int    `json:"queue_length"`
}

// SequencerState summarizes the sequencer.
type SequencerState struct {
	State        string     `json:"state"`
	Running      bool       `json:"running"`
	Failed       bool       `json:"failed"`
	Error        string     `json:"error,omitempty"`
	MaxSequences int        `json:"max_sequences"`
	QueueLength  int        `json:"queue_length"`
	ActiveCount  int        `json:"active_count"`
	Pending      []string   `json:"pending"`
	Enqueued     int64      `json:"enqueued"`
	Dropped      int64      `json:"dropped"`
	Applied      int64      `json:"applied"`
	Completed    int64      `json:"completed"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	LastTickAt   *time.Time `json:"last_tick_at,omitempty"`
}

// StateResponse is the GetState result.
type StateResponse struct {
	Sprite    models.SpriteState `json:"sprite"`
	Sequencer SequencerState     `json:"sequencer"`
	Uptime    string             `json:"uptime"`
}

// CommandsResponse is the ListCommands result.
type CommandsResponse struct {
	Commands []sequences.CommandInfo `json:"commands"`
}

// toStruct encodes v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return out, nil
}

// fromStruct decodes s into v through its JSON form.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("decode %T: empty message", v)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
