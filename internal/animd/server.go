package animd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/opencode-ai/animseq/internal/events"
	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequencer"
	"github.com/opencode-ai/animseq/internal/sequences"
)

// Snapshotter exposes a sprite's observable state.
type Snapshotter interface {
	Snapshot() models.SpriteState
}

// CommandLister lists the commands a catalogue can build.
type CommandLister interface {
	Commands() []sequences.CommandInfo
}

// Server implements SequencerServer on top of a live sequencer.
type Server struct {
	logger    zerolog.Logger
	version   string
	sequencer *sequencer.Sequencer
	sprite    Snapshotter
	commands  CommandLister
	recorder  *events.Recorder
	startedAt time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithVersion sets the version reported by Ping.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithCommands sets the catalogue reported by ListCommands.
func WithCommands(commands CommandLister) ServerOption {
	return func(s *Server) {
		s.commands = commands
	}
}

// WithRecorder enables StreamEvents.
func WithRecorder(recorder *events.Recorder) ServerOption {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// NewServer creates a Server driving seq and reporting sprite.
func NewServer(logger zerolog.Logger, seq *sequencer.Sequencer, sprite Snapshotter, opts ...ServerOption) *Server {
	s := &Server{
		logger:    logger,
		version:   "dev",
		sequencer: seq,
		sprite:    sprite,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ SequencerServer = (*Server)(nil)

// Enqueue builds and enqueues the requested command.
func (s *Server) Enqueue(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in EnqueueRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	command := models.Command(strings.ToLower(strings.TrimSpace(string(in.Command))))
	if command == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}

	if err := s.sequencer.Err(); err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "sequencer halted: %v", err)
	}

	accepted, err := s.sequencer.EnqueueCommand(command)
	if err != nil {
		switch {
		case errors.Is(err, sequences.ErrUnknownCommand):
			return nil, status.Errorf(codes.NotFound, "unknown command %q", command)
		case errors.Is(err, sequencer.ErrNoCatalog):
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		default:
			return nil, status.Errorf(codes.InvalidArgument, "build %s: %v", command, err)
		}
	}

	stats := s.sequencer.Stats()
	s.logger.Debug().
		Str("command", string(command)).
		Bool("accepted", accepted).
		Int("active", stats.ActiveCount).
		Msg("enqueue request")

	return toStruct(EnqueueResponse{
		Accepted:    accepted,
		Command:     string(command),
		ActiveCount: stats.ActiveCount,
		QueueLength: stats.QueueLength,
	})
}

// GetState reports the sprite and sequencer state.
func (s *Server) GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.state())
}

func (s *Server) state() StateResponse {
	stats := s.sequencer.Stats()
	out := StateResponse{
		Sequencer: SequencerState{
			State:        s.sequencer.State().String(),
			Running:      stats.Running,
			Failed:       stats.Failed,
			MaxSequences: s.sequencer.Config().MaxSequences,
			QueueLength:  stats.QueueLength,
			ActiveCount:  stats.ActiveCount,
			Pending:      s.sequencer.Pending(),
			Enqueued:     stats.Enqueued,
			Dropped:      stats.Dropped,
			Applied:      stats.Applied,
			Completed:    stats.Completed,
			StartedAt:    stats.StartedAt,
			LastTickAt:   stats.LastTickAt,
		},
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	}
	if err := s.sequencer.Err(); err != nil {
		out.Sequencer.Error = err.Error()
	}
	if s.sprite != nil {
		out.Sprite = s.sprite.Snapshot()
	}
	return out
}

// ListCommands reports the compiled catalogue.
func (s *Server) ListCommands(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	if s.commands == nil {
		return nil, status.Error(codes.FailedPrecondition, "no command catalog loaded")
	}
	return toStruct(CommandsResponse{Commands: s.commands.Commands()})
}

// Ping returns the server time and sends the version as a header.
func (s *Server) Ping(ctx context.Context, req *emptypb.Empty) (*timestamppb.Timestamp, error) {
	_ = grpc.SetHeader(ctx, metadata.Pairs(VersionHeader, s.version))
	return timestamppb.Now(), nil
}

// StreamEvents sends every recorded event until the client goes away.
func (s *Server) StreamEvents(req *emptypb.Empty, stream grpc.ServerStream) error {
	if s.recorder == nil {
		return status.Error(codes.Unimplemented, "event streaming is not enabled")
	}

	ch, cancel := s.recorder.Subscribe(256)
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := toStruct(event)
			if err != nil {
				s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to encode event")
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
