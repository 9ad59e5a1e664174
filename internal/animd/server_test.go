package animd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/opencode-ai/animseq/internal/config"
	"github.com/opencode-ai/animseq/internal/events"
	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/sequencer"
	"github.com/opencode-ai/animseq/internal/sequences"
	"github.com/opencode-ai/animseq/internal/sprite"
)

type fixture struct {
	sprite    *sprite.Sprite
	sequencer *sequencer.Sequencer
	catalog   *sequences.Catalog
	recorder  *events.Recorder
	server    *Server
}

func newFixture(t *testing.T, maxSequences int) *fixture {
	t.Helper()

	catalog, err := sequences.Builtin(sequences.DefaultUnits())
	require.NoError(t, err)

	target := sprite.New(sprite.WithID("hero"))
	cfg := sequencer.DefaultConfig()
	cfg.MaxSequences = maxSequences
	seq := sequencer.New(cfg, target, sequencer.WithCatalog(catalog))
	recorder := events.NewRecorder(nil, events.NewRing(32), "hero", "main")

	return &fixture{
		sprite:    target,
		sequencer: seq,
		catalog:   catalog,
		recorder:  recorder,
		server: NewServer(zerolog.Nop(), seq, target,
			WithVersion("test-version"),
			WithCommands(catalog),
			WithRecorder(recorder),
		),
	}
}

func enqueue(t *testing.T, server *Server, command string) (*EnqueueResponse, error) {
	t.Helper()
	req, err := toStruct(EnqueueRequest{Command: models.Command(command)})
	require.NoError(t, err)

	out, err := server.Enqueue(context.Background(), req)
	if err != nil {
		return nil, err
	}
	var resp EnqueueResponse
	require.NoError(t, fromStruct(out, &resp))
	return &resp, nil
}

func TestServerEnqueue(t *testing.T) {
	f := newFixture(t, 1)

	resp, err := enqueue(t, f.server, " Forward ")
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "forward", resp.Command)
	assert.Equal(t, 1, resp.ActiveCount)
	assert.Equal(t, 3, resp.QueueLength)

	resp, err = enqueue(t, f.server, "punch")
	require.NoError(t, err)
	assert.False(t, resp.Accepted, "saturated schedule drops without an error")
}

func TestServerEnqueueErrors(t *testing.T) {
	f := newFixture(t, 4)

	_, err := enqueue(t, f.server, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = enqueue(t, f.server, "moonwalk")
	assert.Equal(t, codes.NotFound, status.Code(err))

	require.True(t, f.sequencer.Enqueue(mustBuild(t, f.catalog, models.CommandForward)))
	f.sprite.Dispose()
	require.Error(t, f.sequencer.Tick())

	_, err = enqueue(t, f.server, "forward")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestServerGetState(t *testing.T) {
	f := newFixture(t, 4)
	_, err := enqueue(t, f.server, "forward")
	require.NoError(t, err)
	require.NoError(t, f.sequencer.Tick())

	out, err := f.server.GetState(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	var state StateResponse
	require.NoError(t, fromStruct(out, &state))
	assert.Equal(t, "hero", state.Sprite.ID)
	assert.Equal(t, "walk1", state.Sprite.Pose)
	assert.Equal(t, []string{"walk2", "stand"}, state.Sequencer.Pending)
	assert.Equal(t, "running", state.Sequencer.State)
	assert.Equal(t, 4, state.Sequencer.MaxSequences)
	assert.Equal(t, int64(1), state.Sequencer.Applied)
}

func TestServerListCommands(t *testing.T) {
	f := newFixture(t, 4)

	out, err := f.server.ListCommands(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	var resp CommandsResponse
	require.NoError(t, fromStruct(out, &resp))
	require.Len(t, resp.Commands, len(models.Commands))
	assert.Equal(t, models.CommandForward, resp.Commands[0].Name)

	bare := NewServer(zerolog.Nop(), f.sequencer, f.sprite)
	_, err = bare.ListCommands(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestServerPing(t *testing.T) {
	f := newFixture(t, 4)

	ts, err := f.server.Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts.AsTime(), time.Minute)
}

func mustBuild(t *testing.T, catalog *sequences.Catalog, command models.Command) models.Sequence {
	t.Helper()
	seq, err := catalog.Build(command)
	require.NoError(t, err)
	return seq
}

// startBufconn serves f over an in-memory listener and returns a client.
func startBufconn(t *testing.T, f *fixture, cfg *config.Config) (*Client, *Daemon) {
	t.Helper()

	daemon, err := NewDaemon(cfg, f.server, zerolog.Nop())
	require.NoError(t, err)

	listener := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Serve(ctx, listener) }()

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		cancel()
		<-done
	})
	return client, daemon
}

func TestClientRoundTrip(t *testing.T) {
	f := newFixture(t, 4)
	cfg := config.DefaultConfig()
	cfg.Daemon.RateLimit.Enabled = false
	client, _ := startBufconn(t, f, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	version, serverTime, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-version", version)
	assert.False(t, serverTime.IsZero())

	resp, err := client.Enqueue(ctx, models.CommandPunch)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	state, err := client.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Sequencer.ActiveCount)

	commands, err := client.ListCommands(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, commands.Commands)

	_, err = client.Enqueue(ctx, "moonwalk")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestClientStreamEvents(t *testing.T) {
	f := newFixture(t, 4)
	cfg := config.DefaultConfig()
	cfg.Daemon.RateLimit.Enabled = false
	client, _ := startBufconn(t, f, cfg)

	recordCtx, stopRecording := context.WithCancel(context.Background())
	defer stopRecording()
	go f.recorder.Run(recordCtx, f.sequencer.Notifications())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *models.Event, 8)
	go func() {
		_ = client.StreamEvents(ctx, func(event *models.Event) error {
			received <- event
			return nil
		})
	}()

	// The subscription is registered asynchronously; keep enqueueing until an
	// event arrives.
	require.Eventually(t, func() bool {
		f.sequencer.Enqueue(mustBuild(t, f.catalog, models.CommandToggleActive))
		select {
		case event := <-received:
			return event.Type == models.EventTypeSequenceEnqueued || event.Type == models.EventTypeSequenceDropped
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}

func TestDaemonRateLimitsRequests(t *testing.T) {
	f := newFixture(t, 4)
	cfg := config.DefaultConfig()
	cfg.Daemon.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1}
	client, daemon := startBufconn(t, f, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := client.Ping(ctx)
	require.NoError(t, err)

	_, err = client.GetState(ctx)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.NotNil(t, daemon.RateLimiter().GlobalStats())
}

func TestNewDaemonRequiresConfig(t *testing.T) {
	_, err := NewDaemon(nil, &Server{}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewDaemon(config.DefaultConfig(), nil, zerolog.Nop())
	assert.Error(t, err)
}
