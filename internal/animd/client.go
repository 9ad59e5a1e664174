package animd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/opencode-ai/animseq/internal/models"
)

// Client talks to a running daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon at target. Without options the connection is
// plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Enqueue asks the daemon to enqueue command.
func (c *Client) Enqueue(ctx context.Context, command models.Command) (*EnqueueResponse, error) {
	req, err := toStruct(EnqueueRequest{Command: command})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodEnqueue, req, out); err != nil {
		return nil, err
	}

	var resp EnqueueResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetState fetches the sprite and sequencer state.
func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodGetState, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	var resp StateResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCommands fetches the daemon's catalogue.
func (c *Client) ListCommands(ctx context.Context) (*CommandsResponse, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodListCommands, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	var resp CommandsResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping returns the daemon version and clock.
func (c *Client) Ping(ctx context.Context) (string, time.Time, error) {
	var header metadata.MD
	out := new(timestamppb.Timestamp)
	if err := c.conn.Invoke(ctx, MethodPing, &emptypb.Empty{}, out, grpc.Header(&header)); err != nil {
		return "", time.Time{}, err
	}

	version := ""
	if values := header.Get(VersionHeader); len(values) > 0 {
		version = values[0]
	}
	return version, out.AsTime(), nil
}

// StreamEvents calls fn for every event the daemon records until ctx ends,
// the stream closes or fn returns an error.
func (c *Client) StreamEvents(ctx context.Context, fn func(*models.Event) error) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], MethodStreamEvents)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var event models.Event
		if err := fromStruct(msg, &event); err != nil {
			return err
		}
		if err := fn(&event); err != nil {
			return err
		}
	}
}
