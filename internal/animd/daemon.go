package animd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/opencode-ai/animseq/internal/config"
)

// Options configure the daemon runtime.
type Options struct {
	Hostname string
	Port     int
}

// Daemon serves a Server over gRPC until its context ends.
type Daemon struct {
	logger zerolog.Logger
	opts   Options

	server     *Server
	limiter    *RateLimiter
	grpcServer *grpc.Server
}

// NewDaemon wraps server in a gRPC server configured from cfg.
func NewDaemon(cfg *config.Config, server *Server, logger zerolog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if server == nil {
		return nil, errors.New("server is required")
	}

	opts := Options{Hostname: cfg.Daemon.Host, Port: cfg.Daemon.Port}
	if opts.Hostname == "" {
		opts.Hostname = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}

	limiterOpts := []RateLimiterOption{WithEnabled(cfg.Daemon.RateLimit.Enabled)}
	if rl := cfg.Daemon.RateLimit; rl.Enabled && rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = rl.RequestsPerSecond
		}
		limiterOpts = append(limiterOpts, WithGlobalLimit(RateLimitConfig{
			RequestsPerSecond: float64(rl.RequestsPerSecond),
			BurstSize:         burst,
		}))
	}
	limiter := NewRateLimiter(limiterOpts...)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(limiter.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(limiter.StreamServerInterceptor()),
	)
	RegisterSequencerServer(grpcServer, server)

	return &Daemon{
		logger:     logger,
		opts:       opts,
		server:     server,
		limiter:    limiter,
		grpcServer: grpcServer,
	}, nil
}

// Run listens on the configured address and serves until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	bindAddr := d.bindAddr()
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", bindAddr, err)
	}
	return d.Serve(ctx, listener)
}

// Serve serves on listener until ctx is canceled.
func (d *Daemon) Serve(ctx context.Context, listener net.Listener) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	d.logger.Info().
		Str("bind", listener.Addr().String()).
		Str("version", d.server.version).
		Bool("rate_limit", d.limiter.IsEnabled()).
		Msg("animd gRPC server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := d.grpcServer.Serve(listener); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		d.logger.Info().Msg("animd shutting down...")
		d.grpcServer.GracefulStop()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
	}

	d.logger.Info().Msg("animd shutdown complete")
	return nil
}

func (d *Daemon) bindAddr() string {
	return net.JoinHostPort(d.opts.Hostname, strconv.Itoa(d.opts.Port))
}

// Server returns the service implementation.
func (d *Daemon) Server() *Server {
	return d.server
}

// RateLimiter returns the limiter guarding the service.
func (d *Daemon) RateLimiter() *RateLimiter {
	return d.limiter
}
