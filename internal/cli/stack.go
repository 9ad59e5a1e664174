package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/animseq/internal/config"
	"github.com/opencode-ai/animseq/internal/db"
	"github.com/opencode-ai/animseq/internal/events"
	"github.com/opencode-ai/animseq/internal/logging"
	"github.com/opencode-ai/animseq/internal/sequencer"
	"github.com/opencode-ai/animseq/internal/sequences"
	"github.com/opencode-ai/animseq/internal/sprite"
)

const recentEvents = 64

// stack is one sprite, its sequencer and the supporting services.
type stack struct {
	cfg       *config.Config
	sprite    *sprite.Sprite
	catalog   *sequences.Live
	sequencer *sequencer.Sequencer
	recorder  *events.Recorder
	database  *db.DB
	logger    zerolog.Logger
	halted    chan error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type stackOptions struct {
	// persist records events in the configured database.
	persist bool
}

func buildStack(cfg *config.Config, opts stackOptions) (*stack, error) {
	logger := logging.Component("runtime")
	units := sequences.UnitsFromDegrees(cfg.Motion.MoveRate, cfg.Motion.RotateAngle)

	catalog, err := sequences.LoadCatalog(cfg.Catalog.Dir, projectDir(), units)
	if err != nil {
		return nil, fmt.Errorf("failed to load command catalog: %w", err)
	}
	live := sequences.NewLive(catalog)

	hero := sprite.New(
		sprite.WithID(cfg.Sprite.ID),
		sprite.WithFloorSize(float32(cfg.Sprite.FloorSize)),
	)

	rt := &stack{
		cfg:     cfg,
		sprite:  hero,
		catalog: live,
		logger:  logger,
		halted:  make(chan error, 1),
	}

	seqCfg := sequencer.DefaultConfig()
	seqCfg.TickInterval = cfg.Sequencer.TickInterval
	seqCfg.MaxSequences = cfg.Sequencer.MaxSequences
	rt.sequencer = sequencer.New(seqCfg, hero,
		sequencer.WithCatalog(live),
		sequencer.WithLogger(logging.Component("sequencer")),
		sequencer.WithErrorHandler(rt.onHalt),
	)

	var repo events.Repository
	if opts.persist {
		database, err := openDatabase(cfg)
		if err != nil {
			return nil, err
		}
		rt.database = database
		repo = db.NewEventRepository(database)
	}
	rt.recorder = events.NewRecorder(repo, events.NewRing(recentEvents), hero.ID(), uuid.New().String())

	return rt, nil
}

// start launches the recorder, the tick loop and, when enabled, the catalog
// watcher. Stop them with stop.
func (rt *stack) start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.recorder.Run(ctx, rt.sequencer.Notifications())
	}()

	if rt.cfg.Catalog.Watch {
		dir := rt.watchDir()
		units := sequences.UnitsFromDegrees(rt.cfg.Motion.MoveRate, rt.cfg.Motion.RotateAngle)
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			err := sequences.Watch(ctx, dir, projectDir(), units, rt.catalog, logging.Component("catalog"))
			if err != nil {
				rt.logger.Warn().Err(err).Str("dir", dir).Msg("catalog watch disabled")
			}
		}()
	}

	if err := rt.sequencer.Start(ctx); err != nil {
		cancel()
		rt.wg.Wait()
		return err
	}
	return nil
}

func (rt *stack) onHalt(err error) {
	select {
	case rt.halted <- err:
	default:
	}
}

// Halted delivers the fatal error that stopped the sequencer.
func (rt *stack) Halted() <-chan error {
	return rt.halted
}

// serveUntilHalted runs serve until it returns or the sequencer halts. On a
// halt it cancels serve, waits for it and returns the sequencer's error.
func (rt *stack) serveUntilHalted(ctx context.Context, serve func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()

	select {
	case err := <-done:
		return err
	case err := <-rt.halted:
		cancel()
		<-done
		return fmt.Errorf("sequencer halted: %w", err)
	}
}

// stop halts the tick loop and waits for the recorder to flush.
func (rt *stack) stop() {
	if err := rt.sequencer.Stop(); err != nil {
		rt.logger.Debug().Err(err).Msg("sequencer stop")
	}
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.wg.Wait()
}

func (rt *stack) Close() error {
	if rt.database == nil {
		return nil
	}
	return rt.database.Close()
}

func (rt *stack) watchDir() string {
	if rt.cfg.Catalog.Dir != "" {
		return rt.cfg.Catalog.Dir
	}
	return filepath.Join(projectDir(), ".animseq", "commands")
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	dbCfg := db.DefaultConfig()
	if cfg.Database.Path != "" {
		dbCfg.Path = cfg.Database.Path
	}
	if cfg.Database.BusyTimeoutMs > 0 {
		dbCfg.BusyTimeoutMs = cfg.Database.BusyTimeoutMs
	}

	database, err := db.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

func projectDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}
