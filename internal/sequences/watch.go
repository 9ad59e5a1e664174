package sequences

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/animseq/internal/models"
)

const reloadDebounce = 100 * time.Millisecond

// Live holds the current catalog and can be swapped while sequencers use it.
type Live struct {
	current atomic.Pointer[Catalog]
}

// NewLive wraps an initial catalog.
func NewLive(c *Catalog) *Live {
	l := &Live{}
	l.current.Store(c)
	return l
}

// Load returns the current catalog.
func (l *Live) Load() *Catalog {
	return l.current.Load()
}

// Store swaps in a new catalog.
func (l *Live) Store(c *Catalog) {
	if c != nil {
		l.current.Store(c)
	}
}

// Build builds command from the current catalog.
func (l *Live) Build(command models.Command) (models.Sequence, error) {
	c := l.current.Load()
	if c == nil {
		return models.Sequence{}, errors.New("catalog not loaded")
	}
	return c.Build(command)
}

// Commands lists the commands of the current catalog.
func (l *Live) Commands() []CommandInfo {
	c := l.current.Load()
	if c == nil {
		return nil
	}
	return c.Commands()
}

// Watcher reports catalogue file changes in a directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

// NewWatcher watches the given directories for catalogue file changes.
func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	// Changes are reported once the directory has been quiet for reloadDebounce.
	pending := make(map[string]struct{})
	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(reloadDebounce)
			fire = timer.C
		case <-fire:
			fire = nil
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			clear(pending)
			for _, name := range names {
				select {
				case w.Events <- name:
				case <-w.closeCh:
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// Watch recompiles the catalog whenever a file in dir changes and stores it
// in live. A catalogue that fails to compile is logged and the previous one
// kept. Watch blocks until ctx is done.
func Watch(ctx context.Context, dir, projectDir string, units Units, live *Live, logger zerolog.Logger) error {
	watcher, err := NewWatcher(dir)
	if err != nil {
		return err
	}
	defer watcher.Close()
	return reloadOnChange(ctx, watcher, dir, projectDir, units, live, logger)
}

func reloadOnChange(ctx context.Context, watcher *Watcher, dir, projectDir string, units Units, live *Live, logger zerolog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			catalog, err := LoadCatalog(dir, projectDir, units)
			if err != nil {
				logger.Warn().Err(err).Str("file", name).Msg("catalog reload failed, keeping previous")
				continue
			}
			live.Store(catalog)
			logger.Info().Str("file", name).Int("commands", len(catalog.Commands())).Msg("catalog reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("catalog watcher error")
		}
	}
}
