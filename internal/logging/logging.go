// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger initialization.
type Options struct {
	// Level is a zerolog level name ("debug", "info", ...). Default: info.
	Level string

	// Format is "console" or "json". Default: console.
	Format string

	// Output receives log lines. Default: os.Stderr.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Init replaces the base logger. It is safe to call more than once.
func Init(opts Options) error {
	level := zerolog.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
		if err != nil {
			return err
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	mu.Lock()
	logger = zerolog.New(out).With().Timestamp().Logger().Level(level)
	mu.Unlock()
	return nil
}

// Logger returns the base logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}
