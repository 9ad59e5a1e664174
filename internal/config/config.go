// Package config loads animseq configuration from files and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/animseq/internal/models"
)

// Config is the complete animseq configuration.
type Config struct {
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	Motion    MotionConfig    `mapstructure:"motion"`
	Sprite    SpriteConfig    `mapstructure:"sprite"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// SequencerConfig controls the tick loop.
type SequencerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	MaxSequences int           `mapstructure:"max_sequences"`
}

// MotionConfig sets the size of one move and one turn.
type MotionConfig struct {
	MoveRate float64 `mapstructure:"move_rate"`

	// RotateAngle is in degrees.
	RotateAngle float64 `mapstructure:"rotate_angle"`
}

// SpriteConfig configures the animated sprite.
type SpriteConfig struct {
	ID string `mapstructure:"id"`

	// FloorSize is the edge length of the square floor. Zero means unbounded.
	FloorSize float64 `mapstructure:"floor_size"`
}

// CatalogConfig locates command catalogues.
type CatalogConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// DatabaseConfig configures the event log.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// DaemonConfig configures the gRPC daemon.
type DaemonConfig struct {
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// LoggingConfig configures the base logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TUIConfig configures the interactive driver.
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Sequencer: SequencerConfig{
			TickInterval: 50 * time.Millisecond,
			MaxSequences: 4,
		},
		Motion: MotionConfig{
			MoveRate:    0.3,
			RotateAngle: 10,
		},
		Sprite: SpriteConfig{
			ID:        "sprite",
			FloorSize: 0,
		},
		Database: DatabaseConfig{
			Path:          "animseq.db",
			BusyTimeoutMs: 5000,
		},
		Daemon: DaemonConfig{
			Host: "127.0.0.1",
			Port: 50061,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 50,
				Burst:             100,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validation := &models.ValidationErrors{}

	if c.Sequencer.TickInterval <= 0 {
		validation.AddMessage("sequencer.tick_interval", "must be positive")
	}
	if c.Sequencer.MaxSequences < 1 {
		validation.AddMessage("sequencer.max_sequences", "must be at least 1")
	}
	if c.Motion.MoveRate <= 0 {
		validation.AddMessage("motion.move_rate", "must be positive")
	}
	if c.Motion.RotateAngle <= 0 || c.Motion.RotateAngle > 180 {
		validation.AddMessage("motion.rotate_angle", "must be in (0, 180] degrees")
	}
	if c.Sprite.FloorSize < 0 {
		validation.AddMessage("sprite.floor_size", "must not be negative")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		validation.AddMessage("database.path", "is required")
	}
	if c.Daemon.Port < 1 || c.Daemon.Port > 65535 {
		validation.AddMessage("daemon.port", fmt.Sprintf("%d is out of range", c.Daemon.Port))
	}
	if c.Daemon.RateLimit.Enabled && c.Daemon.RateLimit.RequestsPerSecond <= 0 {
		validation.AddMessage("daemon.rate_limit.requests_per_second", "must be positive when rate limiting is enabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		validation.AddMessage("logging.format", "must be console or json")
	}
	switch strings.ToLower(c.TUI.Theme) {
	case "default", "high-contrast":
	default:
		validation.AddMessage("tui.theme", "must be default or high-contrast")
	}

	return validation.Err()
}

// DaemonAddress returns host:port for the daemon.
func (c *Config) DaemonAddress() string {
	return fmt.Sprintf("%s:%d", c.Daemon.Host, c.Daemon.Port)
}
