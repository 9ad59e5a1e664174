package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ANIMSEQ_MOTION_MOVE_RATE.
const EnvPrefix = "ANIMSEQ"

// Loader reads configuration through viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader seeded with the defaults.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("sequencer.tick_interval", cfg.Sequencer.TickInterval)
	v.SetDefault("sequencer.max_sequences", cfg.Sequencer.MaxSequences)
	v.SetDefault("motion.move_rate", cfg.Motion.MoveRate)
	v.SetDefault("motion.rotate_angle", cfg.Motion.RotateAngle)
	v.SetDefault("sprite.id", cfg.Sprite.ID)
	v.SetDefault("sprite.floor_size", cfg.Sprite.FloorSize)
	v.SetDefault("catalog.dir", cfg.Catalog.Dir)
	v.SetDefault("catalog.watch", cfg.Catalog.Watch)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.busy_timeout_ms", cfg.Database.BusyTimeoutMs)
	v.SetDefault("daemon.host", cfg.Daemon.Host)
	v.SetDefault("daemon.port", cfg.Daemon.Port)
	v.SetDefault("daemon.rate_limit.enabled", cfg.Daemon.RateLimit.Enabled)
	v.SetDefault("daemon.rate_limit.requests_per_second", cfg.Daemon.RateLimit.RequestsPerSecond)
	v.SetDefault("daemon.rate_limit.burst", cfg.Daemon.RateLimit.Burst)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("tui.theme", cfg.TUI.Theme)
}

// Load reads animseq.yaml from the working directory or the user config
// directory if present, applies environment overrides and validates.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName("animseq")
	l.v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(dir, "animseq"))
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.decode()
}

// LoadFromFile reads the given YAML file, applies environment overrides and
// validates.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.decode()
}

// ConfigFileUsed returns the file the last load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Set overrides a single key, e.g. from a command-line flag.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
