// Package db provides SQLite storage for the animseq activity log.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/opencode-ai/animseq/internal/logging"
)

// Config contains database configuration.
type Config struct {
	// Path is the SQLite file. ":memory:" opens a private in-memory database.
	Path string

	// BusyTimeoutMs is how long a writer waits on a locked database.
	// Default: 5000.
	BusyTimeoutMs int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Path:          "animseq.db",
		BusyTimeoutMs: 5000,
	}
}

// DB wraps a SQLite connection pool.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_events",
		sql: `
			CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				type TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				payload_json TEXT,
				metadata_json TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);
			CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
			CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp, id);
		`,
	},
}

// Open opens (creating if needed) the database described by cfg.
func Open(cfg Config) (*DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.BusyTimeoutMs <= 0 {
		cfg.BusyTimeoutMs = DefaultConfig().BusyTimeoutMs
	}

	dsn := cfg.Path
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, cfg.BusyTimeoutMs)
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Path == ":memory:" {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{
		DB:     sqlDB,
		path:   cfg.Path,
		logger: logging.Component("db"),
	}, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*DB, error) {
	return Open(Config{Path: ":memory:"})
}

// Path returns the database location.
func (db *DB) Path() string {
	return db.path
}

// MigrateUp applies pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit migration %d: %w", m.version, err)
		}

		db.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("migration applied")
		applied++
	}

	return applied, nil
}

// Migrate applies pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.MigrateUp(ctx)
	return err
}
