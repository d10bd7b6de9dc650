// Package db provides SQLite persistence for loop collections and their
// resolution history.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tOgg1/loopline/internal/logging"
)

// DB wraps a SQLite connection pool.
type DB struct {
	*sql.DB
	path string
}

// Config holds database connection settings.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string

	// BusyTimeoutMs is how long SQLite waits on a locked database.
	BusyTimeoutMs int
}

// Open opens (or creates) the database at cfg.Path.
func Open(cfg Config) (*DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", cfg.Path, busy)

	return open(dsn, cfg.Path)
}

// OpenInMemory opens a private in-memory database, mainly for tests.
func OpenInMemory() (*DB, error) {
	database, err := open(":memory:?_pragma=foreign_keys(ON)", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each connection to :memory: is a separate database.
	database.SetMaxOpenConns(1)
	return database, nil
}

func open(dsn, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log := logging.Component("db")
	log.Debug().Str("path", path).Msg("database opened")
	return &DB{DB: conn, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Transaction runs fn inside a transaction, committing when fn returns nil.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// migrations are applied in order; the index+1 is the schema version.
var migrations = []string{
	`CREATE TABLE media (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		timeline_length REAL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE loops (
		media_id TEXT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		start_time REAL,
		end_time REAL,
		color TEXT NOT NULL DEFAULT '',
		playback_speed REAL NOT NULL DEFAULT 0,
		repeat_count INTEGER NOT NULL DEFAULT 0,
		play_count INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (media_id, id)
	);
	CREATE INDEX loops_media_position_idx ON loops(media_id, position);`,

	`CREATE TABLE resolutions (
		id TEXT PRIMARY KEY,
		media_id TEXT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		resolved_count INTEGER NOT NULL,
		removed_count INTEGER NOT NULL
	);
	CREATE TABLE resolution_modifications (
		resolution_id TEXT NOT NULL REFERENCES resolutions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		loop_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		before_json TEXT NOT NULL,
		after_json TEXT,
		PRIMARY KEY (resolution_id, seq)
	);
	CREATE INDEX resolutions_media_idx ON resolutions(media_id, created_at);`,
}

// SchemaVersion returns the latest schema version known to this binary.
func SchemaVersion() int {
	return len(migrations)
}

// MigrateUp applies pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for i := current; i < len(migrations); i++ {
		version := i + 1
		err := db.Transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
				version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return applied, err
		}
		applied++
	}

	if applied > 0 {
		log := logging.Component("db")
		log.Debug().Int("applied", applied).Int("version", len(migrations)).Msg("migrations applied")
	}
	return applied, nil
}
