// Package db implements the sqlite-backed conversation store for flowtx.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store errors.
var (
	// ErrConversationNotFound is returned when a conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrClosed is returned when the database handle has been closed.
	ErrClosed = errors.New("database is closed")
)

// DB wraps a sqlite database handle with flowtx schema management.
type DB struct {
	conn *sql.DB
	path string
}

// OpenOptions controls how a database is opened.
type OpenOptions struct {
	// CreateIfNotExists creates the database file when missing.
	CreateIfNotExists bool
	// InitSchema applies migrations after opening.
	InitSchema bool
	// ReadOnly opens the database in read-only mode.
	ReadOnly bool
}

// Open opens (creating if necessary) the database at path and applies migrations.
func Open(path string) (*DB, error) {
	return OpenWithOptions(path, OpenOptions{
		CreateIfNotExists: true,
		InitSchema:        true,
	})
}

// OpenWithOptions opens the database at path with explicit options.
func OpenWithOptions(path string, opts OpenOptions) (*DB, error) {
	if path != ":memory:" {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			return nil, fmt.Errorf("database path %s is a directory", path)
		}
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("stat database %s: %w", path, err)
			}
			if !opts.CreateIfNotExists {
				return nil, fmt.Errorf("database %s does not exist", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
				return nil, fmt.Errorf("creating database dir: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dsn(path, opts.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if path == ":memory:" {
		// A pooled second connection would see a different empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging database %s: %w", path, err)
	}

	db := &DB{conn: conn, path: path}
	if opts.InitSchema {
		if err := db.ApplyMigrations(context.Background()); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenAndMigrate opens the database and ensures the schema is current.
func OpenAndMigrate(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.ValidateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenProjectDB opens the per-project store at <projectDir>/.flowtx/state.db.
func OpenProjectDB(projectDir string) (*DB, error) {
	return Open(filepath.Join(projectDir, ".flowtx", "state.db"))
}

// OpenUserDB opens the per-user store at ~/.flowtx/history.db.
func OpenUserDB() (*DB, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home dir: %w", err)
	}
	return Open(filepath.Join(home, ".flowtx", "history.db"))
}

// dsn builds a modernc sqlite DSN. WAL keeps reader connections able to
// observe committed state while a unit of work holds a write transaction.
func dsn(path string, readOnly bool) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	if readOnly {
		q.Set("mode", "ro")
	}
	return "file:" + path + "?" + q.Encode()
}

// Path returns the filesystem path of the database.
func (d *DB) Path() string {
	return d.path
}

// InMemory reports whether the store is backed by an in-memory database.
// In-memory stores run on a single pooled connection.
func (d *DB) InMemory() bool {
	return d.path == ":memory:"
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// Exec runs a statement against the store.
func (d *DB) Exec(query string, args ...any) (sql.Result, error) {
	if d.conn == nil {
		return nil, ErrClosed
	}
	return d.conn.Exec(query, args...)
}

// Query runs a query against the store.
func (d *DB) Query(query string, args ...any) (*sql.Rows, error) {
	if d.conn == nil {
		return nil, ErrClosed
	}
	return d.conn.Query(query, args...)
}

// QueryRow runs a single-row query against the store.
func (d *DB) QueryRow(query string, args ...any) *sql.Row {
	return d.conn.QueryRow(query, args...)
}

// Begin starts a new transaction on the store.
func (d *DB) Begin(ctx context.Context) (*sql.Tx, error) {
	if d.conn == nil {
		return nil, ErrClosed
	}
	return d.conn.BeginTx(ctx, nil)
}

// Transaction runs fn in a transaction, committing on nil error and rolling
// back on error or panic.
func (d *DB) Transaction(fn func(tx *sql.Tx) error) error {
	if d.conn == nil {
		return ErrClosed
	}
	tx, err := d.conn.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
