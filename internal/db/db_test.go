package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpenCreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file to exist: %v", err)
	}
	version, err := d.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Fatalf("schema version = %d, want %d", version, SchemaVersion)
	}
	if err := d.ValidateSchema(); err != nil {
		t.Fatalf("ValidateSchema() error = %v", err)
	}
}

func TestOpenWithOptionsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := OpenWithOptions(path, OpenOptions{})
	if err == nil {
		t.Fatalf("expected error for missing database without create")
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error when path is a directory")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopening error = %v", err)
	}
	defer second.Close()
	if err := second.ValidateSchema(); err != nil {
		t.Fatalf("ValidateSchema() after reopen error = %v", err)
	}
}

func TestValidateSchemaMismatch(t *testing.T) {
	d := newTestDB(t)
	if _, err := d.Exec(`DELETE FROM schema_migrations WHERE version = ?`, SchemaVersion); err != nil {
		t.Fatalf("removing migration record: %v", err)
	}
	if err := d.ValidateSchema(); err == nil {
		t.Fatalf("expected schema version mismatch")
	}
}

func TestClosedHandleErrors(t *testing.T) {
	d := newTestDB(t)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := d.Exec(`SELECT 1`); !errors.Is(err, ErrClosed) {
		t.Fatalf("Exec() error = %v, want ErrClosed", err)
	}
	if _, err := d.Query(`SELECT 1`); !errors.Is(err, ErrClosed) {
		t.Fatalf("Query() error = %v, want ErrClosed", err)
	}
	if _, err := d.Begin(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Begin() error = %v, want ErrClosed", err)
	}
	if err := d.Transaction(func(*sql.Tx) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("Transaction() error = %v, want ErrClosed", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	d := newTestDB(t)
	if _, err := d.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	err := d.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (id) VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}

	boom := errors.New("boom")
	err = d.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (id) VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("counting items: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to discard the second insert, got %d rows", count)
	}
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	d := newTestDB(t)
	if _, err := d.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected the panic to propagate")
			}
		}()
		_ = d.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO items (id) VALUES (1)`); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("counting items: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic to roll back, got %d rows", count)
	}
}

func TestReadOnlyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	rw, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ro, err := OpenWithOptions(path, OpenOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("read-only open error = %v", err)
	}
	defer ro.Close()

	if _, err := ro.Exec(`INSERT INTO conversations (id, flow_id, started_at, last_active_at, outcome) VALUES ('x', 'f', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z', '')`); err == nil {
		t.Fatalf("expected write to fail on a read-only handle")
	}
}
