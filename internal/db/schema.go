package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version for the conversation store.
const SchemaVersion = 2

// migration is a single schema step applied inside a transaction.
type migration struct {
	version int
	apply   func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, apply: migrateV1},
	{version: 2, apply: migrateV2},
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			last_active_at TEXT NOT NULL,
			ended_at TEXT,
			outcome TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_flow
			ON conversations(flow_id);
		CREATE INDEX IF NOT EXISTS idx_conversations_active
			ON conversations(last_active_at) WHERE ended_at IS NULL;
	`)
	return err
}

func migrateV2(ctx context.Context, tx *sql.Tx) error {
	return addColumnIfMissing(ctx, tx, "conversations", "end_state", "TEXT")
}

// ApplyMigrations brings the schema to the current version. Idempotent.
func (d *DB) ApplyMigrations(ctx context.Context) error {
	if d.conn == nil {
		return ErrClosed
	}
	if _, err := d.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := d.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		tx, err := d.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if err := m.apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (d *DB) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}

// GetSchemaVersion returns the highest applied migration version.
func (d *DB) GetSchemaVersion() (int, error) {
	if d.conn == nil {
		return 0, ErrClosed
	}
	var version int
	err := d.conn.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// ValidateSchema verifies the applied schema matches this build.
func (d *DB) ValidateSchema() error {
	version, err := d.GetSchemaVersion()
	if err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, want %d", version, SchemaVersion)
	}
	return nil
}

// addColumnIfMissing adds a column unless it already exists.
func addColumnIfMissing(ctx context.Context, tx *sql.Tx, table, column, typ string) error {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return fmt.Errorf("inspecting table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, typ))
	if err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// Stats summarizes the conversation store.
type Stats struct {
	SchemaVersion int `json:"schema_version"`
	Active        int `json:"active"`
	Committed     int `json:"committed"`
	RolledBack    int `json:"rolled_back"`
	Abandoned     int `json:"abandoned"`
	Total         int `json:"total"`
}

// GetStats returns store statistics.
func (d *DB) GetStats() (*Stats, error) {
	version, err := d.GetSchemaVersion()
	if err != nil {
		return nil, err
	}
	stats := &Stats{SchemaVersion: version}

	rows, err := d.conn.Query(`
		SELECT outcome, COUNT(*) FROM conversations GROUP BY outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch Outcome(outcome) {
		case OutcomeCommitted:
			stats.Committed += count
		case OutcomeRolledBack:
			stats.RolledBack += count
		case OutcomeAbandoned:
			stats.Abandoned += count
		default:
			stats.Active += count
		}
	}
	return stats, rows.Err()
}
