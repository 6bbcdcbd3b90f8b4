package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome records how a conversation's unit of work finished.
type Outcome string

const (
	// OutcomeCommitted means the unit of work was committed.
	OutcomeCommitted Outcome = "committed"
	// OutcomeRolledBack means the unit of work was rolled back.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeAbandoned means the conversation went stale and was reaped
	// without finishing.
	OutcomeAbandoned Outcome = "abandoned"
)

// Conversation is one audit record for a persistence conversation.
type Conversation struct {
	ID           string
	FlowID       string
	StartedAt    time.Time
	LastActiveAt time.Time
	EndedAt      *time.Time
	EndState     string
	Outcome      Outcome
}

// Active reports whether the conversation has not yet ended.
func (c *Conversation) Active() bool {
	return c.EndedAt == nil
}

// CreateConversation inserts a new conversation record. An empty ID is
// assigned a fresh UUID. Timestamps are set to now.
func (d *DB) CreateConversation(c *Conversation) error {
	if d.conn == nil {
		return ErrClosed
	}
	if c.FlowID == "" {
		return errors.New("flow id is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.StartedAt = now
	c.LastActiveAt = now

	_, err := d.conn.Exec(`
		INSERT INTO conversations (id, flow_id, started_at, last_active_at, end_state, outcome)
		VALUES (?, ?, ?, ?, ?, '')
	`, c.ID, c.FlowID, now.Format(time.RFC3339), now.Format(time.RFC3339), c.EndState)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	return nil
}

// GetConversation fetches a conversation by ID.
func (d *DB) GetConversation(id string) (*Conversation, error) {
	if d.conn == nil {
		return nil, ErrClosed
	}
	row := d.conn.QueryRow(`
		SELECT id, flow_id, started_at, last_active_at, ended_at, COALESCE(end_state, ''), outcome
		FROM conversations WHERE id = ?
	`, id)
	return scanConversation(row)
}

// TouchConversation refreshes a conversation's last-active timestamp.
func (d *DB) TouchConversation(id string) error {
	if d.conn == nil {
		return ErrClosed
	}
	res, err := d.conn.Exec(`
		UPDATE conversations SET last_active_at = ? WHERE id = ? AND ended_at IS NULL
	`, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// EndConversation marks a conversation ended with the given outcome and,
// optionally, the terminating end-state ID.
func (d *DB) EndConversation(id string, outcome Outcome, endState string) error {
	if d.conn == nil {
		return ErrClosed
	}
	res, err := d.conn.Exec(`
		UPDATE conversations SET ended_at = ?, outcome = ?, end_state = ?
		WHERE id = ? AND ended_at IS NULL
	`, time.Now().UTC().Format(time.RFC3339), string(outcome), endState, id)
	if err != nil {
		return fmt.Errorf("ending conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ListActiveConversations returns conversations that have not ended, most
// recently active first.
func (d *DB) ListActiveConversations() ([]*Conversation, error) {
	return d.listConversations(`
		SELECT id, flow_id, started_at, last_active_at, ended_at, COALESCE(end_state, ''), outcome
		FROM conversations WHERE ended_at IS NULL
		ORDER BY last_active_at DESC
	`)
}

// ListConversations returns all conversations, newest first.
func (d *DB) ListConversations(limit int) ([]*Conversation, error) {
	return d.listConversations(`
		SELECT id, flow_id, started_at, last_active_at, ended_at, COALESCE(end_state, ''), outcome
		FROM conversations
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
}

// FindStaleConversations returns active conversations whose last activity is
// older than threshold.
func (d *DB) FindStaleConversations(threshold time.Duration) ([]*Conversation, error) {
	if threshold <= 0 {
		return nil, errors.New("threshold must be positive")
	}
	cutoff := time.Now().UTC().Add(-threshold).Format(time.RFC3339)
	return d.listConversations(`
		SELECT id, flow_id, started_at, last_active_at, ended_at, COALESCE(end_state, ''), outcome
		FROM conversations WHERE ended_at IS NULL AND last_active_at < ?
		ORDER BY last_active_at ASC
	`, cutoff)
}

func (d *DB) listConversations(query string, args ...any) ([]*Conversation, error) {
	if d.conn == nil {
		return nil, ErrClosed
	}
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversationRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row *sql.Row) (*Conversation, error) {
	c, err := scanFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return c, err
}

func scanConversationRows(rows *sql.Rows) (*Conversation, error) {
	return scanFrom(rows)
}

func scanFrom(s rowScanner) (*Conversation, error) {
	var c Conversation
	var started, lastActive string
	var ended sql.NullString
	var outcome string
	if err := s.Scan(&c.ID, &c.FlowID, &started, &lastActive, &ended, &c.EndState, &outcome); err != nil {
		return nil, err
	}
	var err error
	if c.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if c.LastActiveAt, err = time.Parse(time.RFC3339, lastActive); err != nil {
		return nil, fmt.Errorf("parsing last_active_at: %w", err)
	}
	if ended.Valid {
		t, err := time.Parse(time.RFC3339, ended.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		c.EndedAt = &t
	}
	c.Outcome = Outcome(outcome)
	return &c, nil
}
