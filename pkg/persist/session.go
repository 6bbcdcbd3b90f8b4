// Package persist binds transactional units of work to the lifecycle of
// flow conversations: one persistence session per conversation, suspended
// and resumed across requests, committed or rolled back when the
// conversation ends.
package persist

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Unit-of-work errors.
var (
	// ErrSessionClosed is returned when using a finished session.
	ErrSessionClosed = errors.New("persistence session is closed")
)

// Session is one unit of work: a live transaction held open for the
// duration of a conversation. Work done through the session is invisible
// to other connections until Commit.
type Session struct {
	id      string
	factory *SessionFactory
	tx      *sql.Tx
	done    bool
}

// ID returns the session's identity.
func (s *Session) ID() string {
	return s.id
}

// Exec runs a statement inside the unit of work.
func (s *Session) Exec(query string, args ...any) (sql.Result, error) {
	if s.done {
		return nil, ErrSessionClosed
	}
	return s.tx.Exec(query, args...)
}

// Query runs a query inside the unit of work.
func (s *Session) Query(query string, args ...any) (*sql.Rows, error) {
	if s.done {
		return nil, ErrSessionClosed
	}
	return s.tx.Query(query, args...)
}

// QueryRow runs a single-row query inside the unit of work.
func (s *Session) QueryRow(query string, args ...any) (*sql.Row, error) {
	if s.done {
		return nil, ErrSessionClosed
	}
	return s.tx.QueryRow(query, args...), nil
}

// Commit makes the unit of work's changes durable and closes the session.
func (s *Session) Commit() error {
	if s.done {
		return ErrSessionClosed
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing unit of work %s: %w", s.id, err)
	}
	return nil
}

// Rollback discards the unit of work's changes and closes the session.
func (s *Session) Rollback() error {
	if s.done {
		return ErrSessionClosed
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back unit of work %s: %w", s.id, err)
	}
	return nil
}

// Close releases the session, rolling back if still open. Closing a
// finished session is a no-op.
func (s *Session) Close() error {
	if s.done {
		return nil
	}
	return s.Rollback()
}

// Done reports whether the session has been committed or rolled back.
func (s *Session) Done() bool {
	return s.done
}

func newSession(factory *SessionFactory, tx *sql.Tx) *Session {
	return &Session{
		id:      uuid.NewString(),
		factory: factory,
		tx:      tx,
	}
}
