package persist

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/flowtx/internal/db"
)

// SessionFactory opens persistence sessions against a store. Factory
// identity keys the binding registry: each factory has at most one bound
// session at a time.
type SessionFactory struct {
	store *db.DB
}

// NewSessionFactory creates a factory over the given store.
func NewSessionFactory(store *db.DB) *SessionFactory {
	return &SessionFactory{store: store}
}

// Store returns the underlying store.
func (f *SessionFactory) Store() *db.DB {
	return f.store
}

// OpenSession begins a new unit of work.
func (f *SessionFactory) OpenSession(ctx context.Context) (*Session, error) {
	tx, err := f.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening persistence session: %w", err)
	}
	return newSession(f, tx), nil
}
