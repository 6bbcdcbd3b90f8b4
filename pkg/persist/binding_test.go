package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Dicklesworthstone/flowtx/internal/db"
)

func newTestFactory(t *testing.T) *SessionFactory {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewSessionFactory(store)
}

func TestBindUnbindRoundTrip(t *testing.T) {
	factory := newTestFactory(t)
	sess, err := factory.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	defer sess.Close()

	if Bound(factory) {
		t.Fatalf("expected no binding before Bind")
	}
	if err := Bind(factory, sess); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if got := BoundSession(factory); got != sess {
		t.Fatalf("BoundSession() = %p, want %p", got, sess)
	}

	got, err := Unbind(factory)
	if err != nil {
		t.Fatalf("Unbind() error = %v", err)
	}
	if got != sess {
		t.Fatalf("Unbind() returned a different session")
	}
	if Bound(factory) {
		t.Fatalf("expected no binding after Unbind")
	}
}

func TestBindTwiceFails(t *testing.T) {
	factory := newTestFactory(t)
	first, err := factory.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	defer first.Close()

	if err := Bind(factory, first); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer func() { _, _ = Unbind(factory) }()

	if err := Bind(factory, first); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("second Bind() error = %v, want ErrAlreadyBound", err)
	}
}

func TestUnbindWithoutBindFails(t *testing.T) {
	factory := newTestFactory(t)
	if _, err := Unbind(factory); !errors.Is(err, ErrNotBound) {
		t.Fatalf("Unbind() error = %v, want ErrNotBound", err)
	}
}

func TestBindingsAreIndependentPerFactory(t *testing.T) {
	a := newTestFactory(t)
	b := newTestFactory(t)

	sess, err := a.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	defer sess.Close()

	if err := Bind(a, sess); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer func() { _, _ = Unbind(a) }()

	if Bound(b) {
		t.Fatalf("binding one factory must not affect another")
	}
}

func TestSessionLifecycleErrors(t *testing.T) {
	factory := newTestFactory(t)
	sess, err := factory.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}

	if sess.Done() {
		t.Fatalf("fresh session must not be done")
	}
	if err := sess.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if !sess.Done() {
		t.Fatalf("session must be done after rollback")
	}

	if err := sess.Commit(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Commit() after rollback error = %v, want ErrSessionClosed", err)
	}
	if _, err := sess.Exec(`SELECT 1`); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Exec() after rollback error = %v, want ErrSessionClosed", err)
	}
	if _, err := sess.Query(`SELECT 1`); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Query() after rollback error = %v, want ErrSessionClosed", err)
	}
	if _, err := sess.QueryRow(`SELECT 1`); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("QueryRow() after rollback error = %v, want ErrSessionClosed", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() on finished session error = %v", err)
	}
}
