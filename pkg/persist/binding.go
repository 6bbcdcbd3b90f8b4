package persist

import (
	"errors"
	"sync"
)

// Binding errors.
var (
	// ErrAlreadyBound is returned when a factory already has a bound session.
	ErrAlreadyBound = errors.New("a session is already bound for this factory")
	// ErrNotBound is returned when unbinding a factory with no bound session.
	ErrNotBound = errors.New("no session bound for this factory")
)

// The binding registry tracks the session currently attached to each
// factory, the way a thread-bound resource registry does in servlet
// containers. Flow executions are driven one request at a time, so a
// single slot per factory is the invariant: bind on create/resume,
// unbind on pause/end.
var (
	bindMu   sync.Mutex
	bindings = make(map[*SessionFactory]*Session)
)

// Bind attaches session as the current session for its factory.
func Bind(factory *SessionFactory, session *Session) error {
	bindMu.Lock()
	defer bindMu.Unlock()
	if _, exists := bindings[factory]; exists {
		return ErrAlreadyBound
	}
	bindings[factory] = session
	return nil
}

// Unbind detaches and returns the factory's current session.
func Unbind(factory *SessionFactory) (*Session, error) {
	bindMu.Lock()
	defer bindMu.Unlock()
	s, exists := bindings[factory]
	if !exists {
		return nil, ErrNotBound
	}
	delete(bindings, factory)
	return s, nil
}

// BoundSession returns the factory's current session, or nil.
func BoundSession(factory *SessionFactory) *Session {
	bindMu.Lock()
	defer bindMu.Unlock()
	return bindings[factory]
}

// Bound reports whether the factory has a bound session.
func Bound(factory *SessionFactory) bool {
	return BoundSession(factory) != nil
}
