package flow

import "github.com/google/uuid"

// SessionStatus tracks where a conversation is in its lifecycle.
type SessionStatus string

const (
	// StatusStarting means the session has been created but not yet started.
	StatusStarting SessionStatus = "starting"
	// StatusActive means the session is processing a request.
	StatusActive SessionStatus = "active"
	// StatusPaused means the session is waiting between requests.
	StatusPaused SessionStatus = "paused"
	// StatusEnded means the session has terminated.
	StatusEnded SessionStatus = "ended"
)

// Session is one conversation: a stateful, multi-request interaction driven
// by a single flow definition. Sessions form a stack when flows spawn
// subflows; only the root session owns conversation-level resources.
type Session struct {
	// ID is the conversation identity.
	ID string
	// Definition is the flow this session executes.
	Definition *Definition
	// Scope is flow-scoped storage, cleared when the session ends.
	Scope AttributeMap

	state  *State
	status SessionStatus
	parent *Session
}

// NewSession creates a root conversation session for def.
func NewSession(def *Definition) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Definition: def,
		Scope:      NewAttributeMap(),
		status:     StatusStarting,
	}
}

// NewSubflowSession creates a session nested under parent.
func NewSubflowSession(def *Definition, parent *Session) *Session {
	s := NewSession(def)
	s.parent = parent
	return s
}

// Root reports whether this is the root conversation session.
func (s *Session) Root() bool {
	return s.parent == nil
}

// Parent returns the parent session, or nil for a root session.
func (s *Session) Parent() *Session {
	return s.parent
}

// State returns the session's current state, nil before the first transition.
func (s *Session) State() *State {
	return s.state
}

// SetState moves the session to the given state.
func (s *Session) SetState(state *State) {
	s.state = state
}

// Status returns the session's lifecycle status.
func (s *Session) Status() SessionStatus {
	return s.status
}

// SetStatus updates the session's lifecycle status.
func (s *Session) SetStatus(status SessionStatus) {
	s.status = status
}
