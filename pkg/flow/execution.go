package flow

import (
	"errors"
	"fmt"
)

// Execution errors.
var (
	// ErrNotActive is returned when an operation needs an active session.
	ErrNotActive = errors.New("conversation is not active")
	// ErrNotPaused is returned when resuming a session that is not paused.
	ErrNotPaused = errors.New("conversation is not paused")
	// ErrAlreadyStarted is returned when starting an execution twice.
	ErrAlreadyStarted = errors.New("conversation already started")
	// ErrUnknownState is returned when ending in a state the flow lacks.
	ErrUnknownState = errors.New("unknown state")
	// ErrNotEndState is returned when ending in a non-terminal state.
	ErrNotEndState = errors.New("state is not an end state")
)

// Execution drives one conversation through its lifecycle and dispatches
// events to registered listeners. A failing listener aborts the operation;
// later listeners are not invoked.
type Execution struct {
	def       *Definition
	listeners []ExecutionListener
	ctx       *RequestContext
	session   *Session
}

// NewExecution creates an execution for def with the given listeners.
func NewExecution(def *Definition, listeners ...ExecutionListener) *Execution {
	return &Execution{def: def, listeners: listeners}
}

// Context returns the execution's request context, nil before Start.
func (e *Execution) Context() *RequestContext {
	return e.ctx
}

// Session returns the conversation session, nil before Start.
func (e *Execution) Session() *Session {
	return e.session
}

// Start begins the conversation and notifies listeners.
func (e *Execution) Start() error {
	if e.session != nil {
		return ErrAlreadyStarted
	}
	e.session = NewSession(e.def)
	e.ctx = NewRequestContext(e.session)
	e.session.SetStatus(StatusActive)

	for _, l := range e.listeners {
		if err := l.SessionCreated(e.ctx, e.session); err != nil {
			return fmt.Errorf("session created listener: %w", err)
		}
	}
	return nil
}

// Pause suspends the conversation at the end of a request.
func (e *Execution) Pause() error {
	if e.session == nil || e.session.Status() != StatusActive {
		return ErrNotActive
	}
	for _, l := range e.listeners {
		if err := l.Paused(e.ctx); err != nil {
			return fmt.Errorf("paused listener: %w", err)
		}
	}
	e.session.SetStatus(StatusPaused)
	return nil
}

// Resume reactivates a paused conversation for a new request.
func (e *Execution) Resume() error {
	if e.session == nil || e.session.Status() != StatusPaused {
		return ErrNotPaused
	}
	for _, l := range e.listeners {
		if err := l.Resumed(e.ctx); err != nil {
			return fmt.Errorf("resumed listener: %w", err)
		}
	}
	e.session.SetStatus(StatusActive)
	return nil
}

// End terminates the conversation in the named end state.
func (e *Execution) End(endStateID string, output AttributeMap) error {
	if e.session == nil || e.session.Status() != StatusActive {
		return ErrNotActive
	}
	state, ok := e.def.State(endStateID)
	if !ok {
		return fmt.Errorf("%w: %q in flow %q", ErrUnknownState, endStateID, e.def.ID)
	}
	if !state.End {
		return fmt.Errorf("%w: %q", ErrNotEndState, endStateID)
	}
	e.session.SetState(state)

	for _, l := range e.listeners {
		if err := l.SessionEnded(e.ctx, e.session, output); err != nil {
			return fmt.Errorf("session ended listener: %w", err)
		}
	}
	e.session.SetStatus(StatusEnded)
	return nil
}

// SignalError aborts the conversation with cause and notifies listeners.
// It returns cause, wrapped with any listener failure.
func (e *Execution) SignalError(cause error) error {
	if e.session == nil {
		return cause
	}
	for _, l := range e.listeners {
		if err := l.ExceptionThrown(e.ctx, cause); err != nil {
			return fmt.Errorf("exception listener: %w (while handling: %v)", err, cause)
		}
	}
	e.session.SetStatus(StatusEnded)
	return cause
}
