package flow

import (
	"errors"
	"fmt"
)

// Definition describes a flow: its identity, attributes, and states.
// Attributes configure cross-cutting behavior; listeners read them to decide
// whether a conversation needs services such as a persistence context.
type Definition struct {
	// ID identifies the flow.
	ID string
	// Attributes holds flow-level configuration attributes.
	Attributes AttributeMap

	states map[string]*State
}

// NewDefinition creates a flow definition.
func NewDefinition(id string) *Definition {
	return &Definition{
		ID:         id,
		Attributes: NewAttributeMap(),
		states:     make(map[string]*State),
	}
}

// AddState registers a state with the definition.
func (d *Definition) AddState(s *State) error {
	if s.ID == "" {
		return errors.New("state id is required")
	}
	if _, exists := d.states[s.ID]; exists {
		return fmt.Errorf("state %q already defined in flow %q", s.ID, d.ID)
	}
	d.states[s.ID] = s
	return nil
}

// State returns the state with the given ID.
func (d *Definition) State(id string) (*State, bool) {
	s, ok := d.states[id]
	return s, ok
}

// States returns the number of registered states.
func (d *Definition) States() int {
	return len(d.states)
}

// State is a node in a flow definition. End states terminate a conversation;
// their attributes control termination behavior (a `commit` attribute of
// false forces the conversation's unit of work to roll back).
type State struct {
	// ID identifies the state within its flow.
	ID string
	// Attributes holds state-level configuration attributes.
	Attributes AttributeMap
	// End marks the state as terminating the conversation.
	End bool
}

// NewState creates a non-terminal state and adds it to def.
func NewState(def *Definition, id string) *State {
	s := &State{ID: id, Attributes: NewAttributeMap()}
	_ = def.AddState(s)
	return s
}

// NewEndState creates a terminal state and adds it to def.
func NewEndState(def *Definition, id string) *State {
	s := &State{ID: id, Attributes: NewAttributeMap(), End: true}
	_ = def.AddState(s)
	return s
}
