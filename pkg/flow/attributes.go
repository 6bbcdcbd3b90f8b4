// Package flow implements a minimal conversation engine: flow definitions,
// per-conversation sessions, request contexts, and execution listeners.
package flow

import "strconv"

// AttributeMap holds string-keyed attributes for definitions, states, and
// scopes. It is not safe for concurrent use; a conversation is driven by one
// request at a time.
type AttributeMap map[string]any

// NewAttributeMap returns an empty attribute map.
func NewAttributeMap() AttributeMap {
	return make(AttributeMap)
}

// Put sets an attribute.
func (m AttributeMap) Put(key string, value any) {
	m[key] = value
}

// Get returns the raw attribute value.
func (m AttributeMap) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// GetString returns the attribute as a string.
func (m AttributeMap) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBool returns the attribute as a bool. String values are parsed, so
// definitions loaded from text configuration can use "true"/"false".
func (m AttributeMap) GetBool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// Contains reports whether the key is present.
func (m AttributeMap) Contains(key string) bool {
	_, ok := m[key]
	return ok
}

// Remove deletes and returns the attribute value.
func (m AttributeMap) Remove(key string) (any, bool) {
	v, ok := m[key]
	if ok {
		delete(m, key)
	}
	return v, ok
}

// Len returns the number of attributes.
func (m AttributeMap) Len() int {
	return len(m)
}
