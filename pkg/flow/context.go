package flow

// RequestContext is the per-request view of a conversation: the active
// session plus conversation-scoped storage that survives across requests
// (and across pause/resume) for the conversation's whole duration.
type RequestContext struct {
	// ConversationScope holds attributes spanning the conversation.
	ConversationScope AttributeMap

	session *Session
}

// NewRequestContext creates a request context for the given session.
func NewRequestContext(session *Session) *RequestContext {
	return &RequestContext{
		ConversationScope: NewAttributeMap(),
		session:           session,
	}
}

// ActiveSession returns the session currently processing this request.
func (rc *RequestContext) ActiveSession() *Session {
	return rc.session
}

// SetActiveSession replaces the active session (used when a subflow is
// entered or exited within a single conversation).
func (rc *RequestContext) SetActiveSession(session *Session) {
	rc.session = session
}
