package flow

// ExecutionListener observes conversation lifecycle events. Implementations
// attach cross-cutting services to conversations; the canonical example is
// binding a persistence session for the conversation's duration.
type ExecutionListener interface {
	// SessionCreated is called when a conversation session starts.
	SessionCreated(rc *RequestContext, session *Session) error
	// Paused is called when the conversation pauses between requests.
	Paused(rc *RequestContext) error
	// Resumed is called when a paused conversation resumes on a new request.
	Resumed(rc *RequestContext) error
	// SessionEnded is called when a conversation session terminates normally.
	// output carries the ending session's output attributes, and may be nil.
	SessionEnded(rc *RequestContext, session *Session, output AttributeMap) error
	// ExceptionThrown is called when an error aborts the conversation.
	ExceptionThrown(rc *RequestContext, cause error) error
}

// NopListener implements ExecutionListener with no-ops. Embed it to
// implement only the hooks a listener cares about.
type NopListener struct{}

func (NopListener) SessionCreated(*RequestContext, *Session) error {
	return nil
}

func (NopListener) Paused(*RequestContext) error {
	return nil
}

func (NopListener) Resumed(*RequestContext) error {
	return nil
}

func (NopListener) SessionEnded(*RequestContext, *Session, AttributeMap) error {
	return nil
}

func (NopListener) ExceptionThrown(*RequestContext, error) error {
	return nil
}

var _ ExecutionListener = NopListener{}
