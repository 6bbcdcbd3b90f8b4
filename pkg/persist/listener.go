package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Dicklesworthstone/flowtx/internal/db"
	"github.com/Dicklesworthstone/flowtx/internal/utils"
	"github.com/Dicklesworthstone/flowtx/pkg/flow"
)

// Default attribute and scope names used by the listener.
const (
	// ContextAttribute marks a flow definition as needing a persistence
	// context for its conversations.
	ContextAttribute = "persistenceContext"
	// CommitAttribute on an end state controls commit vs rollback. Absent
	// means commit; an explicit false (the "cancel" case) forces rollback.
	CommitAttribute = "commit"
	// ScopeKey is the conversation-scope key holding the session.
	ScopeKey = "persist.session"
)

// ListenerOptions overrides ConversationListener defaults.
type ListenerOptions struct {
	// ContextAttribute overrides the persistence-context marker attribute.
	ContextAttribute string
	// CommitAttribute overrides the end-state commit attribute.
	CommitAttribute string
	// ScopeKey overrides the conversation-scope key.
	ScopeKey string
	// Logger overrides the listener's logger.
	Logger *log.Logger
	// DisableAudit turns off conversation audit records.
	DisableAudit bool
}

// ConversationListener implements the session-per-conversation policy: when
// a conversation whose flow is marked as a persistence context starts, it
// opens a unit of work, binds it for the request, and keeps it in
// conversation scope across pause/resume; when the conversation ends it
// commits, unless the terminating end state says otherwise, in which case
// it rolls back. Errors signaled during the conversation also roll back.
type ConversationListener struct {
	flow.NopListener

	factory *SessionFactory
	log     *log.Logger

	contextAttr string
	commitAttr  string
	scopeKey    string
	audit       bool
}

var _ flow.ExecutionListener = (*ConversationListener)(nil)

// NewConversationListener creates a listener with default attribute names.
func NewConversationListener(factory *SessionFactory) *ConversationListener {
	return NewConversationListenerWithOptions(factory, ListenerOptions{})
}

// NewConversationListenerWithOptions creates a listener with overrides.
func NewConversationListenerWithOptions(factory *SessionFactory, opts ListenerOptions) *ConversationListener {
	l := &ConversationListener{
		factory:     factory,
		log:         opts.Logger,
		contextAttr: opts.ContextAttribute,
		commitAttr:  opts.CommitAttribute,
		scopeKey:    opts.ScopeKey,
		audit:       !opts.DisableAudit,
	}
	if l.log == nil {
		l.log = utils.WithPrefix("persist")
	}
	if l.contextAttr == "" {
		l.contextAttr = ContextAttribute
	}
	if l.commitAttr == "" {
		l.commitAttr = CommitAttribute
	}
	if l.scopeKey == "" {
		l.scopeKey = ScopeKey
	}
	// An in-memory store has a single pooled connection, so an audit write
	// would block behind the unit of work's open transaction.
	if factory.Store().InMemory() {
		l.audit = false
	}
	return l
}

// SessionCreated opens and binds a unit of work for root conversations whose
// flow is marked as a persistence context.
func (l *ConversationListener) SessionCreated(rc *flow.RequestContext, session *flow.Session) error {
	if !session.Root() || !l.persistenceContext(session) {
		return nil
	}

	sess, err := l.factory.OpenSession(context.Background())
	if err != nil {
		return err
	}
	if err := Bind(l.factory, sess); err != nil {
		_ = sess.Close()
		return fmt.Errorf("binding session for conversation %s: %w", session.ID, err)
	}
	rc.ConversationScope.Put(l.scopeKey, sess)
	l.log.Debug("persistence session opened", "conversation", session.ID, "flow", session.Definition.ID)

	if l.audit {
		record := &db.Conversation{ID: session.ID, FlowID: session.Definition.ID}
		if err := l.factory.Store().CreateConversation(record); err != nil {
			l.log.Warn("recording conversation start failed", "conversation", session.ID, "err", err)
		}
	}
	return nil
}

// Paused detaches the unit of work at the end of a request. The session
// stays in conversation scope so a later request can resume it.
func (l *ConversationListener) Paused(rc *flow.RequestContext) error {
	if !l.activePersistenceContext(rc) {
		return nil
	}
	if _, err := Unbind(l.factory); err != nil && !errors.Is(err, ErrNotBound) {
		return err
	}
	return nil
}

// Resumed rebinds the unit of work stashed in conversation scope.
func (l *ConversationListener) Resumed(rc *flow.RequestContext) error {
	if !l.activePersistenceContext(rc) {
		return nil
	}
	sess, ok := l.scopedSession(rc)
	if !ok {
		return nil
	}
	return Bind(l.factory, sess)
}

// SessionEnded finishes the unit of work for a root conversation: commit by
// default, rollback when the terminating end state carries commit=false.
func (l *ConversationListener) SessionEnded(rc *flow.RequestContext, session *flow.Session, _ flow.AttributeMap) error {
	if !session.Root() || !l.persistenceContext(session) {
		return nil
	}
	v, ok := rc.ConversationScope.Remove(l.scopeKey)
	if !ok {
		return nil
	}
	sess := v.(*Session)
	if _, err := Unbind(l.factory); err != nil && !errors.Is(err, ErrNotBound) {
		return err
	}

	commit := true
	endState := ""
	if st := session.State(); st != nil {
		endState = st.ID
		if b, ok := st.Attributes.GetBool(l.commitAttr); ok {
			commit = b
		}
	}

	outcome := db.OutcomeCommitted
	if commit {
		if err := sess.Commit(); err != nil {
			return err
		}
	} else {
		outcome = db.OutcomeRolledBack
		if err := sess.Rollback(); err != nil {
			return err
		}
	}
	l.log.Debug("persistence session finished", "conversation", session.ID, "outcome", string(outcome))

	l.recordEnd(session.ID, outcome, endState)
	return nil
}

// ExceptionThrown rolls back the unit of work when an error aborts the
// conversation.
func (l *ConversationListener) ExceptionThrown(rc *flow.RequestContext, cause error) error {
	if !l.activePersistenceContext(rc) {
		return nil
	}
	session := rc.ActiveSession()

	sess, ok := l.scopedSession(rc)
	if ok {
		rc.ConversationScope.Remove(l.scopeKey)
	}
	if unbound, err := Unbind(l.factory); err == nil && !ok {
		sess = unbound
	}
	if sess == nil {
		return nil
	}
	if err := sess.Rollback(); err != nil && !errors.Is(err, ErrSessionClosed) {
		return err
	}
	l.log.Debug("persistence session rolled back", "conversation", rootOf(session).ID, "cause", cause)

	l.recordEnd(rootOf(session).ID, db.OutcomeRolledBack, "")
	return nil
}

func (l *ConversationListener) recordEnd(conversationID string, outcome db.Outcome, endState string) {
	if !l.audit {
		return
	}
	err := l.factory.Store().EndConversation(conversationID, outcome, endState)
	if err != nil && !errors.Is(err, db.ErrConversationNotFound) {
		l.log.Warn("recording conversation end failed", "conversation", conversationID, "err", err)
	}
}

// persistenceContext reports whether the session's root flow definition is
// marked as needing a persistence context.
func (l *ConversationListener) persistenceContext(session *flow.Session) bool {
	root := rootOf(session)
	if root == nil || root.Definition == nil {
		return false
	}
	b, ok := root.Definition.Attributes.GetBool(l.contextAttr)
	return ok && b
}

func (l *ConversationListener) activePersistenceContext(rc *flow.RequestContext) bool {
	s := rc.ActiveSession()
	return s != nil && l.persistenceContext(s)
}

func (l *ConversationListener) scopedSession(rc *flow.RequestContext) (*Session, bool) {
	v, ok := rc.ConversationScope.Get(l.scopeKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}

func rootOf(s *flow.Session) *flow.Session {
	for s != nil && s.Parent() != nil {
		s = s.Parent()
	}
	return s
}
