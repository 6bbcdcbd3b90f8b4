package persist

import (
	"errors"
	"time"

	"github.com/Dicklesworthstone/flowtx/internal/db"
)

// GCOptions controls stale-conversation collection.
type GCOptions struct {
	// Threshold is the inactivity window after which an active conversation
	// record counts as stale. Required.
	Threshold time.Duration
	// DryRun reports stale conversations without ending them.
	DryRun bool
}

// GCResult reports what a collection pass found and did.
type GCResult struct {
	// Conversations are the stale records found.
	Conversations []*db.Conversation
	// EndedIDs are the records marked abandoned (empty in dry-run).
	EndedIDs []string
	// SkippedIDs are records that could not be ended.
	SkippedIDs []string
}

// GarbageCollectStaleConversations reaps conversation audit records whose
// last activity is older than the threshold. A conversation can go stale
// when its process dies between requests; its unit of work died with the
// connection, so the record is marked abandoned rather than rolled back.
func GarbageCollectStaleConversations(store *db.DB, opts GCOptions) (*GCResult, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Threshold <= 0 {
		return nil, errors.New("threshold must be positive")
	}

	stale, err := store.FindStaleConversations(opts.Threshold)
	if err != nil {
		return nil, err
	}

	res := &GCResult{Conversations: stale}
	if opts.DryRun {
		return res, nil
	}

	for _, c := range stale {
		if err := store.EndConversation(c.ID, db.OutcomeAbandoned, ""); err != nil {
			res.SkippedIDs = append(res.SkippedIDs, c.ID)
			continue
		}
		res.EndedIDs = append(res.EndedIDs, c.ID)
	}
	return res, nil
}
