package output

import (
	"time"

	"github.com/Dicklesworthstone/flowtx/internal/db"
)

// ConversationHeaders are the table headers for conversation listings.
var ConversationHeaders = []string{"ID", "FLOW", "STARTED", "LAST ACTIVE", "OUTCOME"}

// ConversationRows converts conversation records into table rows.
func ConversationRows(convs []*db.Conversation) [][]string {
	rows := make([][]string, 0, len(convs))
	for _, c := range convs {
		outcome := string(c.Outcome)
		if outcome == "" {
			outcome = "active"
		}
		rows = append(rows, []string{
			shortID(c.ID),
			c.FlowID,
			c.StartedAt.Format(time.RFC3339),
			c.LastActiveAt.Format(time.RFC3339),
			outcome,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
