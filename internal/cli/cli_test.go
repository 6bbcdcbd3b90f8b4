package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/flowtx/internal/db"
)

// runCommand executes the root command with args and captures stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FLOWTX_LOG_LEVEL", "error")
	t.Setenv("HOME", t.TempDir())

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	os.Stdout = old
	_ = w.Close()
	out, _ := io.ReadAll(r)
	_ = r.Close()
	return string(out), runErr
}

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := db.Open(path)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer store.Close()

	active := &db.Conversation{ID: "active-1", FlowID: "checkout"}
	if err := store.CreateConversation(active); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	ended := &db.Conversation{ID: "ended-1", FlowID: "checkout"}
	if err := store.CreateConversation(ended); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if err := store.EndConversation("ended-1", db.OutcomeCommitted, "done"); err != nil {
		t.Fatalf("EndConversation() error = %v", err)
	}

	stale := &db.Conversation{ID: "stale-1", FlowID: "checkout"}
	if err := store.CreateConversation(stale); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	past := time.Now().UTC().Add(-3 * time.Hour).Format(time.RFC3339)
	if _, err := store.Exec(`UPDATE conversations SET last_active_at = ? WHERE id = ?`, past, "stale-1"); err != nil {
		t.Fatalf("backdating: %v", err)
	}
	return path
}

func TestConversationsList(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "conversations", "list", "--db", path, "--output", "text")
	if err != nil {
		t.Fatalf("conversations list error = %v", err)
	}
	if !strings.Contains(out, "active-1") || !strings.Contains(out, "stale-1") {
		t.Fatalf("expected active conversations listed, got:\n%s", out)
	}
	if strings.Contains(out, "ended-1") {
		t.Fatalf("ended conversation listed without --all:\n%s", out)
	}

	out, err = runCommand(t, "conversations", "list", "--db", path, "--all", "--limit", "10")
	if err != nil {
		t.Fatalf("conversations list --all error = %v", err)
	}
	if !strings.Contains(out, "ended-1") {
		t.Fatalf("expected ended conversation with --all, got:\n%s", out)
	}
}

func TestConversationsGC(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "conversations", "gc", "--db", path, "--threshold", "60", "--output", "json")
	if err != nil {
		t.Fatalf("conversations gc error = %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("gc output is not JSON: %v\n%s", err, out)
	}
	if res["stale"].(float64) != 1 || res["ended"].(float64) != 1 {
		t.Fatalf("gc result = %v", res)
	}

	store, err := db.Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer store.Close()
	record, err := store.GetConversation("stale-1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if record.Outcome != db.OutcomeAbandoned {
		t.Fatalf("outcome = %q, want abandoned", record.Outcome)
	}
}

func TestStats(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "stats", "--db", path, "--output", "json")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	var stats db.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out)
	}
	if stats.Total != 3 || stats.Committed != 1 || stats.Active != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFlowsList(t *testing.T) {
	dir := t.TempDir()
	flowFile := `
id = "checkout"
persistence_context = true

[[end_states]]
id = "done"
`
	if err := os.WriteFile(filepath.Join(dir, "checkout.toml"), []byte(flowFile), 0o644); err != nil {
		t.Fatalf("writing flow file: %v", err)
	}

	out, err := runCommand(t, "flows", "list", "--dir", dir, "--output", "text")
	if err != nil {
		t.Fatalf("flows list error = %v", err)
	}
	if !strings.Contains(out, "checkout") || !strings.Contains(out, "true") {
		t.Fatalf("flows list output:\n%s", out)
	}
}
