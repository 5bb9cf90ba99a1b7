package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default so runs do not leak state
// into each other through the package-level flag variables.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := run(t, dataDir, args...)
	require.NoError(t, err, "chatkeep %s", strings.Join(args, " "))
	return out
}

func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 3, "unexpected output %q", out)
	return fields[2]
}

func TestSessionLifecycle(t *testing.T) {
	dir := t.TempDir()

	id := createdID(t, mustRun(t, dir, "new"))
	assert.Contains(t, mustRun(t, dir, "show", id), "Title:    New Chat")

	out := mustRun(t, dir, "append", id, "How", "do", "I", "bake", "bread?")
	assert.Contains(t, out, "Appended message 1")
	assert.Contains(t, out, "(How do I bake bread?)")

	mustRun(t, dir, "append", "--role", "assistant", id, "Start with flour, water, salt and yeast.")

	out = mustRun(t, dir, "sessions")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "How do I bake bread?")

	out = mustRun(t, dir, "search", "BREAD")
	assert.Contains(t, out, id)
	assert.Contains(t, mustRun(t, dir, "search", "yeast"), id)
	assert.Contains(t, mustRun(t, dir, "search", "sourdough"), "No sessions match")
	assert.Equal(t, "No query given\n", mustRun(t, dir, "search", "  "))

	var summary struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		MessageCount int    `json:"messageCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, dir, "summary", id)), &summary))
	assert.Equal(t, id, summary.ID)
	assert.Equal(t, "How do I bake bread?", summary.Title)
	assert.Equal(t, 2, summary.MessageCount)

	out = mustRun(t, dir, "show", id)
	assert.Contains(t, out, "user How do I bake bread?")
	assert.Contains(t, out, "assistant Start with flour")

	out = mustRun(t, dir, "export", "--format", "md", id)
	assert.True(t, strings.HasPrefix(out, "# How do I bake bread?\n"), out)

	outFile := filepath.Join(t.TempDir(), "bread.yaml")
	assert.Contains(t, mustRun(t, dir, "export", "--out", outFile, id), outFile)
	exported, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "How do I bake bread?")
	assert.Contains(t, string(exported), "message_count: 2")

	assert.Contains(t, mustRun(t, dir, "delete", id), "Deleted session "+id)

	_, err = run(t, dir, "delete", id)
	assert.ErrorContains(t, err, "not found")
	_, err = run(t, dir, "show", id)
	assert.ErrorContains(t, err, "not found")
	assert.Contains(t, mustRun(t, dir, "sessions"), "No sessions yet")
}

func TestAppend_Errors(t *testing.T) {
	dir := t.TempDir()
	id := createdID(t, mustRun(t, dir, "new", "Scratch"))

	_, err := run(t, dir, "append", "missing-session", "hello")
	assert.ErrorContains(t, err, `session "missing-session" not found`)

	_, err = run(t, dir, "append", "--role", "system", id, "hello")
	assert.ErrorContains(t, err, "invalid message")

	_, err = run(t, dir, "append", "--type", "image", id)
	assert.ErrorContains(t, err, "imageUrl")

	out := mustRun(t, dir, "append", "--type", "image", "--image-url", "/images/a.png", id)
	assert.Contains(t, out, "(Scratch)")

	_, err = run(t, dir, "sessions", "--json")
	require.NoError(t, err)
}

func TestSessions_JSONAndLimit(t *testing.T) {
	dir := t.TempDir()
	for _, title := range []string{"first", "second", "third"} {
		mustRun(t, dir, "new", title)
	}

	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, dir, "sessions", "--json", "--limit", "2")), &summaries))
	assert.Len(t, summaries, 2)

	require.NoError(t, json.Unmarshal([]byte(mustRun(t, dir, "sessions", "--json")), &summaries))
	assert.Len(t, summaries, 3, "flags from the previous run must not leak")
}

func TestCleanup_KeepsFreshSessions(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "new", "fresh")

	assert.Equal(t, "Deleted 0 session(s)\n", mustRun(t, dir, "cleanup"))
	assert.Equal(t, "Deleted 0 session(s)\n", mustRun(t, dir, "cleanup", "--days", "1"))

	_, err := run(t, dir, "cleanup", "--days", "-3")
	assert.Error(t, err)
}

func TestCleanup_ZeroDaysDeletesEverything(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "new", "one")
	mustRun(t, dir, "new", "two")
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, "Deleted 2 session(s)\n", mustRun(t, dir, "cleanup", "--days", "0"))
	assert.Contains(t, mustRun(t, dir, "sessions"), "No sessions yet")
}

func TestSQLiteBackend(t *testing.T) {
	dir := t.TempDir()

	id := createdID(t, mustRun(t, dir, "--backend", "sqlite", "new", "on sqlite"))
	assert.FileExists(t, filepath.Join(dir, "sessions.db"))
	assert.Contains(t, mustRun(t, dir, "--backend", "sqlite", "sessions"), id)
	assert.NotContains(t, mustRun(t, dir, "sessions"), id, "the file backend does not see sqlite sessions")
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	out := mustRun(t, dir, "init")
	assert.Contains(t, out, "Initialized chatkeep in "+dir)
	assert.FileExists(t, filepath.Join(dir, "chatkeep.yaml"))

	assert.Contains(t, mustRun(t, dir, "init"), "Already initialized")
}

func TestCaptureNote(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "capture", "note", "renew", "the", "TLS", "cert")
	assert.Contains(t, out, "Note saved")
	assert.Contains(t, mustRun(t, dir, "search", "tls"), "renew the TLS cert")

	path := filepath.Join(t.TempDir(), "chat.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"role":"user","content":"hi"}
{"role":"assistant","content":"hello"}
{"role":"system","content":"ignored"}
`), 0o644))
	out = mustRun(t, dir, "capture", "transcript", "--title", "Imported", path)
	assert.Contains(t, out, "Captured 2 messages (1 skipped)")
	assert.Contains(t, mustRun(t, dir, "sessions"), "Imported")
}

func TestBackends(t *testing.T) {
	out := mustRun(t, t.TempDir(), "backends")
	for _, typ := range []string{"file", "sqlite", "redis", "s3", "memory"} {
		assert.Contains(t, out, typ)
	}
}
