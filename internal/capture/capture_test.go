package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatkeep/internal/backend"
	"chatkeep/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(backend.NewMemory(), store.WithLogger(log.New(io.Discard)))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportTranscript_JSONL(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	path := writeFile(t, "chat.jsonl", strings.Join([]string{
		`{"role":"system","content":"You are helpful."}`,
		`{"role":"user","content":"<attached_files>main.go</attached_files><user_query>Why is my build slow?</user_query>"}`,
		`not json at all`,
		``,
		`{"role":"assistant","message":{"content":[{"type":"text","text":"[Thinking] Check the cache."},{"type":"tool_use","text":"ignored"}]}}`,
		`{"role":"tool","content":"exit status 1"}`,
		`{"role":"user","message":{"content":[{"type":"text","text":"thanks"}]}}`,
	}, "\n"))

	res, err := ImportTranscript(ctx, st, path, "")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, "Why is my build slow?", res.Session.Title)
	require.Len(t, res.Session.Messages, 3)
	assert.Equal(t, store.RoleUser, res.Session.Messages[0].Role)
	assert.Equal(t, "Why is my build slow?", res.Session.Messages[0].Content)
	assert.Equal(t, store.RoleAssistant, res.Session.Messages[1].Role)
	assert.Equal(t, "Check the cache.", res.Session.Messages[1].Content)
	assert.Equal(t, "thanks", res.Session.Messages[2].Content)

	stored, err := st.Load(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.MessageCount)
}

func TestImportTranscript_Text(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	path := writeFile(t, "chat.txt", `user:
How do I rotate logs?

assistant:
Use logrotate.



It ships with most distros.
[Tool call] Shell
command: ls /etc/logrotate.d
[Tool result]
apt  dpkg
user:
<user_query>
ok
</user_query>
`)

	res, err := ImportTranscript(ctx, st, path, "Log rotation")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, "Log rotation", res.Session.Title)
	require.Len(t, res.Session.Messages, 3)
	assert.Equal(t, "How do I rotate logs?", res.Session.Messages[0].Content)
	assert.Equal(t, "Use logrotate.\n\nIt ships with most distros.", res.Session.Messages[1].Content)
	assert.Equal(t, "ok", res.Session.Messages[2].Content)
}

func TestImportTranscript_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := ImportTranscript(ctx, newStore(t), filepath.Join(t.TempDir(), "nope.jsonl"), "")
		assert.Error(t, err)
	})

	t.Run("no usable messages creates nothing", func(t *testing.T) {
		st := newStore(t)
		path := writeFile(t, "empty.jsonl", `{"role":"system","content":"x"}`+"\n")

		_, err := ImportTranscript(ctx, st, path, "")
		assert.Error(t, err)

		all, err := st.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

// flakyWriter fails the append after failAfter successful ones.
type flakyWriter struct {
	SessionWriter
	failAfter int
	appends   int
}

func (f *flakyWriter) AppendMessage(ctx context.Context, id string, msg store.NewMessage) (*store.Session, error) {
	if f.appends >= f.failAfter {
		return nil, errors.New("backend unavailable")
	}
	f.appends++
	return f.SessionWriter.AppendMessage(ctx, id, msg)
}

func TestImportTranscript_AppendFailure(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	w := &flakyWriter{SessionWriter: st, failAfter: 1}

	path := writeFile(t, "chat.jsonl", `{"role":"user","content":"one"}
{"role":"assistant","content":"two"}
`)

	_, err := ImportTranscript(ctx, w, path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append message 2")

	all, err := st.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].MessageCount)
}

func TestImportNote(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	_, err := ImportNote(ctx, st, "", "   ")
	assert.Error(t, err)

	res, err := ImportNote(ctx, st, "", "  remember to renew the TLS cert  ")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, "remember to renew the TLS cert", res.Session.Title)
	assert.Equal(t, "remember to renew the TLS cert", res.Session.Messages[0].Content)

	res, err = ImportNote(ctx, st, "Ops", "rotate keys")
	require.NoError(t, err)
	assert.Equal(t, "Ops", res.Session.Title)
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	t.Run("text file", func(t *testing.T) {
		path := writeFile(t, "notes.md", "# Notes\n\nbody")
		res, err := ImportFile(ctx, st, path)
		require.NoError(t, err)
		assert.Equal(t, "file: notes.md", res.Session.Title)
		assert.Equal(t, "# Notes\n\nbody", res.Session.Messages[0].Content)
	})

	t.Run("long file is truncated", func(t *testing.T) {
		path := writeFile(t, "big.txt", strings.Repeat("é", maxFileChars+10))
		res, err := ImportFile(ctx, st, path)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("é", maxFileChars)+"...", res.Session.Messages[0].Content)
	})

	t.Run("binary file is rejected", func(t *testing.T) {
		path := writeFile(t, "blob.bin", string([]byte{0xff, 0xfe, 0x00}))
		_, err := ImportFile(ctx, st, path)
		assert.Error(t, err)
	})

	t.Run("empty file is rejected", func(t *testing.T) {
		path := writeFile(t, "empty.txt", "\n\n")
		_, err := ImportFile(ctx, st, path)
		assert.Error(t, err)
	})
}
