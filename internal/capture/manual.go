package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"chatkeep/internal/store"
)

// maxFileChars caps how much of a captured file ends up in the message.
const maxFileChars = 10000

// ImportNote stores note as the single user message of a new session.
func ImportNote(ctx context.Context, w SessionWriter, title, note string) (*Result, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("note cannot be empty")
	}

	sess, err := replay(ctx, w, title, []store.NewMessage{{Role: store.RoleUser, Content: note}})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Imported: 1}, nil
}

// ImportFile stores a file's text as a user message in a session titled
// after the file name.
func ImportFile(ctx context.Context, w SessionWriter, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not a text file", filepath.Base(path))
	}

	content := truncate(string(data), maxFileChars)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s is empty", filepath.Base(path))
	}

	title := "file: " + filepath.Base(path)
	sess, err := replay(ctx, w, title, []store.NewMessage{{Role: store.RoleUser, Content: content}})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Imported: 1}, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
