package capture

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"chatkeep/internal/store"
)

// transcriptLine accepts both the flat {"role","content"} shape and the
// nested {"role","message":{"content":[...]}} shape used by agent logs.
type transcriptLine struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var xmlTagsRe = regexp.MustCompile(`</?(?:attached_files|code_selection|user_query|terminal_selection|system_reminder|open_and_recently_viewed_files)[^>]*>`)
var thinkingPrefixRe = regexp.MustCompile(`(?m)^\[Thinking\]\s*`)

// ImportTranscript reads a .jsonl or plain-text chat transcript and stores it
// as a new session. Lines with roles other than user and assistant, and
// lines that are not valid JSON, are skipped.
func ImportTranscript(ctx context.Context, w SessionWriter, path, title string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	var msgs []store.NewMessage
	var skipped int
	if filepath.Ext(path) == ".jsonl" {
		msgs, skipped, err = parseJSONL(data)
	} else {
		msgs, skipped = parseTextTranscript(data)
	}
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("no user or assistant messages found in %s", filepath.Base(path))
	}

	sess, err := replay(ctx, w, title, msgs)
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Imported: len(msgs), Skipped: skipped}, nil
}

func parseJSONL(data []byte) ([]store.NewMessage, int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	var msgs []store.NewMessage
	skipped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var tl transcriptLine
		if err := json.Unmarshal(line, &tl); err != nil {
			skipped++
			continue
		}

		role, ok := mapRole(tl.Role)
		if !ok {
			skipped++
			continue
		}

		raw := tl.Content
		if len(raw) == 0 || string(raw) == "null" {
			raw = tl.Message.Content
		}
		text := extractText(raw)
		if role == store.RoleUser {
			text = extractUserQuery(text)
		}
		text = cleanContent(text)
		if text == "" {
			skipped++
			continue
		}
		msgs = append(msgs, store.NewMessage{Role: role, Content: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read transcript: %w", err)
	}
	return msgs, skipped, nil
}

// parseTextTranscript handles the "user:" / "assistant:" sectioned format.
// Tool call and tool result sections are dropped.
func parseTextTranscript(data []byte) ([]store.NewMessage, int) {
	type section struct {
		role    string
		content strings.Builder
	}

	var sections []*section
	var current *section

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "user:" || trimmed == "assistant:":
			current = &section{role: strings.TrimSuffix(trimmed, ":")}
			sections = append(sections, current)
			continue
		case strings.HasPrefix(trimmed, "[Tool call]"), strings.HasPrefix(trimmed, "[Tool result]"):
			current = &section{role: "tool"}
			sections = append(sections, current)
			continue
		}

		if current != nil {
			current.content.WriteString(line)
			current.content.WriteByte('\n')
		}
	}

	var msgs []store.NewMessage
	skipped := 0
	for _, sec := range sections {
		role, ok := mapRole(sec.role)
		if !ok {
			skipped++
			continue
		}
		text := sec.content.String()
		if role == store.RoleUser {
			text = extractUserQuery(text)
		}
		text = cleanContent(text)
		if text == "" {
			skipped++
			continue
		}
		msgs = append(msgs, store.NewMessage{Role: role, Content: text})
	}
	return msgs, skipped
}

func mapRole(role string) (store.Role, bool) {
	switch strings.ToLower(role) {
	case "user", "human":
		return store.RoleUser, true
	case "assistant", "ai", "model":
		return store.RoleAssistant, true
	default:
		return "", false
	}
}

// extractText reads content given either as a plain string or as a list of
// typed parts, keeping only the text parts.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var texts []string
	for _, p := range parts {
		if p.Type == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// cleanContent strips editor context tags and [Thinking] prefixes and
// collapses runs of blank lines.
func cleanContent(s string) string {
	s = xmlTagsRe.ReplaceAllString(s, "")
	s = thinkingPrefixRe.ReplaceAllString(s, "")

	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

// extractUserQuery returns the text inside <user_query> tags when present,
// otherwise s unchanged.
func extractUserQuery(s string) string {
	start := strings.Index(s, "<user_query>")
	end := strings.Index(s, "</user_query>")
	if start >= 0 && end > start {
		return s[start+len("<user_query>") : end]
	}
	return s
}
