// Package export renders a stored session as a portable document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chatkeep/internal/store"
)

// Version is the document format version.
const Version = "1"

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the format names and their short aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: json, yaml, markdown)", s)
	}
}

// DetectFormat picks a format from the output file extension, defaulting to
// JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

type Document struct {
	Version    string     `json:"version" yaml:"version"`
	ExportedAt time.Time  `json:"exportedAt" yaml:"exported_at"`
	Session    Session    `json:"session" yaml:"session"`
	Messages   []Message  `json:"messages" yaml:"messages"`
	Statistics Statistics `json:"statistics" yaml:"statistics"`
}

type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

type Message struct {
	ID           string    `json:"id" yaml:"id"`
	Role         string    `json:"role" yaml:"role"`
	Type         string    `json:"type,omitempty" yaml:"type,omitempty"`
	Content      string    `json:"content" yaml:"content"`
	ImageURL     string    `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty" yaml:"thumbnail_url,omitempty"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}

// Build snapshots sess into a Document stamped with exportedAt.
func Build(sess *store.Session, exportedAt time.Time) *Document {
	doc := &Document{
		Version:    Version,
		ExportedAt: exportedAt.UTC(),
		Session: Session{
			ID:        sess.ID,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		},
		Messages:   make([]Message, 0, len(sess.Messages)),
		Statistics: computeStatistics(sess.Messages),
	}
	for _, m := range sess.Messages {
		doc.Messages = append(doc.Messages, Message{
			ID:           m.ID,
			Role:         string(m.Role),
			Type:         string(m.Type),
			Content:      m.Content,
			ImageURL:     m.ImageURL,
			ThumbnailURL: m.ThumbnailURL,
			Timestamp:    m.Timestamp,
		})
	}
	return doc
}

// Render writes doc to w in the given format.
func Render(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, doc)
	case FormatYAML:
		return renderYAML(w, doc)
	case FormatMarkdown:
		return renderMarkdown(w, doc)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, yaml, markdown)", format)
	}
}

func renderJSON(w io.Writer, doc *Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

func renderYAML(w io.Writer, doc *Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return encoder.Close()
}

func renderMarkdown(w io.Writer, doc *Document) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Session.Title)
	fmt.Fprintf(&b, "**Session:** %s\n", doc.Session.ID)
	fmt.Fprintf(&b, "**Created:** %s\n", doc.Session.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Updated:** %s\n", doc.Session.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Exported:** %s\n\n", doc.ExportedAt.Format(time.RFC3339))

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- Total Messages: %d\n", doc.Statistics.MessageCount)
	fmt.Fprintf(&b, "- User Messages: %d\n", doc.Statistics.UserMessages)
	fmt.Fprintf(&b, "- Assistant Messages: %d\n", doc.Statistics.AssistantMessages)
	if doc.Statistics.ImageMessages > 0 {
		fmt.Fprintf(&b, "- Images: %d\n", doc.Statistics.ImageMessages)
	}
	fmt.Fprintf(&b, "- Estimated Tokens: %d\n\n", doc.Statistics.EstimatedTokens)

	b.WriteString("## Conversation\n\n")
	for i, m := range doc.Messages {
		fmt.Fprintf(&b, "### %d. %s\n", i+1, strings.ToUpper(m.Role))
		fmt.Fprintf(&b, "*%s*\n\n", m.Timestamp.Format(time.RFC3339))
		if m.ImageURL != "" {
			fmt.Fprintf(&b, "![image](%s)\n\n", m.ImageURL)
		}
		if m.Content != "" {
			fmt.Fprintf(&b, "%s\n\n", m.Content)
		}
		b.WriteString("---\n\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}
