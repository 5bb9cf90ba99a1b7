package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// The on-disk shape keeps timestamps as ISO-8601 text. Converting through
// these types makes every time field an explicit parse on load.

type messageRecord struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	Type         string `json:"type,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type sessionRecord struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
	MessageCount int             `json:"messageCount"`
	Messages     []messageRecord `json:"messages"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return t.UTC(), nil
}

func encodeSession(s *Session) ([]byte, error) {
	rec := sessionRecord{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    formatTimestamp(s.CreatedAt),
		UpdatedAt:    formatTimestamp(s.UpdatedAt),
		MessageCount: len(s.Messages),
		Messages:     make([]messageRecord, 0, len(s.Messages)),
	}
	for _, m := range s.Messages {
		rec.Messages = append(rec.Messages, messageRecord{
			ID:           m.ID,
			Role:         string(m.Role),
			Content:      m.Content,
			Timestamp:    formatTimestamp(m.Timestamp),
			Type:         string(m.Type),
			ImageURL:     m.ImageURL,
			ThumbnailURL: m.ThumbnailURL,
		})
	}
	return json.MarshalIndent(rec, "", "  ")
}

func decodeSession(data []byte) (*Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("session record has no id")
	}

	createdAt, err := parseTimestamp("createdAt", rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTimestamp("updatedAt", rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Messages:  make([]Message, 0, len(rec.Messages)),
	}
	for i, m := range rec.Messages {
		ts, err := parseTimestamp(fmt.Sprintf("messages[%d].timestamp", i), m.Timestamp)
		if err != nil {
			return nil, err
		}
		sess.Messages = append(sess.Messages, Message{
			ID:           m.ID,
			Role:         Role(m.Role),
			Content:      m.Content,
			Timestamp:    ts,
			Type:         MessageType(m.Type),
			ImageURL:     m.ImageURL,
			ThumbnailURL: m.ThumbnailURL,
		})
	}
	sess.MessageCount = len(sess.Messages)
	return sess, nil
}
