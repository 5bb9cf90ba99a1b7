package store

import (
	"time"

	"github.com/cockroachdb/errors"
)

// PlaceholderTitle is assigned at creation until a user message gives the
// session a real title.
const PlaceholderTitle = "New Chat"

// DefaultRetentionDays is the retention_days setting used when the config
// leaves it unset.
const DefaultRetentionDays = 30

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

type Message struct {
	ID           string      `json:"id"`
	Role         Role        `json:"role"`
	Content      string      `json:"content"`
	Timestamp    time.Time   `json:"timestamp"`
	Type         MessageType `json:"type,omitempty"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
}

type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	Messages     []Message `json:"messages"`
}

// Summary is the metadata-only view of a session used for listings.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:           s.ID,
		Title:        s.Title,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: s.MessageCount,
	}
}

// NewMessage is what callers hand to AppendMessage. The store assigns the id
// and timestamp.
type NewMessage struct {
	Role         Role        `json:"role"`
	Content      string      `json:"content"`
	Type         MessageType `json:"type,omitempty"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
}

// Validate checks the role/type combination. Content may be empty (an image
// without caption).
func (m NewMessage) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return errors.Wrapf(ErrInvalidMessage, "unknown role %q", m.Role)
	}

	switch m.Type {
	case "", MessageText:
		if m.ImageURL != "" || m.ThumbnailURL != "" {
			return errors.Wrap(ErrInvalidMessage, "image urls are only allowed on image messages")
		}
	case MessageImage:
		if m.ImageURL == "" {
			return errors.Wrap(ErrInvalidMessage, "image message requires imageUrl")
		}
	default:
		return errors.Wrapf(ErrInvalidMessage, "unknown message type %q", m.Type)
	}
	return nil
}
