package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSession_LegacyRecord(t *testing.T) {
	// Millisecond timestamps as written by JavaScript's Date#toISOString.
	data := []byte(`{
  "id": "legacy",
  "title": "Old chat",
  "createdAt": "2024-03-01T10:00:00.000Z",
  "updatedAt": "2024-03-01T10:05:30.250Z",
  "messageCount": 7,
  "messages": [
    {"id": "m1", "role": "user", "content": "hello", "timestamp": "2024-03-01T10:05:30.250Z"},
    {"id": "m2", "role": "assistant", "content": "", "timestamp": "2024-03-01T10:05:31.000Z",
     "type": "image", "imageUrl": "/images/a.png", "thumbnailUrl": "/images/a_thumb.png"}
  ]
}`)

	sess, err := decodeSession(data)
	require.NoError(t, err)

	assert.Equal(t, "legacy", sess.ID)
	assert.True(t, sess.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, sess.UpdatedAt.Equal(time.Date(2024, 3, 1, 10, 5, 30, 250_000_000, time.UTC)))
	assert.Equal(t, 2, sess.MessageCount, "count is derived from messages, not trusted from the record")
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, MessageType(""), sess.Messages[0].Type)
	assert.Equal(t, MessageImage, sess.Messages[1].Type)
	assert.Equal(t, "/images/a_thumb.png", sess.Messages[1].ThumbnailURL)
	assert.True(t, sess.Messages[1].Timestamp.After(sess.Messages[0].Timestamp))
}

func TestDecodeSession_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{{{`},
		{name: "missing id", data: `{"title":"x","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}`},
		{name: "bad createdAt", data: `{"id":"a","createdAt":"yesterday","updatedAt":"2024-01-01T00:00:00Z"}`},
		{name: "missing updatedAt", data: `{"id":"a","createdAt":"2024-01-01T00:00:00Z"}`},
		{
			name: "bad message timestamp",
			data: `{"id":"a","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z",
				"messages":[{"id":"m","role":"user","content":"x","timestamp":12}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := decodeSession([]byte(tt.data))
			assert.Error(t, err)
			assert.Nil(t, sess)
		})
	}
}

func TestEncodeSession_Shape(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 6, time.FixedZone("CET", 3600))
	sess := &Session{
		ID:           "s1",
		Title:        "t",
		CreatedAt:    ts,
		UpdatedAt:    ts,
		MessageCount: 99,
	}

	data, err := encodeSession(sess)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2025-01-02T02:04:05.000000006Z", raw["createdAt"], "timestamps are written in UTC")
	assert.Equal(t, float64(0), raw["messageCount"])
	assert.Equal(t, []any{}, raw["messages"], "empty sessions still carry a messages array")
	assert.Contains(t, string(data), "\n  \"title\": \"t\"")
}

func TestEncodeDecode_RoundTripIsStable(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	sess := &Session{
		ID:        "s1",
		Title:     "round trip",
		CreatedAt: ts,
		UpdatedAt: ts.Add(time.Minute),
		Messages: []Message{
			{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: ts.Add(time.Minute), Type: MessageText},
		},
	}

	first, err := encodeSession(sess)
	require.NoError(t, err)

	decoded, err := decodeSession(first)
	require.NoError(t, err)

	second, err := encodeSession(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
