package export

import (
	"unicode/utf8"

	"chatkeep/internal/store"
)

// charsPerToken approximates common chat tokenizers on mixed English text.
const charsPerToken = 3.5

// EstimateTokens gives a rough token count from the character count.
func EstimateTokens(text string) int {
	return int(float64(utf8.RuneCountInString(text)) / charsPerToken)
}

type Statistics struct {
	MessageCount      int `json:"messageCount" yaml:"message_count"`
	UserMessages      int `json:"userMessages" yaml:"user_messages"`
	AssistantMessages int `json:"assistantMessages" yaml:"assistant_messages"`
	ImageMessages     int `json:"imageMessages" yaml:"image_messages"`
	EstimatedTokens   int `json:"estimatedTokens" yaml:"estimated_tokens"`
}

func computeStatistics(messages []store.Message) Statistics {
	stats := Statistics{MessageCount: len(messages)}
	for _, m := range messages {
		switch m.Role {
		case store.RoleUser:
			stats.UserMessages++
		case store.RoleAssistant:
			stats.AssistantMessages++
		}
		if m.Type == store.MessageImage {
			stats.ImageMessages++
		}
		stats.EstimatedTokens += EstimateTokens(m.Content)
	}
	return stats
}
