package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	fifty := strings.Repeat("z", 50)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short text is used verbatim",
			content: "hi",
			want:    "hi",
		},
		{
			name:    "exactly fifty characters is unchanged",
			content: fifty,
			want:    fifty,
		},
		{
			name:    "cuts at a late word boundary",
			content: strings.Repeat("a", 30) + " " + strings.Repeat("b", 29),
			want:    strings.Repeat("a", 30) + "...",
		},
		{
			name:    "hard cut when there is no space",
			content: strings.Repeat("x", 60),
			want:    strings.Repeat("x", 47) + "...",
		},
		{
			name:    "hard cut when the only space is at offset twenty",
			content: strings.Repeat("a", 20) + " " + strings.Repeat("b", 39),
			want:    strings.Repeat("a", 20) + " " + strings.Repeat("b", 26) + "...",
		},
		{
			name:    "uses the last space inside the prefix",
			content: "How do I configure retention for chat sessions stored on disk in production?",
			want:    "How do I configure retention for chat sessions...",
		},
		{
			name:    "whitespace runs collapse and ends are trimmed",
			content: "  hello\n\n\tworld   again  ",
			want:    "hello world again",
		},
		{
			name:    "collapsing can bring text under the limit",
			content: "one" + strings.Repeat(" ", 60) + "two",
			want:    "one two",
		},
		{
			name:    "whitespace only yields empty title",
			content: " \n\t ",
			want:    "",
		},
		{
			name:    "byte order marks count as whitespace",
			content: "\uFEFFhello\uFEFF\uFEFFworld\uFEFF",
			want:    "hello world",
		},
		{
			name:    "counts characters not bytes",
			content: strings.Repeat("é", 50),
			want:    strings.Repeat("é", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.content)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), maxTitleLen)
		})
	}
}

func TestDeriveTitle_MultibyteTruncation(t *testing.T) {
	content := strings.Repeat("日本", 40)
	got := DeriveTitle(content)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, string([]rune(content)[:47])+"...", got)
}
