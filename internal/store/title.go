package store

import (
	"strings"
	"unicode"
)

const (
	maxTitleLen   = 50
	titlePrefix   = 47
	minBreakpoint = 20
	ellipsis      = "..."
)

// DeriveTitle turns the first user message into a session title. Whitespace
// runs collapse to one space. Longer text is cut at the last word boundary
// in the first 47 characters, or hard-cut when that boundary falls too early.
func DeriveTitle(content string) string {
	cleaned := []rune(strings.Join(strings.FieldsFunc(content, isTitleSpace), " "))
	if len(cleaned) <= maxTitleLen {
		return string(cleaned)
	}

	truncated := cleaned[:titlePrefix]
	lastSpace := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		if truncated[i] == ' ' {
			lastSpace = i
			break
		}
	}
	if lastSpace > minBreakpoint {
		return string(truncated[:lastSpace]) + ellipsis
	}
	return string(truncated) + ellipsis
}

// isTitleSpace also treats a byte order mark as whitespace, as pasted text
// often starts with one.
func isTitleSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
