package store

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSessionNotFound covers absent ids, ids that are not valid keys and
	// records that exist but cannot be decoded.
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrInvalidSession  = errors.New("invalid session")
	// ErrPersist marks a failed write. The in-memory session still carries
	// the mutation that could not be stored.
	ErrPersist = errors.New("failed to persist session")
	ErrStorage = errors.New("storage backend failure")
)

// ErrInvalidRetention rejects a negative Cleanup age.
var ErrInvalidRetention = errors.New("retention must not be negative")

// withCause returns an error whose Unwrap chain leads to sentinel, so both
// errors.Is implementations match it. The backend cause is kept in the
// message and as a secondary error.
func withCause(sentinel, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return errors.WithSecondaryError(errors.Wrapf(sentinel, "%s: %v", msg, cause), cause)
}
