// Package backend holds the key-value persistence layer under the session
// store. Each backend maps a session id to one serialized record.
package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid key")
	ErrUnknownType = errors.New("unknown backend type")
	ErrLockTimeout = errors.New("timed out acquiring lock")
)

const maxKeyLen = 128

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Backend stores opaque records keyed by identifier.
//
// Put must be atomic: a concurrent Get sees either the previous record or the
// new one, never a partial write.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys returns every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Locker is implemented by backends that can serialize writers across
// processes. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// ValidateKey rejects keys that could escape a namespace (path separators,
// leading dots, glob characters).
func ValidateKey(key string) error {
	if len(key) == 0 || len(key) > maxKeyLen || !keyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
