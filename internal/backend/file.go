package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	recordExt = ".json"
	locksDir  = ".locks"

	defaultDirPerms  = 0o755
	defaultFilePerms = 0o644

	// lockRetryDelay is the delay between lock attempts while another writer holds the session.
	lockRetryDelay = 10 * time.Millisecond
	// lockWait bounds how long a writer waits when the caller's context has no deadline.
	lockWait = 5 * time.Second
)

// FileOptions configures the file backend.
type FileOptions struct {
	Dir string `mapstructure:"dir"`
}

// File stores each record as <dir>/<key>.json. Writes go through a temp
// file and rename; per-key locks are flock files under <dir>/.locks.
type File struct {
	dir string
}

var (
	_ Backend = (*File)(nil)
	_ Locker  = (*File)(nil)
)

func NewFile(opts FileOptions) (*File, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("file backend: dir is required")
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, locksDir), defaultDirPerms); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &File{dir: opts.Dir}, nil
}

// Dir returns the directory holding the records.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+recordExt)
}

func (f *File) lockPath(key string) string {
	return filepath.Join(f.dir, locksDir, key+".lock")
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *File) Put(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := writeFileAtomic(f.path(key), data, defaultFilePerms); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", key, err)
	}
	// The lock file stays: callers delete under the lock, and unlinking it
	// would let a new Lock take a fresh inode while the old one is held.
	return true, nil
}

func (f *File) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		key := strings.TrimSuffix(name, recordExt)
		if ValidateKey(key) != nil {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Lock takes an exclusive flock on the key's lock file, retrying until the
// context is done or lockWait elapses.
func (f *File) Lock(ctx context.Context, key string) (func(), error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lockWait)
		defer cancel()
	}

	lock := flock.New(f.lockPath(key))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}

	return func() { _ = lock.Unlock() }, nil
}

func (f *File) Close() error {
	return nil
}
