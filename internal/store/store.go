// Package store is the system of record for chat sessions: creation, lookup,
// message append with title derivation, listing, search and retention.
//
// Every read goes to the backend and every mutation writes the whole session
// back. Mutations on one session id are serialized, in process through a
// keyed mutex and across processes when the backend implements
// backend.Locker.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatkeep/internal/backend"
)

type Store struct {
	backend backend.Backend
	log     *log.Logger
	now     func() time.Time
	newID   func() string
	locks   *keyedMutex
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func New(b backend.Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		log:     log.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// ─── Create / Load / Save ────────────────────────────────────────────────────

// Create persists a new empty session. An empty title means PlaceholderTitle.
func (s *Store) Create(ctx context.Context, title string) (*Session, error) {
	if title == "" {
		title = PlaceholderTitle
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        s.newID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Debug("Created session", "id", sess.ID, "title", sess.Title)
	return sess, nil
}

// Load reads one session. Missing, invalid and undecodable records all return
// ErrSessionNotFound so a single bad record cannot break listings.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.backend.Get(ctx, id)
	switch {
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, backend.ErrInvalidKey):
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	case err != nil:
		s.log.Error("Failed to read session", "op", "load", "id", id, "error", err)
		return nil, withCause(ErrStorage, err, "load session %s", id)
	}

	sess, err := decodeSession(data)
	if err == nil && sess.ID != id {
		err = fmt.Errorf("record id %q does not match key", sess.ID)
	}
	if err != nil {
		s.log.Warn("Unreadable session record", "op", "load", "id", id, "error", err)
		return nil, withCause(ErrSessionNotFound, err, "session %s is unreadable", id)
	}
	return sess, nil
}

// Save overwrites the stored record for sess.ID and refreshes MessageCount.
// On failure sess keeps whatever the caller changed.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil || backend.ValidateKey(sess.ID) != nil {
		return errors.Wrap(ErrInvalidSession, "session id is missing or malformed")
	}
	unlock, err := s.lock(ctx, sess.ID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.write(ctx, sess)
}

func (s *Store) write(ctx context.Context, sess *Session) error {
	sess.MessageCount = len(sess.Messages)

	data, err := encodeSession(sess)
	if err != nil {
		s.log.Error("Failed to encode session", "op", "save", "id", sess.ID, "error", err)
		return withCause(ErrPersist, err, "encode session %s", sess.ID)
	}
	if err := s.backend.Put(ctx, sess.ID, data); err != nil {
		s.log.Error("Failed to save session", "op", "save", "id", sess.ID, "error", err)
		return withCause(ErrPersist, err, "save session %s", sess.ID)
	}
	return nil
}

// ─── Messages ────────────────────────────────────────────────────────────────

// AppendMessage adds a message to an existing session; it never creates one.
// While the title is still the placeholder, the first user message names the
// session. If the final write fails the updated session is returned alongside
// an ErrPersist error.
func (s *Store) AppendMessage(ctx context.Context, id string, in NewMessage) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if backend.ValidateKey(id) != nil {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !now.After(sess.UpdatedAt) {
		now = sess.UpdatedAt.Add(time.Nanosecond)
	}

	msgType := in.Type
	if msgType == "" {
		msgType = MessageText
	}
	sess.Messages = append(sess.Messages, Message{
		ID:           s.newID(),
		Role:         in.Role,
		Content:      in.Content,
		Timestamp:    now,
		Type:         msgType,
		ImageURL:     in.ImageURL,
		ThumbnailURL: in.ThumbnailURL,
	})
	sess.MessageCount = len(sess.Messages)
	sess.UpdatedAt = now

	if sess.Title == "" || sess.Title == PlaceholderTitle {
		if first, ok := lo.Find(sess.Messages, func(m Message) bool { return m.Role == RoleUser }); ok {
			sess.Title = DeriveTitle(first.Content)
		}
	}

	if err := s.write(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// ListAll returns every readable session, most recently updated first. Equal
// timestamps are ordered by id so repeated calls agree.
func (s *Store) ListAll(ctx context.Context) ([]*Session, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.log.Error("Failed to list sessions", "op", "list", "error", err)
		return nil, withCause(ErrStorage, err, "list sessions")
	}

	sessions := make([]*Session, 0, len(keys))
	for _, id := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess, err := s.Load(ctx, id)
		if err != nil {
			s.log.Debug("Skipping session", "op", "list", "id", id, "error", err)
			continue
		}
		sessions = append(sessions, sess)
	}

	slices.SortStableFunc(sessions, func(a, b *Session) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sessions, nil
}

// Search matches query case-insensitively against titles and message bodies.
// An empty query matches everything; callers that want otherwise must check.
func (s *Store) Search(ctx context.Context, query string) ([]*Session, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	return lo.Filter(all, func(sess *Session, _ int) bool {
		if strings.Contains(strings.ToLower(sess.Title), q) {
			return true
		}
		return lo.ContainsBy(sess.Messages, func(m Message) bool {
			return strings.Contains(strings.ToLower(m.Content), q)
		})
	}), nil
}

func (s *Store) Summarize(ctx context.Context, id string) (*Summary, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := sess.Summary()
	return &summary, nil
}

// ─── Deletion ────────────────────────────────────────────────────────────────

// Delete removes a session permanently. It reports false for unknown ids.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if backend.ValidateKey(id) != nil {
		return false, nil
	}
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	return s.remove(ctx, id)
}

func (s *Store) remove(ctx context.Context, id string) (bool, error) {
	deleted, err := s.backend.Delete(ctx, id)
	if err != nil {
		s.log.Error("Failed to delete session", "op", "delete", "id", id, "error", err)
		return false, withCause(ErrStorage, err, "delete session %s", id)
	}
	if deleted {
		s.log.Debug("Deleted session", "id", id)
	}
	return deleted, nil
}

// Cleanup deletes sessions whose last update is strictly older than
// maxAgeDays and returns how many it removed. Zero removes everything not
// updated at this very instant; negative values are rejected.
func (s *Store) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays < 0 {
		return 0, errors.Wrapf(ErrInvalidRetention, "maxAgeDays %d", maxAgeDays)
	}
	cutoff := s.now().UTC().AddDate(0, 0, -maxAgeDays)

	all, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, sess := range all {
		if !sess.UpdatedAt.Before(cutoff) {
			continue
		}
		ok, err := s.removeIfStale(ctx, sess.ID, cutoff)
		if err != nil {
			s.log.Warn("Cleanup skipped session", "id", sess.ID, "error", err)
			continue
		}
		if ok {
			deleted++
		}
	}

	s.log.Info("Cleanup finished", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	return deleted, nil
}

// removeIfStale re-reads the session under its lock so a message appended
// since the listing keeps it alive.
func (s *Store) removeIfStale(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	sess, err := s.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !sess.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	return s.remove(ctx, id)
}

// lock serializes writers of one session: the in-process mutex first, then
// the backend's cross-process lock when it has one.
func (s *Store) lock(ctx context.Context, id string) (func(), error) {
	release, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "lock session %s", id)
	}

	locker, ok := s.backend.(backend.Locker)
	if !ok {
		return release, nil
	}
	unlock, err := locker.Lock(ctx, id)
	if err != nil {
		release()
		return nil, errors.Wrapf(err, "lock session %s", id)
	}
	return func() {
		unlock()
		release()
	}, nil
}
