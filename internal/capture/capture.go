// Package capture turns external material (chat transcripts, notes, files)
// into stored sessions by replaying it through the store's append path.
package capture

import (
	"context"
	"fmt"

	"chatkeep/internal/store"
)

// SessionWriter is the slice of the store that imports need.
type SessionWriter interface {
	Create(ctx context.Context, title string) (*store.Session, error)
	AppendMessage(ctx context.Context, id string, msg store.NewMessage) (*store.Session, error)
}

// Result reports what an import stored.
type Result struct {
	Session  *store.Session
	Imported int
	Skipped  int
}

// replay creates a session and appends msgs in order. A failure part way
// leaves the messages appended so far in place.
func replay(ctx context.Context, w SessionWriter, title string, msgs []store.NewMessage) (*store.Session, error) {
	sess, err := w.Create(ctx, title)
	if err != nil {
		return nil, err
	}
	for i, m := range msgs {
		updated, err := w.AppendMessage(ctx, sess.ID, m)
		if err != nil {
			return sess, fmt.Errorf("append message %d to session %s: %w", i+1, sess.ID, err)
		}
		sess = updated
	}
	return sess, nil
}
