package session

import (
	"context"
	"errors"

	"sarathi-be/pkg/store"
)

var (
	// ErrNotFound means the session id is unknown or expired.
	ErrNotFound = errors.New("session not found")

	// ErrVersionConflict means another writer committed the session
	// between our read and our write. The caller must re-read and
	// reapply its mutation.
	ErrVersionConflict = errors.New("session version conflict")
)

// Store is the durable keyed storage for per-conversation state.
// Put performs an optimistic compare-and-set: it succeeds only if the
// stored version still equals s.Version, then persists s with the
// version incremented.
type Store interface {
	Get(ctx context.Context, id string) (*store.Session, error)
	Put(ctx context.Context, s *store.Session) error
	Delete(ctx context.Context, id string) error
}
