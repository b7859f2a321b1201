package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no session has the requested id.
var ErrNotFound = errors.New("session not found")

// Store persists conversation sessions. Implementations must be safe for
// concurrent use from multiple view components; Save is last-write-wins
// keyed by session id.
type Store interface {
	// List returns all sessions sorted most recently updated first.
	List(ctx context.Context) ([]ChatSession, error)

	// Get retrieves a session by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*ChatSession, error)

	// Save upserts a session by id and stamps UpdatedAt.
	Save(ctx context.Context, sess *ChatSession) error

	// Create builds a new session with a fresh id, a title derived from the
	// seed text, persists it immediately and returns it.
	Create(ctx context.Context, t Type, seed string) (*ChatSession, error)

	// Delete removes a session. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
}
