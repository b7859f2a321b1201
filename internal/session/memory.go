package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation, used by tests and as a
// throwaway backing when no history path is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
	order    []string

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*ChatSession),
		now:      time.Now,
	}
}

// List returns all sessions sorted most recently updated first.
func (s *MemoryStore) List(ctx context.Context) ([]ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ChatSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.sessions[id].Clone())
	}
	sortByRecency(out)
	return out, nil
}

// Get retrieves a session by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Save upserts a session by id and stamps UpdatedAt.
func (s *MemoryStore) Save(ctx context.Context, sess *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := sess.Clone()
	stored.UpdatedAt = s.now()
	if _, ok := s.sessions[stored.ID]; !ok {
		s.order = append(s.order, stored.ID)
	}
	s.sessions[stored.ID] = stored
	sess.UpdatedAt = stored.UpdatedAt
	return nil
}

// Create builds, persists and returns a new session.
func (s *MemoryStore) Create(ctx context.Context, t Type, seed string) (*ChatSession, error) {
	now := s.now()
	sess := &ChatSession{
		ID:        uuid.NewString(),
		Type:      t,
		Title:     TitleFromSeed(seed),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess.Clone()
	s.order = append(s.order, sess.ID)
	s.mu.Unlock()

	return sess, nil
}

// Delete removes a session; absent ids are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return nil
	}
	delete(s.sessions, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
