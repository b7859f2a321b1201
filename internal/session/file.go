package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists sessions as a single JSON array in one history file.
// Reads and writes go through a whole-file read-modify-write without
// transactional isolation; concurrent writers are last-write-wins, which is
// acceptable for a single-user interactive tool.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created lazily on first write.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// List returns all sessions sorted most recently updated first.
func (s *FileStore) List(ctx context.Context) ([]ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	sortByRecency(sessions)
	return sessions, nil
}

// Get retrieves a session by id.
func (s *FileStore) Get(ctx context.Context, id string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	for i := range sessions {
		if sessions[i].ID == id {
			return sessions[i].Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Save upserts a session by id and stamps UpdatedAt.
func (s *FileStore) Save(ctx context.Context, sess *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	stored := sess.Clone()
	stored.UpdatedAt = s.now()

	replaced := false
	for i := range sessions {
		if sessions[i].ID == stored.ID {
			sessions[i] = *stored
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, *stored)
	}

	if err := s.persist(sessions); err != nil {
		return err
	}
	sess.UpdatedAt = stored.UpdatedAt
	return nil
}

// Create builds, persists and returns a new session.
func (s *FileStore) Create(ctx context.Context, t Type, seed string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &ChatSession{
		ID:        uuid.NewString(),
		Type:      t,
		Title:     TitleFromSeed(seed),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	sessions := append(s.load(), *sess.Clone())
	if err := s.persist(sessions); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session; absent ids are a no-op.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}
	return s.persist(kept)
}

// load reads the history file. A missing or unparsable file yields an empty
// slice; parse failures are logged, not fatal.
func (s *FileStore) load() []ChatSession {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read history file", "path", s.path, "error", err)
		}
		return []ChatSession{}
	}

	var sessions []ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Warn("failed to parse history file, treating as empty", "path", s.path, "error", err)
		return []ChatSession{}
	}
	return sessions
}

// persist writes the full session list atomically via a temp file rename.
func (s *FileStore) persist(sessions []ChatSession) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
