package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "history.db"), testLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, TypeText, "a long seed string that is well over thirty characters")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.Title != "a long seed string that is wel..." {
		t.Errorf("Title = %q, want truncated seed", sess.Title)
	}

	sess.Messages = append(sess.Messages,
		Message{Role: RoleUser, Text: "hello"},
		Message{Role: RolePersona, Text: "peace be with you"},
	)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("Get() returned %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != RoleUser || got.Messages[1].Role != RolePersona {
		t.Errorf("message roles = %s, %s", got.Messages[0].Role, got.Messages[1].Role)
	}
}

func TestSQLiteStore_DeleteRemovesMessages(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, TypeVoice, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	sess.Messages = append(sess.Messages, Message{Role: RoleUser, Text: "hi"})
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
