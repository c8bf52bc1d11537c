package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), config.StorageConfig{
		FSRoot:  t.TempDir(),
		BaseURL: "http://localhost:8080/uploads",
	}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return store
}

func TestUploadAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := "episodes/abc_123.mp3"
	if err := store.Upload(ctx, key, "audio/mpeg", strings.NewReader("audio-bytes")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(store.root, "episodes", "abc_123.mp3"))
	if err != nil {
		t.Fatalf("reading stored object: %v", err)
	}
	if string(raw) != "audio-bytes" {
		t.Fatalf("unexpected object body %q", raw)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Deleting a missing object is not an error.
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestSignUploadURLUnsupported(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.SignUploadURL(context.Background(), "episodes/x.mp3", "audio/mpeg"); !errors.Is(err, storage.ErrPresignUnsupported) {
		t.Fatalf("expected ErrPresignUnsupported, got %v", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	if err := store.Upload(context.Background(), "../escape.mp3", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestPublicURL(t *testing.T) {
	store := newTestStore(t)
	got := store.PublicURL("shows/a.mp3")
	if got != "http://localhost:8080/uploads/shows/a.mp3" {
		t.Fatalf("unexpected public url %q", got)
	}
}
