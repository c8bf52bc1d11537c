package cloudinary

import (
	"context"
	"errors"
	"testing"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
)

func TestSignIsDeterministicAndSorted(t *testing.T) {
	store := &Store{apiSecret: "abcd"}

	first := store.sign(map[string]string{"timestamp": "100", "public_id": "episodes/x"})
	second := store.sign(map[string]string{"public_id": "episodes/x", "timestamp": "100"})
	if first != second {
		t.Fatalf("signature depends on map order: %q vs %q", first, second)
	}
	if len(first) != 40 {
		t.Fatalf("expected sha1 hex signature, got %q", first)
	}
}

func TestPublicURL(t *testing.T) {
	store := &Store{cloudName: "radio-bug"}
	got := store.PublicURL("episodes/abc_1.mp3")
	want := "https://res.cloudinary.com/radio-bug/raw/upload/episodes/abc_1.mp3"
	if got != want {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestSignUploadURLUnsupported(t *testing.T) {
	store := &Store{}
	if _, err := store.SignUploadURL(context.Background(), "k", "audio/mpeg"); !errors.Is(err, storage.ErrPresignUnsupported) {
		t.Fatalf("expected ErrPresignUnsupported, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), config.StorageConfig{}, nil); err == nil {
		t.Fatal("expected error without credentials")
	}
}
