package storage

import (
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1717243200000)
	key := ObjectKey("episodes", "abc-123", "My Mix.MP3", now)
	if key != "episodes/abc-123_1717243200000.mp3" {
		t.Fatalf("unexpected key %q", key)
	}

	key = ObjectKey("shows", "def", "noextension", now)
	if key != "shows/def_1717243200000.bin" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"mix.mp3", "mix.mp3"},
		{"../../etc/passwd", "passwd"},
		{"weird*name?.mp3", "weird_name_.mp3"},
		{"", "file"},
		{"dir\\evil.mp3", "evil.mp3"},
	}

	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
