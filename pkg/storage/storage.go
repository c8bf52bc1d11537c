package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrPresignUnsupported is returned by drivers that cannot issue direct
// client-side upload URLs.
var ErrPresignUnsupported = errors.New("driver does not support presigned uploads")

// ObjectStore abstracts the object storage backend used for audio and images.
type ObjectStore interface {
	// SignUploadURL returns a URL the client can PUT the object to directly.
	SignUploadURL(ctx context.Context, key, contentType string) (string, error)
	// Upload streams the object through the server.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the canonical URL the object is served from.
	PublicURL(key string) string
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ObjectKey builds the storage key for a document slot:
// <folder>/<docID>_<unixms>.<ext>.
func ObjectKey(folder, docID, fileName string, now time.Time) string {
	ext := ExtensionOf(fileName)
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s_%d.%s", folder, docID, now.UnixMilli(), ext)
}

// ExtensionOf returns the lowercase file extension without the leading dot.
func ExtensionOf(fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	return strings.ToLower(strings.TrimSpace(ext))
}

// SanitizeFileName strips path separators and control characters so the
// original name can be stored safely as metadata.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var builder strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	cleaned := strings.TrimSpace(builder.String())
	if cleaned == "" || cleaned == "." {
		return "file"
	}
	return cleaned
}
