package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
)

// Store keeps objects on local disk. Meant for development; presigned uploads
// are not available.
type Store struct {
	root    string
	baseURL string
}

// New builds a filesystem-backed object store rooted at cfg.FSRoot.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Store, error) {
	if cfg.FSRoot == "" {
		return nil, errors.New("storage fs root is required")
	}
	if err := os.MkdirAll(cfg.FSRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating fs root: %w", err)
	}

	store := &Store{
		root:    cfg.FSRoot,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}

	if logg != nil {
		logg.Info(ctx, "filesystem object store initialized")
	}

	return store, nil
}

// SignUploadURL is unsupported for local disk.
func (s *Store) SignUploadURL(ctx context.Context, key, contentType string) (string, error) {
	return "", storage.ErrPresignUnsupported
}

// Upload writes the object body under the root directory.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating object file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	return nil
}

// Delete removes the object file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// PublicURL maps the key onto the configured base URL.
func (s *Store) PublicURL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return "/uploads/" + key
}

// Ping verifies the root directory is writable.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat fs root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fs root %s is not a directory", s.root)
	}
	return nil
}

func (s *Store) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, cleaned), nil
}
