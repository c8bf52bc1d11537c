package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
)

const (
	apiBase      = "https://api.cloudinary.com/v1_1"
	deliveryBase = "https://res.cloudinary.com"
	resourceType = "raw"
)

// Store uploads and deletes objects through the Cloudinary upload API. It only
// supports server-proxied uploads; direct presigned PUTs are not available.
type Store struct {
	httpClient *http.Client
	cloudName  string
	apiKey     string
	apiSecret  string
}

// New builds a Cloudinary-backed object store.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Store, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, errors.New("cloudinary cloud name, api key and api secret are required")
	}

	store := &Store{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		cloudName:  cfg.CloudinaryCloudName,
		apiKey:     cfg.CloudinaryAPIKey,
		apiSecret:  cfg.CloudinaryAPISecret,
	}

	if logg != nil {
		logg.Info(ctx, "cloudinary object store initialized")
	}

	return store, nil
}

// SignUploadURL is unsupported; Cloudinary uploads go through the server.
func (s *Store) SignUploadURL(ctx context.Context, key, contentType string) (string, error) {
	return "", storage.ErrPresignUnsupported
}

// Upload streams the object body to the Cloudinary upload endpoint.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := s.sign(map[string]string{
		"public_id": key,
		"timestamp": timestamp,
	})

	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		err := writeUploadForm(writer, key, timestamp, signature, s.apiKey, body)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pipeWriter.CloseWithError(err)
	}()

	endpoint := fmt.Sprintf("%s/%s/%s/upload", apiBase, s.cloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pipeReader)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cloudinary upload for %s returned status %d: %s", key, resp.StatusCode, readErrorBody(resp.Body))
	}
	return nil
}

func writeUploadForm(writer *multipart.Writer, key, timestamp, signature, apiKey string, body io.Reader) error {
	fields := map[string]string{
		"public_id": key,
		"timestamp": timestamp,
		"api_key":   apiKey,
		"signature": signature,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}

	part, err := writer.CreateFormFile("file", key)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, body)
	return err
}

// Delete destroys the object identified by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := s.sign(map[string]string{
		"public_id": key,
		"timestamp": timestamp,
	})

	form := url.Values{}
	form.Set("public_id", key)
	form.Set("timestamp", timestamp)
	form.Set("api_key", s.apiKey)
	form.Set("signature", signature)

	endpoint := fmt.Sprintf("%s/%s/%s/destroy", apiBase, s.cloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("destroying %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cloudinary destroy for %s returned status %d: %s", key, resp.StatusCode, readErrorBody(resp.Body))
	}
	return nil
}

// PublicURL builds the Cloudinary delivery URL for the key.
func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s/upload/%s", deliveryBase, s.cloudName, resourceType, key)
}

// Ping verifies credentials against the admin ping endpoint.
func (s *Store) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s/ping", apiBase, s.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	req.SetBasicAuth(s.apiKey, s.apiSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinging cloudinary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloudinary ping returned status %d", resp.StatusCode)
	}
	return nil
}

// sign produces the Cloudinary request signature: the sorted parameter string
// followed by the API secret, hashed with SHA-1.
func (s *Store) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	payload := strings.Join(parts, "&") + s.apiSecret

	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func readErrorBody(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil {
		return ""
	}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
