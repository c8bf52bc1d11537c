// Package uploadclient implements the direct upload handshake from the client
// side: request a presigned URL, PUT the file straight to object storage with
// progress reporting, then confirm the upload so the backend records metadata.
package uploadclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ResourceEpisode and ResourceShow name the two attachment targets the
// handshake supports.
const (
	ResourceEpisode = "episode"
	ResourceShow    = "show"
)

// ProgressFunc receives the number of bytes sent so far and the total size.
type ProgressFunc func(sent int64, total int64)

// PresignResult is the backend's answer to a presign request.
type PresignResult struct {
	PresignedURL string `json:"presigned_url"`
	Key          string `json:"key"`
	FileURL      string `json:"file_url"`
}

// ConfirmRequest carries the metadata reported back after a successful PUT.
type ConfirmRequest struct {
	Key      string `json:"key"`
	FileURL  string `json:"file_url"`
	FileName string `json:"filename"`
	Size     int64  `json:"size"`
	Duration *int   `json:"duration,omitempty"`
	Bitrate  *int   `json:"bitrate,omitempty"`
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
}

// Client drives the presign/upload/confirm sequence against the API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Minute}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.AccessToken,
		httpClient: hc,
	}, nil
}

// UploadAudio runs the full handshake for one file. The reader must deliver
// exactly size bytes. onProgress may be nil.
func (c *Client) UploadAudio(ctx context.Context, resource string, docID string, fileName string, contentType string, body io.Reader, size int64, duration *int, bitrate *int, onProgress ProgressFunc) (*ConfirmRequest, error) {
	if resource != ResourceEpisode && resource != ResourceShow {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	if fileName == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	presign, err := c.Presign(ctx, resource, docID, fileName, contentType)
	if err != nil {
		return nil, err
	}

	if err := c.Put(ctx, presign.PresignedURL, contentType, body, size, onProgress); err != nil {
		return nil, err
	}

	confirm := &ConfirmRequest{
		Key:      presign.Key,
		FileURL:  presign.FileURL,
		FileName: fileName,
		Size:     size,
		Duration: duration,
		Bitrate:  bitrate,
	}
	if err := c.Confirm(ctx, resource, docID, confirm); err != nil {
		return nil, err
	}
	return confirm, nil
}

// Presign asks the backend for a signed PUT URL.
func (c *Client) Presign(ctx context.Context, resource string, docID string, fileName string, contentType string) (*PresignResult, error) {
	payload := map[string]string{
		"filename":     fileName,
		"content_type": contentType,
	}

	var result PresignResult
	url := fmt.Sprintf("%s/api/v1/upload/presign/%s/%s", c.baseURL, resource, docID)
	if err := c.postJSON(ctx, url, payload, &result); err != nil {
		return nil, fmt.Errorf("presign %s %s: %w", resource, docID, err)
	}
	if result.PresignedURL == "" || result.Key == "" {
		return nil, fmt.Errorf("presign %s %s: incomplete response", resource, docID)
	}
	return &result, nil
}

// Put streams the file to the presigned URL.
func (c *Client) Put(ctx context.Context, presignedURL string, contentType string, body io.Reader, size int64, onProgress ProgressFunc) error {
	reader := body
	if onProgress != nil {
		reader = &progressReader{r: body, total: size, report: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, reader)
	if err != nil {
		return fmt.Errorf("building storage request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading to storage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("storage upload failed: status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

// Confirm reports the completed upload back to the API.
func (c *Client) Confirm(ctx context.Context, resource string, docID string, confirm *ConfirmRequest) error {
	url := fmt.Sprintf("%s/api/v1/upload/confirm/%s/%s", c.baseURL, resource, docID)
	if err := c.postJSON(ctx, url, confirm, nil); err != nil {
		return fmt.Errorf("confirm %s %s: %w", resource, docID, err)
	}
	return nil
}

// postJSON posts a JSON body and decodes the success envelope's data field
// into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil && envelope.Error.Message != "" {
			return fmt.Errorf("api status %d: %s (%s)", resp.StatusCode, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("api status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		p.report(p.sent, p.total)
	}
	return n, err
}
