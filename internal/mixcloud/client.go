// Package mixcloud implements the upload API client used to cross-post
// archived episodes.
package mixcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
)

const publicBaseURL = "https://www.mixcloud.com"

// PublishInput describes one show recording to push to Mixcloud.
type PublishInput struct {
	Name        string
	Description string
	AudioURL    string
	ImageURL    string
}

// PublishResult carries the remote identifiers of a completed upload.
type PublishResult struct {
	Key string
	URL string
}

// Client talks to the Mixcloud upload API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logg        *logger.Logger
}

// New constructs a Mixcloud client. A missing access token is allowed at
// construction so the server can boot without the integration; Publish
// rejects calls until one is configured.
func New(cfg config.MixcloudConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("mixcloud base url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		logg:        logg,
	}, nil
}

type uploadResponse struct {
	Result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Key     string `json:"key"`
	} `json:"result"`
	Key   string `json:"key"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Publish streams the recording from storage into a multipart upload.
func (c *Client) Publish(ctx context.Context, input PublishInput) (*PublishResult, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("mixcloud access token not configured")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.AudioURL == "" {
		return nil, fmt.Errorf("audio url is required")
	}

	audio, err := c.fetch(ctx, input.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("fetching audio: %w", err)
	}
	defer audio.Close()

	var picture io.ReadCloser
	if input.ImageURL != "" {
		picture, err = c.fetch(ctx, input.ImageURL)
		if err != nil {
			// Cover art is optional; upload the audio anyway.
			c.logg.Warn(ctx, fmt.Sprintf("fetching mixcloud cover art failed: %v", err))
			picture = nil
		} else {
			defer picture.Close()
		}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeUploadBody(writer, input, audio, picture)
		writer.Close()
		pw.CloseWithError(err)
	}()

	endpoint := fmt.Sprintf("%s/upload/?access_token=%s", c.baseURL, url.QueryEscape(c.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling mixcloud: %w", err)
	}
	defer resp.Body.Close()

	var decoded uploadResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decoded.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("mixcloud upload failed: status %d: %s", resp.StatusCode, msg)
	}

	key := decoded.Result.Key
	if key == "" {
		key = decoded.Key
	}
	if key == "" && !decoded.Result.Success {
		return nil, fmt.Errorf("mixcloud upload rejected: %s", decoded.Result.Message)
	}

	return &PublishResult{
		Key: key,
		URL: publicBaseURL + key,
	}, nil
}

func writeUploadBody(writer *multipart.Writer, input PublishInput, audio io.Reader, picture io.Reader) error {
	if err := writer.WriteField("name", input.Name); err != nil {
		return err
	}
	if input.Description != "" {
		if err := writer.WriteField("description", input.Description); err != nil {
			return err
		}
	}

	part, err := writer.CreateFormFile("mp3", "audio.mp3")
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}

	if picture != nil {
		part, err := writer.CreateFormFile("picture", "cover.jpg")
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, picture); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d fetching %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}
