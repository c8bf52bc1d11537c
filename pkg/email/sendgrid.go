package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
)

const sendgridBaseURL = "https://api.sendgrid.com"

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
}

// NewSendGridSender builds a SendGrid-backed sender.
func NewSendGridSender(ctx context.Context, cfg config.EmailConfig, logg *logger.Logger) (*SendGridSender, error) {
	if cfg.SendgridAPIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.FromAddress == "" {
		return nil, errors.New("email from address is required")
	}

	sender := &SendGridSender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    sendgridBaseURL,
		apiKey:     cfg.SendgridAPIKey,
		fromEmail:  cfg.FromAddress,
		fromName:   cfg.FromName,
	}

	if logg != nil {
		logg.Info(ctx, "sendgrid sender initialized")
	}

	return sender, nil
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridPayload struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

// Send posts the message to the v3 mail/send endpoint.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient address is required")
	}

	payload := sendgridPayload{
		Personalizations: []sendgridPersonalization{
			{To: []sendgridAddress{{Email: msg.To, Name: msg.ToName}}},
		},
		From:    sendgridAddress{Email: s.fromEmail, Name: s.fromName},
		Subject: msg.Subject,
		Content: []sendgridContent{
			{Type: "text/html", Value: msg.HTML},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
