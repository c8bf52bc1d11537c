package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr      string
	auth      smtp.Auth
	fromEmail string
	fromName  string

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds an SMTP-backed sender.
func NewSMTPSender(ctx context.Context, cfg config.EmailConfig, logg *logger.Logger) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.FromAddress == "" {
		return nil, errors.New("email from address is required")
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	sender := &SMTPSender{
		addr:      fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth:      auth,
		fromEmail: cfg.FromAddress,
		fromName:  cfg.FromName,
		send:      smtp.SendMail,
	}

	if logg != nil {
		logg.Info(ctx, "smtp sender initialized")
	}

	return sender, nil
}

// Send writes an HTML MIME message through the relay.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient address is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "From: %s\r\n", from)
	fmt.Fprintf(&builder, "To: %s\r\n", msg.To)
	fmt.Fprintf(&builder, "Subject: %s\r\n", msg.Subject)
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(msg.HTML)

	if err := s.send(s.addr, s.auth, s.fromEmail, []string{msg.To}, []byte(builder.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}
