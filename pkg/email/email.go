package email

import (
	"context"
	"fmt"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
)

// Message is a single outbound notification email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTML     string
	Template string
}

// Sender delivers notification emails. Implementations are selected once at
// startup and injected into the services that need them.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New selects the sender implementation named by cfg.Provider.
func New(ctx context.Context, cfg config.EmailConfig, logg *logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendGridSender(ctx, cfg, logg)
	case "smtp":
		return NewSMTPSender(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
