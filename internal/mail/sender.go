package mail

import (
	"context"
	"fmt"

	"github.com/aldrienne/remit/internal/config"
)

// Sender delivers an outbound message. Implementations must be safe for
// concurrent use; the notify stage sends from multiple workers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the transport selected by mail.mode.
func NewSender(cfg config.MailConfig) (Sender, error) {
	switch cfg.Mode {
	case config.MailModeOutbox:
		return NewOutbox(cfg.OutboxDir), nil
	case config.MailModeSMTP:
		return NewSMTPSender(cfg.SMTP), nil
	default:
		return nil, fmt.Errorf("unknown mail mode %q", cfg.Mode)
	}
}
