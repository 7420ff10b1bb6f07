package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/aldrienne/remit/internal/config"
)

const defaultSMTPPort = 587

// SMTPSender delivers messages through a relay host.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPSender builds a sender for the given relay settings.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	port := cfg.Port
	if port == 0 {
		port = defaultSMTPPort
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Send encodes and submits the message. Authentication is attempted only
// when a username is configured. The SMTP dialog itself cannot be
// cancelled mid-flight; ctx is honored before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encoding message to %s: %w", msg.To, err)
	}
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, msg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("sending mail to %s via %s: %w", msg.To, addr, err)
	}
	return nil
}
