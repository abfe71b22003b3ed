package channel

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/mail.v2"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// SMTPConfig holds the settings of the outgoing mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// EmailSender delivers email through an SMTP relay.
type EmailSender struct {
	cfg    SMTPConfig
	dialer *mail.Dialer
}

func NewEmailSender(cfg SMTPConfig) *EmailSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return &EmailSender{cfg: cfg, dialer: d}
}

// Send builds an HTML message and hands it to the relay. The SMTP client
// has no context support, so ctx is only checked before dialing.
func (s *EmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: email: %v", domain.ErrSend, err)
	}
	if err := s.dialer.DialAndSend(s.message(recipient, subject, body)); err != nil {
		return fmt.Errorf("%w: email sending failed: %v", domain.ErrSend, err)
	}
	return nil
}

func (s *EmailSender) message(recipient, subject, body string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

var _ Sender = (*EmailSender)(nil)
