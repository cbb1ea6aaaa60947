// Package mailer sends transactional email through SMTP, SendGrid or the log.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"learnhub_backend/internal/config"
)

type Message struct {
	From    mail.Address
	To      []mail.Address
	Subject string
	HTML    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return errors.New("mailer: message has no recipients")
	}
	if m.From.Address == "" {
		return errors.New("mailer: message has no sender")
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func New(cfg config.MailConfig) (Mailer, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	case "sendgrid":
		return NewSendGridMailer(cfg.SendGridAPIKey), nil
	case "console", "":
		return NewConsoleMailer(), nil
	default:
		return nil, fmt.Errorf("mailer: unknown driver %q", cfg.Driver)
	}
}
