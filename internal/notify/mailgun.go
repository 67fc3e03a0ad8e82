package notify

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/i18n"
)

const (
	subjectSuccess = "Smart Safe: Correct Password Entered"
	subjectFailure = "Smart Safe: WARNING - Incorrect Password Attempt"
)

// MailgunSender emails attempts through the Mailgun API.
type MailgunSender struct {
	cfg config.MailgunConfig
}

func NewMailgunSender(cfg config.MailgunConfig) *MailgunSender {
	return &MailgunSender{cfg: cfg}
}

// Compose returns the subject and text body for a.
func Compose(a Attempt) (subject, text string) {
	at := i18n.FormatTimestamp(a.At)
	if a.Success {
		return subjectSuccess, fmt.Sprintf("A correct password was successfully entered to access the Smart Safe lock controls at %s.", at)
	}
	return subjectFailure, fmt.Sprintf("An incorrect password was attempted on the Smart Safe dashboard at %s.\n\nAttempted Password: %q", at, a.PasswordAttempt)
}

func (m *MailgunSender) Send(ctx context.Context, a Attempt) error {
	if m.cfg.APIKey == "" || m.cfg.Domain == "" || m.cfg.Recipient == "" {
		return &NotificationError{Sender: "mailgun", Err: fmt.Errorf("%w: api_key, domain and recipient are required", ErrNotConfigured)}
	}
	mg := mailgun.NewMailgun(m.cfg.Domain, m.cfg.APIKey)
	if m.cfg.BaseURL != "" {
		mg.SetAPIBase(m.cfg.BaseURL)
	}

	from := m.cfg.Sender
	if from == "" {
		from = fmt.Sprintf("Safewatch <postmaster@%s>", m.cfg.Domain)
	}
	subject, text := Compose(a)
	msg := mg.NewMessage(from, subject, text, m.cfg.Recipient)

	if _, _, err := mg.Send(ctx, msg); err != nil {
		return &NotificationError{Sender: "mailgun", Err: err}
	}
	return nil
}
