// Package sendgrid delivers reminder e-mails through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/phrazzld/campus-api/internal/config"
	"github.com/phrazzld/campus-api/internal/reminder"
	"github.com/phrazzld/campus-api/internal/store"
	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
	subject     = "Your vocabulary review is waiting"
)

// ErrNotConfigured is returned when the API key or sender is missing.
var ErrNotConfigured = errors.New("sendgrid is not configured")

// Mailer implements reminder.Notifier over e-mail.
type Mailer struct {
	key  string
	host string
	from *sgmail.Email
}

var _ reminder.Notifier = (*Mailer)(nil)

// NewMailer creates a mailer from cfg.
func NewMailer(cfg config.MailConfig) (*Mailer, error) {
	if cfg.SendGridAPIKey == "" || cfg.FromAddress == "" {
		return nil, ErrNotConfigured
	}
	return &Mailer{
		key:  cfg.SendGridAPIKey,
		host: defaultHost,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}, nil
}

// WithHost points the mailer at another API host.
func (m *Mailer) WithHost(host string) *Mailer {
	m.host = host
	return m
}

// Channel implements reminder.Notifier.
func (m *Mailer) Channel() string { return "email" }

// Accepts implements reminder.Notifier.
func (m *Mailer) Accepts(r store.DueReminder) bool {
	return r.EmailReminders && r.Email != ""
}

// Notify implements reminder.Notifier.
func (m *Mailer) Notify(ctx context.Context, r store.DueReminder) error {
	text := reminder.Message(r.DueCount)
	msg := sgmail.NewSingleEmail(
		m.from,
		subject,
		sgmail.NewEmail("", r.Email),
		text,
		"<p>"+html.EscapeString(text)+"</p>",
	)

	req := sg.GetRequest(m.key, endpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sg.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to call sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected the message: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
