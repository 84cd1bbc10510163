// Package email delivers transactional mail for the portal (password
// resets). A SendGrid sender is used when an API key is configured and a
// console sender otherwise.
package email

import (
	"context"
	"fmt"

	"unihub/internal/observability"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender sends a single plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	key  string
	from *sgmail.Email
}

// NewSendGridSender returns a Sender backed by SendGrid.
func NewSendGridSender(apiKey, appName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		key:  apiKey,
		from: sgmail.NewEmail(appName, fromEmail),
	}
}

func (s *SendGridSender) Send(_ context.Context, to, subject, body string) error {
	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail("", to), body, "")
	resp, err := sendgrid.NewSendClient(s.key).Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ConsoleSender logs mail instead of sending it. Used in development and
// tests, and as the production fallback when no API key is configured.
type ConsoleSender struct {
	logger *observability.Logger
}

// NewConsoleSender returns a Sender that writes messages to the log.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{logger: observability.Named("email")}
}

func (s *ConsoleSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "outgoing email",
		"to", to, "subject", subject, "body", body)
	return nil
}

// FromConfig picks the SendGrid sender when a key is present, otherwise the
// console sender.
func FromConfig(apiKey, appName, fromEmail string) Sender {
	if apiKey != "" {
		return NewSendGridSender(apiKey, appName, fromEmail)
	}
	return NewConsoleSender()
}
