// Package notify sends outbound email and records in-app notifications.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"vetcare-server/internal/config"
)

// ErrNotConfigured is returned when no mail transport is configured.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender returns nil when the mailer configuration is incomplete.
func NewSMTPSender(cfg config.MailerConfig) *SMTPSender {
	if !cfg.Enabled() {
		return nil
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.DefaultFrom,
	}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result reports the outcome of a dispatch.
type Result struct {
	Template TemplateID
	To       string
	Sent     bool
	Skipped  bool
	Err      error
}

// Mailer renders templates and hands them to a Sender. Every failure is
// reported in the Result and logged; callers must not fail their own
// operation because of it.
type Mailer struct {
	Sender     Sender
	AdminEmail string
}

// NewMailer creates a Mailer. A nil sender turns every dispatch into a logged skip.
func NewMailer(sender Sender, adminEmail string) *Mailer {
	return &Mailer{Sender: sender, AdminEmail: adminEmail}
}

// NewMailerFromConfig wires an SMTP sender when credentials are present.
func NewMailerFromConfig(cfg config.MailerConfig) *Mailer {
	m := &Mailer{AdminEmail: cfg.AdminEmail}
	if smtp := NewSMTPSender(cfg); smtp != nil {
		m.Sender = smtp
	} else {
		log.Warn().Msg("SMTP is not configured, outbound email is disabled")
	}
	return m
}

// Dispatch renders id with data and sends it to to.
func (m *Mailer) Dispatch(ctx context.Context, id TemplateID, to string, data any) Result {
	res := Result{Template: id, To: to}
	logger := log.With().Str("template", string(id)).Str("to", to).Logger()

	if m == nil || m.Sender == nil {
		res.Skipped = true
		res.Err = ErrNotConfigured
		logger.Warn().Msg("email transport not configured, skipping notification")
		return res
	}
	if to == "" {
		res.Skipped = true
		res.Err = errors.New("no recipient")
		logger.Warn().Msg("email notification has no recipient, skipping")
		return res
	}

	subject, body, err := Render(id, data)
	if err != nil {
		res.Err = err
		logger.Error().Err(err).Msg("failed to render email")
		return res
	}
	if err := m.Sender.Send(ctx, Message{To: to, Subject: subject, HTML: body}); err != nil {
		res.Err = err
		logger.Error().Err(err).Msg("failed to send email")
		return res
	}
	res.Sent = true
	logger.Info().Msg("email sent")
	return res
}

// NotifyAdmin sends id to the configured admin address, if any.
func (m *Mailer) NotifyAdmin(ctx context.Context, id TemplateID, data any) Result {
	if m == nil || m.AdminEmail == "" {
		log.Debug().Str("template", string(id)).Msg("no admin notification address configured")
		return Result{Template: id, Skipped: true, Err: ErrNotConfigured}
	}
	return m.Dispatch(ctx, id, m.AdminEmail, data)
}
