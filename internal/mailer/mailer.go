// Package mailer delivers HTML emails with inline image attachments.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/config"
)

// MockMessageID is returned by the log-only mailer.
const MockMessageID = "mock-message-id"

// ErrDelivery wraps every transport failure.
var ErrDelivery = errors.New("mailer: delivery failed")

// Attachment is a file carried by a message. Inline attachments are
// addressable from the HTML body as cid:<Name>.
type Attachment struct {
	Name        string
	Filename    string
	ContentType string
	Content     []byte
	Inline      bool
}

// Message is a single outgoing email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends a message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New returns an SMTP mailer when cfg is complete and a LogMailer otherwise.
func New(cfg config.MailConfig, log zerolog.Logger) Mailer {
	if !cfg.Enabled() {
		log.Warn().Msg("smtp not configured, emails will only be logged")
		return &LogMailer{Log: log}
	}
	return NewSMTPMailer(cfg, log)
}

// SMTPMailer sends through an SMTP relay using PLAIN auth.
type SMTPMailer struct {
	cfg  config.MailConfig
	auth smtp.Auth
	log  zerolog.Logger
}

// NewSMTPMailer builds a mailer for cfg. No connection is made until Send.
func NewSMTPMailer(cfg config.MailConfig, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host),
		log:  log,
	}
}

// Send delivers msg. The returned id is the Message-ID header we set.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mail, err := m.client()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	id, err := m.compose(mail, msg)
	if err != nil {
		return "", err
	}
	if err := mail.Send(); err != nil {
		m.log.Error().Err(err).Str("to", msg.To).Msg("smtp send failed")
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	m.log.Info().Str("to", msg.To).Str("message_id", id).Msg("email sent")
	return id, nil
}

func (m *SMTPMailer) client() (*mailyak.MailYak, error) {
	if m.cfg.TLS {
		return mailyak.NewWithTLS(m.cfg.Addr(), m.auth, &tls.Config{ServerName: m.cfg.Host})
	}
	return mailyak.New(m.cfg.Addr(), m.auth), nil
}

// compose fills mail from msg and returns the generated message id.
func (m *SMTPMailer) compose(mail *mailyak.MailYak, msg Message) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", fmt.Errorf("%w: empty recipient", ErrDelivery)
	}
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host)
	mail.To(msg.To)
	mail.From(m.cfg.User)
	mail.FromName(m.cfg.FromName)
	mail.Subject(msg.Subject)
	mail.SetHeader("Message-ID", id)
	mail.HTML().Set(msg.HTML)
	for _, a := range msg.Attachments {
		name := a.Name
		if !a.Inline && a.Filename != "" {
			name = a.Filename
		}
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if a.Inline {
			mail.AttachInlineWithMimeType(name, bytes.NewReader(a.Content), ct)
		} else {
			mail.AttachWithMimeType(name, bytes.NewReader(a.Content), ct)
		}
	}
	return id, nil
}

// LogMailer only logs messages. It is used in development when no SMTP
// relay is configured.
type LogMailer struct {
	Log zerolog.Logger
}

// Send logs msg and returns MockMessageID.
func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.Log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("email (not sent)")
	return MockMessageID, nil
}
