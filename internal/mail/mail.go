// Package mail dispatches quote emails over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/quotecraft/quotecraft/internal/config"
)

// Message is one outbound quote email. PDF, when non-nil, is attached.
type Message struct {
	To          string
	Subject     string
	HTML        string
	PDF         []byte
	PDFFilename string
}

// Dispatcher sends quote emails. Handlers and services depend on this
// interface; tests substitute a recording fake.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPDispatcher sends via an external SMTP relay using STARTTLS and an
// app password, with a bounded timeout so a stuck relay surfaces as an
// error instead of hanging the request.
type SMTPDispatcher struct {
	cfg config.SMTP
}

func NewSMTPDispatcher(cfg config.SMTP) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if d.cfg.Email == "" || d.cfg.Password == "" {
		return fmt.Errorf("smtp credentials not configured")
	}
	m := gomail.NewMsg()
	if err := m.From(d.cfg.Email); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	if len(msg.PDF) > 0 {
		name := msg.PDFFilename
		if name == "" {
			name = "quote.pdf"
		}
		if err := m.AttachReader(name, bytes.NewReader(msg.PDF)); err != nil {
			return fmt.Errorf("attach pdf: %w", err)
		}
	}

	// Port 1025 is the conventional local dev relay (mailpit); it speaks
	// plain SMTP without STARTTLS.
	tlsPolicy := gomail.TLSMandatory
	if d.cfg.Port == 1025 {
		tlsPolicy = gomail.NoTLS
	}
	client, err := gomail.NewClient(d.cfg.Server,
		gomail.WithPort(d.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(d.cfg.Email),
		gomail.WithPassword(d.cfg.Password),
		gomail.WithTLSPolicy(tlsPolicy),
		gomail.WithTimeout(d.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
