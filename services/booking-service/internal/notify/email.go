package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

const emailSubject = "Appointment booked"

// SMTPSender sends plain-text mail via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@turnos.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", strings.TrimSpace(host), strings.TrimSpace(port)),
		from: from,
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) ProviderID() string { return "smtp" }

// Send ignores ctx beyond an early cancellation check; net/smtp has no
// context support and the dispatcher bounds the call with its own timeout.
func (s *SMTPSender) Send(ctx context.Context, to string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(s.addr, nil, s.from, []string{to}, []byte(buildMessage(s.from, to, emailSubject, body)))
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, subject, strings.ReplaceAll(body, "\n", "\r\n"),
	)
}
