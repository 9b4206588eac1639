package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Mailer delivers plain-text notifications over SMTP. Delivery is always
// best-effort: callers log failures and move on, a lost e-mail never affects
// a committed domain transition.
type Mailer struct {
	host string
	port string
	from string
	pass string
	log  *zerolog.Logger
}

func New(host, port, from, pass string, log *zerolog.Logger) *Mailer {
	return &Mailer{host: host, port: port, from: from, pass: pass, log: log}
}

func (m *Mailer) Send(recipient, subject, body string) error {
	if m.host == "" {
		m.log.Debug().Str("recipient", recipient).Msg("SMTP not configured, skipping email")
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, recipient, subject, body,
	)

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.from, m.pass, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("recipient", recipient).Str("subject", subject).Msg("Email sent")
	return nil
}
