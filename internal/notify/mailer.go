package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"auction-service/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers notification messages over SMTP
type Mailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	timeout time.Duration
}

// NewMailer creates a new SMTP mailer from config
func NewMailer(cfg config.SMTPConfig) *Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &Mailer{
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:    auth,
		from:    cfg.From,
		timeout: 10 * time.Second,
	}
}

// Send delivers one message. The whole send is bounded by the mailer timeout
// so a stuck SMTP server cannot stall the delivery worker.
func (m *Mailer) Send(recipient, subject, body, htmlBody string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{recipient}
	e.Subject = subject
	e.Text = []byte(body)
	if htmlBody != "" {
		e.HTML = []byte(htmlBody)
	}

	done := make(chan error, 1)
	go func() { done <- e.Send(m.addr, m.auth) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s failed: %w", recipient, err)
		}
		return nil
	case <-time.After(m.timeout):
		return fmt.Errorf("smtp send to %s timed out after %s", recipient, m.timeout)
	}
}
