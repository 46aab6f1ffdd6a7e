// Package email delivers account notification mails over SMTP. It implements
// the queue.Mailer interface consumed by the email.notifications consumer.
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/iliyamo/online-cinema/internal/queue"
)

// Config holds the SMTP endpoint and sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// Sender is an SMTP-backed mailer. It is stateless; each Send dials the
// server, which matches the low volume of account notifications.
type Sender struct {
	cfg  Config
	auth smtp.Auth
}

func NewSender(cfg Config) *Sender {
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Sender{cfg: cfg, auth: auth}
}

// Send renders the event's template and delivers the mail.
func (s *Sender) Send(event queue.EmailEvent) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	subject, body, err := render(event)
	if err != nil {
		return err
	}
	message := buildMessage(s.cfg.From, event.To, subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	if s.cfg.UseTLS {
		return s.sendTLS(addr, event.To, message)
	}
	return smtp.SendMail(addr, s.auth, s.cfg.From, []string{event.To}, message)
}

// sendTLS delivers over an implicit-TLS connection (port 465 style servers
// reject STARTTLS, so smtp.SendMail cannot reach them).
func (s *Sender) sendTLS(addr, to string, message []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("dial tls: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
