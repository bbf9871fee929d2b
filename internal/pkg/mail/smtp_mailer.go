package mail

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
)

// ErrNotConfigured is returned when no SMTP host is set.
var ErrNotConfigured = errors.New("mail: smtp not configured")

// Sender is what the job queue needs to deliver mail.
type Sender interface {
	SendMail(to, subject, body string) error
}

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	cfg      config.MailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) SendMail(to string, subject string, body string) error {
	if m.cfg.Host == "" {
		return ErrNotConfigured
	}

	sender := m.cfg.Sender
	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", m.cfg.Host)
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	msg := BuildMessage(sender, to, subject, body)

	err := m.sendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

func BuildMessage(from, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
			body,
	)
}
