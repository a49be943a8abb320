// Package mailer sends transactional email (booking confirmations, payment
// receipts) over SMTP.
package mailer

import (
	"fmt"
	"io"

	"github.com/go-gomail/gomail"
	"go.uber.org/zap"

	"tritmo/internal/config"
)

// Mailer sends email through the configured SMTP relay.
type Mailer struct {
	cfg config.MailerConfig
	log *zap.Logger
}

// New creates a Mailer from SMTP configuration.
func New(cfg config.MailerConfig, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{cfg: cfg, log: log}
}

// Send delivers a plain-text email, optionally attaching a document such as
// a PDF invoice. Attachment is skipped when attachmentData is empty.
func (m *Mailer) Send(to, subject, body, attachmentName string, attachmentData []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if len(attachmentData) > 0 {
		msg.Attach(attachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachmentData)
			return err
		}))
	}

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.From, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		m.log.Error("failed to send email", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("error sending email: %w", err)
	}

	m.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
