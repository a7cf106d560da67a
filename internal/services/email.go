package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
)

// EmailSender delivers one plain-text message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// NewEmailSender selects the delivery provider from configuration. An
// incomplete provider configuration falls back to the logging mock so a
// misconfigured tracker still evaluates and reports.
func NewEmailSender(cfg config.EmailConfig) EmailSender {
	provider := strings.ToLower(cfg.Provider)
	display := cases.Title(language.English).String(provider)
	logrus.WithField("provider", display).Info("Initializing email sender")

	switch provider {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.SenderEmail == "" {
			logrus.Warn("Mailgun configuration incomplete, falling back to mock email sender")
			return &MockEmailSender{}
		}
		return &MailgunEmailSender{
			mg:          mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
			senderEmail: cfg.SenderEmail,
			senderName:  cfg.SenderName,
		}
	case "smtp":
		if cfg.SMTPServer == "" || cfg.SMTPUser == "" || cfg.SMTPPassword == "" || cfg.SenderEmail == "" {
			logrus.Warn("SMTP configuration incomplete, falling back to mock email sender")
			return &MockEmailSender{}
		}
		return &SMTPEmailSender{cfg: cfg}
	default:
		return &MockEmailSender{}
	}
}

// MailgunEmailSender delivers through the Mailgun API.
type MailgunEmailSender struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailSender) Send(ctx context.Context, toEmail, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, subject, body, toEmail)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logrus.WithError(err).WithField("to", toEmail).Error("Failed to send email via Mailgun")
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logrus.WithFields(logrus.Fields{"to": toEmail, "id": id, "resp": resp}).Info("Email sent via Mailgun")
	return nil
}

// SMTPEmailSender delivers through a plain SMTP relay.
type SMTPEmailSender struct {
	cfg config.EmailConfig
}

func (s *SMTPEmailSender) Send(ctx context.Context, toEmail, subject, body string) error {
	headers := map[string]string{
		"From":         s.cfg.SenderEmail,
		"To":           toEmail,
		"Subject":      subject,
		"MIME-version": "1.0",
		"Content-Type": `text/plain; charset="UTF-8"`,
	}
	var msg strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, v)
	}
	msg.WriteString("\r\n" + body)

	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPServer, s.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.cfg.SenderEmail, []string{toEmail}, []byte(msg.String())); err != nil {
		logrus.WithError(err).WithField("to", toEmail).Error("Failed to send email via SMTP")
		return fmt.Errorf("smtp send failed: %w", err)
	}
	logrus.WithField("to", toEmail).Info("Email sent via SMTP")
	return nil
}

// MockEmailSender logs instead of delivering. Used in development and as
// the fallback for incomplete provider configuration.
type MockEmailSender struct{}

func (m *MockEmailSender) Send(_ context.Context, toEmail, subject, _ string) error {
	logrus.WithFields(logrus.Fields{"to": toEmail, "subject": subject}).Info("MockEmailSender: would send email")
	return nil
}
