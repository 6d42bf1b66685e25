// Package mailer sends transactional e-mail.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when a host is configured and a logging mailer
// otherwise.
func New(cfg config.MailConfig, log *zap.Logger) Mailer {
	if cfg.Host == "" {
		return NewLogMailer(log)
	}
	return NewSMTPMailer(cfg)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	cfg  config.MailConfig
	send sendFunc
	now  func() time.Time
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("mail header contains a line break")
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	start := time.Now()
	err := m.send(addr, auth, m.cfg.FromEmail, []string{msg.To}, m.compose(msg))
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to send email").
			String("to", msg.To).
			String("subject", msg.Subject).
			Err(err).
			Log()
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoWithContext(ctx, "Email sent").
		String("to", msg.To).
		String("subject", msg.Subject).
		Duration(time.Since(start)).
		Log()
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer logs the envelope of each message instead of delivering it.
// Bodies carry reset links and are never logged.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info("Email not delivered, SMTP is not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
