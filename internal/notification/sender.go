package notification

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/config"
)

// Sender delivers an email. Sending the same ticket twice is harmless.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// NewSender picks SMTP when a host is configured and the log sender otherwise.
func NewSender(cfg config.EmailConfig, log *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		return &LogSender{log: log}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender sends through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg config.EmailConfig
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rcpt, msg, err := s.message(email)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{rcpt}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", rcpt, err)
	}
	return nil
}

// message builds the RFC 5322 message and returns the bare recipient address.
// Header values never carry raw CR or LF: names and subjects are Q-encoded
// and the recipient must parse as a single address.
func (s *SMTPSender) message(email Email) (string, []byte, error) {
	to, err := mail.ParseAddress(email.To)
	if err != nil {
		return "", nil, fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", encodeHeader(s.cfg.FromName), s.cfg.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", to.Address)
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(email.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(email.HTMLBody)
	return to.Address, []byte(b.String()), nil
}

// encodeHeader leaves plain ASCII untouched and Q-encodes anything else,
// control characters included.
func encodeHeader(v string) string {
	return mime.QEncoding.Encode("utf-8", v)
}

// LogSender only logs; used in development when no SMTP relay is set.
type LogSender struct {
	log *zap.Logger
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, email Email) error {
	s.log.Info("email (log sender)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("body_bytes", len(email.HTMLBody)))
	return nil
}
