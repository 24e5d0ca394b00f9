// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"

	"go.uber.org/zap"
)

// Email is a message with optional plain-text and HTML bodies.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings. An empty Host selects the log-only sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// New returns an SMTP sender, or a sender that only logs when no host is set.
func New(cfg Config, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured; emails will be logged, not sent")
		return &LogSender{Log: logger}
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, log: logger}
}

// SMTPSender sends mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg  Config
	log  *zap.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Send delivers e. The context bounds only the wait for the result; net/smtp
// itself has no cancellation.
func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if strings.TrimSpace(e.To) == "" {
		return errors.New("mailer: empty recipient")
	}
	msg, err := buildMessage(s.cfg, e)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	send := s.send
	if send == nil {
		send = smtp.SendMail
	}

	done := make(chan error, 1)
	go func() { done <- send(addr, auth, s.cfg.From, []string{e.To}, msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: send to %s: %w", e.To, err)
		}
		s.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender writes emails to the log. Used in development.
type LogSender struct {
	Log *zap.Logger
}

// Send logs e.
func (s *LogSender) Send(_ context.Context, e Email) error {
	s.Log.Info("email (not sent)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}

func buildMessage(cfg Config, e Email) ([]byte, error) {
	var buf bytes.Buffer
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%q <%s>", cfg.FromName, cfg.From)
	}
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", e.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", e.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if e.HTMLBody == "" {
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(e.TextBody)
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(fmt.Sprintf("noteku-%016x", rand.Uint64())); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", e.TextBody},
		{"text/html; charset=UTF-8", e.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
