// Package notify delivers contact and feedback submissions to the site owner.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
)

// Message is a submission to deliver
type Message struct {
	Kind    string // contact or feedback
	Subject string
	ReplyTo string
	Body    string
	Fields  map[string]string
}

// Notifier delivers messages
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTP delivery
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       string
	UseSSL   bool
	Timeout  time.Duration
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends messages by email
type SMTPNotifier struct {
	config SMTPConfig
	send   sendFunc
	logger logging.Logger
}

// NewSMTPNotifier creates an SMTP notifier
func NewSMTPNotifier(config SMTPConfig, logger logging.Logger) (*SMTPNotifier, error) {
	if config.Host == "" || config.From == "" || config.To == "" {
		return nil, errors.ConfigError("SMTP_HOST, SMTP_FROM and CONTACT_EMAIL are required when SMTP is enabled")
	}
	if config.Port == "" {
		config.Port = "587"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Component("notify")
	}

	n := &SMTPNotifier{
		config: config,
		logger: logger,
	}
	if config.UseSSL {
		n.send = n.sendWithSSL
	} else {
		n.send = smtp.SendMail
	}
	return n, nil
}

// Notify sends msg to the configured recipient
func (n *SMTPNotifier) Notify(ctx context.Context, msg Message) error {
	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	addr := net.JoinHostPort(n.config.Host, n.config.Port)
	raw, err := n.compose(msg)
	if err != nil {
		return errors.InternalError("failed to compose notification email", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, auth, n.config.From, []string{n.config.To}, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.ConnectionError("failed to send notification email", err)
		}
		n.logger.WithContext(ctx).Info("Notification email sent",
			logging.String("kind", msg.Kind),
		)
		return nil
	case <-ctx.Done():
		return errors.TimeoutError("send notification email", ctx.Err())
	case <-time.After(n.config.Timeout):
		return errors.TimeoutError("send notification email", nil)
	}
}

func (n *SMTPNotifier) compose(msg Message) ([]byte, error) {
	subject := msg.Subject
	if subject == "" {
		subject = fmt.Sprintf("New %s submission", msg.Kind)
	}

	var h mail.Header
	h.SetDate(time.Now().UTC())
	h.SetAddressList("From", []*mail.Address{{Address: n.config.From}})
	h.SetAddressList("To", []*mail.Address{{Address: n.config.To}})
	if replyTo, err := mail.ParseAddress(headerSafe(msg.ReplyTo)); err == nil {
		h.SetAddressList("Reply-To", []*mail.Address{replyTo})
	}
	h.SetSubject(headerSafe(subject))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, FormatBody(msg)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sendWithSSL sends over implicit TLS
func (n *SMTPNotifier) sendWithSSL(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: n.config.Timeout}, "tcp", addr, &tls.Config{
		ServerName: n.config.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, n.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// LogNotifier records submissions in the log when SMTP is disabled
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Component("notify")
	}
	return &LogNotifier{logger: logger}
}

// Notify logs msg
func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	fields := []logging.Field{
		logging.String("kind", msg.Kind),
		logging.String("subject", msg.Subject),
		logging.Int("body_length", len(msg.Body)),
	}
	for _, key := range sortedKeys(msg.Fields) {
		fields = append(fields, logging.String("field_"+key, msg.Fields[key]))
	}

	n.logger.WithContext(ctx).Info("Submission received (SMTP disabled)", fields...)
	return nil
}

// FormatBody renders msg as plain text with fields in stable order
func FormatBody(msg Message) string {
	var b strings.Builder
	for _, key := range sortedKeys(msg.Fields) {
		fmt.Fprintf(&b, "%s: %s\r\n", key, msg.Fields[key])
	}
	if len(msg.Fields) > 0 {
		b.WriteString("\r\n")
	}
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}

func headerSafe(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
