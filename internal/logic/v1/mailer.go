package v1

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

func recoveryLink(baseURL, token string) string {
	return baseURL + "?token=" + url.QueryEscape(token)
}

// LogMailer writes recovery links to the service log instead of sending mail.
// Used when no SMTP relay is configured (local development).
type LogMailer struct {
	logger  *zap.Logger
	baseURL string
}

// NewLogMailer creates a mailer whose links point at baseURL?token=...
func NewLogMailer(logger *zap.Logger, baseURL string) *LogMailer {
	return &LogMailer{logger: logger, baseURL: baseURL}
}

func (m *LogMailer) SendRecovery(_ context.Context, email, token string) error {
	m.logger.Info("Recovery email (not sent, no SMTP relay)",
		zap.String("to", email),
		zap.String("link", recoveryLink(m.baseURL, token)),
	)
	return nil
}

// SMTPMailer sends recovery emails through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	baseURL string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for host:port. Empty user disables auth.
func NewSMTPMailer(host, port, user, password, from, baseURL string) *SMTPMailer {
	var a smtp.Auth
	if user != "" {
		a = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPMailer{
		addr:    net.JoinHostPort(host, port),
		auth:    a,
		from:    from,
		baseURL: baseURL,
		send:    smtp.SendMail,
	}
}

func (m *SMTPMailer) SendRecovery(_ context.Context, email, token string) error {
	if strings.ContainsAny(email, "\r\n") {
		return fmt.Errorf("invalid recipient %q", email)
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + email,
		"Subject: Reset your password",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"Follow this link to choose a new password:",
		recoveryLink(m.baseURL, token),
		"",
	}, "\r\n")

	if err := m.send(m.addr, m.auth, m.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.addr, err)
	}
	return nil
}
