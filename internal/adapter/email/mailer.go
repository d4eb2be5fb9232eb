// Package email sends login and welcome mail via SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/waycms/waycms/internal/config"
	"github.com/waycms/waycms/internal/resilience"
)

// Mailer sends transactional email via SMTP. A Mailer with an empty host is
// valid and silently drops mail, so deployments without SMTP keep working.
// A circuit breaker around the SMTP call keeps login requests from stalling
// on a dead mail host.
type Mailer struct {
	cfg     config.Email
	breaker *resilience.Breaker
}

// NewMailer creates a Mailer from the email config section.
func NewMailer(cfg config.Email) *Mailer {
	return &Mailer{
		cfg:     cfg,
		breaker: resilience.NewBreaker(3, time.Minute),
	}
}

// Degraded reports whether the breaker is currently rejecting sends.
func (m *Mailer) Degraded() bool {
	return m.breaker.Open()
}

// Configured reports whether an SMTP host is set.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != ""
}

// Send delivers one HTML mail. It is a no-op when SMTP is not configured.
func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	if !m.Configured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	var auth smtp.Auth
	if m.cfg.Password != "" {
		user := m.cfg.User
		if user == "" {
			user = m.cfg.From
		}
		auth = smtp.PlainAuth("", user, m.cfg.Password, m.cfg.Host)
	}

	err := m.breaker.Do(func() error {
		return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
	})
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendMagicLink mails a login link that expires after ttl.
func (m *Mailer) SendMagicLink(ctx context.Context, to, loginURL string, ttl time.Duration) error {
	body := fmt.Sprintf(`<h2>Sign in to Way-CMS</h2>
<p><a href="%s" style="background:#2563eb;color:white;padding:8px 16px;text-decoration:none;border-radius:4px;">Sign in</a></p>
<p>The link is valid for %s and can be used once.</p>
<p>If you did not request this, ignore this mail.</p>`, loginURL, formatTTL(ttl))

	return m.Send(ctx, to, "Your Way-CMS sign-in link", body)
}

// SendWelcome mails a new user their first login link.
func (m *Mailer) SendWelcome(ctx context.Context, to, name, loginURL string, ttl time.Duration) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	body := fmt.Sprintf(`<h2>Welcome to Way-CMS</h2>
<p>%s, an account was created for you.</p>
<p><a href="%s" style="background:#2563eb;color:white;padding:8px 16px;text-decoration:none;border-radius:4px;">Sign in</a></p>
<p>The link is valid for %s.</p>`, greeting, loginURL, formatTTL(ttl))

	return m.Send(ctx, to, "Welcome to Way-CMS", body)
}

// TestConnection dials the SMTP host to verify reachability without sending.
func (m *Mailer) TestConnection(_ context.Context) error {
	if !m.Configured() {
		return fmt.Errorf("smtp host not configured")
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn.Close()
}

// MaskedConfig returns the SMTP settings with the password redacted, for the
// admin panel readout.
func (m *Mailer) MaskedConfig() map[string]any {
	password := ""
	if m.cfg.Password != "" {
		password = "********"
	}
	return map[string]any{
		"host":      m.cfg.Host,
		"port":      m.cfg.Port,
		"from":      m.cfg.From,
		"from_name": m.cfg.FromName,
		"password":  password,
	}
}

func formatTTL(ttl time.Duration) string {
	if ttl >= 24*time.Hour && ttl%(24*time.Hour) == 0 {
		days := int(ttl / (24 * time.Hour))
		if days == 1 {
			return "24 hours"
		}
		return fmt.Sprintf("%d days", days)
	}
	return strings.TrimSuffix(ttl.String(), "0s")
}
