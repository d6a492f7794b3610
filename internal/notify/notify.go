// Package notify sends account mail. Without SMTP settings messages are logged instead of
// sent, so development setups need no mail server.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Invitation describes a user added to a company by one of its admins.
type Invitation struct {
	Email       string
	CompanyName string
}

// Notifier delivers account notifications.
type Notifier interface {
	UserInvited(ctx context.Context, inv Invitation) error
}

// SMTPConfig holds the mail server settings. An empty Host disables delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	AppURL   string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends notifications over SMTP. smtp.SendMail upgrades to STARTTLS when the
// server offers it.
type Mailer struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewMailer returns a Mailer for cfg.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Enabled reports whether mail is actually sent.
func (m *Mailer) Enabled() bool { return m.cfg.Host != "" }

// UserInvited tells a new user which company they were added to. Credentials are never
// mailed; the inviting admin hands the initial password over.
func (m *Mailer) UserInvited(ctx context.Context, inv Invitation) error {
	company := stripCRLF(inv.CompanyName)
	if company == "" {
		company = "your company"
	}
	subject := fmt.Sprintf("You have been added to %s on Spend Ledger", company)
	body := fmt.Sprintf("Hello,\r\n\r\nYou were added to %s on Spend Ledger as %s.\r\n"+
		"Sign in at %s with the password your administrator gave you, then change it.\r\n",
		company, inv.Email, m.cfg.AppURL)

	if !m.Enabled() {
		slog.WarnContext(ctx, "smtp not configured, invitation not sent", "to", inv.Email, "subject", subject)
		return nil
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{inv.Email}, m.message(inv.Email, subject, body)); err != nil {
		return fmt.Errorf("send invitation to %s: %w", inv.Email, err)
	}
	slog.InfoContext(ctx, "invitation sent", "to", inv.Email)
	return nil
}

func (m *Mailer) message(to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", stripCRLF(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// stripCRLF keeps user-supplied text (company names) from injecting headers.
func stripCRLF(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
