// Package mail implements the transactional mail collaborator. Delivery
// failures are reported to the caller, which logs them without failing the
// triggering flow.
package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Sender delivers a single mail message.
type Sender interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func (s *SMTPSender) Send(_ context.Context, recipient, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(addr, auth, s.From, []string{recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}
	return nil
}

// LogSender logs instead of sending. Used in dev so verification links can
// be copied from the server output.
type LogSender struct{}

func (LogSender) Send(_ context.Context, recipient, subject, htmlBody string) error {
	log.Printf("[MAIL] to=%s subject=%q body:\n%s", recipient, subject, htmlBody)
	return nil
}

// Mailer builds the verification and reset messages and hands them to a
// Sender. It satisfies the orchestrator's Mailer interface.
type Mailer struct {
	sender    Sender
	clientURL string
}

// New creates a Mailer that links back to the given client origin.
func New(sender Sender, clientURL string) *Mailer {
	return &Mailer{sender: sender, clientURL: strings.TrimRight(clientURL, "/")}
}

func (m *Mailer) SendVerificationMail(ctx context.Context, fullname, email, token string) error {
	link := fmt.Sprintf("%s/verify-email/%s", m.clientURL, token)
	body := actionMailBody(fullname,
		"Welcome! We're excited to have you on board.",
		"To complete your registration, please verify your email by clicking the button below:",
		"Verify Email", link,
		"If you have any questions or need support, just reply to this email.")
	return m.sender.Send(ctx, email, "Verify Your Email", body)
}

func (m *Mailer) SendResetPasswordMail(ctx context.Context, fullname, email, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", m.clientURL, token)
	body := actionMailBody(fullname,
		"It seems like you requested a password reset.",
		"To reset your password, click the button below:",
		"Reset Password", link,
		"If you didn't request this, please ignore this email, or contact support if you have concerns.")
	return m.sender.Send(ctx, email, "Reset Your Password", body)
}

func actionMailBody(name, intro, instructions, buttonText, link, outro string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", name)
	fmt.Fprintf(&b, "<p>%s</p>", intro)
	fmt.Fprintf(&b, "<p>%s</p>", instructions)
	fmt.Fprintf(&b, `<p><a href=%q>%s</a></p>`, link, buttonText)
	fmt.Fprintf(&b, "<p>%s</p>", outro)
	b.WriteString("</body></html>")
	return b.String()
}
