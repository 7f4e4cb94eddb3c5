// Package mailer delivers the Snapzy transactional emails over SMTP. It
// implements [snapzy.Notifier]; the engine never sees SMTP details, only
// delivery success or failure.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Config carries the SMTP endpoint and sender identity.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	AppName  string
}

// SMTP sends HTML mail through a single SMTP relay using PLAIN auth.
type SMTP struct {
	config Config
}

// New returns a mailer for config. From defaults to User and AppName to
// "Snapzy" when unset.
func New(config Config) *SMTP {
	if config.From == "" {
		config.From = config.User
	}
	if config.AppName == "" {
		config.AppName = "Snapzy"
	}
	return &SMTP{config: config}
}

// SendOTP delivers the verification code. ttl is rendered into the body so
// the recipient knows how long the code stays valid.
func (m *SMTP) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	subject := fmt.Sprintf("%s Email Verification", m.config.AppName)
	body := fmt.Sprintf(`<div style="font-family: 'Segoe UI', sans-serif; padding: 20px; background-color: #f9f9f9; color: #333;">
  <div style="max-width: 500px; margin: auto; background: white; border-radius: 8px; overflow: hidden;">
    <div style="background: linear-gradient(90deg, #4f46e5, #9333ea); padding: 20px; text-align: center;">
      <h1 style="margin: 0; color: white; font-size: 24px;">%s Email Verification</h1>
    </div>
    <div style="padding: 30px;">
      <p style="font-size: 16px; margin-bottom: 20px;">Hi there,</p>
      <p style="font-size: 15px; margin-bottom: 20px;">
        Thank you for signing up with <strong>%s</strong>. To complete your registration, please enter the following OTP code in the app:
      </p>
      <div style="font-size: 28px; font-weight: bold; text-align: center; color: #4f46e5; margin: 30px 0;">%s</div>
      <p style="font-size: 14px; color: #777;">This OTP is valid for %d minutes. If you did not request this, you can safely ignore this email.</p>
    </div>
    <div style="background-color: #f3f4f6; padding: 20px; text-align: center; font-size: 12px; color: #777;">
      &copy; %d %s &middot; All rights reserved.
    </div>
  </div>
</div>`,
		m.config.AppName, m.config.AppName, code,
		int(ttl.Minutes()), time.Now().Year(), m.config.AppName)

	return m.send(ctx, email, subject, body)
}

// SendWelcome delivers the post-registration greeting.
func (m *SMTP) SendWelcome(ctx context.Context, email, fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		fullName = "there"
	}
	subject := fmt.Sprintf("Welcome to %s!", m.config.AppName)
	body := fmt.Sprintf(`<div style="font-family: 'Segoe UI', sans-serif; padding: 20px; background-color: #f9fafb; color: #111827;">
  <div style="max-width: 500px; margin: auto; background: white; border-radius: 8px; overflow: hidden;">
    <div style="background: linear-gradient(to right, #4f46e5, #9333ea); padding: 20px; text-align: center;">
      <h1 style="margin: 0; color: white; font-size: 24px;">Welcome to %s</h1>
    </div>
    <div style="padding: 30px;">
      <p style="font-size: 16px;">Hi <strong>%s</strong>,</p>
      <p style="margin: 16px 0; font-size: 15px;">
        We're thrilled to have you join <strong>%s</strong>, your social space to connect, share, play, and explore!
      </p>
      <p style="font-size: 14px; color: #6b7280;">
        We're glad you're here! If you ever need support, just reach out to us.
      </p>
    </div>
    <div style="background-color: #f3f4f6; padding: 20px; text-align: center; font-size: 12px; color: #6b7280;">
      &copy; %d %s &middot; All rights reserved.
    </div>
  </div>
</div>`,
		m.config.AppName, fullName, m.config.AppName,
		time.Now().Year(), m.config.AppName)

	return m.send(ctx, email, subject, body)
}

// send performs the SMTP handshake and delivery. smtp.SendMail offers no
// context hook, so cancellation is checked once up front.
func (m *SMTP) send(ctx context.Context, toEmail, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	// RFC 822 headers, CRLF-separated, blank line before the body.
	headers := []string{
		fmt.Sprintf("From: %q <%s>", m.config.AppName, m.config.From),
		fmt.Sprintf("To: %s", toEmail),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body,
	}
	message := strings.Join(headers, "\r\n")

	var auth smtp.Auth
	if m.config.User != "" {
		auth = smtp.PlainAuth("", m.config.User, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{toEmail}, []byte(message)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", toEmail, err)
	}
	return nil
}
