// Package mailer delivers verification emails
//
// The SMTP mailer talks plain net/smtp which is enough for the relay
// containers used in deployment. When SMTP is not configured the logging
// mailer is used instead, so the verification flow stays testable locally:
// the token shows up in the service log
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/shantanuk7/prism-film-observatory/internal/logger"
)

type SMTPMailer struct {
	// Mail relay address in host:port format
	Addr string

	// From address of verification emails
	From string

	// Base URL the verification link is built from,
	// e.g. https://prism.example.com/verify-email
	VerifyURL string
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, email string, token string) error {
	link := fmt.Sprintf("%s?token=%s", strings.TrimRight(m.VerifyURL, "?"), token)

	msg := strings.Join([]string{
		"From: Prism <" + m.From + ">",
		"To: " + email,
		"Subject: Verify your Prism account",
		"",
		"Welcome to Prism!",
		"",
		"Open the link below to verify your email address:",
		link,
		"",
		"If you did not create an account, please ignore this email.",
	}, "\r\n")

	err := smtp.SendMail(m.Addr, nil, m.From, []string{email}, []byte(msg))
	if err != nil {
		return fmt.Errorf("error while sending verification email. Err: %w", err)
	}

	return nil
}

// LogMailer writes the verification token to the log instead of sending it
type LogMailer struct {
	Logger logger.Logger
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, email string, token string) error {
	m.Logger.Info("verification email (smtp not configured)", "email", email, "token", token)
	return nil
}
