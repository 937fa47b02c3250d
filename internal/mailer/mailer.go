package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Config holds SMTP delivery settings
type Config struct {
	Host   string
	Port   int
	Sender string
}

// SMTPMailer delivers invitation emails over SMTP
type SMTPMailer struct {
	config Config
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(config Config, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{config: config, logger: logger}
}

// Invite sends an invitation email carrying the accept URL. Returns whether
// the message was handed to the SMTP server.
func (m *SMTPMailer) Invite(ctx context.Context, email, inviteAcceptURL string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: You have been invited\r\n\r\n"+
			"You have been invited to join the workspace.\r\nAccept here: %s\r\n",
		m.config.Sender, email, inviteAcceptURL,
	)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if err := smtp.SendMail(addr, nil, m.config.Sender, []string{email}, []byte(body)); err != nil {
		return false, fmt.Errorf("failed to send invite email: %w", err)
	}

	m.logger.Info("invite email sent", slog.String("email", email))
	return true, nil
}

// LogMailer is a development stand-in that only logs the invite. Used when
// no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Invite logs the invitation instead of delivering it. Reports not-sent so
// callers keep the accept URL in their response.
func (m *LogMailer) Invite(_ context.Context, email, inviteAcceptURL string) (bool, error) {
	m.logger.Info("invite email suppressed (no SMTP configured)",
		slog.String("email", email),
		slog.String("invite_url", inviteAcceptURL),
	)
	return false, nil
}
