// Package mail delivers CRM emails. SMTPSender sends through an SMTP relay
// with gomail; LogSender only logs, for development setups without a relay.
package mail

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/daoninhthai/crm/internal/config"
	"github.com/daoninhthai/crm/internal/logging"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SMTPSender sends plain-text emails through an SMTP server.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds a sender from the SMTP settings.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers a plain-text email.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, newMessage(s.from, to, subject, body, nil))
}

// SendWithAttachment delivers a plain-text email with one attachment.
func (s *SMTPSender) SendWithAttachment(ctx context.Context, to, subject, body string, att Attachment) error {
	return s.send(ctx, newMessage(s.from, to, subject, body, &att))
}

func (s *SMTPSender) send(ctx context.Context, msg *gomail.Message) error {
	// gomail has no context support; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.GetHeader("To"), err)
	}
	logging.FromContext(ctx).Debug("email sent",
		"to", msg.GetHeader("To"),
		"subject", msg.GetHeader("Subject"),
	)
	return nil
}

// newMessage assembles the MIME message.
func newMessage(from, to, subject, body string, att *Attachment) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if att != nil {
		content := att.Content
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		msg.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		)
	}
	return msg
}

// LogSender logs emails instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender writing to logger, or slog.Default when nil.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email not sent (no SMTP host configured)",
		"to", to, "subject", subject, "body_bytes", len(body))
	return nil
}

func (s *LogSender) SendWithAttachment(ctx context.Context, to, subject, body string, att Attachment) error {
	s.logger.InfoContext(ctx, "email not sent (no SMTP host configured)",
		"to", to, "subject", subject, "body_bytes", len(body),
		"attachment", att.Filename, "attachment_bytes", len(att.Content))
	return nil
}
