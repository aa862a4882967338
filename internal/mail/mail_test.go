package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/daoninhthai/crm/internal/config"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name     string
		att      *Attachment
		contains []string
		absent   []string
	}{
		{
			name:     "plain text",
			contains: []string{"Subject: CRM Weekly Report", "To: sales@example.com", "text/plain", "New Customers: 4"},
			absent:   []string{"Content-Disposition: attachment"},
		},
		{
			name: "with csv attachment",
			att: &Attachment{
				Filename:    "active-customers-2026-03-08.csv",
				ContentType: "text/csv; charset=UTF-8",
				Content:     []byte("ID,Name\r\n1,Ada\r\n"),
			},
			contains: []string{
				"Content-Disposition: attachment; filename=\"active-customers-2026-03-08.csv\"",
				"text/csv; charset=UTF-8",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := newMessage("crm@example.com", "sales@example.com", "CRM Weekly Report", "New Customers: 4", tt.att)

			var buf bytes.Buffer
			if _, err := msg.WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("message missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(out, unwanted) {
					t.Errorf("message unexpectedly contains %q", unwanted)
				}
			}
		})
	}
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "crm@example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, "a@example.com", "s", "b"); err != context.Canceled {
		t.Errorf("Send() error = %v, want context.Canceled", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.SendWithAttachment(context.Background(), "ops@example.com", "CRM Alert", "body",
		Attachment{Filename: "all-customers-2026-02-28.csv", Content: []byte("x")})
	if err != nil {
		t.Fatalf("SendWithAttachment() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ops@example.com", "all-customers-2026-02-28.csv"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}
