package email

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"testing"
	"time"
)

func newTestSender(t *testing.T, fromName string) *SMTPSender {
	t.Helper()
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com", FromName: fromName})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestCompose_WelcomeNotice(t *testing.T) {
	s := newTestSender(t, "Notes")
	msg := string(s.compose(WelcomeNotice("user@example.com"), mail.Address{Address: "user@example.com"}))

	if !strings.HasPrefix(msg, "From: \"Notes\" <noreply@example.com>\r\n") {
		t.Fatalf("unexpected from header: %q", msg)
	}
	for _, want := range []string{
		"To: <user@example.com>\r\n",
		"Subject: " + WelcomeSubject + "\r\n",
		"Date: Fri, 01 Mar 2024 09:30:00 +0000\r\n",
		"X-Notice-Kind: welcome\r\n",
		"@example.com>\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in %q", want, msg)
		}
	}
	if !strings.HasSuffix(msg, "\r\n\r\nYour account was created. You are on the Free plan.\r\n") {
		t.Fatalf("body must follow a blank line with CRLF endings: %q", msg)
	}
}

func TestCompose_EncodesNonASCIISubject(t *testing.T) {
	s := newTestSender(t, "")
	notice := Notice{Kind: KindAccountDeleted, To: "user@example.com", Subject: "Cuenta eliminada ✓", Body: "adios"}
	msg := string(s.compose(notice, mail.Address{Address: notice.To}))

	if !strings.HasPrefix(msg, "From: <noreply@example.com>\r\n") {
		t.Fatalf("unexpected from header without name: %q", msg)
	}
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject: %q", msg)
	}
}

func TestNewSMTPSender_Validates(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "from@example.com"}); err == nil {
		t.Fatalf("expected error without host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: " "}); err == nil {
		t.Fatalf("expected error without from")
	}
	s := newTestSender(t, "")
	if s.cfg.Port != 587 {
		t.Fatalf("expected default port 587, got %d", s.cfg.Port)
	}
	if err := s.Send(context.Background(), WelcomeNotice("")); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if err := s.Send(context.Background(), Notice{To: "u@example.com"}); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, AccountDeletedNotice("u@example.com")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNotices(t *testing.T) {
	if n := WelcomeNotice("a@example.com"); n.Kind != KindWelcome || n.Subject != WelcomeSubject || n.To != "a@example.com" {
		t.Fatalf("unexpected welcome notice %+v", n)
	}
	if n := AccountDeletedNotice("a@example.com"); n.Kind != KindAccountDeleted || n.Body != AccountDeletedBody {
		t.Fatalf("unexpected deletion notice %+v", n)
	}
}

func TestDisabledSender(t *testing.T) {
	err := NewDisabledSender("smtp not configured").Send(context.Background(), WelcomeNotice("u@example.com"))
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
