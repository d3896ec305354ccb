package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/folio/internal/notifier"
)

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Name(t *testing.T) {
	e := New("smtp.example.com", 587, "", "", "from@example.com", []string{"to@example.com"})
	if e.Name() != "email" {
		t.Errorf("expected 'email', got %s", e.Name())
	}
}

func TestEmail_Init_RequiredFields(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{}})
	if err == nil {
		t.Error("expected error for missing required fields")
	}
}

func TestEmail_Init_WithConfig(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{
		Params: map[string]any{
			"host": "smtp.example.com",
			"from": "folio@example.com",
			"to":   []any{"user@example.com"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if e.host != "smtp.example.com" {
		t.Errorf("expected host smtp.example.com, got %s", e.host)
	}
	if e.port != 587 {
		t.Errorf("expected default port 587, got %d", e.port)
	}
	if len(e.to) != 1 {
		t.Errorf("expected one recipient, got %v", e.to)
	}
}

func TestEmail_Send(t *testing.T) {
	var gotAddr string
	var gotMsg string
	e := New("smtp.example.com", 2525, "", "", "folio@example.com", []string{"a@example.com", "b@example.com"})
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = string(msg)
		return nil
	}

	err := e.Send(context.Background(), notifier.Message{
		Title:     "risk_jump",
		Body:      "Risk score moved from 4 to 8",
		Severity:  notifier.SeverityWarning,
		ReportID:  "rep-1",
		Timestamp: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		Metrics:   map[string]float64{"risk_score": 8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAddr != "smtp.example.com:2525" {
		t.Errorf("unexpected addr %s", gotAddr)
	}
	for _, want := range []string{
		"Subject: folio [WARNING]: risk_jump",
		"To: a@example.com,b@example.com",
		"Risk score moved from 4 to 8",
		"risk_score: 8",
		"Report: rep-1",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("expected %q in message:\n%s", want, gotMsg)
		}
	}
}

func TestEmail_SendError(t *testing.T) {
	e := New("smtp.example.com", 25, "", "", "folio@example.com", []string{"a@example.com"})
	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	if err := e.Send(context.Background(), notifier.Message{Title: "x"}); err == nil {
		t.Error("expected error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Send(ctx, notifier.Message{Title: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
