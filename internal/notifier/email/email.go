// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/newthinker/folio/internal/notifier"
)

// Email sends messages over SMTP.
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host := notifier.StringParam(cfg.Params, "host"); host != "" {
		e.host = host
	}
	switch port := cfg.Params["port"].(type) {
	case int:
		e.port = port
	case float64:
		e.port = int(port)
	}
	if username := notifier.StringParam(cfg.Params, "username"); username != "" {
		e.username = username
	}
	if password := notifier.StringParam(cfg.Params, "password"); password != "" {
		e.password = password
	}
	if from := notifier.StringParam(cfg.Params, "from"); from != "" {
		e.from = from
	}
	if to := notifier.StringsParam(cfg.Params, "to"); len(to) > 0 {
		e.to = to
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.sendMail == nil {
		e.sendMail = smtp.SendMail
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	return nil
}

// Send delivers msg. net/smtp has no context support, so ctx is only
// checked before dialing.
func (e *Email) Send(ctx context.Context, msg notifier.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("folio [%s]: %s", strings.ToUpper(msg.Severity), msg.Title)
	return e.sendEmail(subject, formatMessage(msg))
}

func formatMessage(msg notifier.Message) string {
	var sb strings.Builder
	sb.WriteString(msg.Title + "\n\n")
	if msg.Body != "" {
		sb.WriteString(msg.Body + "\n\n")
	}

	keys := make([]string, 0, len(msg.Metrics))
	for k := range msg.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s: %.4g\n", k, msg.Metrics[k]))
	}

	if msg.ReportID != "" {
		sb.WriteString(fmt.Sprintf("\nReport: %s\n", msg.ReportID))
	}
	sb.WriteString(fmt.Sprintf("Time: %s\n", msg.Timestamp.Format("2006-01-02 15:04:05")))
	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	if err := e.sendMail(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
