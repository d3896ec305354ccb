// Package webhook posts portfolio alerts as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/notifier"
)

const (
	defaultTimeout = 30 * time.Second
	eventType      = "portfolio_alert"
	// errorBodyLimit caps how much of a failed response ends up in the error.
	errorBodyLimit = 256
)

// Webhook delivers each Message as one POST request.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func New(url string, headers map[string]string) *Webhook {
	return &Webhook{url: url, headers: headers, client: &http.Client{Timeout: defaultTimeout}}
}

func (w *Webhook) Name() string { return "webhook" }

// Init reads the "url", "headers" and "timeout" params. timeout is a Go
// duration string such as "10s".
func (w *Webhook) Init(cfg notifier.Config) error {
	if u := notifier.StringParam(cfg.Params, "url"); u != "" {
		w.url = u
	}
	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}
	if h := notifier.StringMapParam(cfg.Params, "headers"); h != nil {
		w.headers = h
	}

	timeout := defaultTimeout
	if s := notifier.StringParam(cfg.Params, "timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return fmt.Errorf("webhook: invalid timeout %q", s)
		}
		timeout = d
	}
	if w.client == nil || timeout != defaultTimeout {
		w.client = &http.Client{Timeout: timeout}
	}
	return nil
}

type payload struct {
	Type string `json:"type"`
	notifier.Message
}

func (w *Webhook) Send(ctx context.Context, msg notifier.Message) error {
	body, err := json.Marshal(payload{Type: eventType, Message: msg})
	if err != nil {
		return fmt.Errorf("webhook: encoding alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Folio-Event", eventType)
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: posting to %s: %w", w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return fmt.Errorf("webhook: endpoint answered %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
