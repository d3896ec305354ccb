package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token := notifier.StringParam(cfg.Params, "bot_token"); token != "" {
		t.botToken = token
	}
	if chatID := notifier.StringParam(cfg.Params, "chat_id"); chatID != "" {
		t.chatID = chatID
	}
	if base := notifier.StringParam(cfg.Params, "api_base"); base != "" {
		t.apiBase = base
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, msg notifier.Message) error {
	return t.sendMessage(ctx, formatMessage(msg))
}

func severityEmoji(severity string) string {
	switch severity {
	case notifier.SeverityCritical:
		return "🚨"
	case notifier.SeverityWarning:
		return "⚠️"
	default:
		return "📊"
	}
}

func formatMessage(msg notifier.Message) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s *%s*\n", severityEmoji(msg.Severity), msg.Title))
	if msg.Body != "" {
		sb.WriteString(msg.Body + "\n")
	}

	keys := make([]string, 0, len(msg.Metrics))
	for k := range msg.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("• %s: %.4g\n", k, msg.Metrics[k]))
	}

	if msg.ReportID != "" {
		sb.WriteString(fmt.Sprintf("🗂 Report: %s\n", msg.ReportID))
	}
	sb.WriteString(fmt.Sprintf("⏰ Time: %s", msg.Timestamp.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
