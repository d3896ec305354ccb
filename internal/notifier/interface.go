package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Severity levels of a message.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Message is a notification about a portfolio report.
type Message struct {
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	Severity  string             `json:"severity"`
	ReportID  string             `json:"report_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Notifier delivers messages to one channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single message
	Send(ctx context.Context, msg Message) error
}

// StringParam reads a string parameter.
func StringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// StringsParam reads a list parameter. Decoded config yields []any, code
// usually passes []string.
func StringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// StringMapParam reads a map of strings, such as HTTP headers.
func StringMapParam(params map[string]any, key string) map[string]string {
	switch v := params[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}
