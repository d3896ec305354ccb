// Package llm abstracts the chat-completion providers used for report
// commentary.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/folio/internal/core"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// MaxTokensOrDefault returns req.MaxTokens, or DefaultMaxTokens if unset.
func (req ChatRequest) MaxTokensOrDefault() int {
	if req.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return req.MaxTokens
}

// Complete sends a single-turn prompt and returns the trimmed reply. Provider
// failures and empty replies are reported as core.ErrLLMFailed.
func Complete(ctx context.Context, p Provider, system, prompt string, maxTokens int) (string, error) {
	resp, err := p.Chat(ctx, ChatRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:    maxTokens,
		Temperature:  0.3,
	})
	if err != nil {
		return "", core.WrapError(core.ErrLLMFailed, fmt.Errorf("%s: %w", p.Name(), err))
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", core.WrapError(core.ErrLLMFailed, fmt.Errorf("%s: empty response (finish reason %q)", p.Name(), resp.FinishReason))
	}
	return content, nil
}
