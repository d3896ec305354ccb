// internal/llm/factory/factory.go
package factory

import (
	"context"
	"fmt"

	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/llm/claude"
	"github.com/newthinker/folio/internal/llm/gemini"
	"github.com/newthinker/folio/internal/llm/ollama"
	"github.com/newthinker/folio/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider name
// means commentary is rule based and (nil, nil) is returned.
func New(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "gemini":
		return gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
