// internal/provider/provider.go
package provider

import (
	"context"

	"github.com/newthinker/folio/internal/core"
)

// Provider is an external market data source. Every provider supports both
// operations; the fetchers treat them as interchangeable and only differ in
// the order they are tried.
type Provider interface {
	Name() string

	// FetchQuote returns a normalized quote, or an error when the provider
	// has no usable payload (including embedded rate-limit notices).
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)

	// FetchHistory returns up to days bars, most recent first.
	FetchHistory(ctx context.Context, symbol string, days int) ([]core.OHLCV, error)
}

// Config holds provider configuration
type Config struct {
	APIKey    string
	BaseURL   string
	RateLimit int
}
