// Package market turns the ranked provider list into resilient quote and
// history lookups.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

// Fetcher resolves quotes through the cache and then the providers in
// priority order.
type Fetcher struct {
	providers *provider.Registry
	cache     *cache.QuoteCache
	retry     RetryPolicy
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures a Fetcher or HistoryBuilder.
type Option func(*options)

type options struct {
	retry    RetryPolicy
	recorder Recorder
	logger   *zap.Logger
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithRecorder reports provider and cache outcomes.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		retry:    DefaultRetryPolicy(),
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFetcher creates a fetcher. The cache is owned by the caller so it can
// be shared and inspected.
func NewFetcher(providers *provider.Registry, quotes *cache.QuoteCache, opts ...Option) *Fetcher {
	o := buildOptions(opts)
	if quotes == nil {
		quotes = cache.NewQuoteCache(cache.DefaultQuoteTTL)
	}
	return &Fetcher{
		providers: providers,
		cache:     quotes,
		retry:     o.retry,
		recorder:  o.recorder,
		logger:    o.logger,
	}
}

// GetQuote returns a fresh cached quote or the first usable quote from the
// providers, which is then cached. It fails with *ExhaustedError only when
// every provider failed.
func (f *Fetcher) GetQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("symbol cannot be empty"))
	}

	if q, ok := f.cache.Get(symbol); ok {
		f.recorder.RecordQuoteCache(true)
		f.logger.Debug("quote cache hit", zap.String("symbol", symbol), zap.String("source", q.Source))
		return &q, nil
	}
	f.recorder.RecordQuoteCache(false)

	exhausted := &ExhaustedError{Symbol: symbol}
	for _, p := range f.providers.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q, err := f.fetchFrom(ctx, p, symbol)
		if err == nil {
			f.recorder.RecordProviderRequest(p.Name(), OutcomeSuccess)
			// A cancelled caller must not leave anything behind.
			if ctx.Err() == nil {
				f.cache.Put(*q)
			}
			return q, nil
		}

		if errors.Is(err, core.ErrConfigMissing) {
			f.logger.Debug("provider not configured", zap.String("provider", p.Name()))
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		outcome := OutcomeError
		if errors.Is(err, core.ErrRateLimited) {
			outcome = OutcomeRateLimited
		}
		f.recorder.RecordProviderRequest(p.Name(), outcome)
		f.logger.Warn("provider failed",
			zap.String("provider", p.Name()),
			zap.String("symbol", symbol),
			zap.Error(err))
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Provider: p.Name(), Err: err})
	}

	f.recorder.RecordProvidersExhausted()
	return nil, exhausted
}

// fetchFrom queries one provider with retries and validates the payload.
func (f *Fetcher) fetchFrom(ctx context.Context, p provider.Provider, symbol string) (*core.Quote, error) {
	var quote *core.Quote
	err := withRetry(ctx, f.retry, func(ctx context.Context) error {
		q, err := p.FetchQuote(ctx, symbol)
		if err != nil {
			return err
		}
		if q == nil || !q.IsValid() {
			return core.WrapError(core.ErrMalformedPayload, fmt.Errorf("%s: unusable quote for %s", p.Name(), symbol))
		}
		quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	quote.Symbol = symbol
	if quote.Source == "" {
		quote.Source = p.Name()
	}
	return quote, nil
}

// Cache returns the quote cache.
func (f *Fetcher) Cache() *cache.QuoteCache {
	return f.cache
}

// Providers returns the provider names in priority order.
func (f *Fetcher) Providers() []string {
	return f.providers.Names()
}
