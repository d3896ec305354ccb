// internal/sentiment/news.go
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

// NewsSource fetches recent articles about a symbol, most recent first.
// The Alpha Vantage provider satisfies it.
type NewsSource interface {
	Name() string
	FetchNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error)
}

// NewsAPISource queries newsapi.org.
type NewsAPISource struct {
	apiKey  string
	baseURL string
	getter  *provider.HTTPGetter
}

// DefaultNewsAPIURL is the newsapi.org search endpoint.
const DefaultNewsAPIURL = "https://newsapi.org/v2/everything"

// NewNewsAPISource creates a NewsAPI source.
func NewNewsAPISource(cfg provider.Config, logger *zap.Logger) *NewsAPISource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNewsAPIURL
	}
	return &NewsAPISource{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		getter:  provider.NewHTTPGetter("newsapi", provider.WithRateLimit(cfg.RateLimit), provider.WithLogger(logger)),
	}
}

func (s *NewsAPISource) Name() string {
	return "newsapi"
}

// FetchNews implements NewsSource.
func (s *NewsAPISource) FetchNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	if s.apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("newsapi: api key not configured"))
	}
	if limit <= 0 {
		limit = MaxHeadlines
	}

	var resp newsAPIResponse
	err := s.getter.GetJSON(ctx, s.baseURL, url.Values{
		"q":        {symbol},
		"sortBy":   {"publishedAt"},
		"language": {"en"},
		"pageSize": {fmt.Sprintf("%d", limit)},
		"apiKey":   {s.apiKey},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		if resp.Code == "rateLimited" {
			return nil, core.WrapError(core.ErrRateLimited, fmt.Errorf("newsapi: %s", resp.Message))
		}
		return nil, core.WrapError(core.ErrNewsUnavailable, fmt.Errorf("newsapi: %s: %s", resp.Code, resp.Message))
	}

	items := make([]core.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if len(items) >= limit {
			break
		}
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		items = append(items, core.NewsItem{
			Title:       a.Title,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
			Source:      a.Source.Name,
			URL:         a.URL,
		})
	}
	return items, nil
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// StaticSource serves configured news, for offline use and tests.
type StaticSource struct {
	news map[string][]core.NewsItem
}

// NewStaticSource creates a source from a symbol to items mapping.
func NewStaticSource(news map[string][]core.NewsItem) *StaticSource {
	return &StaticSource{news: news}
}

func (s *StaticSource) Name() string {
	return "static"
}

// FetchNews implements NewsSource.
func (s *StaticSource) FetchNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	items := s.news[symbol]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]core.NewsItem, len(items))
	copy(out, items)
	return out, nil
}

// CachedSource wraps a source with a per-symbol TTL cache.
type CachedSource struct {
	source NewsSource
	cache  *cache.TTL[[]core.NewsItem]
}

// NewCachedSource creates a cached news source.
func NewCachedSource(source NewsSource, ttl time.Duration, opts ...cache.Option) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  cache.New[[]core.NewsItem](ttl, opts...),
	}
}

func (s *CachedSource) Name() string {
	return s.source.Name()
}

// FetchNews returns cached news or fetches from the underlying source.
// Errors are not cached.
func (s *CachedSource) FetchNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	key := fmt.Sprintf("%s:%d", symbol, limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	news, err := s.source.FetchNews(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, news)
	return news, nil
}

// ChainSource tries sources in order and returns the first non-empty result.
type ChainSource struct {
	sources []NewsSource
	logger  *zap.Logger
}

// NewChainSource creates a fallback chain.
func NewChainSource(logger *zap.Logger, sources ...NewsSource) *ChainSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainSource{sources: sources, logger: logger}
}

func (c *ChainSource) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// FetchNews implements NewsSource. An empty but successful answer is
// returned only when no later source has items either.
func (c *ChainSource) FetchNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	var (
		errs      []error
		succeeded bool
	)
	for _, s := range c.sources {
		items, err := s.FetchNews(ctx, symbol, limit)
		if err != nil {
			if !errors.Is(err, core.ErrConfigMissing) {
				c.logger.Warn("news source failed",
					zap.String("source", s.Name()),
					zap.String("symbol", symbol),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
			continue
		}
		succeeded = true
		if len(items) > 0 {
			return items, nil
		}
	}
	if succeeded || len(errs) == 0 {
		return []core.NewsItem{}, nil
	}
	return nil, core.WrapError(core.ErrNewsUnavailable, errors.Join(errs...))
}
