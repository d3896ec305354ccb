// Package alphavantage implements the primary quote, history and news
// provider. Alpha Vantage reports throttling inside HTTP 200 bodies, so every
// payload is inspected before it is accepted.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	name           = "alphavantage"

	// intradayMaxDays is the largest window served from hourly bars.
	intradayMaxDays = 5
)

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// AlphaVantage is the Alpha Vantage provider
type AlphaVantage struct {
	apiKey  string
	baseURL string
	getter  *provider.HTTPGetter
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an Alpha Vantage provider
func New(cfg provider.Config, logger *zap.Logger, opts ...provider.GetterOption) *AlphaVantage {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Free tier allows a handful of calls per minute; one per second keeps
	// bursts from a single portfolio under control.
	rl := cfg.RateLimit
	if rl <= 0 {
		rl = 1
	}
	opts = append([]provider.GetterOption{provider.WithRateLimit(rl), provider.WithLogger(logger)}, opts...)
	return &AlphaVantage{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		getter:  provider.NewHTTPGetter(name, opts...),
		logger:  logger,
		now:     time.Now,
	}
}

func (a *AlphaVantage) Name() string {
	return name
}

// FetchQuote calls GLOBAL_QUOTE
func (a *AlphaVantage) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	raw, err := a.query(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}})
	if err != nil {
		return nil, err
	}

	body, ok := raw["Global Quote"]
	if !ok {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("alphavantage: no quote for %s", symbol))
	}

	var gq globalQuote
	if err := json.Unmarshal(body, &gq); err != nil {
		return nil, core.WrapError(core.ErrMalformedPayload, fmt.Errorf("alphavantage: %w", err))
	}
	if gq.Price <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("alphavantage: empty quote for %s", symbol))
	}

	changePct := strings.TrimSpace(gq.ChangePercent)
	if changePct == "" {
		changePct = "0.00%"
	}

	return &core.Quote{
		Symbol:        symbol,
		CurrentPrice:  float64(gq.Price),
		Change:        float64(gq.Change),
		ChangePercent: changePct,
		High:          float64(gq.High),
		Low:           float64(gq.Low),
		Open:          float64(gq.Open),
		PreviousClose: float64(gq.PreviousClose),
		Volume:        int64(gq.Volume),
		Timestamp:     a.now(),
		Source:        name,
	}, nil
}

// FetchHistory calls TIME_SERIES_INTRADAY (60min) for short windows and
// TIME_SERIES_DAILY otherwise, returning the most recent days bars first.
func (a *AlphaVantage) FetchHistory(ctx context.Context, symbol string, days int) ([]core.OHLCV, error) {
	params := url.Values{"symbol": {symbol}}
	if days <= intradayMaxDays {
		params.Set("function", "TIME_SERIES_INTRADAY")
		params.Set("interval", "60min")
	} else {
		params.Set("function", "TIME_SERIES_DAILY")
		if days > 100 {
			params.Set("outputsize", "full")
		}
	}

	raw, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var series map[string]bar
	for key, body := range raw {
		if !strings.Contains(key, "Time Series") {
			continue
		}
		if err := json.Unmarshal(body, &series); err != nil {
			return nil, core.WrapError(core.ErrMalformedPayload, fmt.Errorf("alphavantage: %w", err))
		}
		break
	}
	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("alphavantage: no time series data for %s", symbol))
	}

	data := make([]core.OHLCV, 0, len(series))
	for date, b := range series {
		ts, err := parseDate(date)
		if err != nil {
			return nil, core.WrapError(core.ErrMalformedDate, fmt.Errorf("alphavantage: %q: %w", date, err))
		}
		data = append(data, core.OHLCV{
			Time:   ts,
			Open:   float64(b.Open),
			High:   float64(b.High),
			Low:    float64(b.Low),
			Close:  float64(b.Close),
			Volume: int64(b.Volume),
		})
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Time.After(data[j].Time) })
	if days > 0 && len(data) > days {
		data = data[:days]
	}
	return data, nil
}

// FetchNews calls NEWS_SENTIMENT and returns up to limit articles
func (a *AlphaVantage) FetchNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	raw, err := a.query(ctx, url.Values{
		"function": {"NEWS_SENTIMENT"},
		"tickers":  {symbol},
		"sort":     {"LATEST"},
		"limit":    {fmt.Sprintf("%d", limit)},
	})
	if err != nil {
		return nil, err
	}

	var feed []newsArticle
	if body, ok := raw["feed"]; ok {
		if err := json.Unmarshal(body, &feed); err != nil {
			return nil, core.WrapError(core.ErrMalformedPayload, fmt.Errorf("alphavantage news: %w", err))
		}
	}

	items := make([]core.NewsItem, 0, len(feed))
	for _, art := range feed {
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, core.NewsItem{
			Title:       art.Title,
			Description: art.Summary,
			PublishedAt: art.TimePublished,
			Source:      art.Source,
			URL:         art.URL,
		})
	}
	return items, nil
}

// query performs the request and rejects embedded rate-limit and error
// notices.
func (a *AlphaVantage) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	if a.apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("alphavantage: api key not configured"))
	}
	params.Set("apikey", a.apiKey)

	var raw map[string]json.RawMessage
	if err := a.getter.GetJSON(ctx, a.baseURL, params, &raw); err != nil {
		return nil, err
	}

	if notice := embeddedNotice(raw, "Note", "Information"); notice != "" {
		if isRateLimitNotice(notice) {
			return nil, core.WrapError(core.ErrRateLimited, fmt.Errorf("alphavantage: %s", notice))
		}
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("alphavantage: %s", notice))
	}
	if msg := embeddedNotice(raw, "Error Message"); msg != "" {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("alphavantage: %s", msg))
	}
	return raw, nil
}

func embeddedNotice(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		body, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return string(body)
		}
		return s
	}
	return ""
}

func isRateLimitNotice(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "call frequency") ||
		strings.Contains(lower, "api call volume") ||
		strings.Contains(lower, "requests per")
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

type globalQuote struct {
	Symbol        string         `json:"01. symbol"`
	Open          provider.Float `json:"02. open"`
	High          provider.Float `json:"03. high"`
	Low           provider.Float `json:"04. low"`
	Price         provider.Float `json:"05. price"`
	Volume        provider.Float `json:"06. volume"`
	LatestDay     string         `json:"07. latest trading day"`
	PreviousClose provider.Float `json:"08. previous close"`
	Change        provider.Float `json:"09. change"`
	ChangePercent string         `json:"10. change percent"`
}

type bar struct {
	Open   provider.Float `json:"1. open"`
	High   provider.Float `json:"2. high"`
	Low    provider.Float `json:"3. low"`
	Close  provider.Float `json:"4. close"`
	Volume provider.Float `json:"5. volume"`
}

type newsArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	TimePublished string `json:"time_published"`
	Summary       string `json:"summary"`
	Source        string `json:"source"`
}
