// Package iex implements the IEX Cloud provider. It is only registered when
// a token is configured.
package iex

import (
	"context"
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
	DefaultBaseURL = "https://cloud.iexapis.com/stable"
	name           = "iex"
)

// IEX is the IEX Cloud provider
type IEX struct {
	token   string
	baseURL string
	getter  *provider.HTTPGetter
	now     func() time.Time
}

// New creates an IEX provider
func New(cfg provider.Config, logger *zap.Logger, opts ...provider.GetterOption) *IEX {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]provider.GetterOption{provider.WithRateLimit(cfg.RateLimit), provider.WithLogger(logger)}, opts...)
	return &IEX{
		token:   cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		getter:  provider.NewHTTPGetter(name, opts...),
		now:     time.Now,
	}
}

func (p *IEX) Name() string {
	return name
}

// FetchQuote calls /stock/{symbol}/quote
func (p *IEX) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if p.token == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("iex: token not configured"))
	}

	var q quoteResponse
	endpoint := fmt.Sprintf("%s/stock/%s/quote", p.baseURL, url.PathEscape(symbol))
	if err := p.getter.GetJSON(ctx, endpoint, url.Values{"token": {p.token}}, &q); err != nil {
		return nil, err
	}
	if q.LatestPrice <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("iex: no price for %s", symbol))
	}

	return &core.Quote{
		Symbol:        symbol,
		CurrentPrice:  float64(q.LatestPrice),
		Change:        float64(q.Change),
		ChangePercent: provider.FormatPercent(float64(q.ChangePercent) * 100),
		High:          float64(q.High),
		Low:           float64(q.Low),
		Open:          float64(q.Open),
		PreviousClose: float64(q.PreviousClose),
		Volume:        int64(q.LatestVolume),
		Timestamp:     p.now(),
		Source:        name,
	}, nil
}

// FetchHistory calls /stock/{symbol}/chart/{range} with the smallest range
// covering days trading sessions.
func (p *IEX) FetchHistory(ctx context.Context, symbol string, days int) ([]core.OHLCV, error) {
	if p.token == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("iex: token not configured"))
	}

	var bars []chartBar
	endpoint := fmt.Sprintf("%s/stock/%s/chart/%s", p.baseURL, url.PathEscape(symbol), chartRange(days))
	if err := p.getter.GetJSON(ctx, endpoint, url.Values{"token": {p.token}}, &bars); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("iex: no history for %s", symbol))
	}

	data := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		ts, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, core.WrapError(core.ErrMalformedDate, fmt.Errorf("iex: %q: %w", b.Date, err))
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

func chartRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 21:
		return "1m"
	case days <= 63:
		return "3m"
	case days <= 126:
		return "6m"
	case days <= 252:
		return "1y"
	case days <= 504:
		return "2y"
	default:
		return "5y"
	}
}

type quoteResponse struct {
	LatestPrice   provider.Float `json:"latestPrice"`
	Change        provider.Float `json:"change"`
	ChangePercent provider.Float `json:"changePercent"`
	High          provider.Float `json:"high"`
	Low           provider.Float `json:"low"`
	Open          provider.Float `json:"open"`
	PreviousClose provider.Float `json:"previousClose"`
	LatestVolume  provider.Float `json:"latestVolume"`
}

type chartBar struct {
	Date   string         `json:"date"`
	Open   provider.Float `json:"open"`
	High   provider.Float `json:"high"`
	Low    provider.Float `json:"low"`
	Close  provider.Float `json:"close"`
	Volume provider.Float `json:"volume"`
}
