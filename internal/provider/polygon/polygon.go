// Package polygon implements the Polygon.io aggregates provider.
package polygon

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
	DefaultBaseURL = "https://api.polygon.io"
	name           = "polygon"
)

// Polygon is the Polygon.io provider
type Polygon struct {
	apiKey  string
	baseURL string
	getter  *provider.HTTPGetter
	now     func() time.Time
}

// New creates a Polygon provider
func New(cfg provider.Config, logger *zap.Logger, opts ...provider.GetterOption) *Polygon {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]provider.GetterOption{provider.WithRateLimit(cfg.RateLimit), provider.WithLogger(logger)}, opts...)
	return &Polygon{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		getter:  provider.NewHTTPGetter(name, opts...),
		now:     time.Now,
	}
}

func (p *Polygon) Name() string {
	return name
}

// quoteLookbackDays covers weekends and holidays when asking for the two
// most recent daily bars.
const quoteLookbackDays = 10

// FetchQuote reads the two most recent daily aggregates. The latest bar
// gives the price; the bar before it supplies the previous close that
// change is measured against. With a single bar available the previous
// close and change are left at zero.
func (p *Polygon) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	end := p.now().UTC()
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", url.PathEscape(symbol),
		end.AddDate(0, 0, -quoteLookbackDays).Format("2006-01-02"), end.Format("2006-01-02"))

	resp, err := p.aggs(ctx, path, url.Values{
		"adjusted": {"true"},
		"sort":     {"desc"},
		"limit":    {"2"},
	})
	if err != nil {
		return nil, err
	}
	bars := resp.Results
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp > bars[j].Timestamp })
	if len(bars) == 0 || bars[0].Close <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("polygon: no quote for %s", symbol))
	}

	latest := bars[0]
	q := &core.Quote{
		Symbol:        symbol,
		CurrentPrice:  float64(latest.Close),
		ChangePercent: provider.FormatPercent(0),
		High:          float64(latest.High),
		Low:           float64(latest.Low),
		Open:          float64(latest.Open),
		Volume:        int64(latest.Volume),
		Timestamp:     p.now(),
		Source:        name,
	}
	if len(bars) > 1 && bars[1].Close > 0 {
		prev := float64(bars[1].Close)
		q.PreviousClose = prev
		q.Change = q.CurrentPrice - prev
		q.ChangePercent = provider.FormatPercent(q.Change / prev * 100)
	}
	return q, nil
}

// FetchHistory calls the daily range aggregate endpoint
func (p *Polygon) FetchHistory(ctx context.Context, symbol string, days int) ([]core.OHLCV, error) {
	end := p.now().UTC()
	start := end.AddDate(0, 0, -(days*3/2 + 7))
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(symbol), start.Format("2006-01-02"), end.Format("2006-01-02"))

	resp, err := p.aggs(ctx, path, url.Values{
		"adjusted": {"true"},
		"sort":     {"desc"},
		"limit":    {"5000"},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("polygon: no history for %s", symbol))
	}

	data := make([]core.OHLCV, 0, len(resp.Results))
	for _, b := range resp.Results {
		data = append(data, core.OHLCV{
			Time:   time.UnixMilli(b.Timestamp).UTC(),
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

func (p *Polygon) aggs(ctx context.Context, path string, params url.Values) (*aggsResponse, error) {
	if p.apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("polygon: api key not configured"))
	}
	params.Set("apiKey", p.apiKey)

	var resp aggsResponse
	if err := p.getter.GetJSON(ctx, p.baseURL+path, params, &resp); err != nil {
		return nil, err
	}
	switch strings.ToUpper(resp.Status) {
	case "ERROR":
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if strings.Contains(strings.ToLower(msg), "exceeded the maximum requests") {
			return nil, core.WrapError(core.ErrRateLimited, fmt.Errorf("polygon: %s", msg))
		}
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("polygon: %s", msg))
	case "NOT_AUTHORIZED":
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("polygon: %s", resp.Message))
	}
	return &resp, nil
}

type aggsResponse struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Open      provider.Float `json:"o"`
		High      provider.Float `json:"h"`
		Low       provider.Float `json:"l"`
		Close     provider.Float `json:"c"`
		Volume    provider.Float `json:"v"`
		Timestamp int64          `json:"t"`
	} `json:"results"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
