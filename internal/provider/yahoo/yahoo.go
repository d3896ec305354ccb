package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	name           = "yahoo"
)

// validSymbol matches stock symbols like AAPL, BRK.B, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^\-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart provider. No key is required.
type Yahoo struct {
	baseURL string
	getter  *provider.HTTPGetter
	now     func() time.Time
}

// New creates a new Yahoo provider
func New(cfg provider.Config, logger *zap.Logger, opts ...provider.GetterOption) *Yahoo {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]provider.GetterOption{
		provider.WithRateLimit(cfg.RateLimit),
		provider.WithLogger(logger),
		provider.WithUserAgent("Mozilla/5.0 (compatible; folio/1.0)"),
	}, opts...)
	return &Yahoo{
		baseURL: baseURL,
		getter:  provider.NewHTTPGetter(name, opts...),
		now:     time.Now,
	}
}

func (y *Yahoo) Name() string {
	return name
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchQuote reads the chart metadata of the current session
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	r, err := y.chart(ctx, symbol, url.Values{"range": {"1d"}, "interval": {"1m"}})
	if err != nil {
		return nil, err
	}

	meta := r.Meta
	price := float64(meta.RegularMarketPrice)
	if price <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo: no price for %s", symbol))
	}

	prevClose := float64(meta.PreviousClose)
	if prevClose == 0 {
		prevClose = float64(meta.ChartPreviousClose)
	}
	if prevClose == 0 {
		prevClose = price
	}
	change := price - prevClose
	changePct := "0%"
	if prevClose > 0 {
		changePct = provider.FormatPercent(change / prevClose * 100)
	}

	return &core.Quote{
		Symbol:        symbol,
		CurrentPrice:  price,
		Change:        change,
		ChangePercent: changePct,
		High:          orDefault(float64(meta.RegularMarketDayHigh), price),
		Low:           orDefault(float64(meta.RegularMarketDayLow), price),
		Open:          orDefault(float64(meta.RegularMarketOpen), price),
		PreviousClose: prevClose,
		Volume:        int64(meta.RegularMarketVolume),
		Timestamp:     y.now(),
		Source:        name,
	}, nil
}

// FetchHistory fetches hourly bars for windows up to five days and daily
// bars otherwise, returning the most recent days bars first.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, days int) ([]core.OHLCV, error) {
	interval := "1d"
	if days <= 5 {
		interval = "1h"
	}
	end := y.now()
	// Calendar span wide enough to cover weekends and holidays.
	start := end.AddDate(0, 0, -(days*3/2 + 7))

	r, err := y.chart(ctx, symbol, url.Values{
		"interval": {interval},
		"period1":  {fmt.Sprintf("%d", start.Unix())},
		"period2":  {fmt.Sprintf("%d", end.Unix())},
	})
	if err != nil {
		return nil, err
	}
	if len(r.Indicators.Quote) == 0 || len(r.Timestamp) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo: no history for %s", symbol))
	}

	quotes := r.Indicators.Quote[0]
	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closeVal := at(quotes.Close, i)
		if closeVal == nil {
			continue // Skip missing data
		}
		bar := core.OHLCV{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *closeVal,
		}
		if v := at(quotes.Open, i); v != nil {
			bar.Open = *v
		}
		if v := at(quotes.High, i); v != nil {
			bar.High = *v
		}
		if v := at(quotes.Low, i); v != nil {
			bar.Low = *v
		}
		if v := at(quotes.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		data = append(data, bar)
	}
	if len(data) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo: no history for %s", symbol))
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Time.After(data[j].Time) })
	if days > 0 && len(data) > days {
		data = data[:days]
	}
	return data, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}

	var result chartResponse
	if err := y.getter.GetJSON(ctx, y.baseURL+"/"+url.PathEscape(toYahooSymbol(symbol)), params, &result); err != nil {
		return nil, err
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}
	return &result.Chart.Result[0], nil
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol               string         `json:"symbol"`
	RegularMarketPrice   provider.Float `json:"regularMarketPrice"`
	PreviousClose        provider.Float `json:"previousClose"`
	ChartPreviousClose   provider.Float `json:"chartPreviousClose"`
	RegularMarketDayHigh provider.Float `json:"regularMarketDayHigh"`
	RegularMarketDayLow  provider.Float `json:"regularMarketDayLow"`
	RegularMarketOpen    provider.Float `json:"regularMarketOpen"`
	RegularMarketVolume  provider.Float `json:"regularMarketVolume"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
