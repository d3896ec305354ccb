// internal/market/history.go
package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

// FailureKind classifies why a series came back empty.
type FailureKind string

const (
	FailureTransport     FailureKind = "transport"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureEmptyPayload  FailureKind = "empty_payload"
	FailureMalformedDate FailureKind = "malformed_date"
)

// DefaultHistoryDays is used when a caller asks for a non-positive window.
const DefaultHistoryDays = 30

// HistoricalSeries holds bars most recent first as parallel arrays. On
// failure the arrays are empty and Error is set; callers only need to branch
// on Error.
type HistoricalSeries struct {
	Symbol        string      `json:"symbol"`
	Timestamps    []time.Time `json:"timestamps"`
	Open          []float64   `json:"open_prices"`
	High          []float64   `json:"high_prices"`
	Low           []float64   `json:"low_prices"`
	Close         []float64   `json:"close_prices"`
	Volume        []int64     `json:"volumes"`
	RequestedDays int         `json:"requested_days"`
	ActualDays    int         `json:"actual_days"`
	Source        string      `json:"source,omitempty"`
	Statistics    *Statistics `json:"statistics,omitempty"`

	Error       string      `json:"error,omitempty"`
	ErrorKind   FailureKind `json:"error_kind,omitempty"`
	RateLimited bool        `json:"rate_limited,omitempty"`
}

// OK reports whether the series carries data.
func (s *HistoricalSeries) OK() bool {
	return s.Error == "" && len(s.Close) > 0
}

// Bars returns the series as OHLCV bars, most recent first.
func (s *HistoricalSeries) Bars() []core.OHLCV {
	bars := make([]core.OHLCV, len(s.Close))
	for i := range s.Close {
		bars[i] = core.OHLCV{
			Time:   s.Timestamps[i],
			Open:   s.Open[i],
			High:   s.High[i],
			Low:    s.Low[i],
			Close:  s.Close[i],
			Volume: s.Volume[i],
		}
	}
	return bars
}

func emptySeries(symbol string, days int) *HistoricalSeries {
	return &HistoricalSeries{
		Symbol:        symbol,
		Timestamps:    []time.Time{},
		Open:          []float64{},
		High:          []float64{},
		Low:           []float64{},
		Close:         []float64{},
		Volume:        []int64{},
		RequestedDays: days,
	}
}

// HistoryBuilder fetches multi-day series with the same provider fallback
// as the quote Fetcher. It never returns an error.
type HistoryBuilder struct {
	providers *provider.Registry
	retry     RetryPolicy
	recorder  Recorder
	logger    *zap.Logger
}

// NewHistoryBuilder creates a history builder.
func NewHistoryBuilder(providers *provider.Registry, opts ...Option) *HistoryBuilder {
	o := buildOptions(opts)
	return &HistoryBuilder{
		providers: providers,
		retry:     o.retry,
		recorder:  o.recorder,
		logger:    o.logger,
	}
}

// GetHistory returns up to days bars for symbol, most recent first.
func (h *HistoryBuilder) GetHistory(ctx context.Context, symbol string, days int) *HistoricalSeries {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if days <= 0 {
		days = DefaultHistoryDays
	}
	series := emptySeries(symbol, days)

	var (
		lastErr     error
		rateLimited bool
	)
	for _, p := range h.providers.All() {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		var bars []core.OHLCV
		err := withRetry(ctx, h.retry, func(ctx context.Context) error {
			b, err := p.FetchHistory(ctx, symbol, days)
			if err != nil {
				return err
			}
			if len(b) == 0 {
				return core.WrapError(core.ErrNoData, fmt.Errorf("%s: empty series for %s", p.Name(), symbol))
			}
			bars = b
			return nil
		})
		if err == nil {
			h.recorder.RecordProviderRequest(p.Name(), OutcomeSuccess)
			fill(series, bars, days)
			series.Source = p.Name()
			h.logger.Debug("history fetched",
				zap.String("provider", p.Name()),
				zap.String("symbol", symbol),
				zap.Int("points", series.ActualDays))
			return series
		}

		if errors.Is(err, core.ErrConfigMissing) {
			continue
		}
		outcome := OutcomeError
		if errors.Is(err, core.ErrRateLimited) {
			outcome = OutcomeRateLimited
			rateLimited = true
		}
		h.recorder.RecordProviderRequest(p.Name(), outcome)
		h.logger.Warn("history provider failed",
			zap.String("provider", p.Name()),
			zap.String("symbol", symbol),
			zap.Error(err))
		lastErr = err
	}

	if lastErr == nil {
		lastErr = core.WrapError(core.ErrNoData, fmt.Errorf("no history providers configured"))
	}
	series.ErrorKind = classify(lastErr)
	series.Error = lastErr.Error()
	if rateLimited {
		series.RateLimited = true
		series.ErrorKind = FailureRateLimited
		series.Error = "API rate limit reached. Please wait before making more requests."
	}
	return series
}

// fill truncates bars to the most recent days entries and copies them in.
func fill(s *HistoricalSeries, bars []core.OHLCV, days int) {
	sorted := make([]core.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.After(sorted[j].Time) })
	if len(sorted) > days {
		sorted = sorted[:days]
	}

	for _, b := range sorted {
		s.Timestamps = append(s.Timestamps, b.Time)
		s.Open = append(s.Open, b.Open)
		s.High = append(s.High, b.High)
		s.Low = append(s.Low, b.Low)
		s.Close = append(s.Close, b.Close)
		s.Volume = append(s.Volume, b.Volume)
	}
	s.ActualDays = len(sorted)
	s.Statistics = ComputeStatistics(s.Close)
}

func classify(err error) FailureKind {
	switch {
	case errors.Is(err, core.ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, core.ErrMalformedDate):
		return FailureMalformedDate
	case errors.Is(err, core.ErrNoData), errors.Is(err, core.ErrSymbolNotFound), errors.Is(err, core.ErrMalformedPayload):
		return FailureEmptyPayload
	default:
		return FailureTransport
	}
}
