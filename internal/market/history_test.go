package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

func dailyBars(closes ...float64) []core.OHLCV {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		// oldest first, so the builder has to sort
		bars[i] = core.OHLCV{Time: start.AddDate(0, 0, i), Close: c, Open: c, High: c, Low: c, Volume: 100}
	}
	return bars
}

func withHistory(name string, bars []core.OHLCV) *stubProvider {
	return &stubProvider{
		name: name,
		history: func(ctx context.Context, symbol string, days int) ([]core.OHLCV, error) {
			return bars, nil
		},
	}
}

func TestHistoryBuilder_TruncatesMostRecent(t *testing.T) {
	h := NewHistoryBuilder(provider.NewRegistry(withHistory("alphavantage", dailyBars(10, 11, 12, 13))))

	s := h.GetHistory(context.Background(), "aapl", 3)
	require.True(t, s.OK(), s.Error)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 3, s.RequestedDays)
	assert.Equal(t, 3, s.ActualDays)
	assert.Equal(t, []float64{13, 12, 11}, s.Close)
	assert.Equal(t, "alphavantage", s.Source)

	require.NotNil(t, s.Statistics)
	assert.Equal(t, 13.0, s.Statistics.CurrentPrice)
	assert.Equal(t, 2.0, s.Statistics.PriceChange)
	assert.Equal(t, 11.0, s.Statistics.MinPrice)
	assert.Equal(t, 12.0, s.Statistics.AvgPrice)
}

func TestHistoryBuilder_SparseData(t *testing.T) {
	h := NewHistoryBuilder(provider.NewRegistry(withHistory("yahoo", dailyBars(10, 11))))

	s := h.GetHistory(context.Background(), "AAPL", 30)
	assert.Equal(t, 30, s.RequestedDays)
	assert.Equal(t, 2, s.ActualDays)
	assert.LessOrEqual(t, s.ActualDays, s.RequestedDays)
}

func TestHistoryBuilder_FallsBack(t *testing.T) {
	first := failing("alphavantage", core.WrapError(core.ErrRateLimited, errors.New("429")))
	h := NewHistoryBuilder(provider.NewRegistry(first, withHistory("yahoo", dailyBars(1, 2))), WithRetryPolicy(fastRetry()))

	s := h.GetHistory(context.Background(), "AAPL", 5)
	require.True(t, s.OK())
	assert.Equal(t, "yahoo", s.Source)
	assert.False(t, s.RateLimited, "a later provider succeeded")
}

func TestHistoryBuilder_FailureTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		kind        FailureKind
		rateLimited bool
	}{
		{"transport", core.WrapError(core.ErrProviderFailed, errors.New("connection refused")), FailureTransport, false},
		{"rate limited", core.WrapError(core.ErrRateLimited, errors.New("Note")), FailureRateLimited, true},
		{"empty payload", core.WrapError(core.ErrNoData, errors.New("no time series")), FailureEmptyPayload, false},
		{"malformed date", core.WrapError(core.ErrMalformedDate, errors.New("03/01/2024")), FailureMalformedDate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistoryBuilder(provider.NewRegistry(failing("alphavantage", tt.err)), WithRetryPolicy(fastRetry()))

			s := h.GetHistory(context.Background(), "AAPL", 10)
			assert.False(t, s.OK())
			assert.NotEmpty(t, s.Error)
			assert.Equal(t, tt.kind, s.ErrorKind)
			assert.Equal(t, tt.rateLimited, s.RateLimited)
			assert.NotNil(t, s.Close, "arrays are empty, not nil")
			assert.Empty(t, s.Close)
			assert.Nil(t, s.Statistics)
		})
	}
}

func TestHistoryBuilder_EmptyProviderResult(t *testing.T) {
	h := NewHistoryBuilder(provider.NewRegistry(withHistory("yahoo", nil)), WithRetryPolicy(fastRetry()))

	s := h.GetHistory(context.Background(), "AAPL", 10)
	assert.Equal(t, FailureEmptyPayload, s.ErrorKind)
}

func TestHistoryBuilder_NoProviders(t *testing.T) {
	s := NewHistoryBuilder(provider.NewRegistry()).GetHistory(context.Background(), "AAPL", 0)
	assert.Equal(t, DefaultHistoryDays, s.RequestedDays)
	assert.NotEmpty(t, s.Error)
}

func TestHistoricalSeries_Bars(t *testing.T) {
	h := NewHistoryBuilder(provider.NewRegistry(withHistory("yahoo", dailyBars(1, 2, 3))))
	s := h.GetHistory(context.Background(), "AAPL", 3)

	bars := s.Bars()
	require.Len(t, bars, 3)
	assert.Equal(t, 3.0, bars[0].Close)
	assert.True(t, bars[0].Time.After(bars[2].Time))
}
