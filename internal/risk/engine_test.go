package risk

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/market"
)

type fakeHistory struct {
	mu       sync.Mutex
	series   map[string][]float64 // most recent first
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	requests []string
}

func (f *fakeHistory) GetHistory(ctx context.Context, symbol string, days int) *market.HistoricalSeries {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.requests = append(f.requests, symbol)
	closes, ok := f.series[symbol]
	f.mu.Unlock()

	if !ok {
		return &market.HistoricalSeries{Symbol: symbol, Close: []float64{}, Error: "no time series", ErrorKind: market.FailureEmptyPayload}
	}
	return &market.HistoricalSeries{Symbol: symbol, Close: closes, ActualDays: len(closes), RequestedDays: days, Source: "fake"}
}

func TestEngine_CalculateVolatility(t *testing.T) {
	e := NewEngine(&fakeHistory{series: map[string][]float64{"AAPL": {99, 110, 100}}}, Config{}, nil)

	r := e.CalculateVolatility(context.Background(), "AAPL", 0)
	require.True(t, r.OK())
	assert.InDelta(t, 0.1, r.Volatility, 1e-12)
	assert.Equal(t, "fake", r.Source)

	missing := e.CalculateVolatility(context.Background(), "ZZZZ", 10)
	assert.False(t, missing.OK())
	assert.Equal(t, "ZZZZ", missing.Symbol)
}

func TestEngine_VolatilitiesRunConcurrently(t *testing.T) {
	h := &fakeHistory{
		series: map[string][]float64{"A": {1, 2}, "B": {1, 2}, "C": {1, 2}, "D": {1, 2}},
		delay:  20 * time.Millisecond,
	}
	e := NewEngine(h, Config{Concurrency: 4}, nil)

	out := e.Volatilities(context.Background(), []string{"A", "B", "C", "D"})
	assert.Len(t, out, 4)
	assert.Greater(t, h.maxSeen.Load(), int32(1), "expected overlapping history fetches")
}

func TestEngine_VolatilitiesRespectsConcurrencyLimit(t *testing.T) {
	h := &fakeHistory{
		series: map[string][]float64{"A": {1, 2}, "B": {1, 2}, "C": {1, 2}, "D": {1, 2}},
		delay:  10 * time.Millisecond,
	}
	e := NewEngine(h, Config{Concurrency: 1}, nil)

	e.Volatilities(context.Background(), []string{"A", "B", "C", "D"})
	assert.Equal(t, int32(1), h.maxSeen.Load())
}

func TestEngine_CalculatePortfolioRisk(t *testing.T) {
	h := &fakeHistory{series: map[string][]float64{
		"AAPL": {160, 155, 158, 150},
		"MSFT": {310, 305, 300, 302},
	}}
	e := NewEngine(h, Config{}, nil)

	positions := []core.Position{
		{Symbol: "AAPL", Quantity: 10, PurchasePrice: 150},
		{Symbol: "MSFT", Quantity: 5, PurchasePrice: 300},
		{Symbol: "ZZZZ", Quantity: 1, PurchasePrice: 10},
	}
	quotes := map[string]core.Quote{
		"AAPL": {Symbol: "AAPL", CurrentPrice: 160},
		"MSFT": {Symbol: "MSFT", CurrentPrice: 310},
	}

	ra := e.CalculatePortfolioRisk(context.Background(), positions, quotes)
	assert.InDelta(t, 3150, ra.TotalValue, 1e-9)
	assert.Equal(t, 3, ra.NumberOfPositions)
	assert.Equal(t, []string{"ZZZZ"}, ra.UnpricedSymbols)
	assert.Len(t, ra.VolatilityData, 2)
	assert.Greater(t, ra.PortfolioVolatility, 0.0)
	assert.NotContains(t, h.requests, "ZZZZ", "unpriced symbols need no history")
}
