// internal/risk/engine.go
package risk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/market"
)

// DefaultVolatilityDays is the history window used for volatility.
const DefaultVolatilityDays = 30

// HistorySource supplies historical series. *market.HistoryBuilder
// satisfies it.
type HistorySource interface {
	GetHistory(ctx context.Context, symbol string, days int) *market.HistoricalSeries
}

// Engine computes volatility and portfolio risk, fetching history for all
// symbols concurrently.
type Engine struct {
	history     HistorySource
	days        int
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// Config holds engine configuration
type Config struct {
	VolatilityDays int
	Concurrency    int
}

// NewEngine creates a risk engine.
func NewEngine(history HistorySource, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VolatilityDays <= 0 {
		cfg.VolatilityDays = DefaultVolatilityDays
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Engine{
		history:     history,
		days:        cfg.VolatilityDays,
		concurrency: cfg.Concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// CalculateVolatility fetches history for symbol and computes its
// volatility. Failures are returned inside the result.
func (e *Engine) CalculateVolatility(ctx context.Context, symbol string, days int) VolatilityResult {
	if days <= 0 {
		days = e.days
	}
	series := e.history.GetHistory(ctx, symbol, days)
	r := VolatilityFromSeries(series)
	if r.Symbol == "" {
		r.Symbol = symbol
	}
	if !r.OK() {
		e.logger.Info("volatility unavailable",
			zap.String("symbol", symbol),
			zap.String("reason", r.Error),
			zap.Bool("rate_limited", r.RateLimited))
	}
	return r
}

// Volatilities computes volatility for every symbol in parallel and waits
// for all of them.
func (e *Engine) Volatilities(ctx context.Context, symbols []string) map[string]VolatilityResult {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.concurrency)
		out = make(map[string]VolatilityResult, len(symbols))
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			r := e.CalculateVolatility(ctx, sym, e.days)
			mu.Lock()
			out[sym] = r
			mu.Unlock()
		}(sym)
	}
	wg.Wait()
	return out
}

// CalculatePortfolioRisk weights the positions by the quoted prices and
// folds in per-symbol volatility.
func (e *Engine) CalculatePortfolioRisk(ctx context.Context, positions []core.Position, quotes map[string]core.Quote) RiskAssessment {
	prices := make(map[string]float64, len(quotes))
	for sym, q := range quotes {
		prices[sym] = q.CurrentPrice
	}

	weights, _, _ := Weights(positions, prices)
	symbols := make([]string, 0, len(weights))
	for _, sym := range sortedKeys(weights) {
		symbols = append(symbols, sym)
	}

	vols := e.Volatilities(ctx, symbols)
	ra := Assess(positions, prices, vols, e.now())

	e.logger.Info("risk assessment complete",
		zap.Float64("total_value", ra.TotalValue),
		zap.Float64("hhi", ra.Concentration.HHI),
		zap.Float64("portfolio_volatility", ra.PortfolioVolatility),
		zap.String("overall_risk_level", ra.OverallRiskLevel))
	return ra
}
