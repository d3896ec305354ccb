// internal/risk/volatility.go
package risk

import (
	"math"

	"github.com/newthinker/folio/internal/market"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// VolatilityResult is the return dispersion of one symbol. A degenerate
// result has zero values and Error set.
type VolatilityResult struct {
	Symbol               string    `json:"symbol"`
	Volatility           float64   `json:"volatility"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
	DailyReturns         []float64 `json:"daily_returns"`
	DaysAnalyzed         int       `json:"days_analyzed"`
	Source               string    `json:"source,omitempty"`
	Error                string    `json:"error,omitempty"`
	RateLimited          bool      `json:"rate_limited,omitempty"`
}

// OK reports whether the result was computed from real returns.
func (v VolatilityResult) OK() bool {
	return v.Error == "" && v.DaysAnalyzed > 0
}

func degenerate(symbol, source, reason string) VolatilityResult {
	return VolatilityResult{
		Symbol:       symbol,
		DailyReturns: []float64{},
		Source:       source,
		Error:        reason,
	}
}

// VolatilityFromSeries computes volatility over the closes of a series.
// Series failures are carried through as the result's error.
func VolatilityFromSeries(series *market.HistoricalSeries) VolatilityResult {
	if series == nil {
		return degenerate("", "", "no historical data")
	}
	if series.RateLimited {
		r := degenerate(series.Symbol, series.Source, "API rate limit reached. Volatility calculation unavailable.")
		r.RateLimited = true
		return r
	}
	if series.Error != "" {
		return degenerate(series.Symbol, series.Source, series.Error)
	}

	// The series is most recent first; returns are taken forward in time.
	chrono := make([]float64, len(series.Close))
	for i, c := range series.Close {
		chrono[len(chrono)-1-i] = c
	}
	r := Volatility(series.Symbol, chrono)
	r.Source = series.Source
	return r
}

// Volatility computes the population standard deviation of simple daily
// returns over prices in chronological order. Steps whose previous price is
// not positive are skipped.
func Volatility(symbol string, prices []float64) VolatilityResult {
	if len(prices) < 2 {
		return degenerate(symbol, "", "Insufficient data for volatility calculation")
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) == 0 {
		return degenerate(symbol, "", "No valid returns calculated")
	}

	vol := stddev(returns)
	return VolatilityResult{
		Symbol:               symbol,
		Volatility:           vol,
		AnnualizedVolatility: vol * math.Sqrt(TradingDaysPerYear),
		DailyReturns:         returns,
		DaysAnalyzed:         len(returns),
	}
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
