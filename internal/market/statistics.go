package market

import "github.com/newthinker/folio/internal/indicator"

// MovingAveragePeriod is the window of the moving averages in Statistics.
const MovingAveragePeriod = 20

// Statistics summarizes the closes of a series, most recent first.
type Statistics struct {
	CurrentPrice       float64 `json:"current_price"`
	PriceChange        float64 `json:"price_change"`
	PriceChangePercent float64 `json:"price_change_percent"`
	MinPrice           float64 `json:"min_price"`
	MaxPrice           float64 `json:"max_price"`
	AvgPrice           float64 `json:"avg_price"`
	// Set only when the series holds at least MovingAveragePeriod closes.
	SMA *float64 `json:"sma_20,omitempty"`
	EMA *float64 `json:"ema_20,omitempty"`
}

// ComputeStatistics returns nil for an empty series. closes[0] is the most
// recent value; the change is measured against the oldest one.
func ComputeStatistics(closes []float64) *Statistics {
	if len(closes) == 0 {
		return nil
	}

	s := &Statistics{
		CurrentPrice: closes[0],
		MinPrice:     closes[0],
		MaxPrice:     closes[0],
	}
	var sum float64
	for _, c := range closes {
		sum += c
		if c < s.MinPrice {
			s.MinPrice = c
		}
		if c > s.MaxPrice {
			s.MaxPrice = c
		}
	}
	s.AvgPrice = sum / float64(len(closes))

	if len(closes) > 1 {
		oldest := closes[len(closes)-1]
		s.PriceChange = closes[0] - oldest
		if oldest > 0 {
			s.PriceChangePercent = s.PriceChange / oldest * 100
		}
	}

	chrono := indicator.Chronological(closes)
	if v, ok := indicator.Last(indicator.SMA(chrono, MovingAveragePeriod)); ok {
		s.SMA = &v
	}
	if v, ok := indicator.Last(indicator.EMA(chrono, MovingAveragePeriod)); ok {
		s.EMA = &v
	}
	return s
}
