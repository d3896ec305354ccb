package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/newthinker/folio/internal/core"
)

var hundred = decimal.NewFromInt(100)

// PositionSummary is one holding valued at the current quote.
type PositionSummary struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"`
	PurchasePrice    float64 `json:"purchase_price"`
	CurrentPrice     float64 `json:"current_price"`
	PositionValue    float64 `json:"position_value"`
	ReturnPercentage float64 `json:"return_percentage"`
	Priced           bool    `json:"priced"`
}

// PortfolioSummary lists every position.
type PortfolioSummary struct {
	NumberOfPositions int               `json:"number_of_positions"`
	Positions         []PositionSummary `json:"positions"`
	UnpricedSymbols   []string          `json:"unpriced_symbols,omitempty"`
}

// Performance is the cost and value of the priced positions.
type Performance struct {
	TotalCost        float64 `json:"total_cost"`
	CurrentValue     float64 `json:"current_value"`
	TotalReturn      float64 `json:"total_return"`
	ReturnPercentage float64 `json:"return_percentage"`
}

func price(quotes map[string]core.Quote, symbol string) (decimal.Decimal, bool) {
	q, ok := quotes[symbol]
	if !ok || q.CurrentPrice <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(q.CurrentPrice), true
}

// percentChange returns (to-from)/from*100 rounded to two places, or zero
// when from is not positive.
func percentChange(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred).Round(2)
}

// Summarize values each position at its quote. Positions without a quote
// are kept with Priced false.
func Summarize(positions []core.Position, quotes map[string]core.Quote) PortfolioSummary {
	s := PortfolioSummary{
		NumberOfPositions: len(positions),
		Positions:         make([]PositionSummary, 0, len(positions)),
	}
	unpriced := make(map[string]bool)

	for _, p := range positions {
		ps := PositionSummary{
			Symbol:        p.Symbol,
			Quantity:      p.Quantity,
			PurchasePrice: p.PurchasePrice,
		}
		cur, ok := price(quotes, p.Symbol)
		if ok {
			qty := decimal.NewFromFloat(p.Quantity)
			ps.Priced = true
			ps.CurrentPrice = cur.InexactFloat64()
			ps.PositionValue = qty.Mul(cur).Round(2).InexactFloat64()
			ps.ReturnPercentage = percentChange(decimal.NewFromFloat(p.PurchasePrice), cur).InexactFloat64()
		} else {
			unpriced[p.Symbol] = true
		}
		s.Positions = append(s.Positions, ps)
	}

	for sym := range unpriced {
		s.UnpricedSymbols = append(s.UnpricedSymbols, sym)
	}
	sort.Strings(s.UnpricedSymbols)
	return s
}

// ComputePerformance totals cost and value over positions that have a
// quote. Unpriced positions count toward neither side.
func ComputePerformance(positions []core.Position, quotes map[string]core.Quote) Performance {
	cost := decimal.Zero
	value := decimal.Zero

	for _, p := range positions {
		cur, ok := price(quotes, p.Symbol)
		if !ok {
			continue
		}
		qty := decimal.NewFromFloat(p.Quantity)
		cost = cost.Add(qty.Mul(decimal.NewFromFloat(p.PurchasePrice)))
		value = value.Add(qty.Mul(cur))
	}

	return Performance{
		TotalCost:        cost.Round(2).InexactFloat64(),
		CurrentValue:     value.Round(2).InexactFloat64(),
		TotalReturn:      value.Sub(cost).Round(2).InexactFloat64(),
		ReturnPercentage: percentChange(cost, value).InexactFloat64(),
	}
}
