// Package risk computes concentration, volatility, diversification and the
// composite risk level of a portfolio.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// Risk levels. Concentration only uses low, moderate and high.
const (
	LevelLow              = "low"
	LevelModerate         = "moderate"
	LevelHigh             = "high"
	LevelVeryHigh         = "very_high"
	LevelInsufficientData = "insufficient_data"
)

// ConcentrationRisk describes how concentrated the holdings are.
type ConcentrationRisk struct {
	HHI               float64 `json:"hhi"`
	Top3Concentration float64 `json:"top_3_concentration"`
	RiskLevel         string  `json:"risk_level"`
}

// RiskAssessment is the portfolio-level risk result.
type RiskAssessment struct {
	TotalValue           float64                     `json:"total_value"`
	Weights              map[string]float64          `json:"position_weights"`
	NumberOfPositions    int                         `json:"number_of_positions"`
	ScoredPositions      int                         `json:"scored_positions"`
	Concentration        ConcentrationRisk           `json:"concentration_risk"`
	VolatilityData       map[string]VolatilityResult `json:"volatility_data"`
	PortfolioVolatility  float64                     `json:"portfolio_volatility"`
	DiversificationScore float64                     `json:"diversification_score"`
	RiskScore            int                         `json:"risk_score"`
	OverallRiskLevel     string                      `json:"overall_risk_level"`
	UnpricedSymbols      []string                    `json:"unpriced_symbols,omitempty"`
	Error                string                      `json:"error,omitempty"`
	Timestamp            time.Time                   `json:"timestamp"`
}

// Weights returns each symbol's share of the total current value. Positions
// without a usable price are excluded and reported as unpriced. When the
// total is not positive the weights are empty.
func Weights(positions []core.Position, prices map[string]float64) (weights map[string]float64, total float64, unpriced []string) {
	values := make(map[string]float64, len(positions))
	seenUnpriced := make(map[string]bool)
	for _, p := range positions {
		price, ok := prices[p.Symbol]
		if !ok || price <= 0 {
			if !seenUnpriced[p.Symbol] {
				seenUnpriced[p.Symbol] = true
				unpriced = append(unpriced, p.Symbol)
			}
			continue
		}
		values[p.Symbol] += p.Quantity * price
	}

	for _, sym := range sortedKeys(values) {
		total += values[sym]
	}

	weights = make(map[string]float64, len(values))
	if total <= 0 {
		return weights, total, unpriced
	}
	for sym, v := range values {
		weights[sym] = v / total
	}
	return weights, total, unpriced
}

// Concentration computes HHI and top-3 concentration.
func Concentration(weights map[string]float64) ConcentrationRisk {
	ws := sortedWeights(weights)

	var hhi, top3 float64
	for i, w := range ws {
		hhi += w * w
		if i < 3 {
			top3 += w
		}
	}
	return ConcentrationRisk{
		HHI:               hhi,
		Top3Concentration: top3,
		RiskLevel:         concentrationLevel(hhi),
	}
}

func concentrationLevel(hhi float64) string {
	switch {
	case hhi > 0.25:
		return LevelHigh
	case hhi > 0.15:
		return LevelModerate
	default:
		return LevelLow
	}
}

// DiversificationScore rewards both the number of holdings and how even
// their weights are: min(n*10, 50) + (1-max weight)*50, clamped to [0, 100].
func DiversificationScore(weights map[string]float64) float64 {
	n := len(weights)
	if n == 0 {
		return 0
	}
	var maxW float64
	for _, w := range weights {
		if w > maxW {
			maxW = w
		}
	}
	score := math.Min(float64(n)*10, 50) + (1-maxW)*50
	return math.Max(0, math.Min(100, score))
}

// PortfolioVolatility is the weight-averaged annualized volatility,
// skipping symbols whose volatility could not be computed.
func PortfolioVolatility(weights map[string]float64, vols map[string]VolatilityResult) float64 {
	var total float64
	for _, sym := range sortedKeys(weights) {
		v, ok := vols[sym]
		if !ok || !v.OK() {
			continue
		}
		total += weights[sym] * v.AnnualizedVolatility
	}
	return total
}

// OverallRisk scores concentration (up to 40), volatility (up to 30) and
// position count (up to 30) and maps the total to a level.
func OverallRisk(hhi, portfolioVolatility float64, numPositions int) (int, string) {
	score := 0

	switch {
	case hhi > 0.25:
		score += 40
	case hhi > 0.15:
		score += 25
	case hhi > 0.10:
		score += 15
	default:
		score += 5
	}

	switch {
	case portfolioVolatility > 0.30:
		score += 30
	case portfolioVolatility > 0.20:
		score += 20
	case portfolioVolatility > 0.15:
		score += 15
	default:
		score += 5
	}

	switch {
	case numPositions < 3:
		score += 30
	case numPositions < 5:
		score += 20
	case numPositions < 10:
		score += 10
	default:
		score += 5
	}

	switch {
	case score >= 70:
		return score, LevelVeryHigh
	case score >= 50:
		return score, LevelHigh
	case score >= 30:
		return score, LevelModerate
	default:
		return score, LevelLow
	}
}

// Assess builds a RiskAssessment from positions, current prices and
// already computed volatilities. It never fails; a zero-value portfolio
// yields empty weights and an insufficient_data level.
//
// NumberOfPositions counts the input positions as given. The risk score and
// diversification score use ScoredPositions instead: the distinct symbols
// that carry a weight, so repeated lots of one symbol count once and
// unpriced symbols do not count at all.
func Assess(positions []core.Position, prices map[string]float64, vols map[string]VolatilityResult, now time.Time) RiskAssessment {
	weights, total, unpriced := Weights(positions, prices)

	ra := RiskAssessment{
		TotalValue:        total,
		Weights:           weights,
		NumberOfPositions: len(positions),
		ScoredPositions:   len(weights),
		Concentration:     Concentration(weights),
		VolatilityData:    make(map[string]VolatilityResult, len(weights)),
		UnpricedSymbols:   unpriced,
		Timestamp:         now,
	}
	for sym := range weights {
		if v, ok := vols[sym]; ok {
			ra.VolatilityData[sym] = v
		}
	}

	if len(weights) == 0 {
		ra.OverallRiskLevel = LevelInsufficientData
		ra.Error = "total portfolio value is zero; weights are undefined"
		return ra
	}

	ra.PortfolioVolatility = PortfolioVolatility(weights, vols)
	ra.DiversificationScore = DiversificationScore(weights)
	ra.RiskScore, ra.OverallRiskLevel = OverallRisk(ra.Concentration.HHI, ra.PortfolioVolatility, ra.ScoredPositions)
	return ra
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedWeights(weights map[string]float64) []float64 {
	ws := make([]float64, 0, len(weights))
	for _, sym := range sortedKeys(weights) {
		ws = append(ws, weights[sym])
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i] > ws[j] })
	return ws
}
