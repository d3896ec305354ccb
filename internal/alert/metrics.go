package alert

import "github.com/newthinker/folio/internal/report"

// Metric names rules can refer to.
const (
	MetricCurrentValue         = "current_value"
	MetricReturnPercentage     = "return_percentage"
	MetricRiskScore            = "risk_score"
	MetricHHI                  = "hhi"
	MetricTop3Concentration    = "top_3_concentration"
	MetricPortfolioVolatility  = "portfolio_volatility"
	MetricDiversificationScore = "diversification_score"
	MetricSentimentStrength    = "sentiment_strength"
	MetricPositions            = "positions"
	MetricSymbolErrors         = "symbol_errors"
)

var knownMetrics = map[string]struct{}{
	MetricCurrentValue:         {},
	MetricReturnPercentage:     {},
	MetricRiskScore:            {},
	MetricHHI:                  {},
	MetricTop3Concentration:    {},
	MetricPortfolioVolatility:  {},
	MetricDiversificationScore: {},
	MetricSentimentStrength:    {},
	MetricPositions:            {},
	MetricSymbolErrors:         {},
}

// ReportMetrics flattens a report into the values rules are evaluated
// against.
func ReportMetrics(r report.Report) map[string]float64 {
	return map[string]float64{
		MetricCurrentValue:         r.Performance.CurrentValue,
		MetricReturnPercentage:     r.Performance.ReturnPercentage,
		MetricRiskScore:            float64(r.RiskAnalysis.RiskScore),
		MetricHHI:                  r.RiskAnalysis.Concentration.HHI,
		MetricTop3Concentration:    r.RiskAnalysis.Concentration.Top3Concentration,
		MetricPortfolioVolatility:  r.RiskAnalysis.PortfolioVolatility,
		MetricDiversificationScore: r.RiskAnalysis.DiversificationScore,
		MetricSentimentStrength:    r.MarketSentiment.SentimentStrength,
		MetricPositions:            float64(r.PortfolioSummary.NumberOfPositions),
		MetricSymbolErrors:         float64(len(r.SymbolErrors)),
	}
}
