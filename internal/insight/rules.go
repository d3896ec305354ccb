package insight

import (
	"fmt"
	"strings"

	"github.com/newthinker/folio/internal/report"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/sentiment"
)

// SourceRules marks commentary produced without a model.
const SourceRules = "rules"

// Rules derives commentary from the report figures alone.
func Rules(r report.Report) report.Commentary {
	return report.Commentary{
		Recommendation: recommendation(r),
		MarketOverview: marketOverview(r.MarketSentiment),
		Optimization:   optimization(r),
		Source:         SourceRules,
	}
}

func highRisk(level string) bool {
	return level == risk.LevelHigh || level == risk.LevelVeryHigh
}

func recommendation(r report.Report) string {
	level := r.RiskAnalysis.OverallRiskLevel
	ret := r.Performance.ReturnPercentage
	tolerance := strings.ToLower(r.Profile.RiskTolerance)

	var advice string
	switch {
	case highRisk(level) && ret < 0:
		advice = "With a high-risk portfolio and negative returns, consider defensive positions or rebalancing to reduce concentration. Favor companies with strong fundamentals."
	case (tolerance == "conservative" || tolerance == "low") && ret > 10:
		advice = "The portfolio is performing well for a conservative profile. Growth-oriented positions could be added gradually without abandoning the risk-averse approach."
	case r.PortfolioSummary.NumberOfPositions < 3:
		advice = "Diversification is low. Adding positions in other sectors would reduce risk and broaden potential returns."
	default:
		advice = "The portfolio appears well balanced. Review sector allocation against the stated investment goals."
	}

	if level == "" {
		level = risk.LevelInsufficientData
	}
	return fmt.Sprintf("%s Current risk level is %s with a %.1f%% return.", advice, strings.ReplaceAll(level, "_", " "), ret)
}

func marketOverview(s sentiment.PortfolioSentimentSummary) string {
	category := s.OverallSentiment
	if category == "" {
		category = sentiment.Neutral
	}
	overview := fmt.Sprintf("Current news sentiment is %s with a strength of %.1f%%.", category, absPct(s.SentimentStrength))
	if s.NewsSummary != "" {
		return overview + " " + s.NewsSummary
	}
	return overview + " No notable headlines were found for the holdings."
}

func optimization(r report.Report) string {
	var advice []string
	if r.RiskAnalysis.Concentration.HHI > 0.5 {
		advice = append(advice, "Concentration risk is high; spread holdings across more positions and sectors.")
	}
	if r.PortfolioSummary.NumberOfPositions < 5 {
		advice = append(advice, "More positions would improve diversification.")
	}
	if highRisk(r.RiskAnalysis.OverallRiskLevel) && r.Performance.ReturnPercentage < 0 {
		advice = append(advice, "Rebalancing would reduce risk given the negative performance.")
	}
	if len(advice) == 0 {
		advice = append(advice, "The portfolio looks well optimized for its current risk profile.")
	}
	return strings.Join(advice, " ")
}

func absPct(v float64) float64 {
	if v < 0 {
		v = -v
	}
	return v * 100
}
