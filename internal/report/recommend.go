package report

import (
	"fmt"
	"strings"

	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/sentiment"
)

// Recommendation types
const (
	RecRiskManagement = "risk_management"
	RecMarketTiming   = "market_timing"
	RecRiskAlignment  = "risk_alignment"
	RecDataQuality    = "data_quality"
)

// Priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is one rule-based suggestion.
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Details  string `json:"details"`
}

var conservativeTolerances = map[string]bool{
	"low":          true,
	"conservative": true,
}

// Recommend applies the fixed rule ladder to a finished analysis.
func Recommend(ra risk.RiskAssessment, sent sentiment.PortfolioSentimentSummary, profile Profile, failed []string) []Recommendation {
	recs := make([]Recommendation, 0)

	if ra.Concentration.RiskLevel == risk.LevelHigh {
		recs = append(recs, Recommendation{
			Type:     RecRiskManagement,
			Priority: PriorityHigh,
			Action:   "Diversify holdings to reduce concentration risk",
			Details: fmt.Sprintf("Holdings are concentrated (HHI %.2f, top three positions %.0f%% of value)",
				ra.Concentration.HHI, ra.Concentration.Top3Concentration*100),
		})
	}

	if sent.OverallSentiment == sentiment.Negative {
		recs = append(recs, Recommendation{
			Type:     RecMarketTiming,
			Priority: PriorityMedium,
			Action:   "Consider defensive positions or hedging strategies",
			Details:  fmt.Sprintf("News sentiment across holdings is negative (average polarity %.2f)", sent.SentimentStrength),
		})
	}

	if conservativeTolerances[strings.ToLower(profile.RiskTolerance)] &&
		(ra.OverallRiskLevel == risk.LevelHigh || ra.OverallRiskLevel == risk.LevelVeryHigh) {
		recs = append(recs, Recommendation{
			Type:     RecRiskAlignment,
			Priority: PriorityHigh,
			Action:   "Rebalance toward lower-volatility holdings",
			Details:  fmt.Sprintf("Overall risk is %s while the stated risk tolerance is %s", ra.OverallRiskLevel, profile.RiskTolerance),
		})
	}

	if len(failed) > 0 {
		recs = append(recs, Recommendation{
			Type:     RecDataQuality,
			Priority: PriorityLow,
			Action:   "Re-run the analysis once market data is available",
			Details:  "No market data could be retrieved for " + strings.Join(failed, ", "),
		})
	}
	return recs
}
