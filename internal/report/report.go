// Package report assembles market, risk and sentiment results into one
// portfolio report and archives reports for historical comparison.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/sentiment"
)

// Profile is the investor context sent with an analysis request.
type Profile struct {
	RiskTolerance   string   `json:"risk_tolerance" mapstructure:"risk_tolerance"`
	InvestmentGoals []string `json:"investment_goals" mapstructure:"investment_goals"`
	TimeHorizon     string   `json:"time_horizon" mapstructure:"time_horizon"`
}

// WithDefaults fills unset fields.
func (p Profile) WithDefaults() Profile {
	if p.RiskTolerance == "" {
		p.RiskTolerance = "moderate"
	}
	if p.InvestmentGoals == nil {
		p.InvestmentGoals = []string{}
	}
	if p.TimeHorizon == "" {
		p.TimeHorizon = "5-10 years"
	}
	return p
}

// Report is the assembled result of one portfolio analysis.
type Report struct {
	ID               string                              `json:"id"`
	Timestamp        time.Time                           `json:"timestamp"`
	Profile          Profile                             `json:"profile"`
	Summary          string                              `json:"summary"`
	PortfolioSummary PortfolioSummary                    `json:"portfolio_summary"`
	Performance      Performance                         `json:"performance_analysis"`
	RiskAnalysis     risk.RiskAssessment                 `json:"risk_analysis"`
	MarketSentiment  sentiment.PortfolioSentimentSummary `json:"market_sentiment"`
	Recommendations  []Recommendation                    `json:"recommendations"`
	Quotes           map[string]core.Quote               `json:"quotes"`
	SymbolErrors     map[string]string                   `json:"symbol_errors,omitempty"`
	Commentary       *Commentary                         `json:"commentary,omitempty"`
}

// Commentary is prose attached to a finished report.
type Commentary struct {
	Recommendation string `json:"recommendation"`
	MarketOverview string `json:"market_overview"`
	Optimization   string `json:"optimization"`
	Source         string `json:"source"`
}

// Input holds everything the assembler consumes. All per-symbol work must
// have finished before it is built.
type Input struct {
	ID           string
	Now          time.Time
	Profile      Profile
	Positions    []core.Position
	Quotes       map[string]core.Quote
	SymbolErrors map[string]string
	Risk         risk.RiskAssessment
	Sentiment    sentiment.PortfolioSentimentSummary
}

// Assemble builds a Report.
func Assemble(in Input) Report {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	if in.Quotes == nil {
		in.Quotes = map[string]core.Quote{}
	}

	failed := make([]string, 0, len(in.SymbolErrors))
	for sym := range in.SymbolErrors {
		failed = append(failed, sym)
	}
	sort.Strings(failed)

	profile := in.Profile.WithDefaults()
	r := Report{
		ID:               in.ID,
		Timestamp:        in.Now.UTC(),
		Profile:          profile,
		PortfolioSummary: Summarize(in.Positions, in.Quotes),
		Performance:      ComputePerformance(in.Positions, in.Quotes),
		RiskAnalysis:     in.Risk,
		MarketSentiment:  in.Sentiment,
		Recommendations:  Recommend(in.Risk, in.Sentiment, profile, failed),
		Quotes:           in.Quotes,
		SymbolErrors:     in.SymbolErrors,
	}
	r.Summary = summarize(r)
	return r
}

func summarize(r Report) string {
	value := decimal.NewFromFloat(r.Performance.CurrentValue).StringFixed(2)
	ret := decimal.NewFromFloat(r.Performance.ReturnPercentage).StringFixed(2)

	s := fmt.Sprintf("Portfolio of %d positions valued at $%s (%s%% return). Overall risk is %s and news sentiment is %s.",
		r.PortfolioSummary.NumberOfPositions, value, ret,
		levelText(r.RiskAnalysis.OverallRiskLevel), levelText(r.MarketSentiment.OverallSentiment))
	if n := len(r.SymbolErrors); n > 0 {
		s += fmt.Sprintf(" Market data was unavailable for %d symbol(s).", n)
	}
	return s
}

func levelText(level string) string {
	switch level {
	case "":
		return "unknown"
	case risk.LevelVeryHigh:
		return "very high"
	case risk.LevelInsufficientData:
		return "undetermined (insufficient data)"
	default:
		return level
	}
}
