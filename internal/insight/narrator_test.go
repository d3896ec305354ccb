package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/report"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/sentiment"
)

type fakeProvider struct {
	reply string
	err   error
	last  llm.ChatRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply}, nil
}

func sampleReport() report.Report {
	return report.Report{
		ID:      "r1",
		Profile: report.Profile{RiskTolerance: "moderate"},
		PortfolioSummary: report.PortfolioSummary{
			NumberOfPositions: 2,
		},
		Performance: report.Performance{ReturnPercentage: -4.5},
		RiskAnalysis: risk.RiskAssessment{
			Weights:          map[string]float64{"AAPL": 0.8, "MSFT": 0.2},
			Concentration:    risk.ConcentrationRisk{HHI: 0.68, RiskLevel: risk.LevelHigh},
			OverallRiskLevel: risk.LevelHigh,
		},
		MarketSentiment: sentiment.PortfolioSentimentSummary{
			OverallSentiment:  sentiment.Negative,
			SentimentStrength: -0.25,
			NewsSummary:       `Recent news is predominantly negative. Key headlines: "Apple faces lawsuit".`,
		},
		SymbolErrors: map[string]string{"ZZZZ": "not found", "QQQQ": "not found"},
	}
}

func TestRules(t *testing.T) {
	c := Rules(sampleReport())

	assert.Equal(t, SourceRules, c.Source)
	assert.Contains(t, c.Recommendation, "defensive positions")
	assert.Contains(t, c.Recommendation, "Current risk level is high with a -4.5% return.")
	assert.Equal(t, `Current news sentiment is negative with a strength of 25.0%. Recent news is predominantly negative. Key headlines: "Apple faces lawsuit".`, c.MarketOverview)
	assert.Contains(t, c.Optimization, "Concentration risk is high")
	assert.Contains(t, c.Optimization, "More positions")
	assert.Contains(t, c.Optimization, "Rebalancing")
}

func TestRules_Recommendation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *report.Report)
		want   string
	}{
		{"defensive", func(r *report.Report) {}, "defensive positions"},
		{"growth for conservative", func(r *report.Report) {
			r.Profile.RiskTolerance = "Conservative"
			r.RiskAnalysis.OverallRiskLevel = risk.LevelLow
			r.Performance.ReturnPercentage = 12
		}, "Growth-oriented"},
		{"low diversification", func(r *report.Report) {
			r.RiskAnalysis.OverallRiskLevel = risk.LevelModerate
		}, "Diversification is low"},
		{"balanced", func(r *report.Report) {
			r.RiskAnalysis.OverallRiskLevel = risk.LevelModerate
			r.PortfolioSummary.NumberOfPositions = 6
		}, "well balanced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleReport()
			tt.mutate(&r)
			assert.Contains(t, recommendation(r), tt.want)
		})
	}
}

func TestRules_WellOptimized(t *testing.T) {
	r := sampleReport()
	r.RiskAnalysis.Concentration.HHI = 0.2
	r.RiskAnalysis.OverallRiskLevel = risk.LevelLow
	r.PortfolioSummary.NumberOfPositions = 8

	assert.Equal(t, "The portfolio looks well optimized for its current risk profile.", optimization(r))
}

func TestRules_EmptyReport(t *testing.T) {
	c := Rules(report.Report{})
	assert.Contains(t, c.Recommendation, "insufficient data")
	assert.Contains(t, c.MarketOverview, "neutral")
	assert.Contains(t, c.MarketOverview, "No notable headlines")
}

func TestNarrator_WithoutProvider(t *testing.T) {
	n := NewNarrator(nil, nil)
	c := n.Narrate(context.Background(), sampleReport())
	assert.Equal(t, SourceRules, c.Source)
}

func TestNarrator_UsesProvider(t *testing.T) {
	p := &fakeProvider{reply: "```json\n" + `{"recommendation":"Trim AAPL.","market_overview":"News is negative.","optimization":"Add positions."}` + "\n```"}
	n := NewNarrator(p, nil, WithMaxTokens(300))

	c := n.Narrate(context.Background(), sampleReport())
	assert.Equal(t, report.Commentary{
		Recommendation: "Trim AAPL.",
		MarketOverview: "News is negative.",
		Optimization:   "Add positions.",
		Source:         "llm:fake",
	}, c)

	assert.True(t, p.last.JSONMode)
	assert.Equal(t, 300, p.last.MaxTokens)
	require.Len(t, p.last.Messages, 1)
	assert.Contains(t, p.last.Messages[0].Content, `"overall_risk_level":"high"`)
	assert.Contains(t, p.last.Messages[0].Content, `"symbols_without_data":["QQQQ","ZZZZ"]`)
}

func TestNarrator_FallsBack(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"provider error", &fakeProvider{err: errors.New("boom")}},
		{"not json", &fakeProvider{reply: "Sure! Here is my analysis."}},
		{"missing fields", &fakeProvider{reply: `{"recommendation":"Trim AAPL."}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewNarrator(tt.provider, nil).Narrate(context.Background(), sampleReport())
			assert.Equal(t, SourceRules, c.Source)
			assert.NotEmpty(t, c.Recommendation)
		})
	}
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence(`  {"a":1} `))
}
