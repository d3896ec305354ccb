// Package insight writes short commentary for finished reports, through an
// LLM when one is configured and from fixed rules otherwise.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/report"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 600
)

const systemPrompt = `You are a portfolio analyst. You receive a JSON portfolio report and reply with a JSON object containing exactly three string fields:
"recommendation" (two or three sentences of portfolio advice),
"market_overview" (one or two sentences on news sentiment),
"optimization" (one or two sentences on diversification and risk).
Use only the figures in the report. Do not give personalised financial advice.`

// Narrator produces report commentary.
type Narrator struct {
	provider  llm.Provider
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(n *Narrator) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithMaxTokens caps the model reply.
func WithMaxTokens(tokens int) Option {
	return func(n *Narrator) {
		if tokens > 0 {
			n.maxTokens = tokens
		}
	}
}

// NewNarrator creates a narrator. provider may be nil, in which case only
// the rules are used.
func NewNarrator(provider llm.Provider, logger *zap.Logger, opts ...Option) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Narrator{
		provider:  provider,
		timeout:   DefaultTimeout,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narrate returns commentary for r. It never fails: any model error falls
// back to the rules.
func (n *Narrator) Narrate(ctx context.Context, r report.Report) report.Commentary {
	if n.provider == nil {
		return Rules(r)
	}

	c, err := n.ask(ctx, r)
	if err != nil {
		n.logger.Warn("llm commentary failed, using rules",
			zap.String("provider", n.provider.Name()),
			zap.String("report_id", r.ID),
			zap.Error(err))
		return Rules(r)
	}
	return c
}

func (n *Narrator) ask(ctx context.Context, r report.Report) (report.Commentary, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	prompt, err := buildPrompt(r)
	if err != nil {
		return report.Commentary{}, err
	}

	resp, err := n.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:    n.maxTokens,
		Temperature:  0.3,
		JSONMode:     true,
	})
	if err != nil {
		return report.Commentary{}, err
	}

	var c report.Commentary
	if err := json.Unmarshal([]byte(stripFence(resp.Content)), &c); err != nil {
		return report.Commentary{}, fmt.Errorf("decoding commentary: %w", err)
	}
	if c.Recommendation == "" || c.MarketOverview == "" || c.Optimization == "" {
		return report.Commentary{}, fmt.Errorf("commentary is missing fields")
	}
	c.Source = "llm:" + n.provider.Name()
	return c, nil
}

// promptFacts is the subset of the report the model sees.
type promptFacts struct {
	Profile         report.Profile     `json:"profile"`
	Positions       int                `json:"number_of_positions"`
	Performance     report.Performance `json:"performance"`
	Weights         map[string]float64 `json:"position_weights"`
	HHI             float64            `json:"hhi"`
	RiskLevel       string             `json:"overall_risk_level"`
	Volatility      float64            `json:"portfolio_volatility"`
	Sentiment       string             `json:"overall_sentiment"`
	SentimentScore  float64            `json:"sentiment_strength"`
	NewsSummary     string             `json:"news_summary"`
	EventSummary    string             `json:"event_summary"`
	Recommendations []string           `json:"rule_recommendations"`
	UnavailableData []string           `json:"symbols_without_data,omitempty"`
}

func buildPrompt(r report.Report) (string, error) {
	facts := promptFacts{
		Profile:        r.Profile,
		Positions:      r.PortfolioSummary.NumberOfPositions,
		Performance:    r.Performance,
		Weights:        r.RiskAnalysis.Weights,
		HHI:            r.RiskAnalysis.Concentration.HHI,
		RiskLevel:      r.RiskAnalysis.OverallRiskLevel,
		Volatility:     r.RiskAnalysis.PortfolioVolatility,
		Sentiment:      r.MarketSentiment.OverallSentiment,
		SentimentScore: r.MarketSentiment.SentimentStrength,
		NewsSummary:    r.MarketSentiment.NewsSummary,
		EventSummary:   r.MarketSentiment.RecentEvents.Summary,
	}
	for _, rec := range r.Recommendations {
		facts.Recommendations = append(facts.Recommendations, rec.Action)
	}
	for sym := range r.SymbolErrors {
		facts.UnavailableData = append(facts.UnavailableData, sym)
	}
	sort.Strings(facts.UnavailableData)

	data, err := json.Marshal(facts)
	if err != nil {
		return "", err
	}
	return "Portfolio report:\n" + string(data), nil
}

// stripFence removes a markdown code fence around a JSON reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
