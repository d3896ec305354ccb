package sentiment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Trend values
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

const (
	// MaxHeadlines is how many recent items are scored per symbol.
	MaxHeadlines = 10
	// TrendRecentCount is the size of the recent group in trend detection.
	TrendRecentCount = 5
	// TrendThreshold is the polarity difference that counts as a trend.
	TrendThreshold = 0.1

	summaryPerSymbol = 5
	summaryTop       = 3
	summaryQuoted    = 2
)

// Headline is a scored news item.
type Headline struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	Score       Score  `json:"sentiment"`
}

// SymbolSentiment is the aggregate sentiment of one symbol's recent news.
type SymbolSentiment struct {
	Symbol        string        `json:"symbol"`
	Sentiment     Score         `json:"sentiment"`
	Headlines     []Headline    `json:"headlines"`
	HeadlineCount int           `json:"headline_count"`
	Trend         string        `json:"trend"`
	Events        []RecentEvent `json:"recent_events"`
	Error         string        `json:"error,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// OK reports whether the news fetch succeeded.
func (s SymbolSentiment) OK() bool {
	return s.Error == ""
}

// PortfolioSentimentSummary aggregates sentiment across holdings.
type PortfolioSentimentSummary struct {
	OverallSentiment      string                     `json:"overall_sentiment"`
	SentimentStrength     float64                    `json:"sentiment_strength"`
	Subjectivity          float64                    `json:"subjectivity"`
	SymbolBreakdown       map[string]SymbolSentiment `json:"symbol_breakdown"`
	SentimentDistribution map[string]int             `json:"sentiment_distribution"`
	NewsSummary           string                     `json:"news_summary"`
	RecentEvents          EventSummary               `json:"recent_events"`
	FailedSymbols         []string                   `json:"failed_symbols,omitempty"`
	Timestamp             time.Time                  `json:"timestamp"`
}

// Recorder observes news fetch failures.
type Recorder interface {
	RecordSentimentFetchError()
}

type nopRecorder struct{}

func (nopRecorder) RecordSentimentFetchError() {}

// Config holds engine configuration
type Config struct {
	MaxHeadlines int
	Concurrency  int
	HistoryLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithModel replaces the lexicon model.
func WithModel(m Model) Option {
	return func(e *Engine) { e.model = m }
}

// WithRecorder sets the fetch error recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine scores news and aggregates sentiment per symbol and portfolio.
type Engine struct {
	news         NewsSource
	model        Model
	history      *History
	recorder     Recorder
	maxHeadlines int
	concurrency  int
	logger       *zap.Logger
	now          func() time.Time
}

// NewEngine creates a sentiment engine reading news from source.
func NewEngine(source NewsSource, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxHeadlines <= 0 {
		cfg.MaxHeadlines = MaxHeadlines
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	e := &Engine{
		news:         source,
		model:        NewLexiconModel(),
		history:      NewHistory(cfg.HistoryLimit),
		recorder:     nopRecorder{},
		maxHeadlines: cfg.MaxHeadlines,
		concurrency:  cfg.Concurrency,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score scores a single text.
func (e *Engine) Score(text string) Score {
	return NewScore(e.model.Analyze(text))
}

// SymbolSentiment fetches recent news for symbol and aggregates it. A
// symbol without news is neutral and stable.
func (e *Engine) SymbolSentiment(ctx context.Context, symbol string) (SymbolSentiment, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := e.now()

	items, err := e.news.FetchNews(ctx, symbol, e.maxHeadlines)
	if err != nil {
		return SymbolSentiment{}, fmt.Errorf("fetch news for %s: %w", symbol, err)
	}

	headlines := itemsToHeadlines(items, e.model)
	sortByRecency(headlines, now.Location())
	if len(headlines) > e.maxHeadlines {
		headlines = headlines[:e.maxHeadlines]
	}

	polarities := make([]float64, len(headlines))
	var subjSum float64
	for i, h := range headlines {
		polarities[i] = h.Score.Polarity
		subjSum += h.Score.Subjectivity
	}

	var pol, subj float64
	if n := len(headlines); n > 0 {
		pol = mean(polarities)
		subj = subjSum / float64(n)
	}

	s := SymbolSentiment{
		Symbol:        symbol,
		Sentiment:     NewScore(pol, subj),
		Headlines:     headlines,
		HeadlineCount: len(headlines),
		Trend:         Trend(polarities),
		Events:        ExtractEvents(symbol, headlines, now),
		Timestamp:     now,
	}
	e.history.Append(symbol, HistoryEntry{
		Timestamp: now,
		Score:     s.Sentiment,
		Headlines: s.HeadlineCount,
		Trend:     s.Trend,
	})
	return s, nil
}

// Trend compares the mean polarity of the most recent TrendRecentCount
// values against the rest. polarities must be most recent first.
func Trend(polarities []float64) string {
	if len(polarities) <= TrendRecentCount {
		return TrendStable
	}
	diff := mean(polarities[:TrendRecentCount]) - mean(polarities[TrendRecentCount:])
	switch {
	case diff > TrendThreshold:
		return TrendImproving
	case diff < -TrendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// PortfolioSentiment computes sentiment for every symbol in parallel and
// aggregates once all have finished. A symbol whose news cannot be fetched
// gets a neutral placeholder carrying the error and is left out of the
// averages.
func (e *Engine) PortfolioSentiment(ctx context.Context, symbols []string) PortfolioSentimentSummary {
	now := e.now()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, e.concurrency)
		breakdown = make(map[string]SymbolSentiment, len(symbols))
	)
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s, err := e.SymbolSentiment(ctx, sym)
			if err != nil {
				e.logger.Warn("symbol sentiment failed",
					zap.String("symbol", sym),
					zap.Error(err))
				e.recorder.RecordSentimentFetchError()
				s = placeholder(sym, err, now)
			}
			mu.Lock()
			breakdown[sym] = s
			mu.Unlock()
		}(sym)
	}
	wg.Wait()

	summary := Aggregate(breakdown, now)
	e.logger.Info("portfolio sentiment complete",
		zap.Int("symbols", len(breakdown)),
		zap.Int("failed", len(summary.FailedSymbols)),
		zap.String("overall", summary.OverallSentiment),
		zap.Float64("strength", summary.SentimentStrength))
	return summary
}

// Aggregate folds per-symbol results into a portfolio summary.
func Aggregate(breakdown map[string]SymbolSentiment, now time.Time) PortfolioSentimentSummary {
	summary := PortfolioSentimentSummary{
		SymbolBreakdown: breakdown,
		SentimentDistribution: map[string]int{
			Positive: 0,
			Negative: 0,
			Neutral:  0,
		},
		Timestamp: now,
	}

	var (
		pols, subjs []float64
		headlines   []Headline
		events      = make(map[string][]RecentEvent, len(breakdown))
	)
	for _, sym := range sortedSymbols(breakdown) {
		s := breakdown[sym]
		if !s.OK() {
			summary.FailedSymbols = append(summary.FailedSymbols, sym)
			continue
		}
		pols = append(pols, s.Sentiment.Polarity)
		subjs = append(subjs, s.Sentiment.Subjectivity)
		summary.SentimentDistribution[s.Sentiment.Category]++
		headlines = append(headlines, strongest(s.Headlines, summaryPerSymbol)...)
		events[sym] = s.Events
	}

	if len(pols) > 0 {
		summary.SentimentStrength = mean(pols)
		summary.Subjectivity = mean(subjs)
	}
	summary.OverallSentiment = Categorize(summary.SentimentStrength)
	summary.NewsSummary = newsSummary(strongest(headlines, summaryTop))
	summary.RecentEvents = SummarizeEvents(events)
	return summary
}

// History returns the recorded sentiment for symbol, oldest first.
func (e *Engine) History(symbol string) []HistoryEntry {
	return e.history.Get(strings.ToUpper(strings.TrimSpace(symbol)))
}

func placeholder(symbol string, err error, now time.Time) SymbolSentiment {
	return SymbolSentiment{
		Symbol:    symbol,
		Sentiment: NewScore(0, 0),
		Headlines: []Headline{},
		Trend:     TrendStable,
		Events:    []RecentEvent{},
		Error:     err.Error(),
		Timestamp: now,
	}
}

// strongest returns up to n headlines ordered by |polarity| descending.
func strongest(headlines []Headline, n int) []Headline {
	out := make([]Headline, len(headlines))
	copy(out, headlines)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Score.Polarity) > math.Abs(out[j].Score.Polarity)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func newsSummary(top []Headline) string {
	if len(top) == 0 {
		return "No recent news available for portfolio holdings."
	}

	var pos, neg int
	for _, h := range top {
		switch h.Score.Category {
		case Positive:
			pos++
		case Negative:
			neg++
		}
	}
	tone := "mixed"
	switch {
	case float64(pos)/float64(len(top)) > 0.5:
		tone = Positive
	case float64(neg)/float64(len(top)) > 0.5:
		tone = Negative
	}

	quoted := make([]string, 0, summaryQuoted)
	for _, h := range top {
		if len(quoted) == summaryQuoted {
			break
		}
		quoted = append(quoted, fmt.Sprintf("%q", h.Title))
	}
	return fmt.Sprintf("Recent news is predominantly %s. Key headlines: %s.", tone, strings.Join(quoted, "; "))
}

// sortByRecency orders headlines newest first. Headlines with an
// unparseable timestamp keep their relative order after dated ones.
func sortByRecency(headlines []Headline, loc *time.Location) {
	times := make(map[int]time.Time, len(headlines))
	idx := make([]int, len(headlines))
	for i, h := range headlines {
		idx[i] = i
		if t, ok := ParsePublished(h.PublishedAt, loc); ok {
			times[i] = t
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, okA := times[idx[a]]
		tb, okB := times[idx[b]]
		switch {
		case okA && okB:
			return ta.After(tb)
		default:
			return okA && !okB
		}
	})

	sorted := make([]Headline, len(headlines))
	for i, j := range idx {
		sorted[i] = headlines[j]
	}
	copy(headlines, sorted)
}

func sortedSymbols[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
