// Package analysis runs a full portfolio analysis: quotes for every holding,
// risk and news sentiment in parallel, then report assembly, commentary and
// archiving.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/report"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/sentiment"
)

// Analysis outcomes reported to a Recorder.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// DefaultConcurrency bounds the parallel quote fetches.
const DefaultConcurrency = 8

// QuoteSource returns a quote for one symbol. *market.Fetcher satisfies it.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*core.Quote, error)
}

// RiskAnalyzer is implemented by *risk.Engine.
type RiskAnalyzer interface {
	CalculatePortfolioRisk(ctx context.Context, positions []core.Position, quotes map[string]core.Quote) risk.RiskAssessment
}

// SentimentAnalyzer is implemented by *sentiment.Engine.
type SentimentAnalyzer interface {
	PortfolioSentiment(ctx context.Context, symbols []string) sentiment.PortfolioSentimentSummary
}

// Narrator is implemented by *insight.Narrator.
type Narrator interface {
	Narrate(ctx context.Context, r report.Report) report.Commentary
}

// Archiver is implemented by *report.Archive.
type Archiver interface {
	Save(ctx context.Context, r report.Report) (string, error)
}

// Recorder observes finished analyses. The metrics registry implements it.
type Recorder interface {
	RecordAnalysis(status string, duration float64)
	RecordArchive(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordAnalysis(string, float64) {}
func (nopRecorder) RecordArchive(bool)             {}

// Request is one portfolio analysis request.
type Request struct {
	Positions []core.Position
	Profile   report.Profile
}

// Service orchestrates the engines.
type Service struct {
	quotes      QuoteSource
	risk        RiskAnalyzer
	sentiment   SentimentAnalyzer
	narrator    Narrator
	archive     Archiver
	recorder    Recorder
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNarrator attaches commentary to every report.
func WithNarrator(n Narrator) Option {
	return func(s *Service) { s.narrator = n }
}

// WithArchive stores every finished report.
func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithConcurrency bounds the parallel quote fetches.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an analysis service.
func NewService(quotes QuoteSource, riskEngine RiskAnalyzer, sentimentEngine SentimentAnalyzer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		quotes:      quotes,
		risk:        riskEngine,
		sentiment:   sentimentEngine,
		recorder:    nopRecorder{},
		concurrency: DefaultConcurrency,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote returns the quote for one symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		s.logger.Error("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
		return nil, err
	}
	return q, nil
}

// Quotes fetches every symbol in parallel. Symbols that fail are left out of
// the quote map and their error text is returned keyed by symbol.
func (s *Service) Quotes(ctx context.Context, symbols []string) (map[string]core.Quote, map[string]string) {
	quotes := make(map[string]core.Quote, len(symbols))
	failed := make(map[string]string)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			q, err := s.quotes.GetQuote(ctx, sym)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("quote unavailable, continuing without it",
					zap.String("symbol", sym), zap.Error(err))
				failed[sym] = err.Error()
				return
			}
			quotes[sym] = *q
		}(sym)
	}
	wg.Wait()
	return quotes, failed
}

// Risk prices the positions and returns the risk assessment alone.
func (s *Service) Risk(ctx context.Context, positions []core.Position) (risk.RiskAssessment, error) {
	positions, err := normalize(positions)
	if err != nil {
		return risk.RiskAssessment{}, err
	}
	quotes, _ := s.Quotes(ctx, core.Symbols(positions))
	if err := ctx.Err(); err != nil {
		return risk.RiskAssessment{}, err
	}
	return s.risk.CalculatePortfolioRisk(ctx, positions, quotes), nil
}

// Analyze runs a full analysis. Per-symbol failures degrade the report but
// never fail it; only invalid input and cancellation do.
func (s *Service) Analyze(ctx context.Context, req Request) (report.Report, error) {
	start := time.Now()

	positions, err := normalize(req.Positions)
	if err != nil {
		s.recorder.RecordAnalysis(StatusFailed, time.Since(start).Seconds())
		return report.Report{}, err
	}
	symbols := core.Symbols(positions)

	s.logger.Info("portfolio analysis started",
		zap.Int("positions", len(positions)),
		zap.Strings("symbols", symbols))

	// News does not depend on prices, so it runs alongside the quotes.
	sentCh := make(chan sentiment.PortfolioSentimentSummary, 1)
	go func() {
		sentCh <- s.sentiment.PortfolioSentiment(ctx, symbols)
	}()

	quotes, failed := s.Quotes(ctx, symbols)
	ra := s.risk.CalculatePortfolioRisk(ctx, positions, quotes)
	sent := <-sentCh

	if err := ctx.Err(); err != nil {
		s.recorder.RecordAnalysis(StatusFailed, time.Since(start).Seconds())
		return report.Report{}, err
	}

	r := report.Assemble(report.Input{
		Now:          s.now(),
		Profile:      req.Profile,
		Positions:    positions,
		Quotes:       quotes,
		SymbolErrors: failed,
		Risk:         ra,
		Sentiment:    sent,
	})

	if s.narrator != nil {
		c := s.narrator.Narrate(ctx, r)
		r.Commentary = &c
	}

	if s.archive != nil {
		name, err := s.archive.Save(ctx, r)
		s.recorder.RecordArchive(err == nil)
		if err != nil {
			s.logger.Error("report archive failed", zap.String("report_id", r.ID), zap.Error(err))
		} else {
			s.logger.Debug("report archived", zap.String("report_id", r.ID), zap.String("object", name))
		}
	}

	status := StatusSuccess
	if len(failed) > 0 || len(sent.FailedSymbols) > 0 {
		status = StatusPartial
	}
	s.recorder.RecordAnalysis(status, time.Since(start).Seconds())

	s.logger.Info("portfolio analysis complete",
		zap.String("report_id", r.ID),
		zap.String("status", status),
		zap.Int("symbol_errors", len(failed)),
		zap.Duration("elapsed", time.Since(start)))
	return r, nil
}

// normalize upper-cases symbols and validates the portfolio.
func normalize(positions []core.Position) ([]core.Position, error) {
	if len(positions) == 0 {
		return nil, core.WrapError(core.ErrInvalidPosition, fmt.Errorf("portfolio has no positions"))
	}
	out := make([]core.Position, len(positions))
	for i, p := range positions {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		out[i] = p
	}
	if err := core.ValidatePositions(out); err != nil {
		return nil, err
	}
	return out, nil
}
