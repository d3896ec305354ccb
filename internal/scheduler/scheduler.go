// Package scheduler runs the configured portfolio through a full analysis on
// a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/alert"
	"github.com/newthinker/folio/internal/analysis"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/report"
)

// DefaultRunTimeout bounds one scheduled analysis.
const DefaultRunTimeout = 10 * time.Minute

// Analyzer is implemented by *analysis.Service.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (report.Report, error)
}

// Comparer is implemented by *report.Archive.
type Comparer interface {
	CompareHistory(ctx context.Context, current report.Report, lookbackDays int) (report.Comparison, error)
}

// Alerter checks finished reports. *alert.Evaluator implements it.
type Alerter interface {
	Check(ctx context.Context, r report.Report) []alert.Alert
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithAlerter checks every scheduled report against alert rules.
func WithAlerter(a Alerter) Option {
	return func(s *Scheduler) { s.alerter = a }
}

// Config describes the scheduled job.
type Config struct {
	Spec         string // standard 5-field cron expression
	Request      analysis.Request
	LookbackDays int
	Timeout      time.Duration
}

// Scheduler manages the cron task.
type Scheduler struct {
	cron     *cron.Cron
	analyzer Analyzer
	comparer Comparer
	alerter  Alerter
	cfg      Config
	logger   *zap.Logger

	mu      sync.Mutex
	last    *report.Report
	lastErr error
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler. comparer may be nil.
func New(cfg Config, analyzer Analyzer, comparer Comparer, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Request.Positions) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("scheduled portfolio is empty"))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRunTimeout
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		analyzer: analyzer,
		comparer: comparer,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(cfg.Spec, func() { s.RunNow(s.ctx) }); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule %q: %w", cfg.Spec, err))
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("spec", s.cfg.Spec),
		zap.Int("positions", len(s.cfg.Request.Positions)),
		zap.Time("next_run", s.Next()))
}

// Stop stops the scheduler and waits for a running analysis to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next scheduled run, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow executes the analysis immediately.
func (s *Scheduler) RunNow(ctx context.Context) (report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	s.logger.Info("running scheduled analysis")
	r, err := s.analyzer.Analyze(ctx, s.cfg.Request)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.last = &r
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled analysis failed", zap.Error(err))
		return report.Report{}, err
	}

	s.logger.Info("scheduled analysis complete",
		zap.String("report_id", r.ID),
		zap.Float64("current_value", r.Performance.CurrentValue),
		zap.String("overall_risk_level", r.RiskAnalysis.OverallRiskLevel))

	if s.comparer != nil {
		s.logComparison(ctx, r)
	}
	if s.alerter != nil {
		if fired := s.alerter.Check(ctx, r); len(fired) > 0 {
			s.logger.Info("alerts fired", zap.Int("count", len(fired)), zap.String("report_id", r.ID))
		}
	}
	return r, nil
}

func (s *Scheduler) logComparison(ctx context.Context, r report.Report) {
	c, err := s.comparer.CompareHistory(ctx, r, s.cfg.LookbackDays)
	if err != nil {
		if errors.Is(err, core.ErrNoData) {
			s.logger.Debug("no earlier report to compare against")
		} else {
			s.logger.Warn("report comparison failed", zap.Error(err))
		}
		return
	}
	s.logger.Info("portfolio change since baseline",
		zap.String("baseline_id", c.BaselineID),
		zap.Time("baseline_timestamp", c.BaselineTimestamp),
		zap.Float64("value_change", c.ValueChange),
		zap.Float64("value_change_percentage", c.ValueChangePercentage),
		zap.Int("risk_score_change", c.RiskScoreChange))
}

// Last returns the most recent successful report and the error of the
// latest run, if any.
func (s *Scheduler) Last() (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
