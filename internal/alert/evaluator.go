// Package alert evaluates threshold rules against finished portfolio
// reports and notifies when they fire.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/notifier"
	"github.com/newthinker/folio/internal/report"
)

// DefaultCooldown is the minimum gap between two firings of one rule.
const DefaultCooldown = 6 * time.Hour

// Sender delivers messages. *notifier.Registry implements it.
type Sender interface {
	NotifyAll(ctx context.Context, msg notifier.Message) map[string]error
}

// Alert is a fired rule.
type Alert struct {
	Rule     string  `json:"rule"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
}

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	rules    []Rule
	sender   Sender
	cooldown time.Duration
	logger   *zap.Logger

	// rule name -> first time the condition held
	pending map[string]time.Time
	// rule name -> last time the rule fired
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.cooldown = d
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator validates rules and creates an evaluator.
func NewEvaluator(rules []Rule, sender Sender, logger *zap.Logger, opts ...Option) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if seen[rules[i].Name] {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("duplicate rule %q", rules[i].Name))
		}
		seen[rules[i].Name] = true
	}

	e := &Evaluator{
		rules:     append([]Rule(nil), rules...),
		sender:    sender,
		cooldown:  DefaultCooldown,
		logger:    logger,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Check evaluates every rule against r and notifies for the ones that fire.
func (e *Evaluator) Check(ctx context.Context, r report.Report) []Alert {
	metrics := ReportMetrics(r)

	e.mu.Lock()
	now := e.now()
	var fired []Alert
	for i := range e.rules {
		if a, ok := e.evaluateLocked(&e.rules[i], metrics, now); ok {
			fired = append(fired, a)
		}
	}
	e.mu.Unlock()

	for _, a := range fired {
		e.logger.Info("alert fired",
			zap.String("rule", a.Rule),
			zap.String("severity", a.Severity),
			zap.Float64("value", a.Value),
			zap.String("report_id", r.ID))
		if e.sender == nil {
			continue
		}
		msg := notifier.Message{
			Title:     a.Rule,
			Body:      a.Message,
			Severity:  a.Severity,
			ReportID:  r.ID,
			Timestamp: r.Timestamp,
			Metrics:   map[string]float64{a.Metric: a.Value},
		}
		for name, err := range e.sender.NotifyAll(ctx, msg) {
			e.logger.Warn("alert notification failed", zap.String("notifier", name), zap.Error(err))
		}
	}
	return fired
}

func (e *Evaluator) evaluateLocked(rule *Rule, metrics map[string]float64, now time.Time) (Alert, bool) {
	if !rule.Evaluate(metrics) {
		delete(e.pending, rule.Name)
		return Alert{}, false
	}

	if rule.For > 0 {
		since, isPending := e.pending[rule.Name]
		if !isPending {
			e.pending[rule.Name] = now
			return Alert{}, false
		}
		if now.Sub(since) < rule.For {
			return Alert{}, false
		}
	}

	if last, ok := e.lastFired[rule.Name]; ok && now.Sub(last) < e.cooldown {
		return Alert{}, false
	}

	e.lastFired[rule.Name] = now
	delete(e.pending, rule.Name)

	metric := rule.Metric()
	return Alert{
		Rule:     rule.Name,
		Severity: rule.severity(),
		Message:  rule.FormatMessage(metrics),
		Metric:   metric,
		Value:    metrics[metric],
	}, true
}

// Rules returns the configured rules.
func (e *Evaluator) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}
