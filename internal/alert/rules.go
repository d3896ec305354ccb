package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/notifier"
)

// Rule defines an alert rule.
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

// "metric op value"
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r *Rule) parse() (condition, error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return condition{}, fmt.Errorf("rule %q: cannot parse expression %q", r.Name, r.Expr)
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("rule %q: bad threshold: %w", r.Name, err)
	}
	return condition{metric: matches[1], op: matches[2], threshold: threshold}, nil
}

// Validate checks the rule is usable.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	c, err := r.parse()
	if err != nil {
		return err
	}
	if _, ok := knownMetrics[c.metric]; !ok {
		return fmt.Errorf("rule %q: unknown metric %q", r.Name, c.metric)
	}
	switch r.Severity {
	case "", notifier.SeverityInfo, notifier.SeverityWarning, notifier.SeverityCritical:
	default:
		return fmt.Errorf("rule %q: unknown severity %q", r.Name, r.Severity)
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := r.parse()
	if err != nil {
		return false
	}

	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// Metric returns the metric the rule reads, or "" for a bad expression.
func (r *Rule) Metric() string {
	c, err := r.parse()
	if err != nil {
		return ""
	}
	return c.metric
}

// FormatMessage formats the alert message with the observed value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.severity()), r.Name, r.Message)
	if m := r.Metric(); m != "" {
		if v, ok := metrics[m]; ok {
			msg += fmt.Sprintf(" (%s=%s)", m, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return msg
}

func (r *Rule) severity() string {
	if r.Severity == "" {
		return notifier.SeverityWarning
	}
	return r.Severity
}
