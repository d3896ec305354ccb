package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/storage/archive"
)

const (
	archivePrefix   = "reports/"
	timestampLayout = "20060102T150405Z"
)

// Archive persists reports as one JSON document each, named by timestamp
// so ranges can be selected from the listing alone.
type Archive struct {
	store  archive.Storage
	logger *zap.Logger
	now    func() time.Time
}

// NewArchive creates a report archive over store.
func NewArchive(store archive.Storage, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{store: store, logger: logger, now: time.Now}
}

// ObjectName is the storage path of a report.
func ObjectName(r Report) string {
	return archivePrefix + r.Timestamp.UTC().Format(timestampLayout) + "_" + r.ID + ".json"
}

// parseObjectName extracts the timestamp from a report path.
func parseObjectName(name string) (time.Time, bool) {
	base := path.Base(name)
	if !strings.HasSuffix(base, ".json") || len(base) < len(timestampLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(timestampLayout, base[:len(timestampLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Save writes the report and returns its path.
func (a *Archive) Save(ctx context.Context, r Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	name := ObjectName(r)
	if err := a.store.Write(ctx, name, data); err != nil {
		return "", err
	}
	a.logger.Info("report archived", zap.String("path", name), zap.String("report_id", r.ID))
	return name, nil
}

// Range returns the archived reports with from <= timestamp <= to, oldest
// first. A zero bound is open. Unreadable documents are skipped.
func (a *Archive) Range(ctx context.Context, from, to time.Time) ([]Report, error) {
	names, err := a.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0)
	for _, name := range names {
		ts, ok := parseObjectName(name)
		if !ok || (!from.IsZero() && ts.Before(from.Truncate(time.Second))) || (!to.IsZero() && ts.After(to)) {
			continue
		}
		data, err := a.store.Read(ctx, name)
		if err != nil {
			a.logger.Warn("reading archived report", zap.String("path", name), zap.Error(err))
			continue
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			a.logger.Warn("decoding archived report", zap.String("path", name), zap.Error(err))
			continue
		}
		reports = append(reports, r)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})
	return reports, nil
}

// Prune deletes reports older than before and returns how many were removed.
func (a *Archive) Prune(ctx context.Context, before time.Time) (int, error) {
	names, err := a.store.List(ctx, archivePrefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		ts, ok := parseObjectName(name)
		if !ok || !ts.Before(before) {
			continue
		}
		if err := a.store.Delete(ctx, name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Comparison is the change between an archived baseline and a newer report.
type Comparison struct {
	BaselineID             string    `json:"baseline_id"`
	BaselineTimestamp      time.Time `json:"baseline_timestamp"`
	CurrentID              string    `json:"current_id"`
	CurrentTimestamp       time.Time `json:"current_timestamp"`
	ValueChange            float64   `json:"value_change"`
	ValueChangePercentage  float64   `json:"value_change_percentage"`
	ReturnPercentageChange float64   `json:"return_percentage_change"`
	RiskScoreChange        int       `json:"risk_score_change"`
	RiskLevelFrom          string    `json:"risk_level_from"`
	RiskLevelTo            string    `json:"risk_level_to"`
	SentimentFrom          string    `json:"sentiment_from"`
	SentimentTo            string    `json:"sentiment_to"`
	ReportsInWindow        int       `json:"reports_in_window"`
}

// Compare computes the deltas from baseline to current.
func Compare(baseline, current Report) Comparison {
	c := Comparison{
		BaselineID:        baseline.ID,
		BaselineTimestamp: baseline.Timestamp,
		CurrentID:         current.ID,
		CurrentTimestamp:  current.Timestamp,
		RiskScoreChange:   current.RiskAnalysis.RiskScore - baseline.RiskAnalysis.RiskScore,
		RiskLevelFrom:     baseline.RiskAnalysis.OverallRiskLevel,
		RiskLevelTo:       current.RiskAnalysis.OverallRiskLevel,
		SentimentFrom:     baseline.MarketSentiment.OverallSentiment,
		SentimentTo:       current.MarketSentiment.OverallSentiment,
	}

	from := decimal.NewFromFloat(baseline.Performance.CurrentValue)
	to := decimal.NewFromFloat(current.Performance.CurrentValue)
	c.ValueChange = to.Sub(from).Round(2).InexactFloat64()
	c.ValueChangePercentage = percentChange(from, to).InexactFloat64()
	c.ReturnPercentageChange = decimal.NewFromFloat(current.Performance.ReturnPercentage).
		Sub(decimal.NewFromFloat(baseline.Performance.ReturnPercentage)).Round(2).InexactFloat64()
	return c
}

// CompareHistory compares current against the oldest archived report in
// the lookbackDays before it. It fails with core.ErrNoData when the window
// holds no other report.
func (a *Archive) CompareHistory(ctx context.Context, current Report, lookbackDays int) (Comparison, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	at := current.Timestamp
	if at.IsZero() {
		at = a.now()
	}

	reports, err := a.Range(ctx, at.AddDate(0, 0, -lookbackDays), at)
	if err != nil {
		return Comparison{}, err
	}
	others := reports[:0]
	for _, r := range reports {
		if r.ID != current.ID {
			others = append(others, r)
		}
	}
	if len(others) == 0 {
		return Comparison{}, core.WrapError(core.ErrNoData,
			fmt.Errorf("no archived reports in the %d days before %s", lookbackDays, at.Format(time.RFC3339)))
	}

	c := Compare(others[0], current)
	c.ReportsInWindow = len(others)
	return c, nil
}
