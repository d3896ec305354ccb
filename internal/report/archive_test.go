package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/storage/archive"
)

func reportAt(id string, ts time.Time, value float64, riskScore int) Report {
	return Report{
		ID:           id,
		Timestamp:    ts,
		Performance:  Performance{CurrentValue: value, ReturnPercentage: value / 100},
		RiskAnalysis: risk.RiskAssessment{RiskScore: riskScore, OverallRiskLevel: risk.LevelModerate},
	}
}

func TestObjectName(t *testing.T) {
	r := Report{ID: "abc", Timestamp: time.Date(2024, 3, 1, 9, 30, 15, 0, time.FixedZone("EST", -5*3600))}
	assert.Equal(t, "reports/20240301T143015Z_abc.json", ObjectName(r))

	ts, ok := parseObjectName(ObjectName(r))
	require.True(t, ok)
	assert.True(t, ts.Equal(r.Timestamp))

	_, ok = parseObjectName("reports/notes.txt")
	assert.False(t, ok)
}

func TestArchive_SaveAndRange(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(archive.NewMemory(), nil)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		_, err := a.Save(ctx, reportAt(id, base.AddDate(0, 0, i), 1000, 40))
		require.NoError(t, err)
	}

	all, err := a.Range(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].ID)

	window, err := a.Range(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "r2", window[0].ID)
	assert.Equal(t, "r3", window[1].ID)
}

func TestArchive_RangeSkipsCorruptDocuments(t *testing.T) {
	ctx := context.Background()
	store := archive.NewMemory()
	a := NewArchive(store, nil)

	_, err := a.Save(ctx, reportAt("good", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 1, 1))
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "reports/20240302T000000Z_bad.json", []byte("{not json")))

	reports, err := a.Range(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "good", reports[0].ID)
}

func TestArchive_Prune(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(archive.NewMemory(), nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := a.Save(ctx, reportAt(string(rune('a'+i)), base.AddDate(0, 0, i), 1, 1))
		require.NoError(t, err)
	}

	removed, err := a.Prune(ctx, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, _ := a.Range(ctx, time.Time{}, time.Time{})
	assert.Len(t, left, 2)
}

func TestCompare(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	baseline := reportAt("old", base, 3000, 40)
	current := reportAt("new", base.AddDate(0, 0, 7), 3150, 55)
	current.RiskAnalysis.OverallRiskLevel = risk.LevelHigh

	c := Compare(baseline, current)
	assert.Equal(t, 150.0, c.ValueChange)
	assert.Equal(t, 5.0, c.ValueChangePercentage)
	assert.Equal(t, 1.5, c.ReturnPercentageChange)
	assert.Equal(t, 15, c.RiskScoreChange)
	assert.Equal(t, risk.LevelModerate, c.RiskLevelFrom)
	assert.Equal(t, risk.LevelHigh, c.RiskLevelTo)
}

func TestArchive_CompareHistory(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(archive.NewMemory(), nil)
	now := time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)

	_, err := a.Save(ctx, reportAt("ancient", now.AddDate(0, 0, -60), 1000, 10))
	require.NoError(t, err)
	_, err = a.Save(ctx, reportAt("baseline", now.AddDate(0, 0, -20), 2000, 30))
	require.NoError(t, err)
	_, err = a.Save(ctx, reportAt("recent", now.AddDate(0, 0, -2), 2500, 30))
	require.NoError(t, err)

	current := reportAt("current", now, 3000, 35)
	_, err = a.Save(ctx, current)
	require.NoError(t, err)

	c, err := a.CompareHistory(ctx, current, 30)
	require.NoError(t, err)
	assert.Equal(t, "baseline", c.BaselineID)
	assert.Equal(t, 2, c.ReportsInWindow)
	assert.Equal(t, 1000.0, c.ValueChange)
	assert.Equal(t, 50.0, c.ValueChangePercentage)
	assert.Equal(t, 5, c.RiskScoreChange)
}

func TestArchive_CompareHistoryEmptyWindow(t *testing.T) {
	a := NewArchive(archive.NewMemory(), nil)

	_, err := a.CompareHistory(context.Background(), reportAt("only", time.Now(), 1, 1), 30)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoData))
}
