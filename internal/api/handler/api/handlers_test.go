package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/analysis"
	"github.com/newthinker/folio/internal/api/job"
	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/market"
	"github.com/newthinker/folio/internal/report"
	"github.com/newthinker/folio/internal/risk"
	"github.com/newthinker/folio/internal/sentiment"
)

type fakeAnalyzer struct {
	lastReq analysis.Request
	err     error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analysis.Request) (report.Report, error) {
	f.lastReq = req
	if f.err != nil {
		return report.Report{}, f.err
	}
	return report.Report{ID: "rep-1", Profile: req.Profile.WithDefaults()}, nil
}

func (f *fakeAnalyzer) Risk(ctx context.Context, positions []core.Position) (risk.RiskAssessment, error) {
	return risk.RiskAssessment{NumberOfPositions: len(positions), OverallRiskLevel: risk.LevelModerate}, nil
}

func (f *fakeAnalyzer) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	if symbol == "ZZZZ" {
		return nil, &market.ExhaustedError{Symbol: symbol, Attempts: []market.Attempt{
			{Provider: "alphavantage", Err: core.ErrRateLimited},
		}}
	}
	return &core.Quote{Symbol: symbol, CurrentPrice: 123.45, Source: "yahoo"}, nil
}

func decodeData(t *testing.T, body []byte, v any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func decodeError(t *testing.T, body []byte) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error
}

const portfolioBody = `{"portfolio":[{"symbol":"AAPL","quantity":10,"purchase_price":150}],"risk_tolerance":"low","investment_goals":["growth"]}`

func TestPortfolioHandler_Analyze(t *testing.T) {
	a := &fakeAnalyzer{}
	h := NewPortfolioHandler(a, job.NewStore(10, time.Hour), nil)

	w := httptest.NewRecorder()
	h.Analyze(w, httptest.NewRequest("POST", "/api/v1/portfolio/analyze", strings.NewReader(portfolioBody)))

	require.Equal(t, http.StatusOK, w.Code)
	var rep report.Report
	decodeData(t, w.Body.Bytes(), &rep)
	assert.Equal(t, "rep-1", rep.ID)
	assert.Equal(t, "5-10 years", rep.Profile.TimeHorizon)

	require.Len(t, a.lastReq.Positions, 1)
	assert.Equal(t, "AAPL", a.lastReq.Positions[0].Symbol)
	assert.Equal(t, "low", a.lastReq.Profile.RiskTolerance)
	assert.Equal(t, []string{"growth"}, a.lastReq.Profile.InvestmentGoals)
}

func TestPortfolioHandler_AnalyzeBadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{`, "CONFIG_INVALID"},
		{"no positions", `{"risk_tolerance":"low"}`, "INVALID_POSITION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPortfolioHandler(&fakeAnalyzer{}, job.NewStore(10, time.Hour), nil)
			w := httptest.NewRecorder()
			h.Analyze(w, httptest.NewRequest("POST", "/api/v1/portfolio/analyze", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w.Body.Bytes()).Code)
		})
	}
}

func TestPortfolioHandler_AnalyzeAsync(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	h := NewPortfolioHandler(&fakeAnalyzer{}, store, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/portfolio/analyze", h.Analyze)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/portfolio/analyze?async=true", strings.NewReader(portfolioBody)))
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted map[string]any
	decodeData(t, w.Body.Bytes(), &accepted)
	jobID := accepted["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		j, err := store.Get(jobID)
		return err == nil && j.Status == job.StatusComplete
	}, time.Second, 5*time.Millisecond)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/jobs/"+jobID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	decodeData(t, w.Body.Bytes(), &status)
	assert.Equal(t, "complete", status["status"])
	assert.Equal(t, float64(100), status["progress"])
	assert.Equal(t, "rep-1", status["result"].(map[string]any)["id"])
}

func TestPortfolioHandler_AsyncFailure(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	h := NewPortfolioHandler(&fakeAnalyzer{err: errors.New("engine down")}, store, nil)

	w := httptest.NewRecorder()
	h.Analyze(w, httptest.NewRequest("POST", "/api/v1/portfolio/analyze?async=true", strings.NewReader(portfolioBody)))
	var accepted map[string]any
	decodeData(t, w.Body.Bytes(), &accepted)

	require.Eventually(t, func() bool {
		j, err := store.Get(accepted["job_id"].(string))
		return err == nil && j.Status == job.StatusFailed && j.Error != nil
	}, time.Second, 5*time.Millisecond)
}

func TestPortfolioHandler_GetJobNotFound(t *testing.T) {
	h := NewPortfolioHandler(&fakeAnalyzer{}, job.NewStore(10, time.Hour), nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, w.Body.Bytes()).Code)
}

func TestPortfolioHandler_Risk(t *testing.T) {
	h := NewPortfolioHandler(&fakeAnalyzer{}, job.NewStore(10, time.Hour), nil)

	w := httptest.NewRecorder()
	h.Risk(w, httptest.NewRequest("POST", "/api/v1/portfolio/risk", strings.NewReader(portfolioBody)))

	require.Equal(t, http.StatusOK, w.Code)
	var ra risk.RiskAssessment
	decodeData(t, w.Body.Bytes(), &ra)
	assert.Equal(t, 1, ra.NumberOfPositions)
}

type fakeHistory struct{ days int }

func (f *fakeHistory) GetHistory(ctx context.Context, symbol string, days int) *market.HistoricalSeries {
	f.days = days
	return &market.HistoricalSeries{Symbol: symbol, RequestedDays: days, Error: "no data", ErrorKind: market.FailureEmptyPayload}
}

type fakeVolatility struct{}

func (fakeVolatility) CalculateVolatility(ctx context.Context, symbol string, days int) risk.VolatilityResult {
	return risk.VolatilityResult{Symbol: symbol, Volatility: 0.012, DaysAnalyzed: days - 1}
}

func TestMarketHandler(t *testing.T) {
	hist := &fakeHistory{}
	h := NewMarketHandler(&fakeAnalyzer{}, hist, fakeVolatility{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/quotes/{symbol}", h.Quote)
	mux.HandleFunc("GET /api/v1/history/{symbol}", h.History)
	mux.HandleFunc("GET /api/v1/volatility/{symbol}", h.Volatility)

	t.Run("quote", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/quotes/AAPL", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var q core.Quote
		decodeData(t, w.Body.Bytes(), &q)
		assert.Equal(t, 123.45, q.CurrentPrice)
	})

	t.Run("quote exhausted", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/quotes/ZZZZ", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		detail := decodeError(t, w.Body.Bytes())
		assert.Equal(t, "PROVIDERS_EXHAUSTED", detail.Code)
		assert.Contains(t, detail.Cause, "ZZZZ")
	})

	t.Run("history days", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/history/AAPL?days=90", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 90, hist.days)

		var s market.HistoricalSeries
		decodeData(t, w.Body.Bytes(), &s)
		assert.Equal(t, "no data", s.Error)
	})

	t.Run("history invalid days", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/history/AAPL?days=-4", nil))
		assert.Equal(t, defaultDays, hist.days)
	})

	t.Run("volatility", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/volatility/MSFT", nil))
		var v risk.VolatilityResult
		decodeData(t, w.Body.Bytes(), &v)
		assert.Equal(t, "MSFT", v.Symbol)
		assert.Equal(t, 29, v.DaysAnalyzed)
	})
}

func TestSentimentHandler(t *testing.T) {
	engine := sentiment.NewEngine(sentiment.NewStaticSource(map[string][]core.NewsItem{
		"AAPL": {{Title: "Apple stock surges", PublishedAt: time.Now().UTC().Format(time.RFC3339)}},
	}), sentiment.Config{}, nil)
	h := NewSentimentHandler(engine)

	t.Run("portfolio", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Portfolio(w, httptest.NewRequest("POST", "/api/v1/sentiment", strings.NewReader(`{"symbols":[" aapl ",""]}`)))
		require.Equal(t, http.StatusOK, w.Code)

		var s sentiment.PortfolioSentimentSummary
		decodeData(t, w.Body.Bytes(), &s)
		assert.Contains(t, s.SymbolBreakdown, "AAPL")
		assert.Equal(t, sentiment.Positive, s.OverallSentiment)
	})

	t.Run("no symbols", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Portfolio(w, httptest.NewRequest("POST", "/api/v1/sentiment", strings.NewReader(`{"symbols":[]}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("score", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Score(w, httptest.NewRequest("POST", "/api/v1/sentiment/score", strings.NewReader(`{"text":"Shares plunge after lawsuit"}`)))
		var s sentiment.Score
		decodeData(t, w.Body.Bytes(), &s)
		assert.Equal(t, sentiment.Negative, s.Category)
	})
}

type fakeArchive struct {
	from, to time.Time
	err      error
}

func (f *fakeArchive) Range(ctx context.Context, from, to time.Time) ([]report.Report, error) {
	f.from, f.to = from, to
	return []report.Report{{ID: "a"}, {ID: "b"}}, nil
}

func (f *fakeArchive) CompareHistory(ctx context.Context, current report.Report, lookbackDays int) (report.Comparison, error) {
	if f.err != nil {
		return report.Comparison{}, f.err
	}
	return report.Comparison{BaselineID: "a", CurrentID: current.ID, ValueChange: 12.5}, nil
}

func TestReportsHandler_List(t *testing.T) {
	arch := &fakeArchive{}
	h := NewReportsHandler(arch)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/reports?from=2024-03-01&to=2024-03-20", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	decodeData(t, w.Body.Bytes(), &data)
	assert.Equal(t, float64(2), data["count"])
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), arch.from)
	assert.Equal(t, time.Date(2024, 3, 20, 23, 59, 59, 999999999, time.UTC), arch.to)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/reports?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportsHandler_Compare(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := NewReportsHandler(&fakeArchive{})
		w := httptest.NewRecorder()
		h.Compare(w, httptest.NewRequest("POST", "/api/v1/reports/compare", strings.NewReader(`{"report":{"id":"c"},"lookback_days":7}`)))
		require.Equal(t, http.StatusOK, w.Code)

		var c report.Comparison
		decodeData(t, w.Body.Bytes(), &c)
		assert.Equal(t, "c", c.CurrentID)
		assert.Equal(t, 12.5, c.ValueChange)
	})

	t.Run("empty window", func(t *testing.T) {
		h := NewReportsHandler(&fakeArchive{err: core.WrapError(core.ErrNoData, errors.New("no archived reports"))})
		w := httptest.NewRecorder()
		h.Compare(w, httptest.NewRequest("POST", "/api/v1/reports/compare", strings.NewReader(`{"report":{"id":"c"}}`)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing report", func(t *testing.T) {
		h := NewReportsHandler(&fakeArchive{})
		w := httptest.NewRecorder()
		h.Compare(w, httptest.NewRequest("POST", "/api/v1/reports/compare", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
