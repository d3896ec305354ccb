// internal/api/handler/api/market.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/market"
	"github.com/newthinker/folio/internal/risk"
)

const defaultDays = 30

// HistorySource is implemented by *market.HistoryBuilder.
type HistorySource interface {
	GetHistory(ctx context.Context, symbol string, days int) *market.HistoricalSeries
}

// VolatilitySource is implemented by *risk.Engine.
type VolatilitySource interface {
	CalculateVolatility(ctx context.Context, symbol string, days int) risk.VolatilityResult
}

// MarketHandler serves quotes, history and volatility.
type MarketHandler struct {
	analyzer   Analyzer
	history    HistorySource
	volatility VolatilitySource
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(analyzer Analyzer, history HistorySource, volatility VolatilitySource) *MarketHandler {
	return &MarketHandler{analyzer: analyzer, history: history, volatility: volatility}
}

// Quote returns the current quote. It answers 502 when every provider failed.
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.analyzer.Quote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, q)
}

// History returns the daily series. A failed series is still a 200 with
// its error fields set.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	s := h.history.GetHistory(r.Context(), r.PathValue("symbol"), days(r))
	response.JSON(w, http.StatusOK, s)
}

// Volatility returns the symbol's return volatility.
func (h *MarketHandler) Volatility(w http.ResponseWriter, r *http.Request) {
	v := h.volatility.CalculateVolatility(r.Context(), r.PathValue("symbol"), days(r))
	response.JSON(w, http.StatusOK, v)
}

// days reads ?days=N, falling back to 30 for missing or invalid values.
func days(r *http.Request) int {
	if s := r.URL.Query().Get("days"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return defaultDays
}
