// internal/api/handler/api/sentiment.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/sentiment"
)

// SentimentAnalyzer is implemented by *sentiment.Engine.
type SentimentAnalyzer interface {
	PortfolioSentiment(ctx context.Context, symbols []string) sentiment.PortfolioSentimentSummary
	Score(text string) sentiment.Score
	History(symbol string) []sentiment.HistoryEntry
}

// SentimentHandler handles sentiment API requests.
type SentimentHandler struct {
	engine SentimentAnalyzer
}

// NewSentimentHandler creates a new sentiment handler.
func NewSentimentHandler(engine SentimentAnalyzer) *SentimentHandler {
	return &SentimentHandler{engine: engine}
}

// Portfolio scores the news for a list of symbols.
func (h *SentimentHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		response.Fail(w, core.WrapError(core.ErrConfigMissing, fmt.Errorf("symbols are required")))
		return
	}

	response.JSON(w, http.StatusOK, h.engine.PortfolioSentiment(r.Context(), symbols))
}

// Score scores a single piece of text.
func (h *SentimentHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	response.JSON(w, http.StatusOK, h.engine.Score(req.Text))
}

// History returns the recorded sentiment of one symbol, oldest first.
func (h *SentimentHandler) History(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.engine.History(r.PathValue("symbol")))
}
