// internal/api/handler/api/portfolio.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/analysis"
	"github.com/newthinker/folio/internal/api/job"
	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/report"
	"github.com/newthinker/folio/internal/risk"
)

const analysisTimeout = 5 * time.Minute

// Analyzer is the part of analysis.Service the handlers use.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (report.Report, error)
	Risk(ctx context.Context, positions []core.Position) (risk.RiskAssessment, error)
	Quote(ctx context.Context, symbol string) (*core.Quote, error)
}

// PortfolioRequest is the request body for portfolio analysis. Holdings may
// be sent as either "positions" or "portfolio".
type PortfolioRequest struct {
	Positions       []core.Position `json:"positions"`
	Portfolio       []core.Position `json:"portfolio"`
	RiskTolerance   string          `json:"risk_tolerance"`
	InvestmentGoals []string        `json:"investment_goals"`
	TimeHorizon     string          `json:"time_horizon"`
}

func (p PortfolioRequest) holdings() []core.Position {
	if len(p.Positions) > 0 {
		return p.Positions
	}
	return p.Portfolio
}

// PortfolioHandler handles portfolio analysis API requests.
type PortfolioHandler struct {
	analyzer Analyzer
	jobStore *job.Store
	logger   *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(analyzer Analyzer, jobStore *job.Store, logger *zap.Logger) *PortfolioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioHandler{analyzer: analyzer, jobStore: jobStore, logger: logger}
}

func decodePortfolio(r *http.Request) (PortfolioRequest, error) {
	var req PortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("decoding request body: %w", err))
	}
	if len(req.holdings()) == 0 {
		return req, core.WrapError(core.ErrInvalidPosition, fmt.Errorf("positions are required"))
	}
	return req, nil
}

// Analyze runs a full analysis. With ?async=true it returns a job id at once.
func (h *PortfolioHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, err := decodePortfolio(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	areq := analysis.Request{
		Positions: req.holdings(),
		Profile: report.Profile{
			RiskTolerance:   req.RiskTolerance,
			InvestmentGoals: req.InvestmentGoals,
			TimeHorizon:     req.TimeHorizon,
		},
	}

	if r.URL.Query().Get("async") == "true" {
		j := h.jobStore.Create("analysis")

		// Copy values before starting goroutine to avoid race
		jobID := j.ID
		status := j.Status

		go h.runAnalysis(jobID, areq)

		response.JSON(w, http.StatusAccepted, map[string]any{
			"job_id": jobID,
			"status": status,
		})
		return
	}

	rep, err := h.analyzer.Analyze(r.Context(), areq)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rep)
}

// runAnalysis executes an async analysis and updates job status.
func (h *PortfolioHandler) runAnalysis(jobID string, req analysis.Request) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()
	rep, err := h.analyzer.Analyze(ctx, req)

	if err != nil {
		h.logger.Warn("async analysis failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = toCoreError(err)
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = rep
	})
}

// Risk returns the risk assessment of a portfolio without news or report.
func (h *PortfolioHandler) Risk(w http.ResponseWriter, r *http.Request) {
	req, err := decodePortfolio(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	ra, err := h.analyzer.Risk(r.Context(), req.holdings())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, ra)
}

// GetJob returns the status of an async analysis job.
func (h *PortfolioHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = j.Error.Error()
	}
	response.JSON(w, http.StatusOK, resp)
}

func toCoreError(err error) *core.Error {
	if ce, ok := err.(*core.Error); ok {
		return ce
	}
	return &core.Error{Code: "ANALYSIS_FAILED", Message: "analysis failed", Cause: err}
}
