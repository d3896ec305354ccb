// internal/api/handler/api/reports.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/report"
)

// ReportArchive is implemented by *report.Archive.
type ReportArchive interface {
	Range(ctx context.Context, from, to time.Time) ([]report.Report, error)
	CompareHistory(ctx context.Context, current report.Report, lookbackDays int) (report.Comparison, error)
}

// CompareRequest is the request body for a historical comparison.
type CompareRequest struct {
	Report       report.Report `json:"report"`
	LookbackDays int           `json:"lookback_days"`
}

// ReportsHandler serves archived reports.
type ReportsHandler struct {
	archive ReportArchive
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(archive ReportArchive) *ReportsHandler {
	return &ReportsHandler{archive: archive}
}

// List returns archived reports between ?from= and ?to= (RFC 3339 or
// YYYY-MM-DD, where a bare "to" date covers that whole day). Missing bounds
// are open.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, _, err := parseTime(q.Get("from"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	to, dateOnly, err := parseTime(q.Get("to"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	if dateOnly {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	reports, err := h.archive.Range(r.Context(), from, to)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// Compare diffs the posted report against the oldest archived one in the
// lookback window.
func (h *ReportsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if req.Report.ID == "" {
		response.Fail(w, core.WrapError(core.ErrConfigMissing, fmt.Errorf("report is required")))
		return
	}

	c, err := h.archive.CompareHistory(r.Context(), req.Report, req.LookbackDays)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, c)
}

func parseTime(s string) (t time.Time, dateOnly bool, err error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid time %q", s))
	}
	return t, true, nil
}
