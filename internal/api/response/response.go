// internal/api/response/response.go
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// statusMap is checked in order; the first sentinel the error matches
// decides both the HTTP status and the reported code.
var statusMap = []struct {
	err    *core.Error
	status int
}{
	{core.ErrProvidersExhausted, http.StatusBadGateway},
	{core.ErrInvalidPosition, http.StatusBadRequest},
	{core.ErrConfigInvalid, http.StatusBadRequest},
	{core.ErrConfigMissing, http.StatusBadRequest},
	{core.ErrSymbolNotFound, http.StatusNotFound},
	{core.ErrJobNotFound, http.StatusNotFound},
	{core.ErrNoData, http.StatusNotFound},
	{core.ErrRateLimited, http.StatusTooManyRequests},
	{core.ErrNewsUnavailable, http.StatusBadGateway},
	{core.ErrArchiveFailed, http.StatusInternalServerError},
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	resp := SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	resp := ErrorResponse{Error: detail}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Fail picks the status for err and writes it. Errors that only match a
// sentinel through errors.Is are re-wrapped so the sentinel code is reported.
func Fail(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		Error(w, http.StatusGatewayTimeout, &core.Error{Code: "TIMEOUT", Message: "request timed out", Cause: err})
		return
	}
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			var coreErr *core.Error
			if !errors.As(err, &coreErr) || coreErr.Code != m.err.Code {
				err = core.WrapError(m.err, err)
			}
			Error(w, m.status, err)
			return
		}
	}
	Error(w, http.StatusInternalServerError, err)
}
