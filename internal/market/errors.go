// internal/market/errors.go
package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/newthinker/folio/internal/core"
)

// Attempt records one provider's failure for a symbol.
type Attempt struct {
	Provider string `json:"provider"`
	Err      error  `json:"-"`
}

// ExhaustedError is returned when every configured provider failed for a
// symbol. It matches core.ErrProvidersExhausted under errors.Is.
type ExhaustedError struct {
	Symbol   string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("all providers exhausted for %s: no providers configured", e.Symbol)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("all providers exhausted for %s: %s", e.Symbol, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool {
	return errors.Is(core.ErrProvidersExhausted, target)
}

// Unwrap exposes the individual provider failures.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// RateLimited reports whether any provider signalled throttling.
func (e *ExhaustedError) RateLimited() bool {
	for _, a := range e.Attempts {
		if errors.Is(a.Err, core.ErrRateLimited) {
			return true
		}
	}
	return false
}
