// internal/provider/http.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/folio/internal/core"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
	maxErrorBody     = 512
)

// APIError is a non-200 response from a provider
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// HTTPGetter performs rate-limited JSON GET requests for one provider and
// classifies failures into the core error taxonomy.
type HTTPGetter struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	userAgent  string
}

// GetterOption configures an HTTPGetter
type GetterOption func(*HTTPGetter)

// WithHTTPClient sets the underlying client
func WithHTTPClient(c *http.Client) GetterOption {
	return func(g *HTTPGetter) {
		g.httpClient = c
	}
}

// WithRateLimit sets requests per second; zero or less leaves the default
func WithRateLimit(requestsPerSecond int) GetterOption {
	return func(g *HTTPGetter) {
		if requestsPerSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) GetterOption {
	return func(g *HTTPGetter) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) GetterOption {
	return func(g *HTTPGetter) {
		g.userAgent = ua
	}
}

// NewHTTPGetter creates a getter for the named provider
func NewHTTPGetter(name string, opts ...GetterOption) *HTTPGetter {
	g := &HTTPGetter{
		name:       name,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     zap.NewNop(),
		userAgent:  "folio/1.0",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Logger returns the getter's logger, scoped to the provider
func (g *HTTPGetter) Logger() *zap.Logger {
	return g.logger.With(zap.String("provider", g.name))
}

// GetJSON fetches rawURL with params and decodes the body into result.
//
// HTTP 429 maps to core.ErrRateLimited, other non-200 statuses to
// core.ErrProviderFailed and undecodable bodies to core.ErrMalformedPayload.
func (g *HTTPGetter) GetJSON(ctx context.Context, rawURL string, params url.Values, result any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := rawURL
	if len(params) > 0 {
		reqURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("%s: %w", g.name, err))
	}
	defer resp.Body.Close()

	g.logger.Debug("provider request",
		zap.String("provider", g.name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Provider: g.name, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests {
			return core.WrapError(core.ErrRateLimited, apiErr)
		}
		if resp.StatusCode == http.StatusNotFound {
			return core.WrapError(core.ErrSymbolNotFound, apiErr)
		}
		return core.WrapError(core.ErrProviderFailed, apiErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return core.WrapError(core.ErrMalformedPayload, fmt.Errorf("%s: decoding response: %w", g.name, err))
	}
	return nil
}

// Float handles JSON values that may be either a number or a string.
// Missing, empty and unparseable values decode to zero.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = Float(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if s == "" || s == "N/A" || s == "None" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = Float(num)
		return nil
	}
	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// FormatPercent renders a value already in percent units, e.g.
// 1.2345 -> "1.23%". Fractions must be scaled by 100 first.
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}
