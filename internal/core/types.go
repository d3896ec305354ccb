package core

import (
	"fmt"
	"strings"
	"time"
)

// Quote is the canonical quote shape every provider normalizes into.
type Quote struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePercent string    `json:"change_percent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previous_close"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
}

// IsValid reports whether the quote is usable: a symbol, a positive price
// and no negative price fields.
func (q Quote) IsValid() bool {
	if q.Symbol == "" || q.CurrentPrice <= 0 {
		return false
	}
	return q.High >= 0 && q.Low >= 0 && q.Open >= 0 && q.PreviousClose >= 0
}

// OHLCV represents one bar of a price series.
type OHLCV struct {
	Time   time.Time `json:"timestamp"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Position is one holding of a portfolio as supplied by the caller.
type Position struct {
	Symbol        string  `json:"symbol" mapstructure:"symbol"`
	Quantity      float64 `json:"quantity" mapstructure:"quantity"`
	PurchasePrice float64 `json:"purchase_price" mapstructure:"purchase_price"`
}

// Validate checks the position invariants.
func (p Position) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return WrapError(ErrInvalidPosition, fmt.Errorf("symbol is required"))
	}
	if p.Quantity < 0 {
		return WrapError(ErrInvalidPosition, fmt.Errorf("%s: quantity cannot be negative", p.Symbol))
	}
	if p.PurchasePrice < 0 {
		return WrapError(ErrInvalidPosition, fmt.Errorf("%s: purchase price cannot be negative", p.Symbol))
	}
	return nil
}

// ValidatePositions validates every position of a portfolio.
func ValidatePositions(positions []Position) error {
	for _, p := range positions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Symbols returns the distinct symbols of the positions in input order.
func Symbols(positions []Position) []string {
	seen := make(map[string]struct{}, len(positions))
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Symbol]; ok {
			continue
		}
		seen[p.Symbol] = struct{}{}
		out = append(out, p.Symbol)
	}
	return out
}

// NewsItem is one article returned by a news source. PublishedAt is kept as
// the provider's raw string; consumers parse it leniently.
type NewsItem struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
}

// Text returns the headline and description joined for scoring.
func (n NewsItem) Text() string {
	return strings.TrimSpace(n.Title + " " + n.Description)
}
