// internal/sentiment/history.go
package sentiment

import (
	"sync"
	"time"
)

// DefaultHistoryLimit bounds the entries kept per symbol.
const DefaultHistoryLimit = 500

// HistoryEntry is one recorded symbol sentiment.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Score     Score     `json:"sentiment"`
	Headlines int       `json:"headline_count"`
	Trend     string    `json:"trend"`
}

// History is an append-only per-symbol log of sentiment results. Once a
// symbol reaches the limit its oldest entries are discarded.
type History struct {
	mu      sync.RWMutex
	entries map[string][]HistoryEntry
	limit   int
}

// NewHistory creates a history log.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		entries: make(map[string][]HistoryEntry),
		limit:   limit,
	}
}

// Append records an entry for symbol.
func (h *History) Append(symbol string, e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.entries[symbol], e)
	if over := len(list) - h.limit; over > 0 {
		list = append([]HistoryEntry(nil), list[over:]...)
	}
	h.entries[symbol] = list
}

// Get returns a copy of the entries for symbol, oldest first.
func (h *History) Get(symbol string) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries[symbol]))
	copy(out, h.entries[symbol])
	return out
}

// Len returns how many symbols have history.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
