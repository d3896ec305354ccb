package sentiment

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/core"
)

// Impact levels
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

const (
	// EventWindowDays is how old an event may be and still be reported.
	EventWindowDays = 10
	// MaxEventsPerSymbol caps the events kept per symbol.
	MaxEventsPerSymbol = 5
)

// RecentEvent is a headline matching the event taxonomy.
type RecentEvent struct {
	Symbol      string  `json:"symbol"`
	Headline    string  `json:"headline"`
	EventType   string  `json:"event_type"`
	DaysOld     int     `json:"days_old"`
	Sentiment   string  `json:"sentiment"`
	Polarity    float64 `json:"polarity"`
	Source      string  `json:"source"`
	ImpactLevel string  `json:"impact_level"`
	PublishedAt string  `json:"published_at,omitempty"`
}

// EventSummary aggregates recent events across a portfolio.
type EventSummary struct {
	TotalEvents      int           `json:"total_events"`
	HighImpactEvents int           `json:"high_impact_events"`
	Events           []RecentEvent `json:"events"`
	Summary          string        `json:"summary"`
}

type eventCategory struct {
	eventType string
	impact    string
	pattern   *regexp.Regexp
}

func category(eventType, impact string, keywords ...string) eventCategory {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return eventCategory{
		eventType: eventType,
		impact:    impact,
		pattern:   regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// taxonomy is checked in order; the first match decides the event type.
var taxonomy = []eventCategory{
	category("merger_acquisition", ImpactHigh, "acquires", "acquire", "acquired", "acquisition", "merger", "merge", "takeover", "buyout"),
	category("legal_regulatory", ImpactHigh, "lawsuit", "sues", "sued", "investigation", "probe", "fraud", "antitrust", "sec", "settlement", "fine", "fined"),
	category("product_recall", ImpactHigh, "recall", "recalls", "recalled"),
	category("bankruptcy", ImpactHigh, "bankruptcy", "bankrupt", "insolvency", "chapter 11", "delisted", "delisting"),
	category("earnings", ImpactMedium, "earnings", "revenue", "quarterly", "guidance", "eps", "profit", "results"),
	category("leadership", ImpactMedium, "ceo", "cfo", "chairman", "executive", "resigns", "steps down", "appoints", "appointed"),
	category("analyst_rating", ImpactMedium, "upgrade", "upgrades", "upgraded", "downgrade", "downgrades", "downgraded"),
	category("capital_return", ImpactMedium, "dividend", "buyback", "repurchase", "split"),
	category("workforce", ImpactMedium, "layoffs", "layoff", "job cuts", "restructuring", "strike"),
	category("product_launch", ImpactLow, "launch", "launches", "unveils", "unveiled", "introduces", "release", "releases"),
	category("partnership", ImpactLow, "partnership", "partners", "collaboration", "contract", "agreement"),
	category("analyst_coverage", ImpactLow, "price target", "analyst", "analysts", "coverage", "initiates"),
}

var impactRank = map[string]int{ImpactHigh: 0, ImpactMedium: 1, ImpactLow: 2}

// classifyEvent returns the event type and impact of text, if any.
func classifyEvent(text string) (string, string, bool) {
	lower := strings.ToLower(text)
	for _, c := range taxonomy {
		if c.pattern.MatchString(lower) {
			return c.eventType, c.impact, true
		}
	}
	return "", "", false
}

// publishedLayouts covers the formats the news sources emit. Layouts
// without a zone are parsed in the clock's location.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"20060102T150405",
	"20060102T1504",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParsePublished parses a published timestamp in any known layout.
func ParsePublished(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// daysOld is the whole number of days since published. Unparseable values
// count as published today.
func daysOld(published string, now time.Time) int {
	t, ok := ParsePublished(published, now.Location())
	if !ok {
		return 0
	}
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ExtractEvents scans scored headlines for taxonomy keywords, keeps those no
// older than EventWindowDays and returns at most MaxEventsPerSymbol, highest
// impact and most recent first.
func ExtractEvents(symbol string, headlines []Headline, now time.Time) []RecentEvent {
	events := make([]RecentEvent, 0)
	for _, h := range headlines {
		eventType, impact, ok := classifyEvent(h.Title + " " + h.Description)
		if !ok {
			continue
		}
		age := daysOld(h.PublishedAt, now)
		if age > EventWindowDays {
			continue
		}
		events = append(events, RecentEvent{
			Symbol:      symbol,
			Headline:    h.Title,
			EventType:   eventType,
			DaysOld:     age,
			Sentiment:   h.Score.Category,
			Polarity:    h.Score.Polarity,
			Source:      h.Source,
			ImpactLevel: impact,
			PublishedAt: h.PublishedAt,
		})
	}

	sortEvents(events)
	if len(events) > MaxEventsPerSymbol {
		events = events[:MaxEventsPerSymbol]
	}
	return events
}

func sortEvents(events []RecentEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ri, rj := impactRank[events[i].ImpactLevel], impactRank[events[j].ImpactLevel]
		if ri != rj {
			return ri < rj
		}
		return events[i].DaysOld < events[j].DaysOld
	})
}

// SummarizeEvents aggregates per-symbol events into one summary.
func SummarizeEvents(bySymbol map[string][]RecentEvent) EventSummary {
	var all []RecentEvent
	symbolsWithEvents := 0
	for _, sym := range sortedSymbols(bySymbol) {
		evs := bySymbol[sym]
		if len(evs) > 0 {
			symbolsWithEvents++
		}
		all = append(all, evs...)
	}
	sortEvents(all)

	s := EventSummary{Events: all}
	if s.Events == nil {
		s.Events = []RecentEvent{}
	}
	s.TotalEvents = len(all)
	for _, e := range all {
		if e.ImpactLevel == ImpactHigh {
			s.HighImpactEvents++
		}
	}

	switch {
	case s.TotalEvents == 0:
		s.Summary = "No significant recent events detected across portfolio holdings."
	case s.HighImpactEvents > 0:
		top := all[0]
		s.Summary = fmt.Sprintf("%d recent events detected across %d holdings, including %d high-impact (most notable: %s for %s).",
			s.TotalEvents, symbolsWithEvents, s.HighImpactEvents, strings.ReplaceAll(top.EventType, "_", " "), top.Symbol)
	default:
		s.Summary = fmt.Sprintf("%d recent events detected across %d holdings, none high-impact.",
			s.TotalEvents, symbolsWithEvents)
	}
	return s
}

// itemsToHeadlines scores raw news items.
func itemsToHeadlines(items []core.NewsItem, m Model) []Headline {
	out := make([]Headline, len(items))
	for i, it := range items {
		p, s := m.Analyze(it.Text())
		out[i] = Headline{
			Title:       it.Title,
			Description: it.Description,
			PublishedAt: it.PublishedAt,
			Source:      it.Source,
			URL:         it.URL,
			Score:       NewScore(p, s),
		}
	}
	return out
}
