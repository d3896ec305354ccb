// Package sentiment scores news text and aggregates it into per-symbol and
// portfolio-level sentiment, trend and recent events.
package sentiment

import (
	"math"
	"regexp"
	"strings"
)

// Sentiment categories
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// CategoryThreshold separates neutral from positive/negative polarity.
const CategoryThreshold = 0.1

// Score is the sentiment of one text or an aggregate.
type Score struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	Confidence   float64 `json:"confidence"`
	Category     string  `json:"category"`
}

// NewScore derives confidence and category from polarity.
func NewScore(polarity, subjectivity float64) Score {
	return Score{
		Polarity:     polarity,
		Subjectivity: subjectivity,
		Confidence:   math.Abs(polarity),
		Category:     Categorize(polarity),
	}
}

// Categorize maps polarity to a category. Exactly ±0.1 is neutral.
func Categorize(polarity float64) string {
	switch {
	case polarity > CategoryThreshold:
		return Positive
	case polarity < -CategoryThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Model scores text. Polarity is in [-1, 1], subjectivity in [0, 1].
type Model interface {
	Analyze(text string) (polarity, subjectivity float64)
}

// LexiconModel is a deterministic word-list model: sentiment words carry a
// polarity and subjectivity, preceding intensifiers scale them and a
// preceding negation flips and halves polarity. The text score is the mean
// over sentiment-bearing words.
type LexiconModel struct {
	words        map[string]lexEntry
	intensifiers map[string]float64
	negations    map[string]bool
}

type lexEntry struct {
	polarity     float64
	subjectivity float64
}

var tokenRe = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

// negationWindow is how many unscored tokens a negation survives.
const negationWindow = 2

// NewLexiconModel returns the model with the built-in financial lexicon.
func NewLexiconModel() *LexiconModel {
	return &LexiconModel{
		words:        defaultLexicon,
		intensifiers: defaultIntensifiers,
		negations:    defaultNegations,
	}
}

// Analyze implements Model.
func (m *LexiconModel) Analyze(text string) (float64, float64) {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)

	var (
		polSum, subjSum float64
		n               int
		intensity       = 1.0
		negated         bool
		sinceNegation   int
	)
	for _, tok := range tokens {
		if m.negations[tok] || strings.HasSuffix(tok, "n't") {
			negated = true
			sinceNegation = 0
			continue
		}
		if f, ok := m.intensifiers[tok]; ok {
			intensity *= f
			continue
		}

		e, ok := m.words[tok]
		if !ok {
			if negated {
				sinceNegation++
				if sinceNegation > negationWindow {
					negated = false
				}
			}
			intensity = 1.0
			continue
		}

		p := e.polarity * intensity
		s := e.subjectivity * intensity
		if negated {
			p *= -0.5
		}
		polSum += clamp(p, -1, 1)
		subjSum += clamp(s, 0, 1)
		n++

		intensity = 1.0
		negated = false
	}

	if n == 0 {
		return 0, 0
	}
	return clamp(polSum/float64(n), -1, 1), clamp(subjSum/float64(n), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
