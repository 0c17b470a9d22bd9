// Package fuzzy ranks ticker records against an approximate query.
//
// The resolver only depends on the Searcher interface; EditSearcher is the
// default implementation built on go-edlib edit distances.
package fuzzy

import (
	"math"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// DefaultThreshold accepts a key whose edit distance is at most 35% of the query.
const DefaultThreshold = 0.35

// MaxPatternRunes bounds the query length fed to the edit-distance scan.
// Longer queries are truncated; the scan is quadratic in the query length.
const MaxPatternRunes = 32

// epsilon stands in for a perfect key score so the weighted product stays informative.
const epsilon = 1e-9

// Match is one ranked hit. Index points into the searched corpus; a lower
// Score is a better match (0 is exact).
type Match struct {
	Index int
	Score float64
}

// Searcher ranks corpus records against query and returns at most limit matches,
// best first.
type Searcher interface {
	Search(query string, corpus []models.TickerRecord, limit int) []Match
}

// Weights sets the relative importance of each record field.
type Weights struct {
	Code    float64
	Name    float64
	Kana    float64
	Aliases float64
}

// DefaultWeights favors the official name, then aliases, kana and code.
func DefaultWeights() Weights {
	return Weights{Code: 0.5, Name: 1.0, Kana: 0.7, Aliases: 0.9}
}

func (w Weights) total() float64 {
	return w.Code + w.Name + w.Kana + w.Aliases
}

// Options configures an EditSearcher.
//
// Threshold is the largest accepted distance in [0,1] where 0 means exact.
type Options struct {
	Threshold float64
	Weights   Weights
}

// DefaultOptions mirrors the tuning the dictionary was curated against.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Weights: DefaultWeights()}
}

// EditSearcher scores every field value by its best Levenshtein similarity to
// the query over query-sized windows, so the position of a hit inside a long
// name does not matter. A record matches when any field is within the
// threshold; matched fields are combined as a weighted product of distances.
type EditSearcher struct {
	opts Options
}

// NewEditSearcher builds a searcher. Zero weights fall back to DefaultWeights and
// an out-of-range threshold falls back to DefaultThreshold.
func NewEditSearcher(opts Options) *EditSearcher {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Weights.total() <= 0 {
		opts.Weights = DefaultWeights()
	}
	return &EditSearcher{opts: opts}
}

// Options returns the effective configuration.
func (s *EditSearcher) Options() Options {
	return s.opts
}

// Search implements Searcher.
func (s *EditSearcher) Search(query string, corpus []models.TickerRecord, limit int) []Match {
	q := []rune(strings.ToLower(strings.TrimSpace(query)))
	if len(q) == 0 || limit <= 0 {
		return nil
	}
	if len(q) > MaxPatternRunes {
		q = q[:MaxPatternRunes]
	}

	var matches []Match
	for i := range corpus {
		if score, ok := s.scoreRecord(q, &corpus[i]); ok {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score < matches[b].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (s *EditSearcher) scoreRecord(q []rune, rec *models.TickerRecord) (float64, bool) {
	w := s.opts.Weights
	norm := w.total()

	total := 1.0
	matched := false
	apply := func(value string, weight float64) {
		if weight <= 0 || value == "" {
			return
		}
		d := distance(q, value)
		if d > s.opts.Threshold {
			return
		}
		matched = true
		total *= math.Pow(math.Max(d, epsilon), weight/norm)
	}

	apply(rec.Code, w.Code)
	apply(rec.Name, w.Name)
	apply(rec.Kana, w.Kana)
	for _, a := range rec.Aliases {
		apply(a, w.Aliases)
	}
	return total, matched
}

// distance returns 1 - the best similarity between q and any window of value.
func distance(q []rune, value string) float64 {
	v := []rune(strings.ToLower(value))
	if len(v) == 0 {
		return 1
	}

	query := string(q)
	if len(v) <= len(q) {
		return 1 - similarity(query, string(v))
	}

	best := 0.0
	for size := len(q) - 1; size <= len(q)+1; size++ {
		if size < 1 || size > len(v) {
			continue
		}
		for start := 0; start+size <= len(v); start++ {
			sim := similarity(query, string(v[start:start+size]))
			if sim > best {
				best = sim
				if best == 1 {
					return 0
				}
			}
		}
	}
	return 1 - best
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(sim)
}
