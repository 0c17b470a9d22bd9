// Package resolver maps a free-form Japanese query onto ticker records.
package resolver

import (
	"github.com/guttosm/jpticker/internal/dictionary"
	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/fuzzy"
	"github.com/guttosm/jpticker/internal/normalize"
)

// DefaultMaxCandidates caps the fuzzy candidate list. Larger configured caps
// are clamped to it.
const DefaultMaxCandidates = 8

// Resolver holds only immutable collaborators, so Resolve is a pure function
// of its input and safe for concurrent use.
type Resolver struct {
	store         *dictionary.Store
	searcher      fuzzy.Searcher
	maxCandidates int
}

// New builds a Resolver. maxCandidates outside 1..DefaultMaxCandidates uses
// DefaultMaxCandidates.
func New(store *dictionary.Store, searcher fuzzy.Searcher, maxCandidates int) *Resolver {
	if maxCandidates <= 0 || maxCandidates > DefaultMaxCandidates {
		maxCandidates = DefaultMaxCandidates
	}
	return &Resolver{store: store, searcher: searcher, maxCandidates: maxCandidates}
}

// Store returns the dictionary the resolver reads from.
func (r *Resolver) Store() *dictionary.Store {
	return r.store
}

// Resolve runs, in order: exact code (code-like queries), exact normalized
// name, exact normalized alias, and finally fuzzy search. The first step that
// yields a record wins.
//
// Code-like queries are fuzzy-searched in normalized form; name-like queries
// use the raw input, leaving folding to the searcher.
func (r *Resolver) Resolve(queryRaw string) models.ResolveResult {
	q := normalize.Normalize(queryRaw)
	if q == "" {
		return models.ResolveResult{Candidates: []models.TickerRecord{}}
	}

	if normalize.IsLikelyCode(q) {
		if rec, ok := r.store.ByCode(q); ok {
			return single(rec)
		}
		return r.search(q)
	}

	if rec, ok := r.store.ByNormalizedName(q); ok {
		return single(rec)
	}
	if rec, ok := r.store.ByNormalizedAlias(q); ok {
		return single(rec)
	}
	return r.search(queryRaw)
}

func (r *Resolver) search(query string) models.ResolveResult {
	corpus := r.store.Records()
	matches := r.searcher.Search(query, corpus, r.maxCandidates)
	if len(matches) > r.maxCandidates {
		matches = matches[:r.maxCandidates]
	}

	candidates := make([]models.TickerRecord, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, corpus[m.Index])
	}

	res := models.ResolveResult{Candidates: candidates}
	if len(candidates) > 0 {
		best := candidates[0]
		res.Best = &best
	}
	return res
}

func single(rec models.TickerRecord) models.ResolveResult {
	return models.ResolveResult{Best: &rec, Candidates: []models.TickerRecord{rec}}
}
