// Package dictionary holds the immutable ticker dictionary and the sources it is loaded from.
package dictionary

import (
	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/normalize"
)

// Store is an ordered, read-only ticker dictionary with exact-match indexes.
//
// Codes are not required to be unique; every index keeps the first record in
// dictionary order. A Store is safe for concurrent use.
type Store struct {
	records []models.TickerRecord
	byCode  map[string]int
	byName  map[string]int
	byAlias map[string]int
}

// NewStore copies records and indexes them by code, normalized name and
// normalized alias.
func NewStore(records []models.TickerRecord) *Store {
	s := &Store{
		records: make([]models.TickerRecord, len(records)),
		byCode:  make(map[string]int, len(records)),
		byName:  make(map[string]int, len(records)),
		byAlias: make(map[string]int),
	}
	for i, r := range records {
		r.Aliases = append([]string(nil), r.Aliases...)
		s.records[i] = r

		putFirst(s.byCode, r.Code, i)
		putFirst(s.byName, normalize.Normalize(r.Name), i)
		for _, a := range r.Aliases {
			putFirst(s.byAlias, normalize.Normalize(a), i)
		}
	}
	return s
}

func putFirst(idx map[string]int, key string, i int) {
	if key == "" {
		return
	}
	if _, ok := idx[key]; !ok {
		idx[key] = i
	}
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records exposes the records in dictionary order. Callers must not modify them.
func (s *Store) Records() []models.TickerRecord {
	return s.records
}

// ByCode returns the first record whose code equals code.
func (s *Store) ByCode(code string) (models.TickerRecord, bool) {
	return s.lookup(s.byCode, code)
}

// ByNormalizedName returns the first record whose normalized name equals q.
func (s *Store) ByNormalizedName(q string) (models.TickerRecord, bool) {
	return s.lookup(s.byName, q)
}

// ByNormalizedAlias returns the first record owning an alias that normalizes to q.
func (s *Store) ByNormalizedAlias(q string) (models.TickerRecord, bool) {
	return s.lookup(s.byAlias, q)
}

func (s *Store) lookup(idx map[string]int, key string) (models.TickerRecord, bool) {
	i, ok := idx[key]
	if !ok {
		return models.TickerRecord{}, false
	}
	return s.records[i], true
}
