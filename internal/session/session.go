// Package session owns a user's confirmed ticker selection and drives the
// resolve / select / analyze actions against it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/guttosm/jpticker/internal/analysis"
	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/logger"
)

// ErrEmptyQuery is returned when an action needs a query and none was given.
var ErrEmptyQuery = errors.New("ticker query is empty")

// NotFoundError means the query produced no candidate. The user can retry
// with another query.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no ticker candidates found for %q", e.Query)
}

// Resolver is the part of resolver.Resolver a session needs.
type Resolver interface {
	Resolve(queryRaw string) models.ResolveResult
}

// CodeLookup finds a dictionary record by code; used for explicit selection.
type CodeLookup interface {
	ByCode(code string) (models.TickerRecord, bool)
}

// Analyzer sends an assembled analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (json.RawMessage, error)
}

// Session holds one selection slot. Methods are safe for concurrent use; the
// lock is never held across the analysis round trip.
type Session struct {
	id       string
	resolver Resolver
	lookup   CodeLookup
	analyzer Analyzer

	mu        sync.Mutex
	selection *models.Selection
	lastUsed  time.Time
}

// New builds an empty session.
func New(id string, resolver Resolver, lookup CodeLookup, analyzer Analyzer) *Session {
	return &Session{
		id:       id,
		resolver: resolver,
		lookup:   lookup,
		analyzer: analyzer,
		lastUsed: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() (models.Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	if s.selection == nil {
		return models.Selection{}, false
	}
	return *s.selection, true
}

// Resolve runs the resolver and overwrites the selection with the best
// match. When nothing matches the selection is cleared and a *NotFoundError
// is returned together with the (empty) result.
func (s *Session) Resolve(query string) (models.ResolveResult, error) {
	res := s.resolver.Resolve(query)

	s.mu.Lock()
	s.lastUsed = time.Now()
	if res.Best == nil {
		s.selection = nil
	} else {
		sel := models.SelectionOf(*res.Best)
		s.selection = &sel
	}
	s.mu.Unlock()

	if res.Best == nil {
		logger.L().Info().Str("session_id", s.id).Str("query", query).Msg("no ticker candidates")
		return res, &NotFoundError{Query: query}
	}
	logger.L().Debug().
		Str("session_id", s.id).
		Str("query", query).
		Str("code", res.Best.Code).
		Int("candidates", len(res.Candidates)).
		Msg("ticker resolved")
	return res, nil
}

// Select confirms the record with the given code, as when a user picks a
// candidate.
func (s *Session) Select(code string) (models.Selection, error) {
	code = strings.TrimSpace(code)
	rec, ok := s.lookup.ByCode(code)
	if !ok {
		return models.Selection{}, &NotFoundError{Query: code}
	}

	sel := models.SelectionOf(rec)
	s.mu.Lock()
	s.selection = &sel
	s.lastUsed = time.Now()
	s.mu.Unlock()
	return sel, nil
}

// AnalyzeInput is what the user submits with an analysis request.
type AnalyzeInput struct {
	Query string
	AsOf  string
	Mode  string
}

// Analyze sends the current selection to the analysis endpoint. Without a
// selection the query is resolved first and its best match is accepted.
func (s *Session) Analyze(ctx context.Context, in AnalyzeInput) (json.RawMessage, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, ErrEmptyQuery
	}

	sel, ok := s.Selection()
	if !ok {
		res, err := s.Resolve(in.Query)
		if err != nil {
			return nil, err
		}
		sel = models.SelectionOf(*res.Best)
	}

	req, err := analysis.NewRequest(in.Query, &sel, in.AsOf, in.Mode)
	if err != nil {
		return nil, err
	}

	logger.L().Info().
		Str("session_id", s.id).
		Str("code", sel.Code).
		Str("mode", req.Options.Mode).
		Msg("sending analysis request")
	return s.analyzer.Analyze(ctx, req)
}

// idleSince reports how long the session has been unused.
func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}
