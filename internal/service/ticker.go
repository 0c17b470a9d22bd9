package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/session"
)

var (
	// ErrTickerNotFound is returned by Lookup for an unknown code.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrSessionNotFound is returned for an unknown or evicted session id.
	ErrSessionNotFound = errors.New("session not found")
)

// Resolver maps a free-form query to ranked candidates.
type Resolver interface {
	Resolve(queryRaw string) models.ResolveResult
}

// Dictionary is the read side of the ticker store.
type Dictionary interface {
	ByCode(code string) (models.TickerRecord, bool)
}

// TickerService defines the use cases exposed to the HTTP layer.
// This decouples handlers from the resolver, the dictionary and session bookkeeping.
type TickerService interface {
	Resolve(query string) models.ResolveResult
	Lookup(code string) (models.TickerRecord, error)

	CreateSession() string
	CloseSession(id string)
	Selection(id string) (*models.Selection, error)
	ResolveInSession(id, query string) (models.ResolveResult, error)
	SelectInSession(id, code string) (models.Selection, error)
	AnalyzeInSession(ctx context.Context, id string, in session.AnalyzeInput) (json.RawMessage, error)
}

type tickerService struct {
	resolver Resolver
	dict     Dictionary
	sessions *session.Registry
}

// NewTickerService wires the resolver, the dictionary and the session registry.
func NewTickerService(resolver Resolver, dict Dictionary, sessions *session.Registry) TickerService {
	return &tickerService{resolver: resolver, dict: dict, sessions: sessions}
}

func (s *tickerService) Resolve(query string) models.ResolveResult {
	return s.resolver.Resolve(query)
}

func (s *tickerService) Lookup(code string) (models.TickerRecord, error) {
	rec, ok := s.dict.ByCode(strings.TrimSpace(code))
	if !ok {
		return models.TickerRecord{}, ErrTickerNotFound
	}
	return rec, nil
}

func (s *tickerService) CreateSession() string {
	return s.sessions.Create().ID()
}

func (s *tickerService) CloseSession(id string) {
	s.sessions.Delete(id)
}

func (s *tickerService) Selection(id string) (*models.Selection, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sel, ok := sess.Selection()
	if !ok {
		return nil, nil
	}
	return &sel, nil
}

func (s *tickerService) ResolveInSession(id, query string) (models.ResolveResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return models.ResolveResult{}, err
	}
	return sess.Resolve(query)
}

func (s *tickerService) SelectInSession(id, code string) (models.Selection, error) {
	sess, err := s.session(id)
	if err != nil {
		return models.Selection{}, err
	}
	return sess.Select(code)
}

func (s *tickerService) AnalyzeInSession(ctx context.Context, id string, in session.AnalyzeInput) (json.RawMessage, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Analyze(ctx, in)
}

func (s *tickerService) session(id string) (*session.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
