package dto

import "github.com/guttosm/jpticker/internal/domain/models"

// ResolveResponse is returned by the resolve endpoints.
//
// Best is omitted when nothing matched; Candidates is then an empty array.
type ResolveResponse struct {
	Query      string                `json:"query" example:"トヨタ"`
	Best       *models.TickerRecord  `json:"best,omitempty"`
	Candidates []models.TickerRecord `json:"candidates"`
	Selection  *models.Selection     `json:"selection,omitempty"`
}

// NewResolveResponse maps a resolver result onto the response DTO.
func NewResolveResponse(query string, r models.ResolveResult) ResolveResponse {
	candidates := r.Candidates
	if candidates == nil {
		candidates = []models.TickerRecord{}
	}
	return ResolveResponse{Query: query, Best: r.Best, Candidates: candidates}
}

// SessionResponse describes a session and its current selection.
type SessionResponse struct {
	SessionID string            `json:"session_id" example:"3f0c7d0e-8d0e-4c1a-9f61-3a2b2f0f7c11"`
	Selection *models.Selection `json:"selection,omitempty"`
}

// ResolveRequest is the body of POST /api/v1/sessions/{id}/resolve.
type ResolveRequest struct {
	Query string `json:"query" binding:"required" example:"トヨタ"`
}

// SelectRequest is the body of POST /api/v1/sessions/{id}/select.
type SelectRequest struct {
	Code string `json:"code" binding:"required" example:"7203"`
}

// AnalyzeRequest is the body of POST /api/v1/sessions/{id}/analyze.
//
// AsOf is YYYY-MM-DD or empty; Mode defaults to "B".
type AnalyzeRequest struct {
	Query string `json:"query" example:"トヨタ"`
	AsOf  string `json:"asOf" example:"2025-09-01"`
	Mode  string `json:"mode" example:"B"`
}
