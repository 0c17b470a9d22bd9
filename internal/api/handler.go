package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/jpticker/internal/analysis"
	"github.com/guttosm/jpticker/internal/domain/dto"
	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/middleware"
	"github.com/guttosm/jpticker/internal/service"
	"github.com/guttosm/jpticker/internal/session"
)

// Handler provides HTTP handlers for ticker resolution and session actions.
//
// Responsibilities:
//   - Validate incoming query parameters and JSON bodies
//   - Delegate to the ticker service
//   - Translate domain errors into ErrorResponse bodies with matching status codes
type Handler struct {
	svc service.TickerService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.TickerService) *Handler {
	return &Handler{svc: svc}
}

// Resolve godoc
// @Summary      Resolve a ticker query
// @Description  Maps a company name, alias or 4-digit code onto ranked ticker candidates. Stateless.
// @Tags         tickers
// @Produce      json
// @Param        q    query     string  true  "Company name, alias or code" example(トヨタ)
// @Success      200  {object}  dto.ResolveResponse  "Success (candidates may be empty)"
// @Failure      400  {object}  dto.ErrorResponse    "Bad Request"
// @Router       /api/v1/resolve [get]
func (h *Handler) Resolve(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("q is required", nil))
		return
	}
	c.JSON(http.StatusOK, dto.NewResolveResponse(q, h.svc.Resolve(q)))
}

// GetTicker godoc
// @Summary      Get a ticker by code
// @Tags         tickers
// @Produce      json
// @Param        code  path      string  true  "4-digit code" example(7203)
// @Success      200   {object}  models.TickerRecord
// @Failure      404   {object}  dto.ErrorResponse  "Not Found"
// @Router       /api/v1/tickers/{code} [get]
func (h *Handler) GetTicker(c *gin.Context) {
	rec, err := h.svc.Lookup(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateSession godoc
// @Summary      Start a session
// @Description  A session holds one confirmed ticker selection.
// @Tags         sessions
// @Produce      json
// @Success      201  {object}  dto.SessionResponse
// @Router       /api/v1/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, dto.SessionResponse{SessionID: h.svc.CreateSession()})
}

// GetSession godoc
// @Summary      Get the current selection
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  dto.SessionResponse
// @Failure      404  {object}  dto.ErrorResponse  "Not Found"
// @Router       /api/v1/sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	id := c.Param("id")
	sel, err := h.svc.Selection(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{SessionID: id, Selection: sel})
}

// DeleteSession godoc
// @Summary      Discard a session
// @Tags         sessions
// @Param        id   path  string  true  "Session id"
// @Success      204
// @Router       /api/v1/sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	h.svc.CloseSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// ResolveInSession godoc
// @Summary      Resolve and select
// @Description  Resolves the query and stores the best match as the session selection.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Session id"
// @Param        body  body      dto.ResolveRequest  true  "Query"
// @Success      200   {object}  dto.ResolveResponse
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse  "No candidates or unknown session"
// @Router       /api/v1/sessions/{id}/resolve [post]
func (h *Handler) ResolveInSession(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.svc.ResolveInSession(c.Param("id"), req.Query)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.NewResolveResponse(req.Query, res)
	sel := models.SelectionOf(*res.Best)
	resp.Selection = &sel
	c.JSON(http.StatusOK, resp)
}

// SelectInSession godoc
// @Summary      Select a candidate
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Session id"
// @Param        body  body      dto.SelectRequest  true  "Candidate code"
// @Success      200   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse  "Not Found"
// @Router       /api/v1/sessions/{id}/select [post]
func (h *Handler) SelectInSession(c *gin.Context) {
	var req dto.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	id := c.Param("id")
	sel, err := h.svc.SelectInSession(id, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{SessionID: id, Selection: &sel})
}

// AnalyzeInSession godoc
// @Summary      Run an analysis
// @Description  Sends the session selection (or the best match for the query) to the analysis API and returns its JSON verbatim.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Session id"
// @Param        body  body      dto.AnalyzeRequest  true  "Analysis input"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse  "Not Found"
// @Failure      502   {object}  dto.ErrorResponse  "Analysis API error"
// @Failure      503   {object}  dto.ErrorResponse  "Analysis API not configured"
// @Router       /api/v1/sessions/{id}/analyze [post]
func (h *Handler) AnalyzeInSession(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	out, err := h.svc.AnalyzeInSession(c.Request.Context(), c.Param("id"), session.AnalyzeInput{
		Query: req.Query,
		AsOf:  req.AsOf,
		Mode:  req.Mode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		notFound *session.NotFoundError
		apiErr   *analysis.APIError
		netErr   *analysis.NetworkError
	)
	switch {
	case errors.Is(err, session.ErrEmptyQuery),
		errors.Is(err, analysis.ErrInvalidAsOf),
		errors.Is(err, analysis.ErrNoSelection):
		return http.StatusBadRequest
	case errors.As(err, &notFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr), errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.Is(err, analysis.ErrMissingBaseURL):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, dto.NewErrorResponse(err.Error(), nil))
}
