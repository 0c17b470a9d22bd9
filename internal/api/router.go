package api

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/jpticker/internal/middleware"
)

// RouterOptions tunes the global middlewares.
type RouterOptions struct {
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

// DefaultRouterOptions matches the config defaults. The request timeout sits
// above the analysis client timeout so the client reports its own deadline.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{RateLimitPerMinute: 60, RequestTimeout: 35 * time.Second}
}

// NewRouter creates a Gin engine with routes configured.
// It receives a Handler instance with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds a per-request timeout.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(opts.RateLimitPerMinute, time.Minute),
		middleware.Timeout(opts.RequestTimeout),
	)

	// ─── Swagger ──────────────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		v1.GET("/resolve", handler.Resolve)
		v1.GET("/tickers/:code", handler.GetTicker)

		sessions := v1.Group("/sessions")
		sessions.POST("", handler.CreateSession)
		sessions.GET("/:id", handler.GetSession)
		sessions.DELETE("/:id", handler.DeleteSession)
		sessions.POST("/:id/resolve", handler.ResolveInSession)
		sessions.POST("/:id/select", handler.SelectInSession)
		sessions.POST("/:id/analyze", handler.AnalyzeInSession)
	}

	return router
}
