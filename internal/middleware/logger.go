package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/jpticker/internal/logger"
)

// RequestLogger is a Gin middleware that logs method, route, status code,
// request latency, and request ID (if available).
//
// Behavior:
//   - Captures start time before request handling.
//   - After request is processed, calculates latency.
//   - Logs the matched route template so session ids do not explode log cardinality;
//     the concrete session id is logged separately when the route has one.
//   - Requests that ended with gin errors are logged at warn level.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	request_id=123e4567-e89b-12d3-a456-426614174000 method=POST route=/api/v1/sessions/:id/resolve status=200 latency_ms=3
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		rid, _ := c.Get(RequestIDKey)

		evt := logger.L().Info()
		if len(c.Errors) > 0 {
			evt = logger.L().Warn().Str("errors", c.Errors.String())
		}
		if sid := c.Param("id"); sid != "" {
			evt = evt.Str("session_id", sid)
		}
		evt.
			Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Str("route", c.FullPath()).
			Int("status", status).
			Int64("latency_ms", latency.Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
