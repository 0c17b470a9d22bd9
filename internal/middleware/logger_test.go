package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/jpticker/internal/logger"
)

func TestToString(t *testing.T) {
	if s := toString(nil); s != "" {
		t.Fatalf("nil -> %q, want empty", s)
	}
	if s := toString("abc"); s != "abc" {
		t.Fatalf("string -> %q, want 'abc'", s)
	}
	if s := toString(123); s != "" {
		t.Fatalf("non-string -> %q, want empty", s)
	}
}

// captureRequestLog serves one request through RequestID and RequestLogger and
// returns the decoded access log line.
func captureRequestLog(t *testing.T, register func(r *gin.Engine), req *http.Request) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_PRETTY", "false")

	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	t.Cleanup(logger.Init)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log output is not a single json line: %v (%q)", err, buf.String())
	}
	return line, w
}

func TestRequestLogger_SessionRoute(t *testing.T) {
	line, w := captureRequestLog(t, func(r *gin.Engine) {
		r.POST("/api/v1/sessions/:id/resolve", func(c *gin.Context) { c.Status(http.StatusOK) })
	}, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc-123/resolve", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	want := map[string]any{
		"level":      "info",
		"message":    "http_request",
		"method":     http.MethodPost,
		"path":       "/api/v1/sessions/abc-123/resolve",
		"route":      "/api/v1/sessions/:id/resolve",
		"session_id": "abc-123",
		"request_id": w.Header().Get(RequestIDHeader),
	}
	for k, v := range want {
		if line[k] != v {
			t.Fatalf("%s = %v, want %v (line %v)", k, line[k], v, line)
		}
	}
	if line["status"] != float64(http.StatusOK) {
		t.Fatalf("status field = %v", line["status"])
	}
	if _, ok := line["errors"]; ok {
		t.Fatalf("unexpected errors field: %v", line)
	}
}

func TestRequestLogger_ErrorsLoggedAtWarn(t *testing.T) {
	line, w := captureRequestLog(t, func(r *gin.Engine) {
		r.GET("/api/v1/sessions/:id", func(c *gin.Context) {
			_ = c.Error(errors.New("selection store unavailable"))
			c.Status(http.StatusInternalServerError)
		})
	}, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s-9", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", w.Code)
	}
	if line["level"] != "warn" {
		t.Fatalf("level = %v, want warn", line["level"])
	}
	if errs, _ := line["errors"].(string); errs == "" || !bytes.Contains([]byte(errs), []byte("selection store unavailable")) {
		t.Fatalf("errors = %v", line["errors"])
	}
	if line["session_id"] != "s-9" || line["route"] != "/api/v1/sessions/:id" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestRequestLogger_UnmatchedRoute(t *testing.T) {
	line, w := captureRequestLog(t, func(r *gin.Engine) {}, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
	if line["route"] != "" || line["path"] != "/nope" {
		t.Fatalf("unexpected line: %v", line)
	}
	if _, ok := line["session_id"]; ok {
		t.Fatalf("session_id should be absent: %v", line)
	}
}
