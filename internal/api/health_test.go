package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := func() error { return nil }
	fail := func() error { return assertErr{} }

	cases := []struct {
		name   string
		checks map[string]ReadinessCheck
		path   string
		want   int
		body   string
	}{
		{name: "healthz ok", checks: map[string]ReadinessCheck{"postgres": fail}, path: "/healthz", want: 200},
		{name: "readyz no checks", checks: nil, path: "/readyz", want: 200},
		{name: "readyz ok", checks: map[string]ReadinessCheck{"dictionary": ok, "postgres": ok}, path: "/readyz", want: 200},
		{name: "readyz degraded", checks: map[string]ReadinessCheck{"dictionary": ok, "postgres": fail}, path: "/readyz", want: 503, body: `"postgres":"err"`},
		{name: "nil check ignored", checks: map[string]ReadinessCheck{"postgres": nil}, path: "/readyz", want: 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			NewHealthHandler(tc.checks).Register(r)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("want %d got %d", tc.want, w.Code)
			}
			if tc.body != "" && !strings.Contains(w.Body.String(), tc.body) {
				t.Fatalf("body %s missing %s", w.Body.String(), tc.body)
			}
		})
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "err" }
