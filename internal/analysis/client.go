package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/guttosm/jpticker/internal/logger"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
)

// ErrMissingBaseURL is returned at send time when no endpoint is configured.
var ErrMissingBaseURL = errors.New("analysis API base URL is not configured (set ANALYSIS_API_BASE_URL)")

// APIError is a non-2xx answer from the analysis endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return "analysis API error: " + e.Message
}

// NetworkError is a transport failure before any response was read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("analysis API unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client sends analysis requests. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client. A trailing slash on baseURL is dropped and a
// non-positive timeout uses a 30s default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Analyze posts req to <base>/analyze and returns the response body.
// A JSON body is returned as-is; anything else is wrapped as {"raw": text}.
func (c *Client) Analyze(ctx context.Context, req Request) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrMissingBaseURL
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	body := asJSON(raw)

	logger.L().Debug().
		Str("code", req.Resolved.Code).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("analysis response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.StatusCode),
			Body:       body,
		}
	}
	return body, nil
}

// asJSON keeps valid JSON and wraps anything else as {"raw": text}.
func asJSON(raw []byte) json.RawMessage {
	if len(bytes.TrimSpace(raw)) > 0 && gjson.ValidBytes(raw) {
		return json.RawMessage(raw)
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": string(raw)})
	return wrapped
}

// errorMessage prefers a truthy "message" field and falls back to the status.
func errorMessage(body json.RawMessage, status int) string {
	m := gjson.GetBytes(body, "message")
	if truthy(m) {
		return m.String()
	}
	return fmt.Sprintf("HTTP %d", status)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
