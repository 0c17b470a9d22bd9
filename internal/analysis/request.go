// Package analysis assembles analysis requests and sends them to the remote endpoint.
package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// DefaultMode is used when the caller leaves the mode empty.
const DefaultMode = "B"

const asOfLayout = "2006-01-02"

var (
	// ErrNoSelection is returned when a request is assembled without a resolved ticker.
	ErrNoSelection = errors.New("no resolved ticker selected")
	// ErrInvalidAsOf is returned for an asOf value that is not YYYY-MM-DD.
	ErrInvalidAsOf = errors.New("invalid asOf, expected YYYY-MM-DD")
)

// Options carries user options forwarded verbatim.
type Options struct {
	Mode string `json:"mode"`
}

// Request is the body of POST <base>/analyze.
type Request struct {
	Query    string           `json:"query"`
	Resolved models.Selection `json:"resolved"`
	AsOf     *string          `json:"asOf"`
	Options  Options          `json:"options"`
}

// NewRequest validates the inputs and builds a Request. An empty asOf is sent
// as null and an empty mode becomes DefaultMode.
func NewRequest(query string, resolved *models.Selection, asOf, mode string) (Request, error) {
	if resolved == nil || resolved.Code == "" {
		return Request{}, ErrNoSelection
	}

	req := Request{
		Query:    query,
		Resolved: *resolved,
		Options:  Options{Mode: strings.TrimSpace(mode)},
	}
	if req.Options.Mode == "" {
		req.Options.Mode = DefaultMode
	}

	if s := strings.TrimSpace(asOf); s != "" {
		if _, err := time.Parse(asOfLayout, s); err != nil {
			return Request{}, fmt.Errorf("%w: %q", ErrInvalidAsOf, s)
		}
		req.AsOf = &s
	}
	return req, nil
}
