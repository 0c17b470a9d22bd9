package dictionary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/logger"
	"github.com/guttosm/jpticker/internal/storage"
)

// maxDocumentSize caps how much of a remote dictionary is read.
const maxDocumentSize = 64 << 20

// Source yields the raw dictionary records. It is read once at startup.
type Source interface {
	Load(ctx context.Context) ([]models.TickerRecord, error)
	String() string
}

// LoadError reports a dictionary that could not be fetched or parsed.
// It is fatal: nothing can be resolved without a dictionary.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load ticker dictionary from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Open loads src and builds the Store. Every failure is returned as *LoadError.
func Open(ctx context.Context, src Source) (*Store, error) {
	start := time.Now()
	records, err := src.Load(ctx)
	if err != nil {
		return nil, &LoadError{Source: src.String(), Err: err}
	}

	store := NewStore(records)
	logger.L().Info().
		Str("source", src.String()).
		Int("records", store.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("ticker dictionary loaded")
	return store, nil
}

// FileSource reads a dictionary document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) String() string { return "file:" + s.Path }

// Load implements Source.
func (s FileSource) Load(_ context.Context) ([]models.TickerRecord, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Decode(raw)
}

// HTTPSource fetches a dictionary document with a single GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) String() string { return s.URL }

// Load implements Source. Any non-2xx status is an error.
func (s HTTPSource) Load(ctx context.Context) ([]models.TickerRecord, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Decode(raw)
}

// PostgresSource reads the dictionary from the tickers table.
type PostgresSource struct {
	Repo storage.TickerRepository
}

func (s PostgresSource) String() string { return "postgres:tickers" }

// Load implements Source.
func (s PostgresSource) Load(ctx context.Context) ([]models.TickerRecord, error) {
	return s.Repo.ListTickers(ctx)
}
