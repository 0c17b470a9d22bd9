// Package ingestion builds the ticker dictionary from JPX listed-issues exports
// (the data_j.xls workbook or a CSV export), read from disk or downloaded.
package ingestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/jpticker/internal/dictionary"
	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/logger"
	"github.com/guttosm/jpticker/internal/storage"
)

// DefaultSource is recorded in the document envelope.
const DefaultSource = "JPX TSE listed issues"

const maxParallel = 4

// ErrNoInputs is returned when BuildDictionary is called without inputs.
var ErrNoInputs = errors.New("no input files")

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(db *sql.DB) storage.TickerRepository {
	return storage.NewTickerRepository(db)
}

// BuildDictionary parses every input and merges the records. An input is a
// local path or an http(s) URL; each holds an xls workbook or a CSV export.
//
// Behavior:
//   - Inputs are fetched and parsed concurrently, at most min(parallel, 4) at a time
//     (NumCPU when parallel <= 0).
//   - If any file fails, the rest are cancelled and that error is returned.
//   - Records are merged in input order; the first occurrence of a code wins.
//   - The result is sorted by code so regenerated dictionaries diff cleanly.
func BuildDictionary(ctx context.Context, paths []string, parallel int) ([]models.TickerRecord, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	limit := maxParallel
	if parallel > 0 {
		if parallel < limit {
			limit = parallel
		}
	} else if c := runtime.NumCPU(); c < limit {
		limit = c
	}

	logger.L().Info().Int("files", len(paths)).Int("max_parallel", limit).Msg("dictionary build start")

	results := make([][]models.TickerRecord, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			start := time.Now()
			base := filepath.Base(path)
			recs, err := parseInput(gctx, path)
			if err != nil {
				logger.L().Error().Str("file", base).Dur("elapsed", time.Since(start)).Err(err).Msg("file failed")
				return fmt.Errorf("file %s: %w", path, err)
			}
			results[i] = recs
			logger.L().Info().Int("idx", i+1).Int("total", len(paths)).Str("file", base).Int("rows", len(recs)).Dur("elapsed", time.Since(start)).Msg("file done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge(results)
	logger.L().Info().Int("tickers", len(merged)).Msg("dictionary build done")
	return merged, nil
}

func merge(results [][]models.TickerRecord) []models.TickerRecord {
	seen := make(map[string]struct{})
	out := make([]models.TickerRecord, 0)
	for _, recs := range results {
		for _, r := range recs {
			if _, dup := seen[r.Code]; dup {
				continue
			}
			seen[r.Code] = struct{}{}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// NewDocument wraps records in the envelope the dictionary loader accepts.
func NewDocument(records []models.TickerRecord, source string, now time.Time) dictionary.Document {
	if source == "" {
		source = DefaultSource
	}
	if records == nil {
		records = []models.TickerRecord{}
	}
	return dictionary.Document{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Source:      source,
		Data:        records,
	}
}

// WriteDocument writes doc as indented UTF-8 JSON, creating parent directories.
func WriteDocument(path string, doc dictionary.Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode dictionary: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	logger.L().Info().Str("path", path).Int("tickers", len(doc.Data)).Msg("dictionary written")
	return nil
}

// Publish replaces the tickers table with records.
func Publish(ctx context.Context, db *sql.DB, records []models.TickerRecord) error {
	repo := repoCtor(db)
	if err := repo.ReplaceTickers(ctx, records); err != nil {
		return fmt.Errorf("publish tickers: %w", err)
	}
	logger.L().Info().Int("tickers", len(records)).Msg("dictionary published")
	return nil
}
