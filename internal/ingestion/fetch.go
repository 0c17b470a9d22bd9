package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/logger"
)

// DefaultJPXURL is the JPX "listed issues" workbook. JPX occasionally moves
// it; pass the new location with --in.
const DefaultJPXURL = "https://www.jpx.co.jp/markets/statistics-equities/misc/tvdivq0000001vg2-att/data_j.xls"

// maxDownloadBytes bounds a single listing download.
const maxDownloadBytes = 64 << 20

// httpClient is an indirection for downloads; tests can override this.
var httpClient = &http.Client{Timeout: 60 * time.Second}

func isRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// readInput returns the raw bytes of a local file or an http(s) URL.
func readInput(ctx context.Context, input string) ([]byte, error) {
	if !isRemote(input) {
		raw, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
		return raw, nil
	}
	return download(ctx, input)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if len(raw) > maxDownloadBytes {
		return nil, fmt.Errorf("download: body exceeds %d bytes", maxDownloadBytes)
	}

	logger.L().Info().Str("url", url).Int("bytes", len(raw)).Dur("elapsed", time.Since(start)).Msg("listing downloaded")
	return raw, nil
}

// parseInput reads and parses one input, local or remote, CSV or xls.
func parseInput(ctx context.Context, input string) ([]models.TickerRecord, error) {
	raw, err := readInput(ctx, input)
	if err != nil {
		return nil, err
	}
	return parseListingBytes(ctx, raw)
}
