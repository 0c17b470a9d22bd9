package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/guttosm/jpticker/internal/domain/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Candidate header names per column, tried in order. JPX has renamed these
// columns over time and the English export uses different labels.
var (
	codeHeaders     = []string{"コード", "銘柄コード", "Code"}
	nameHeaders     = []string{"銘柄名", "銘柄名（漢字）", "Name"}
	marketHeaders   = []string{"市場・商品区分", "市場区分", "市場", "Market"}
	sector33Headers = []string{"33業種区分", "33業種", "Sector33"}
	sector17Headers = []string{"17業種区分", "17業種", "Sector17"}
)

// ErrMissingColumn is returned when a listing has no code or name column.
var ErrMissingColumn = errors.New("required column not found")

// columns holds the index of each picked column; -1 means absent.
type columns struct {
	code, name, market, sector33, sector17 int
}

func pickColumn(header []string, candidates []string) int {
	for _, c := range candidates {
		for i, h := range header {
			if h == c {
				return i
			}
		}
	}
	return -1
}

func resolveColumns(header []string) (columns, error) {
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\uFEFF"))
	}
	cols := columns{
		code:     pickColumn(header, codeHeaders),
		name:     pickColumn(header, nameHeaders),
		market:   pickColumn(header, marketHeaders),
		sector33: pickColumn(header, sector33Headers),
		sector17: pickColumn(header, sector17Headers),
	}
	if cols.code < 0 || cols.name < 0 {
		return cols, fmt.Errorf("%w: columns=%v", ErrMissingColumn, header)
	}
	return cols, nil
}

// decodeListing returns raw as UTF-8. A BOM marks UTF-8 explicitly; otherwise
// anything that is not valid UTF-8 is treated as Shift_JIS, which is what the
// JPX site serves.
func decodeListing(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return raw[len(utf8BOM):], nil
	}
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), japanese.ShiftJIS.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decode shift_jis: %w", err)
	}
	return out, nil
}

// rowReader yields one listing row per call and io.EOF at the end.
// *csv.Reader satisfies it; sheetRows adapts an xls worksheet.
type rowReader interface {
	Read() ([]string, error)
}

// parseListingBytes parses one listed-issues export. Excel workbooks are
// detected by their compound file signature; anything else is read as CSV.
func parseListingBytes(ctx context.Context, raw []byte) ([]models.TickerRecord, error) {
	if isWorkbook(raw) {
		return parseWorkbook(ctx, bytes.NewReader(raw))
	}
	text, err := decodeListing(raw)
	if err != nil {
		return nil, err
	}
	return parseListing(ctx, bytes.NewReader(text))
}

// parseListing turns a UTF-8 CSV listing into ticker records in file order.
func parseListing(ctx context.Context, r io.Reader) ([]models.TickerRecord, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return parseRows(ctx, cr)
}

// parseRows maps the header onto columns and converts every data row.
//
// Rows whose code is not all digits or is shorter than four characters are
// skipped (ETF and REIT sub-listings, alphanumeric codes, blank trailer rows).
func parseRows(ctx context.Context, rows rowReader) ([]models.TickerRecord, error) {
	header, err := rows.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var out []models.TickerRecord
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := rows.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++

		code := cell(rec, cols.code)
		if !isDigits(code) || len(code) < 4 {
			continue
		}
		name := cell(rec, cols.name)

		out = append(out, models.TickerRecord{
			Code:     padCode(code),
			Name:     name,
			Kana:     "",
			Aliases:  buildAliases(name),
			Market:   cell(rec, cols.market),
			Sector33: cell(rec, cols.sector33),
			Sector17: cell(rec, cols.sector17),
		})
	}
	return out, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func padCode(code string) string {
	if len(code) >= 4 {
		return code
	}
	return strings.Repeat("0", 4-len(code)) + code
}

// buildAliases derives the common spelling variants of a company name:
// the name itself, HD / HLDGS for ホールディングス, G for グループ and the
// name without corporate tokens. Empty and repeated variants are dropped.
func buildAliases(name string) []string {
	variants := []string{
		name,
		strings.ReplaceAll(name, "ホールディングス", "HD"),
		strings.ReplaceAll(name, "ホールディングス", "HLDGS"),
		strings.ReplaceAll(name, "グループ", "G"),
		strings.NewReplacer("株式会社", "", "(株)", "", "（株）", "").Replace(name),
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
