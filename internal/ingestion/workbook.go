package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/extrame/xls"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// compoundFileMagic opens every legacy .xls workbook (OLE2 compound file).
var compoundFileMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrNoWorksheet is returned for a workbook without a readable first sheet.
var ErrNoWorksheet = errors.New("workbook has no worksheet")

func isWorkbook(raw []byte) bool {
	return bytes.HasPrefix(raw, compoundFileMagic)
}

// parseWorkbook reads the first worksheet of a JPX data_j.xls export.
func parseWorkbook(ctx context.Context, rs io.ReadSeeker) ([]models.TickerRecord, error) {
	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	// OpenReader reports a compound file without a Workbook stream as (nil, nil).
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoWorksheet
	}
	return parseRows(ctx, &sheetRows{sheet: sheet})
}

// sheetRows walks a worksheet top to bottom. Rows the file does not store
// are skipped.
type sheetRows struct {
	sheet *xls.WorkSheet
	next  int
}

func (s *sheetRows) Read() ([]string, error) {
	for s.next <= int(s.sheet.MaxRow) {
		row := s.sheet.Row(s.next)
		s.next++
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol())
		for i := range cells {
			cells[i] = row.Col(i)
		}
		return cells, nil
	}
	return nil, io.EOF
}
