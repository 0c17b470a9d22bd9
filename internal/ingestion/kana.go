package ingestion

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// KanaReader produces the katakana reading of a company name.
type KanaReader interface {
	Reading(name string) string
}

type kagomeReader struct {
	t *tokenizer.Tokenizer
}

// NewKagomeReader builds a KanaReader over the IPA dictionary.
// Loading the dictionary takes a moment; build one reader per run.
func NewKagomeReader() (KanaReader, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome tokenizer: %w", err)
	}
	return &kagomeReader{t: t}, nil
}

// Reading joins the token readings. Tokens without one (latin letters,
// unknown words) keep their surface form.
func (r *kagomeReader) Reading(name string) string {
	var b strings.Builder
	for _, tok := range r.t.Tokenize(name) {
		if reading, ok := tok.Reading(); ok && reading != "" && reading != "*" {
			b.WriteString(reading)
			continue
		}
		b.WriteString(tok.Surface)
	}
	return b.String()
}

// FillKana sets Kana on every record that has none. It returns the number
// of records changed.
func FillKana(records []models.TickerRecord, reader KanaReader) int {
	n := 0
	for i := range records {
		if records[i].Kana != "" || records[i].Name == "" {
			continue
		}
		if k := reader.Reading(records[i].Name); k != "" && k != records[i].Name {
			records[i].Kana = k
			n++
		}
	}
	return n
}
