package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// ErrNotArray is returned when the dictionary document holds no record array.
var ErrNotArray = errors.New("ticker dictionary is not an array")

// Document is the envelope written by the dictionary builder.
type Document struct {
	GeneratedAt string                `json:"generatedAt"`
	Source      string                `json:"source"`
	Data        []models.TickerRecord `json:"data"`
}

// Decode parses a dictionary document. Both a bare JSON array of records and
// the builder's {generatedAt, source, data} envelope are accepted.
func Decode(raw []byte) ([]models.TickerRecord, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("ticker dictionary is not valid JSON")
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		data := doc.Get("data")
		if !doc.IsObject() || !data.IsArray() {
			return nil, ErrNotArray
		}
		doc = data
	}

	var records []models.TickerRecord
	if err := json.Unmarshal([]byte(doc.Raw), &records); err != nil {
		return nil, fmt.Errorf("decode ticker records: %w", err)
	}
	if records == nil {
		records = []models.TickerRecord{}
	}
	return records, nil
}
