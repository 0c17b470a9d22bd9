package models

// TickerRecord is one entry of the ticker dictionary.
//
// Fields:
//   - Code: canonical identifier, usually four digits (e.g., "7203").
//   - Name: official display name (e.g., "トヨタ自動車").
//   - Kana: optional phonetic reading, only used as a fuzzy key.
//   - Aliases: alternate names and abbreviations, in dictionary order.
//   - Market, Sector33, Sector17: descriptive JPX classification, never matched on.
//
// Records are immutable once a dictionary is loaded.
//
// swagger:model TickerRecord
type TickerRecord struct {
	Code     string   `json:"code" example:"7203"`
	Name     string   `json:"name" example:"トヨタ自動車"`
	Kana     string   `json:"kana,omitempty" example:"トヨタジドウシャ"`
	Aliases  []string `json:"aliases,omitempty"`
	Market   string   `json:"market,omitempty" example:"プライム（内国株式）"`
	Sector33 string   `json:"sector33,omitempty" example:"輸送用機器"`
	Sector17 string   `json:"sector17,omitempty" example:"自動車・輸送機"`
}

// Selection is the {code, name} pair a user confirmed.
type Selection struct {
	Code string `json:"code" example:"7203"`
	Name string `json:"name" example:"トヨタ自動車"`
}

// SelectionOf projects a record onto the selection shape.
func SelectionOf(r TickerRecord) Selection {
	return Selection{Code: r.Code, Name: r.Name}
}

// ResolveResult is the outcome of resolving one query.
//
// Best, when set, is always Candidates[0].
type ResolveResult struct {
	Best       *TickerRecord
	Candidates []TickerRecord
}

// Found reports whether a best match exists.
func (r ResolveResult) Found() bool {
	return r.Best != nil
}
