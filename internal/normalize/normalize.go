// Package normalize folds noisy Japanese ticker queries into a canonical form.
package normalize

import (
	"strings"
	"unicode"
)

// Full-width ASCII block: U+FF01..U+FF5E maps onto U+0021..U+007E.
const fullWidthOffset = 0xFEE0

// corporateTokens are removed in this order after width folding.
var corporateTokens = []string{"株式会社", "(株)", "（株）"}

// Normalize trims raw, folds full-width Latin letters and digits to
// half-width, strips corporate-entity notations and drops whitespace and
// connector punctuation (・ - _ /).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.Map(foldWidth, s)

	for _, tok := range corporateTokens {
		s = strings.ReplaceAll(s, tok, "")
	}

	return strings.Map(func(r rune) rune {
		if isSeparator(r) {
			return -1
		}
		return r
	}, s)
}

func foldWidth(r rune) rune {
	switch {
	case r >= 'Ａ' && r <= 'Ｚ', r >= 'ａ' && r <= 'ｚ', r >= '０' && r <= '９':
		return r - fullWidthOffset
	}
	return r
}

func isSeparator(r rune) bool {
	switch r {
	case '・', '-', '_', '/', '\uFEFF':
		return true
	}
	return unicode.IsSpace(r)
}

// IsLikelyCode reports whether q is exactly four ASCII digits.
// q is expected to be normalized already; the check is a branch selector,
// not a ticker validator.
func IsLikelyCode(q string) bool {
	if len(q) != 4 {
		return false
	}
	for i := 0; i < len(q); i++ {
		if q[i] < '0' || q[i] > '9' {
			return false
		}
	}
	return true
}
