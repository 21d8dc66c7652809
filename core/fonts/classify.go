// Package fonts renders text into deterministic catalogs of stylistic variants.
package fonts

import (
	"strings"
	"unicode"
)

// Category is the script class that selects a variant catalog.
type Category int

const (
	// Latin is the default category for any text that is neither numeric nor Persian.
	Latin Category = iota
	// Persian covers text containing Persian/Arabic script.
	Persian
	// Numeric covers text made only of decimal digits.
	Numeric
)

func (c Category) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Persian:
		return "persian"
	default:
		return "latin"
	}
}

var persianRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
	},
}

// Classify picks the catalog for text. Digits win over Persian, Persian wins
// over everything else, including embedded Latin letters.
func Classify(text string) Category {
	if isNumber(strings.TrimSpace(text)) {
		return Numeric
	}
	if containsPersian(text) {
		return Persian
	}
	return Latin
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if _, ok := digitValue(r); !ok {
			return false
		}
	}
	return true
}

func containsPersian(s string) bool {
	return strings.IndexFunc(s, isPersianRune) >= 0
}

func isPersianRune(r rune) bool {
	return unicode.Is(persianRanges, r)
}

// digitValue returns the value of ASCII, Arabic-Indic and Persian digits.
func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 0x0660 && r <= 0x0669:
		return int(r - 0x0660), true
	case r >= 0x06F0 && r <= 0x06F9:
		return int(r - 0x06F0), true
	}
	return 0, false
}
