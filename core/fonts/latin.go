package fonts

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	fullwidth = NewRangeMapper(0x21, 0x7E, 0xFF01, nil)

	smallCaps = NewMapper("abcdefghijklmnopqrstuvwxyz", []string{
		"ᴀ", "ʙ", "ᴄ", "ᴅ", "ᴇ", "ꜰ", "ɢ", "ʜ", "ɪ", "ᴊ", "ᴋ", "ʟ", "ᴍ",
		"ɴ", "ᴏ", "ᴘ", "ǫ", "ʀ", "s", "ᴛ", "ᴜ", "ᴠ", "ᴡ", "x", "ʏ", "ᴢ",
	}).Folding(unicode.ToLower)

	circled = NewRangeMapper('a', 'z', 0x24D0, nil).Folding(unicode.ToLower)

	mathBold = NewRangeMapper('A', 'Z', 0x1D400, nil).
			With('a', 'z', 0x1D41A, nil)

	mathItalic = NewRangeMapper('A', 'Z', 0x1D434, nil).
			With('a', 'z', 0x1D44E, map[rune]rune{'h': 0x210E})

	doubleStruck = NewRangeMapper('A', 'Z', 0x1D538, map[rune]rune{
		'C': 0x2102, 'H': 0x210D, 'N': 0x2115, 'P': 0x2119,
		'Q': 0x211A, 'R': 0x211D, 'Z': 0x2124,
	}).With('a', 'z', 0x1D552, nil)

	monospace = NewRangeMapper('a', 'z', 0x1D68A, nil).
			With('0', '9', 0x1D7F6, nil)
)

// latinStyles are whole-string restylings, in catalog order.
var latinStyles = []func(string) string{
	func(s string) string { return s },
	func(s string) string { return cases.Upper(language.Und).String(s) },
	lower,
	func(s string) string { return cases.Title(language.Und).String(s) },
	swapCase,
	func(s string) string { return joinRunes(s, " ") },
	func(s string) string { return joinRunes(s, "  ") },
	fullwidth.Apply,
	smallCaps.Apply,
	mathBold.Apply,
	mathItalic.Apply,
	doubleStruck.Apply,
	circled.Apply,
	func(s string) string { return monospace.Apply(lower(s)) },
	alternatingCase,
	func(s string) string { return joinRunes(smallCaps.Apply(s), " ") },
	doubledRunes,
}

var latinJoins = []string{"·", "-", "_", "|", "•"}

var latinWraps = [][2]string{
	{"★ ", " ★"},
	{"[", "]"},
	{"〖", "〗"},
	{"꧁", "꧂"},
	{"✿", "✿"},
	{"◦", "◦"},
}

func latinVariants(text string, c *collector) {
	for _, style := range latinStyles {
		if !c.add(style(text)) {
			return
		}
	}
	for _, sep := range latinJoins {
		if !c.add(joinRunes(text, sep)) {
			return
		}
	}
	for _, w := range latinWraps {
		if !c.add(w[0] + text + w[1]) {
			return
		}
	}
	// Stepping both tables together visits every join/wrap pair once
	// because their lengths are coprime.
	pairs := len(latinJoins) * len(latinWraps)
	for i := 0; i < pairs; i++ {
		w := latinWraps[i%len(latinWraps)]
		if !c.add(w[0] + joinRunes(text, latinJoins[i%len(latinJoins)]) + w[1]) {
			return
		}
	}
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}

func alternatingCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for _, r := range s {
		if i%2 == 0 {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		i++
	}
	return b.String()
}

func doubledRunes(s string) string {
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, string([]rune{r, r}))
	}
	return strings.Join(parts, " ")
}

func joinRunes(s, sep string) string {
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, sep)
}
