package fonts

import "strings"

const (
	tatweel = "\u0640"
	zwnj    = "\u200c"
	zwj     = "\u200d"
	fatha   = "\u064e"
	kasra   = "\u0650"

	// shadda, fatha, kasra, sukun, hamza above
	diacriticStack = "\u0651\u064e\u0650\u0652\u0654"
)

var persianWraps = [][2]string{
	{"『", "』"},
	{"【", "】"},
	{"★", "★"},
	{"✿", "✿"},
	{"꧁", "꧂"},
	{"◦", "◦"},
}

var persianOrnaments = []string{
	"༺", "༻", "✦", "✶", "❂", "❄", "✿", "꧁", "꧂", "『", "』", "【", "】", "◦",
}

var persianDecorations = []string{"★", "✿", "༺", "༻", "❂", "◦", "✶", "✦", "꧁", "꧂"}

func persianVariants(text string, c *collector) {
	stretched := perWord(text, tatweel)
	catalog := []string{
		text,
		stretched,
		perWord(text, zwnj),
		perWord(text, zwj),
		markLetters(text, fatha),
		markLetters(text, kasra),
		withDiacritics(text),
		withDiacritics(stretched),
	}
	for _, w := range persianWraps {
		catalog = append(catalog, w[0]+text+w[1])
	}
	for _, sym := range persianOrnaments {
		catalog = append(catalog, sym+text+sym)
	}
	catalog = append(catalog, perWord(text, "◌"), perWord(text, "•"))

	for _, v := range catalog {
		if !c.add(v) {
			return
		}
	}
	for _, d := range persianDecorations {
		if !c.add(d + text + d) {
			return
		}
	}
}

// hasLatinLetter guards the Persian catalog against ASCII letters.
func hasLatinLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0
}

// perWord inserts sep between the runes of every space-delimited word.
func perWord(s, sep string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = joinRunes(w, sep)
	}
	return strings.Join(words, " ")
}

// markLetters appends mark after every non-space rune.
func markLetters(s, mark string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		b.WriteRune(r)
		if r != ' ' {
			b.WriteString(mark)
		}
	}
	return b.String()
}

// withDiacritics stacks the diacritic set on every Persian-script rune.
func withDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 4)
	for _, r := range s {
		b.WriteRune(r)
		if isPersianRune(r) {
			b.WriteString(diacriticStack)
		}
	}
	return b.String()
}
