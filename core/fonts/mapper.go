package fonts

import "strings"

// Mapper substitutes runes through a lookup table in one pass. Runes without
// an entry pass through unchanged.
type Mapper struct {
	table map[rune]string
	fold  func(rune) rune
}

// NewMapper pairs the i-th rune of from with to[i]. Extra entries on either
// side are ignored.
func NewMapper(from string, to []string) Mapper {
	m := Mapper{table: make(map[rune]string, len(to))}
	i := 0
	for _, r := range from {
		if i >= len(to) {
			break
		}
		m.table[r] = to[i]
		i++
	}
	return m
}

// NewRangeMapper maps the contiguous run lo..hi onto consecutive codepoints
// starting at base. holes replaces individual targets that are unassigned
// in the destination block.
func NewRangeMapper(lo, hi, base rune, holes map[rune]rune) Mapper {
	m := Mapper{table: make(map[rune]string, int(hi-lo)+1)}
	m.addRange(lo, hi, base, holes)
	return m
}

func (m Mapper) addRange(lo, hi, base rune, holes map[rune]rune) {
	for r := lo; r <= hi; r++ {
		target := base + (r - lo)
		if h, ok := holes[r]; ok {
			target = h
		}
		m.table[r] = string(target)
	}
}

// With merges another range into a copy of m.
func (m Mapper) With(lo, hi, base rune, holes map[rune]rune) Mapper {
	out := Mapper{table: make(map[rune]string, len(m.table)+int(hi-lo)+1), fold: m.fold}
	for k, v := range m.table {
		out.table[k] = v
	}
	out.addRange(lo, hi, base, holes)
	return out
}

// Folding returns a copy of m that looks runes up after applying fold.
// A folded rune with no entry falls back to the original rune.
func (m Mapper) Folding(fold func(rune) rune) Mapper {
	m.fold = fold
	return m
}

// Apply renders s through the table.
func (m Mapper) Apply(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for _, r := range s {
		key := r
		if m.fold != nil {
			key = m.fold(r)
		}
		if out, ok := m.table[key]; ok {
			b.WriteString(out)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
