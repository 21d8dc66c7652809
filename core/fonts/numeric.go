package fonts

import "strings"

// digitAlphabets lists glyphs for 0..9, one alphabet per variant.
var digitAlphabets = [][10]string{
	keycaps(),
	runes10("⓪①②③④⑤⑥⑦⑧⑨"),
	runes10("０１２３４５６７８９"),
	runes10("⒪⑴⑵⑶⑷⑸⑹⑺⑻⑼"),
	runes10("₀₁₂₃₄₅₆₇₈₉"),
	runes10("⁰¹²³⁴⁵⁶⁷⁸⁹"),
	runes10("𝟎𝟏𝟐𝟑𝟒𝟓𝟔𝟕𝟖𝟗"),
	runes10("𝟘𝟙𝟚𝟛𝟜𝟝𝟞𝟟𝟠𝟡"),
	runes10("𝟬𝟭𝟮𝟯𝟰𝟱𝟲𝟳𝟴𝟵"),
}

func keycaps() [10]string {
	var out [10]string
	for i := range out {
		out[i] = string(rune('0'+i)) + "⃣"
	}
	return out
}

func runes10(s string) [10]string {
	var out [10]string
	r := []rune(s)
	for i := range out {
		out[i] = string(r[i])
	}
	return out
}

func numericVariants(text string, c *collector) {
	if strings.IndexFunc(text, func(r rune) bool { _, ok := digitValue(r); return ok }) < 0 {
		c.add(text)
		return
	}
	for _, alphabet := range digitAlphabets {
		var b strings.Builder
		for _, r := range text {
			if v, ok := digitValue(r); ok {
				b.WriteString(alphabet[v])
				continue
			}
			b.WriteRune(r)
		}
		if !c.add(b.String()) {
			return
		}
	}
}
