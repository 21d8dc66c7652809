package fonts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := map[string]Category{
		"123":         Numeric,
		"  42 ":       Numeric,
		"۱۲۳":         Numeric,
		"١٢٣":         Numeric,
		"12a":         Latin,
		"12 34":       Latin,
		"سلام":        Persian,
		"hello سلام":  Persian,
		"سلام 123":    Persian,
		"ݐ":           Persian,
		"hello":       Latin,
		"!?":          Latin,
		"":            Latin,
		"Привет":      Latin,
		"abc ࢠ":       Persian,
		"   ":         Latin,
		"1\n2":        Latin,
		"0":           Numeric,
		"007":         Numeric,
		"۰":           Numeric,
		"x۰":          Persian,
	}
	for in, want := range cases {
		assert.Equal(t, want, Classify(in), "input %q", in)
	}
}

func TestGenerateInvariants(t *testing.T) {
	inputs := []string{
		"a", "abc", "Hello World", "سلام", "سلام دنیا", "hello سلام", "123",
		"!!", "a b", "۱۲۳", "x", "The quick brown fox jumps over the lazy dog",
	}
	for _, in := range inputs {
		for _, cat := range []Category{Latin, Persian, Numeric} {
			got := Generate(in, cat)
			assert.LessOrEqual(t, len(got), MaxVariants, "%q/%s", in, cat)
			seen := map[string]bool{}
			for _, v := range got {
				assert.NotEmpty(t, v, "%q/%s", in, cat)
				assert.False(t, seen[v], "duplicate %q for %q/%s", v, in, cat)
				seen[v] = true
				if cat == Persian {
					assert.False(t, hasLatinLetter(v), "latin leaked into %q", v)
				}
			}
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, in := range []string{"abc", "سلام دنیا", "2024"} {
		cat := Classify(in)
		assert.Equal(t, Generate(in, cat), Generate(in, cat))
	}
}

func TestGenerateLatinCatalog(t *testing.T) {
	got := Generate("abc", Latin)
	require.Len(t, got, MaxVariants)
	assert.Equal(t, "abc", got[0])
	assert.Equal(t, "ABC", got[1])
	for _, want := range []string{
		"ABC", "ᴀʙᴄ", "ａｂｃ", "★ abc ★", "[abc]", "〖abc〗",
		"a b c", "a·b·c", "ⓐⓑⓒ", "𝐚𝐛𝐜", "𝚊𝚋𝚌", "AbC", "aa bb cc", "ᴀ ʙ ᴄ",
		"★ a·b·c ★",
	} {
		assert.Contains(t, got, want)
	}
}

func TestLatinStyles(t *testing.T) {
	assert.Equal(t, "Hello World", latinStyles[3]("hello world"))
	assert.Equal(t, "hELLO", swapCase("Hello"))
	assert.Equal(t, "ℎ", mathItalic.Apply("h"))
	assert.Equal(t, "𝐴𝑏", mathItalic.Apply("Ab"))
	assert.Equal(t, "ℂℍℕℙℚℝℤ𝔸𝕒", doubleStruck.Apply("CHNPQRZAa"))
	assert.Equal(t, "ⓐⓑ-1", circled.Apply("aB-1"))
	assert.Equal(t, "ᴀʙ1", smallCaps.Apply("Ab1"))
	assert.Equal(t, "！ｈｉ ~", fullwidth.Apply("!hi ~"))
	assert.Equal(t, "𝚊𝚋𝟷", latinStyles[13]("AB1"))
	assert.Equal(t, "é", mathBold.Apply("é"))
}

func TestLatinCompositionsCoverEveryPair(t *testing.T) {
	c := newCollector(1000)
	latinVariants("ab", c)
	for _, sep := range latinJoins {
		for _, w := range latinWraps {
			assert.Contains(t, c.out, w[0]+"a"+sep+"b"+w[1])
		}
	}
}

func TestGenerateNumeric(t *testing.T) {
	got := Generate("123", Numeric)
	require.Len(t, got, 9)
	assert.Equal(t, []string{
		"1⃣2⃣3⃣",
		"①②③",
		"１２３",
		"⑴⑵⑶",
		"₁₂₃",
		"¹²³",
		"𝟏𝟐𝟑",
		"𝟙𝟚𝟛",
		"𝟭𝟮𝟯",
	}, got)

	assert.Equal(t, "①②③", Generate("۱۲۳", Numeric)[1])
	assert.Equal(t, []string{"abc"}, Generate("abc", Numeric))
	assert.Equal(t, "①-②", Generate("1-2", Numeric)[1])
}

func TestGeneratePersian(t *testing.T) {
	got := Generate("سلام", Persian)
	require.NotEmpty(t, got)
	assert.Equal(t, "سلام", got[0])
	assert.Equal(t, "س\u0640ل\u0640ا\u0640م", got[1])
	assert.Contains(t, got, "『سلام』")
	assert.Contains(t, got, "༺سلام༺")
	assert.Contains(t, got, "س\u200cل\u200cا\u200cم")
	assert.Contains(t, got, "س\u200dل\u200dا\u200dم")
	assert.Contains(t, got, "س◌ل◌ا◌م")

	words := Generate("سلام دنیا", Persian)
	assert.Contains(t, words, "س\u0640ل\u0640ا\u0640م د\u0640ن\u0640ی\u0640ا")
	assert.Contains(t, words, "س\u064eل\u064eا\u064eم\u064e د\u064eن\u064eی\u064eا\u064e")
}

func TestPersianJoinersAreExactCodepoints(t *testing.T) {
	assert.Equal(t, []rune{0x0640}, []rune(tatweel))
	assert.Equal(t, []rune{0x200C}, []rune(zwnj))
	assert.Equal(t, []rune{0x200D}, []rune(zwj))
	assert.Equal(t, []rune{0x064E}, []rune(fatha))
	assert.Equal(t, []rune{0x0650}, []rune(kasra))
	assert.Equal(t, []rune{0x0651, 0x064E, 0x0650, 0x0652, 0x0654}, []rune(diacriticStack))
}

func TestGeneratePersianDropsLatin(t *testing.T) {
	assert.Empty(t, Generate("hello سلام", Persian))
}

func TestRender(t *testing.T) {
	cat, got := Render("42")
	assert.Equal(t, Numeric, cat)
	assert.Len(t, got, 9)

	cat, got = Render("سلام")
	assert.Equal(t, Persian, cat)
	for _, v := range got {
		assert.True(t, strings.Contains(v, "س"))
	}
}

func TestMapperIgnoresUnpairedEntries(t *testing.T) {
	m := NewMapper("abc", []string{"1", "2"})
	assert.Equal(t, "12c", m.Apply("abc"))
}
