// Package format renders variant catalogs into numbered reply payloads.
package format

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Lines numbers variants from 1 as "<n> <variant>". Line breaks inside a
// variant are collapsed to a single space.
func Lines(variants []string) []string {
	out := make([]string, 0, len(variants))
	for i, v := range variants {
		out = append(out, strconv.Itoa(i+1)+" "+lineBreaks.Replace(v))
	}
	return out
}

// Text joins Lines into one reply body.
func Text(variants []string) string {
	return strings.Join(Lines(variants), "\n")
}

// Chunk splits text at line boundaries into the fewest payloads of at most
// maxSize runes each. Joining the payloads with "\n" gives back text.
// A line longer than maxSize becomes a payload of its own. A non-positive
// maxSize disables splitting.
func Chunk(text string, maxSize int) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 || utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	var (
		chunks []string
		cur    []string
		size   int
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur, size = cur[:0], 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if len(cur) > 0 && size+1+n > maxSize {
			flush()
		}
		if len(cur) > 0 {
			size++
		}
		cur = append(cur, line)
		size += n
	}
	flush()
	return chunks
}
