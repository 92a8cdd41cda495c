package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// basicTokens applies BERT's basic tokenisation: drop control characters,
// isolate CJK ideographs, lowercase, strip accents, then split on
// whitespace and punctuation.
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	folded := stripAccents(strings.ToLower(b.String()))

	var tokens []string
	for _, word := range strings.Fields(folded) {
		start := -1
		for i, r := range word {
			if !isPunctuation(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				tokens = append(tokens, word[start:i])
				start = -1
			}
			tokens = append(tokens, string(r))
		}
		if start >= 0 {
			tokens = append(tokens, word[start:])
		}
	}
	return tokens
}

// stripAccents removes combining marks after NFD decomposition.
func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation treats every non-alphanumeric printable ASCII symbol as
// punctuation, as BERT does, plus the Unicode P categories.
func isPunctuation(r rune) bool {
	if r < 128 && r > ' ' && r != 127 {
		return !('0' <= r && r <= '9' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z')
	}
	return unicode.IsPunct(r)
}

var cjkRanges = [][2]rune{
	{0x4E00, 0x9FFF},
	{0x3400, 0x4DBF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
	{0xF900, 0xFAFF},
	{0x2F800, 0x2FA1F},
}

func isCJK(r rune) bool {
	for _, rg := range cjkRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}
