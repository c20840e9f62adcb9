// Package textnorm canonicalizes questions, lexicon terms and corpus fields into a
// comparable token stream.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxRepeat is the longest run of one character kept by Normalize.
const maxRepeat = 2

// homoglyphs maps digits to the letter they usually stand for in obfuscated spelling.
var homoglyphs = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'2': 'z',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'6': 'g',
	'7': 't',
	'8': 'b',
	'9': 'g',
}

// StripAccents removes combining marks after canonical decomposition ("crèche" -> "creche").
func StripAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Normalize returns the canonical form of text: accents stripped, lowercased, digits mapped
// to letters, runs of 3+ identical characters collapsed to 2, anything outside [a-z0-9\s]
// turned into a space, and whitespace collapsed. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped := StripAccents(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(stripped))
	var last rune = -1
	run := 0
	for _, r := range stripped {
		r = unicode.ToLower(r)
		if sub, ok := homoglyphs[r]; ok {
			r = sub
		}
		if !isKept(r) {
			r = ' '
		}
		if r == last {
			run++
			if run > maxRepeat {
				continue
			}
		} else {
			last = r
			run = 1
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isKept(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.IsSpace(r)
}

// Tokens splits the normalized form of text into words.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// ContainsAny reports whether any of the normalized needles is a substring of normalized.
func ContainsAny(normalized string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(normalized, n) {
			return true
		}
	}
	return false
}
