// Package streetname canonicalizes free-text street names so that user input,
// gazetteer entries and feature-store attributes compare consistently.
package streetname

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// foldTable maps Slovak and Czech accented letters to their base Latin form.
// An explicit table keeps folding independent of locale-dependent casing
// rules; anything outside it falls through to unidecode.
var foldTable = map[rune]rune{
	'á': 'a', 'ä': 'a', 'â': 'a',
	'č': 'c', 'ć': 'c',
	'ď': 'd',
	'é': 'e', 'ě': 'e', 'ë': 'e',
	'í': 'i', 'î': 'i',
	'ĺ': 'l', 'ľ': 'l',
	'ň': 'n', 'ń': 'n',
	'ó': 'o', 'ô': 'o', 'ö': 'o',
	'ŕ': 'r', 'ř': 'r',
	'š': 's',
	'ť': 't',
	'ú': 'u', 'ů': 'u', 'ü': 'u',
	'ý': 'y',
	'ž': 'z', 'ź': 'z',
}

// Normalize lowercases, collapses whitespace and applies NFC composition.
// Diacritics are preserved; the result is the canonical comparable form of a
// street name. Normalize is idempotent.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = norm.NFC.String(s)
	return strings.ToLower(s)
}

// Fold strips diacritics, mapping accented letters to their base Latin form.
// Characters not covered by the explicit table are transliterated with
// unidecode so no non-ASCII letters survive.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if base, ok := foldTable[r]; ok {
			b.WriteRune(base)
			continue
		}
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		b.WriteString(unidecode.Unidecode(string(r)))
	}
	return b.String()
}

// NormalizeFolded returns the normalized, diacritics-free form used for
// gazetteer comparisons.
func NormalizeFolded(s string) string {
	return Fold(Normalize(s))
}

// HasDiacritics reports whether folding would change the string.
func HasDiacritics(s string) bool {
	return Fold(s) != s
}
