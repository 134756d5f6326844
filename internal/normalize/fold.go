// file: internal/normalize/fold.go
// version: 1.0.0
// guid: 77972878-68ee-4129-8464-fae5ff325e7c

package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that do not decompose into base + combining mark
var specialLetters = strings.NewReplacer(
	"æ", "ae", "Æ", "AE",
	"ø", "o", "Ø", "O",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "TH",
	"ß", "ss",
	"œ", "oe", "Œ", "OE",
)

// Fold strips diacritics so "Pokémon" and "Pokemon" compare equal. Strings
// that are already ASCII are returned untouched.
func Fold(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, specialLetters.Replace(s))
	if err != nil {
		return s
	}
	return out
}

// Key is the comparison form of a title: lower-cased and folded.
func Key(s string) string {
	return Fold(strings.ToLower(strings.TrimSpace(s)))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
