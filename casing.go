package segmentweaver

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IsCaseModifier reports whether mod rewrites the letter case of text.
func IsCaseModifier(mod string) bool {
	switch mod {
	case ModUppercase, ModLowercase, ModCapitalize, ModSentencecase:
		return true
	}
	return false
}

// Caser returns a function that rewrites successive runs of text for a case
// modifier. The returned function keeps state between calls, so a sentence
// started in one run continues in the next; use a fresh Caser for every
// modifier application. ok is false for other modifiers.
func Caser(mod string) (fn func(string) string, ok bool) {
	switch mod {
	case ModUppercase:
		return cases.Upper(language.Und).String, true
	case ModLowercase:
		return cases.Lower(language.Und).String, true
	case ModCapitalize:
		return cases.Title(language.Und, cases.NoLower).String, true
	case ModSentencecase:
		return sentenceCaser(), true
	}
	return nil, false
}

// sentenceCaser lowercases text and uppercases the first letter of every
// sentence.
func sentenceCaser() func(string) string {
	lower := cases.Lower(language.Und)
	start := true
	return func(s string) string {
		var sb strings.Builder
		for _, r := range lower.String(s) {
			switch {
			case start && unicode.IsLetter(r):
				sb.WriteRune(unicode.ToUpper(r))
				start = false
			case r == '.' || r == '!' || r == '?':
				sb.WriteRune(r)
				start = true
			default:
				sb.WriteRune(r)
			}
		}
		return sb.String()
	}
}
