// Package normalize implements Arabic text canonicalization. The same
// function is used to build index keys at ingest time and to build query
// keys at search time, so indexing and querying must never diverge.
package normalize

import (
	"strings"
	"unicode"
)

// quoteRunes are the characters that signal a quoted phrase in a raw query.
// Matching pairs are intentionally not tracked: any two of these marks
// delimit a phrase, whichever marks they are.
var quoteRunes = map[rune]struct{}{
	'"': {}, '«': {}, '»': {}, '„': {}, '“': {}, '”': {},
}

const tatweel = 'ـ'

var alefVariants = map[rune]struct{}{
	'آ': {}, // ALEF WITH MADDA ABOVE (آ)
	'أ': {}, // ALEF WITH HAMZA ABOVE (أ)
	'إ': {}, // ALEF WITH HAMZA BELOW (إ)
	'ٱ': {}, // ALEF WASLA (ٱ)
}

const (
	tehMarbuta = 'ة' // ة
	heh        = 'ه' // ه
	alef       = 'ا' // ا
)

// Text applies the canonicalization pipeline from the contract, in order:
// diacritic stripping, alef folding, teh-marbuta folding, digit folding,
// whitespace collapsing. The result is idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if isDiacritic(r) || r == tatweel {
			continue
		}
		if _, ok := alefVariants[r]; ok {
			r = alef
		}
		if r == tehMarbuta {
			r = heh
		}
		if d, ok := arabicIndicDigit(r); ok {
			r = d
		}
		if unicode.IsSpace(r) {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			b.WriteRune(' ')
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// isDiacritic reports whether r is an Arabic combining diacritic in the
// U+064B..U+0652 range (fathatan through sukun).
func isDiacritic(r rune) bool {
	return r >= 'ً' && r <= 'ْ'
}

// arabicIndicDigit folds an Arabic-Indic digit (٠-٩, U+0660..U+0669) to its
// Western equivalent. Extended Arabic-Indic (Persian) digits are left alone.
func arabicIndicDigit(r rune) (rune, bool) {
	if r >= '٠' && r <= '٩' {
		return '0' + (r - '٠'), true
	}
	return r, false
}

// QuotedPhrases extracts the substrings enclosed by a recognized quote mark
// pair from the raw (pre-normalization) query text. Unbalanced quote marks
// and empty pairs yield no phrase; the semantic-search quote gate fires only
// when this returns at least one phrase.
func QuotedPhrases(raw string) []string {
	var phrases []string
	runes := []rune(raw)
	var start = -1
	for i, r := range runes {
		if _, ok := quoteRunes[r]; !ok {
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		phrase := strings.TrimSpace(string(runes[start+1 : i]))
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
		start = -1
	}
	return phrases
}

// HasQuoteMark reports whether raw contains any quote-style rune at all,
// even unbalanced. The semantic-search quote gate does not use it.
func HasQuoteMark(raw string) bool {
	for _, r := range raw {
		if _, ok := quoteRunes[r]; ok {
			return true
		}
	}
	return false
}

// NonSpaceCharCount counts runes in s that are not whitespace, used for the
// semantic short-query skip and the length-adaptive semantic thresholds.
func NonSpaceCharCount(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// WordCount counts whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// DetectLanguage makes a coarse Arabic-vs-other guess from script majority,
// used only to populate Query.DetectedLanguage for display/debug purposes;
// it never gates a pipeline decision.
func DetectLanguage(s string) (lang string) {
	arabicRunes, otherRunes := 0, 0
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r):
			continue
		case r >= '؀' && r <= 'ۿ':
			arabicRunes++
		case unicode.IsLetter(r):
			otherRunes++
		}
	}
	switch {
	case arabicRunes == 0 && otherRunes == 0:
		return "unknown"
	case arabicRunes >= otherRunes:
		return "ar"
	default:
		return "other"
	}
}
