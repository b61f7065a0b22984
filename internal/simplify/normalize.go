package simplify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	spaceBeforePunct = regexp.MustCompile(`\s+([,.;:!?])`)
	sentenceGap      = regexp.MustCompile(`[.!?]\s+`)
)

// Normalize cleans up rewritten text:
//  1. collapse whitespace runs (space, tab, newline) to one space
//  2. drop whitespace before , . ; : ! ?
//  3. break the line after a word-ending . ! ? followed by another word
//  4. trim
//
// Step 3 is a crude heuristic: abbreviations and decimals followed by a
// word are split too. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := whitespaceRun.ReplaceAllString(text, " ")
	out = spaceBeforePunct.ReplaceAllString(out, "$1")
	out = breakSentences(out)
	return strings.TrimSpace(out)
}

// breakSentences replaces the whitespace after a sentence-ending mark with a
// newline when both neighbours are word characters.
func breakSentences(text string) string {
	locs := sentenceGap.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		after, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if !isSentenceWordRune(before) || !isSentenceWordRune(after) {
			continue
		}
		b.WriteString(text[last : loc[0]+1])
		b.WriteByte('\n')
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func isSentenceWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
