package simplify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// rewrite is a single compiled replacement.
type rewrite interface {
	apply(text string) string
}

// phraseMatcher finds a phrase case-insensitively as a whole word/phrase.
// An edge of the phrase that is a word character (any letter, digit, mark or
// '_') must not touch another word character in the text, so "é" never
// matches inside "résumé". Edges that are punctuation are not checked, so a
// phrase like "etc." still matches at the end of a sentence.
type phraseMatcher struct {
	re         *regexp.Regexp
	checkStart bool
	checkEnd   bool
}

func phrasePattern(phrase string) *phraseMatcher {
	first, _ := utf8.DecodeRuneInString(phrase)
	last, _ := utf8.DecodeLastRuneInString(phrase)
	return &phraseMatcher{
		re:         regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase)),
		checkStart: isWordRune(first),
		checkEnd:   isWordRune(last),
	}
}

// findAll returns the non-overlapping whole-word matches, leftmost first.
// A candidate rejected at a boundary resumes the search one rune later, so
// an overlapping valid match is not skipped.
func (m *phraseMatcher) findAll(text string) [][]int {
	var locs [][]int
	pos := 0
	for pos <= len(text) {
		loc := m.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if m.atBoundary(text, start, end) {
			locs = append(locs, []int{start, end})
			if end == start {
				end++
			}
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			size = 1
		}
		pos = start + size
	}
	return locs
}

func (m *phraseMatcher) atBoundary(text string, start, end int) bool {
	if m.checkStart && start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if m.checkEnd && end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// replace substitutes every whole-word match with fn(match).
func (m *phraseMatcher) replace(text string, fn func(match string) string) string {
	locs := m.findAll(text)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		b.WriteString(fn(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// literalRewrite replaces every match with a fixed string.
type literalRewrite struct {
	re          *phraseMatcher
	replacement string
}

func (r literalRewrite) apply(text string) string {
	return r.re.replace(text, func(string) string { return r.replacement })
}

// deletionRewrite replaces every match with a single space so the words on
// either side do not collide, then collapses the resulting whitespace runs.
type deletionRewrite struct {
	re *phraseMatcher
}

func (r deletionRewrite) apply(text string) string {
	out := r.re.replace(text, func(string) string { return " " })
	if out == text {
		return text
	}
	return whitespaceRun.ReplaceAllString(out, " ")
}

// caseMatchRewrite replaces every match, capitalizing the replacement when
// the match starts with an upper-case letter.
type caseMatchRewrite struct {
	re          *phraseMatcher
	replacement string
}

func (r caseMatchRewrite) apply(text string) string {
	return r.re.replace(text, func(match string) string {
		return matchCase(match, r.replacement)
	})
}

func matchCase(match, replacement string) string {
	m, _ := utf8.DecodeRuneInString(match)
	if !unicode.IsUpper(m) || replacement == "" {
		return replacement
	}
	first, size := utf8.DecodeRuneInString(replacement)
	return string(unicode.ToUpper(first)) + replacement[size:]
}

// lastWordRewrite keeps only the last word of every match.
type lastWordRewrite struct {
	re *phraseMatcher
}

func (r lastWordRewrite) apply(text string) string {
	return r.re.replace(text, func(match string) string {
		fields := strings.Fields(match)
		if len(fields) == 0 {
			return match
		}
		return fields[len(fields)-1]
	})
}

// patternRewrite applies a built-in regex with either a template or a
// capture-based function.
type patternRewrite struct {
	re       *regexp.Regexp
	template string
	fn       func(groups []string) (string, bool)
}

func (r patternRewrite) apply(text string) string {
	if r.fn == nil {
		return r.re.ReplaceAllString(text, r.template)
	}
	return replaceSubmatchFunc(r.re, text, r.fn)
}

// replaceSubmatchFunc is ReplaceAllStringFunc with access to capture groups.
// A match is left unchanged when fn declines it or panics.
func replaceSubmatchFunc(re *regexp.Regexp, text string, fn func([]string) (string, bool)) string {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(text[last:loc[0]])
		if repl, ok := safeReplace(fn, groups); ok {
			b.WriteString(repl)
		} else {
			b.WriteString(groups[0])
		}
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func safeReplace(fn func([]string) (string, bool), groups []string) (repl string, ok bool) {
	defer func() {
		if recover() != nil {
			repl, ok = "", false
		}
	}()
	return fn(groups)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
