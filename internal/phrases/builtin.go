// Package phrases - builtin.go holds the immutable built-in rule groups.
//
// DESIGN: Each group is applied by the engine in its own step and in the
// declared order of its table. Order inside a table matters: longer phrases
// that share a prefix with shorter ones are listed first, and later entries
// may match text produced by earlier ones.
package phrases

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// Pair is a built-in phrase replacement.
type Pair struct {
	From string
	To   string
}

// Rewrite is a built-in regular-expression replacement.
// When Func is nil, Replacement is expanded as a regexp template ($1, ${1}).
// Func receives the full match followed by every capture group and returns
// false to leave the match unchanged.
type Rewrite struct {
	Name        string
	Pattern     string
	Replacement string
	Func        func(groups []string) (string, bool)
}

// BuiltinsVersion identifies the default tables. Bump it whenever a table
// changes so cached results computed with the old tables are not reused.
const BuiltinsVersion = "1"

// Builtins are the non-editable rule groups.
type Builtins struct {
	Version      string    // table revision, empty for ad-hoc tables
	Courtesy     []string  // removed entirely
	Fillers      []string  // removed entirely
	Verbose      []Pair    // verbose -> concise
	Redundant    []string  // collapsed to their last word
	Contractions []Pair    // full form -> contraction
	Advanced     []Rewrite // fixed ordered regex replacements
	Passive      []Rewrite // passive-to-active heuristics
}

// DefaultBuiltins returns the shared built-in groups. The value is loaded
// once and must not be modified.
func DefaultBuiltins() *Builtins { return defaultBuiltins }

var defaultBuiltins = &Builtins{
	Version: BuiltinsVersion,
	Courtesy: []string{
		"I hope this message finds you well",
		"I hope this email finds you well",
		"I hope you are doing well",
		"I hope you're doing well",
		"I hope you are having a great day",
		"sorry to bother you",
		"I apologize for any inconvenience",
		"I apologize for the inconvenience",
		"thank you in advance",
		"thanks in advance",
		"thank you so much",
		"thank you very much",
		"if you don't mind",
		"if you do not mind",
		"if it's not too much trouble",
		"if it is not too much trouble",
		"would you be so kind as to",
		"I would really appreciate it if you could",
		"I would appreciate it if you could",
		"it would be great if you could",
		"I was wondering if you could",
		"I was wondering if",
		"could you please",
		"can you please",
		"would you please",
		"would you kindly",
		"please",
		"kindly",
	},

	Fillers: []string{
		"as a matter of fact",
		"at the end of the day",
		"for what it's worth",
		"all things considered",
		"needless to say",
		"to be honest",
		"so to speak",
		"basically",
		"actually",
		"literally",
		"essentially",
		"totally",
		"honestly",
		"seriously",
		"really",
		"very",
		"just",
		"simply",
		"quite",
		"somewhat",
		"definitely",
		"certainly",
		"obviously",
	},

	Verbose: []Pair{
		{"in order to", "to"},
		{"due to the fact that", "because"},
		{"owing to the fact that", "because"},
		{"in light of the fact that", "because"},
		{"for the reason that", "because"},
		{"in the event that", "if"},
		{"a large number of", "many"},
		{"a number of", "some"},
		{"the majority of", "most"},
		{"for the purpose of", "for"},
		{"in spite of the fact that", "although"},
		{"despite the fact that", "although"},
		{"in the near future", "soon"},
		{"at this point in time", "now"},
		{"at the present time", "now"},
		{"until such time as", "until"},
		{"with regard to", "about"},
		{"in regard to", "about"},
		{"with respect to", "about"},
		{"in close proximity to", "near"},
		{"in the vicinity of", "near"},
		{"prior to", "before"},
		{"subsequent to", "after"},
		{"in conjunction with", "with"},
		{"with the exception of", "except"},
		{"as a means of", "to"},
		{"has the ability to", "can"},
		{"is able to", "can"},
		{"are able to", "can"},
		{"make a decision", "decide"},
		{"take into consideration", "consider"},
		{"give consideration to", "consider"},
		{"provide assistance to", "help"},
		{"in a timely manner", "promptly"},
		{"on a daily basis", "daily"},
		{"at all times", "always"},
		{"utilization", "use"},
		{"utilize", "use"},
		{"sufficient", "enough"},
		{"numerous", "many"},
		{"commence", "start"},
		{"initiate", "start"},
		{"terminate", "end"},
		{"approximately", "about"},
		{"subsequently", "then"},
		{"nevertheless", "still"},
		{"consequently", "so"},
		{"acquire", "get"},
		{"demonstrate", "show"},
		{"endeavor", "try"},
		{"regarding", "about"},
		{"facilitate", "help"},
		{"assistance", "help"},
		{"additional", "more"},
		{"purchase", "buy"},
		{"ascertain", "find out"},
		{"optimal", "best"},
	},

	Redundant: []string{
		"absolutely essential",
		"actual fact",
		"added bonus",
		"advance planning",
		"advance warning",
		"basic fundamentals",
		"brief summary",
		"close proximity",
		"completely eliminate",
		"completely finished",
		"each and every",
		"end result",
		"exact same",
		"final outcome",
		"first and foremost",
		"free gift",
		"future plans",
		"general consensus",
		"joint collaboration",
		"mutual cooperation",
		"new innovation",
		"past experience",
		"past history",
		"still remains",
		"sudden impulse",
		"true facts",
		"unexpected surprise",
		"various different",
	},

	Contractions: []Pair{
		{"cannot", "can't"},
		{"can not", "can't"},
		{"do not", "don't"},
		{"does not", "doesn't"},
		{"did not", "didn't"},
		{"will not", "won't"},
		{"would not", "wouldn't"},
		{"should not", "shouldn't"},
		{"could not", "couldn't"},
		{"is not", "isn't"},
		{"are not", "aren't"},
		{"was not", "wasn't"},
		{"were not", "weren't"},
		{"have not", "haven't"},
		{"has not", "hasn't"},
		{"had not", "hadn't"},
		{"it is", "it's"},
		{"that is", "that's"},
		{"there is", "there's"},
		{"what is", "what's"},
		{"I am", "I'm"},
		{"you are", "you're"},
		{"we are", "we're"},
		{"they are", "they're"},
		{"I have", "I've"},
		{"you have", "you've"},
		{"we have", "we've"},
		{"they have", "they've"},
		{"I will", "I'll"},
		{"you will", "you'll"},
		{"we will", "we'll"},
		{"they will", "they'll"},
		{"I would", "I'd"},
		{"let us", "let's"},
	},

	Advanced: []Rewrite{
		{Name: "today", Pattern: `(?i)\bin (?:this day and age|today's world)\b`, Replacement: "today"},
		{Name: "now", Pattern: `(?i)\bat (?:the|this) (?:present|current) (?:time|moment)\b`, Replacement: "now"},
		{Name: "asap", Pattern: `(?i)\bas (?:soon|quickly) as (?:possible|you can)\b`, Replacement: "ASAP"},
		{Name: "whether", Pattern: `(?i)\bwhether or not\b`, Replacement: "whether"},
		{Name: "because", Pattern: `(?i)\bthe reason (?:why )?(?:is|was) (?:because|that)\b`, Replacement: "because"},
		{Name: "worth-noting", Pattern: `(?i)\bit(?:'s| is) (?:important|essential|worth noting) (?:to note )?that\s+`, Replacement: ""},
		{Name: "percent", Pattern: `(?i)\b(\d+(?:\.\d+)?)\s*(?:percent|per cent)\b`, Replacement: "${1}%"},
		{Name: "total-of", Pattern: `(?i)\b(?:a total|the sum total|a sum) of (\d+)`, Replacement: "${1}"},
		{Name: "repeated-words", Pattern: `(?i)\b\w+(?:\s+\w+)+\b`, Func: collapseRepeatedWords},
		{Name: "exclamations", Pattern: `!{2,}`, Replacement: "!"},
		{Name: "questions", Pattern: `\?{2,}`, Replacement: "?"},
		{Name: "empty-parens", Pattern: `\(\s*\)`, Replacement: ""},
	},

	Passive: []Rewrite{
		{
			Name:    "aux-ed-by",
			Pattern: `(?i)\b(is|are|am|was|were|be|been|being|get|gets|got)\s+(\w+)ed\s+by\b`,
			Func:    passiveToProgressive,
		},
	},
}

// collapseRepeatedWords drops a word that repeats the word before it
// ("the the" -> "the"), keeping the original separators otherwise.
func collapseRepeatedWords(groups []string) (string, bool) {
	m := groups[0]
	words := wordPattern.FindAllStringIndex(m, -1)
	if len(words) < 2 {
		return m, true
	}

	var b strings.Builder
	b.Grow(len(m))
	prev := m[words[0][0]:words[0][1]]
	b.WriteString(m[:words[0][1]])
	for i := 1; i < len(words); i++ {
		w := m[words[i][0]:words[i][1]]
		if strings.EqualFold(w, prev) {
			continue
		}
		b.WriteString(m[words[i-1][1]:words[i][0]])
		b.WriteString(w)
		prev = w
	}
	b.WriteString(m[words[len(words)-1][1]:])
	return b.String(), true
}

// passiveToProgressive rewrites "<aux> <stem>ed by" to "<aux> <stem>ing".
// The result is a lexical approximation, not a grammatical active voice.
// Stems that cannot take "ing" leave the match unchanged.
func passiveToProgressive(groups []string) (string, bool) {
	if len(groups) < 3 {
		return "", false
	}
	aux, stem := groups[1], groups[2]
	if !validStem(stem) {
		return "", false
	}
	return aux + " " + stem + "ing", true
}

// validStem accepts ASCII letter stems of at least two letters that contain
// a vowel and do not end in "i" ("tried" -> "tri").
func validStem(stem string) bool {
	if len(stem) < 2 {
		return false
	}
	hasVowel := false
	for i := 0; i < len(stem); i++ {
		c := stem[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
		switch c {
		case 'a', 'e', 'i', 'o', 'u', 'y':
			hasVowel = true
		}
	}
	return hasVowel && stem[len(stem)-1]|0x20 != 'i'
}
