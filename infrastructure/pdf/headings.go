package pdf

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// HeadingSimilarity is the minimum normalized Levenshtein similarity for a
// line to match a heading name.
const HeadingSimilarity = 0.8

// numberingPattern matches section numbers such as "5.", "5.2", "IV.".
var numberingPattern = regexp.MustCompile(`^(\d+(\.\d+)*\.?|[IVXLC]+\.)$`)

// knownHeadings are section titles that end the preceding section.
var knownHeadings = []string{
	"abstract",
	"keywords",
	"highlights",
	"introduction",
	"related work",
	"methods",
	"methodology",
	"experiments",
	"results",
	"discussion",
	"conclusions",
	"concluding remarks",
	"acknowledgements",
	"references",
	"bibliography",
	"appendix",
	"credit authorship contribution statement",
	"author contributions",
	"declaration of competing interest",
	"declaration of generative ai and ai-assisted technologies in the writing process",
	"data availability",
	"funding",
}

// fold case-folds s for caseless comparison. A Caser carries state, so each
// call gets its own; providers run concurrently in batch mode.
func fold(s string) string { return cases.Fold().String(s) }

// Similarity returns 1 - distance/maxLen over runes; identical strings score 1.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	sim := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// MatchHeading reports whether line starts with one of the heading names,
// allowing section numbering, case differences and small spelling
// variations. rest is the text following the heading on the same line; it is
// only accepted after a separator such as a colon, so body sentences that
// happen to start with a heading word do not match.
func MatchHeading(line string, names ...string) (rest string, ok bool) {
	words := strings.Fields(line)
	if len(words) > 0 && numberingPattern.MatchString(words[0]) {
		words = words[1:]
	}
	if len(words) == 0 {
		return "", false
	}

	for _, name := range names {
		nw := len(strings.Fields(name))
		target := fold(name)
		for _, k := range []int{nw, nw + 1, nw - 1} {
			if k < 1 || k > len(words) {
				continue
			}
			head := strings.Join(words[:k], " ")
			trimmed := strings.TrimRight(head, ":.-–— ")
			if Similarity(fold(trimmed), target) < HeadingSimilarity {
				continue
			}
			tail := words[k:]
			if len(tail) == 0 {
				return "", true
			}
			if trimmed != head {
				return strings.Join(tail, " "), true
			}
			if sep := tail[0]; sep == ":" || sep == "-" || sep == "–" || sep == "—" {
				return strings.Join(tail[1:], " "), true
			}
		}
	}
	return "", false
}

// IsHeading reports whether line looks like any known section heading or a
// short numbered title.
func IsHeading(line string) bool {
	if _, ok := MatchHeading(line, knownHeadings...); ok {
		return true
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 8 || !numberingPattern.MatchString(words[0]) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(words[1])
	return unicode.IsUpper(first)
}
