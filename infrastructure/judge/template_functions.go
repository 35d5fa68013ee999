package judge

import (
	"strings"
	"text/template"
	"unicode/utf8"
)

// TemplateFuncs returns the functions available to judge prompt templates.
// The functions are stateless and never panic, so a template cannot fail
// because of the excerpt it is given.
//
//	tmpl, err := template.New("prompt").Funcs(TemplateFuncs()).Parse(text)
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// truncate limits s to n runes, ending in "..." when it cuts.
		// Non-positive n keeps s whole.
		// Template usage: {{truncate .Excerpt 4000}}
		"truncate": truncate,

		// words counts whitespace-separated words.
		// Template usage: {{words .Excerpt}}
		"words": func(s string) int {
			return len(strings.Fields(s))
		},

		// contains reports whether substr is within s.
		"contains": strings.Contains,

		"lower": strings.ToLower,
		"upper": strings.ToUpper,

		// trim removes surrounding whitespace and collapses inner runs of
		// whitespace to single spaces.
		"trim": func(s string) string {
			return strings.Join(strings.Fields(s), " ")
		},

		// replace returns s with all instances of old replaced by new.
		// Template usage: {{replace .Excerpt "\n" " "}}
		"replace": func(s, old, new string) string {
			return strings.ReplaceAll(s, old, new)
		},

		"join": strings.Join,
	}
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	const ellipsis = "..."
	if n <= len(ellipsis) {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-len(ellipsis)]) + ellipsis
}
