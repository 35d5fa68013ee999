package pdf

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ahrav/galley/internal/ports"
)

// KeyStructure is the provider key of the structure report.
const KeyStructure = "structure"

var (
	// pageNumberPattern matches running page labels such as "7", "Page 7" or
	// "7 of 30".
	pageNumberPattern = regexp.MustCompile(`(?i)^(?:page\s+)?(\d{1,4})(?:\s*(?:of|/)\s*\d{1,4})?$`)

	// aiMentionPattern matches references to generative AI tools in folded text.
	aiMentionPattern = regexp.MustCompile(`\b(chatgpt|gpt-[34o]|large language models?|llms?|generative ai|openai|copilot)\b`)

	keywordSeparators = regexp.MustCompile(`[,;·•]`)
)

var (
	abstractHeadings    = []string{"abstract"}
	conclusionHeadings  = []string{"conclusions", "conclusion and future work", "concluding remarks"}
	introductionHeading = []string{"introduction"}
	keywordHeadings     = []string{"keywords", "key words", "index terms"}
	creditHeadings      = []string{"credit authorship contribution statement", "author contributions", "authors contributions"}
)

var aiDeclarationPhrases = []string{
	"declaration of generative ai",
	"during the preparation of this work the author",
	"use of generative ai",
}

// SectionComparison pairs the abstract with the conclusions so both can be
// judged together.
type SectionComparison struct {
	Abstract    string `json:"abstract"`
	Conclusions string `json:"conclusions"`
}

// String renders both sections as a labelled excerpt.
func (c SectionComparison) String() string {
	return fmt.Sprintf("ABSTRACT:\n%s\n\nCONCLUSIONS:\n%s", c.Abstract, c.Conclusions)
}

// StructureReport is the result of the structure provider.
type StructureReport struct {
	PageCount              int               `json:"page_count"`
	PageNumbers            []int             `json:"page_numbers"`
	ConsecutivePageNumbers bool              `json:"consecutive_page_numbers"`
	HasTitlePage           bool              `json:"has_title_page"`
	TitleText              string            `json:"title_text"`
	AbstractWordCount      *int              `json:"abstract_wordcount,omitempty"`
	ConclusionsVsAbstract  SectionComparison `json:"conclusions_vs_abstract"`
	HasCreditStatement     bool              `json:"has_credit_statement"`
	AIMentioned            bool              `json:"ai_mentioned"`
	AIDeclared             bool              `json:"ai_declared"`
	Keywords               []string          `json:"keywords"`
}

var _ ports.FieldAccessor = StructureReport{}

// Field implements ports.FieldAccessor. The title, abstract word count and
// section comparison are missing when the document does not contain them.
func (r StructureReport) Field(name string) (any, bool) {
	switch name {
	case "page_count":
		return r.PageCount, true
	case "page_numbers":
		return r.PageNumbers, true
	case "consecutive_page_numbers":
		return r.ConsecutivePageNumbers, true
	case "has_title_page":
		return r.HasTitlePage, true
	case "title_text":
		if r.TitleText == "" {
			return nil, false
		}
		return r.TitleText, true
	case "abstract_wordcount":
		if r.AbstractWordCount == nil {
			return nil, false
		}
		return *r.AbstractWordCount, true
	case "conclusions_vs_abstract":
		if r.ConclusionsVsAbstract.Abstract == "" && r.ConclusionsVsAbstract.Conclusions == "" {
			return nil, false
		}
		return r.ConclusionsVsAbstract, true
	case "has_credit_statement":
		return r.HasCreditStatement, true
	case "ai_use_statement":
		return r.AIDeclared || !r.AIMentioned, true
	case "keyword_count":
		return len(r.Keywords), true
	case "keywords":
		return r.Keywords, true
	default:
		return nil, false
	}
}

// textLine is a reconstructed line with the page it came from.
type textLine struct {
	page int
	text string
}

func documentLines(doc *Document) []textLine {
	var out []textLine
	for i, p := range doc.Pages {
		for _, l := range p.Lines() {
			if t := l.Text(); t != "" {
				out = append(out, textLine{page: i, text: t})
			}
		}
	}
	return out
}

// AnalyzeStructure derives the structure report from a parsed document.
func AnalyzeStructure(doc *Document) StructureReport {
	lines := documentLines(doc)
	report := StructureReport{PageCount: len(doc.Pages)}

	report.PageNumbers = pageNumbers(doc.Pages)
	report.ConsecutivePageNumbers = consecutive(report.PageNumbers)

	report.TitleText = titleText(doc.Pages)
	introOnFirst := slices.ContainsFunc(lines, func(l textLine) bool {
		_, ok := MatchHeading(l.text, introductionHeading...)
		return l.page == 0 && ok
	})
	report.HasTitlePage = report.TitleText != "" && !introOnFirst

	if abstract, ok := section(lines, abstractHeadings); ok {
		n := len(strings.Fields(abstract))
		report.AbstractWordCount = &n
		report.ConclusionsVsAbstract.Abstract = abstract
	}
	if conclusions, ok := section(lines, conclusionHeadings); ok {
		report.ConclusionsVsAbstract.Conclusions = conclusions
	}

	report.HasCreditStatement = slices.ContainsFunc(lines, func(l textLine) bool {
		_, ok := MatchHeading(l.text, creditHeadings...)
		return ok
	})

	folded := fold(doc.Text())
	flat := strings.Join(strings.Fields(folded), " ")
	report.AIMentioned = aiMentionPattern.MatchString(flat)
	report.AIDeclared = slices.ContainsFunc(aiDeclarationPhrases, func(p string) bool {
		return strings.Contains(flat, p)
	})

	report.Keywords = keywords(lines)
	return report
}

// section returns the text under the first heading matching names, up to the
// next heading. ok is false when no such heading exists.
func section(lines []textLine, names []string) (string, bool) {
	for i, l := range lines {
		rest, ok := MatchHeading(l.text, names...)
		if !ok {
			continue
		}
		var parts []string
		if rest != "" {
			parts = append(parts, rest)
		}
		for _, next := range lines[i+1:] {
			if IsHeading(next.text) {
				break
			}
			if pageNumberPattern.MatchString(next.text) {
				continue
			}
			parts = append(parts, next.text)
		}
		return joinHyphenated(parts), true
	}
	return "", false
}

// joinHyphenated joins wrapped lines, rejoining words split by a trailing
// hyphen.
func joinHyphenated(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			prev := parts[i-1]
			if !strings.HasSuffix(prev, "-") {
				b.WriteByte(' ')
			}
		}
		if i < len(parts)-1 && strings.HasSuffix(p, "-") {
			p = strings.TrimSuffix(p, "-")
		}
		b.WriteString(p)
	}
	return b.String()
}

// keywords collects the keyword list following a keywords heading. The list
// may wrap onto up to two further lines.
func keywords(lines []textLine) []string {
	const maxContinuation = 2

	for i, l := range lines {
		rest, ok := MatchHeading(l.text, keywordHeadings...)
		if !ok {
			continue
		}
		parts := []string{rest}
		for _, next := range lines[i+1:] {
			if len(parts) > maxContinuation || IsHeading(next.text) || next.page != l.page {
				break
			}
			last := parts[len(parts)-1]
			if last != "" && !endsWithSeparator(last) && !keywordSeparators.MatchString(next.text) {
				break
			}
			parts = append(parts, next.text)
		}

		var out []string
		for _, kw := range keywordSeparators.Split(strings.Join(parts, ", "), -1) {
			kw = strings.TrimSpace(strings.TrimRight(kw, ". "))
			if kw != "" {
				out = append(out, kw)
			}
		}
		return out
	}
	return nil
}

func endsWithSeparator(s string) bool {
	loc := keywordSeparators.FindAllStringIndex(s, -1)
	return len(loc) > 0 && loc[len(loc)-1][1] == len(s)
}

// titleText joins the topmost contiguous block of first-page lines set at the
// title size.
func titleText(pages []Page) string {
	size, ok := titleSize(pages)
	if !ok {
		return ""
	}
	var parts []string
	for _, l := range pages[0].Lines() {
		if roundTo(l.Size(), 1) == size {
			parts = append(parts, l.Text())
			continue
		}
		if len(parts) > 0 {
			break
		}
	}
	return strings.Join(parts, " ")
}

// pageNumbers returns the printed page number found in the top or bottom tenth
// of each page, or zero when a page has none.
func pageNumbers(pages []Page) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		if p.Height <= 0 {
			continue
		}
		var candidates []int
		for _, l := range p.Lines() {
			if l.Y > 0.1*p.Height && l.Y < 0.9*p.Height {
				continue
			}
			m := pageNumberPattern.FindStringSubmatch(l.Text())
			if m == nil {
				continue
			}
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				candidates = append(candidates, n)
			}
		}
		out[i] = pickPageNumber(candidates, out, i)
	}
	return out
}

// pickPageNumber prefers the candidate continuing the previous page's number.
func pickPageNumber(candidates, found []int, i int) int {
	if len(candidates) == 0 {
		return 0
	}
	if i > 0 && found[i-1] > 0 && slices.Contains(candidates, found[i-1]+1) {
		return found[i-1] + 1
	}
	return slices.Min(candidates)
}

// consecutive reports whether every page after the first is numbered and the
// numbers increase by one. The first page may be unnumbered.
func consecutive(numbers []int) bool {
	if len(numbers) == 0 {
		return false
	}
	if len(numbers) == 1 {
		return numbers[0] > 0
	}
	for i := 1; i < len(numbers); i++ {
		if numbers[i] == 0 {
			return false
		}
		if i == 1 && numbers[0] == 0 {
			continue
		}
		if numbers[i] != numbers[i-1]+1 {
			return false
		}
	}
	return true
}

// StructureProvider serves the structure key.
type StructureProvider struct {
	loader Loader
}

var _ ports.MetricProvider = (*StructureProvider)(nil)

// NewStructureProvider creates the structure provider.
func NewStructureProvider(loader Loader) *StructureProvider {
	return &StructureProvider{loader: loader}
}

// Key implements ports.MetricProvider.
func (p *StructureProvider) Key() string { return KeyStructure }

// Extract implements ports.MetricProvider.
func (p *StructureProvider) Extract(ctx context.Context, docPath string) (any, error) {
	doc, err := p.loader.Load(ctx, docPath)
	if err != nil {
		return nil, err
	}
	return AnalyzeStructure(doc), nil
}
