package pdf

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/galley/internal/ports"
)

// KeyReferences is the provider key of the reference statistics.
const KeyReferences = "references"

// DefaultRecentYears is the window, in years before the reference year, in
// which a cited work counts as recent.
const DefaultRecentYears = 5

var (
	yearPattern          = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	bracketMarkerPattern = regexp.MustCompile(`^\[(\d{1,3})\]\s*`)
	numberMarkerPattern  = regexp.MustCompile(`^(\d{1,3})\.\s+\S`)
	// authorStartPattern matches "Surname, I." or "Surname, Given" at the start
	// of an author-year entry.
	authorStartPattern = regexp.MustCompile(`^\p{Lu}[\p{L}'’\-]+,\s*(\p{Lu}\.|\p{Lu}\p{Ll}+)`)
)

var (
	referenceHeadings = []string{"references", "bibliography", "literature cited"}
	// trailerHeadings end the reference list.
	trailerHeadings = []string{"appendix", "supplementary material", "author biographies", "about the authors", "biography"}

	preprintMarkers = []string{"arxiv", "biorxiv", "medrxiv", "ssrn", "preprint", "corr abs/"}

	// notPatternRecognition lists venues whose names contain the journal title.
	notPatternRecognition = []string{
		"pattern recognition letters",
		"pattern recognit. lett",
		"computer vision and pattern recognition",
		"conference on pattern recognition",
		"cvpr",
		"icpr",
	}
)

// Reference is one entry of the reference list.
type Reference struct {
	Text     string `json:"text"`
	Year     int    `json:"year,omitempty"`
	Preprint bool   `json:"preprint"`
}

// ReferenceReport is the result of the references provider.
type ReferenceReport struct {
	Entries            []Reference `json:"entries"`
	ReferenceYear      int         `json:"reference_year"`
	Recent             int         `json:"recent"`
	Preprints          int         `json:"preprints"`
	PatternRecognition int         `json:"pattern_recognition"`
}

var _ ports.FieldAccessor = ReferenceReport{}

// Field implements ports.FieldAccessor. Shares are percentages rounded to one
// decimal and are missing for an empty reference list.
func (r ReferenceReport) Field(name string) (any, bool) {
	switch name {
	case "count":
		return len(r.Entries), true
	case "entries":
		return r.Entries, true
	case "reference_year":
		return r.ReferenceYear, true
	case "share_recent_pct":
		return r.share(r.Recent)
	case "share_preprint_pct":
		return r.share(r.Preprints)
	case "count_pattern_recognition":
		return r.PatternRecognition, true
	default:
		return nil, false
	}
}

func (r ReferenceReport) share(n int) (any, bool) {
	if len(r.Entries) == 0 {
		return nil, false
	}
	return roundTo(100*float64(n)/float64(len(r.Entries)), 1), true
}

// AnalyzeReferences splits the reference list of doc into entries and counts
// recent works, preprints and recent Pattern Recognition articles. A work is
// recent when its year is at least referenceYear-recentYears.
func AnalyzeReferences(doc *Document, referenceYear, recentYears int) ReferenceReport {
	report := ReferenceReport{ReferenceYear: referenceYear}
	for _, text := range SplitReferences(referenceLines(documentLines(doc))) {
		ref := Reference{Text: text, Year: publicationYear(text, referenceYear)}
		folded := fold(text)
		for _, m := range preprintMarkers {
			if strings.Contains(folded, m) {
				ref.Preprint = true
				break
			}
		}

		recent := ref.Year > 0 && ref.Year >= referenceYear-recentYears
		if recent {
			report.Recent++
		}
		if ref.Preprint {
			report.Preprints++
		}
		if recent && isPatternRecognition(folded) {
			report.PatternRecognition++
		}
		report.Entries = append(report.Entries, ref)
	}
	return report
}

// referenceLines returns the lines after the last reference-list heading, up
// to a trailing appendix or biography section. Running page numbers are
// dropped.
func referenceLines(lines []textLine) []string {
	start := -1
	for i, l := range lines {
		if rest, ok := MatchHeading(l.text, referenceHeadings...); ok && rest == "" {
			start = i + 1
		}
	}
	if start < 0 {
		return nil
	}

	var out []string
	for _, l := range lines[start:] {
		if _, ok := MatchHeading(l.text, trailerHeadings...); ok {
			break
		}
		if pageNumberPattern.MatchString(l.text) {
			continue
		}
		out = append(out, l.text)
	}
	return out
}

// SplitReferences groups reference-list lines into entries. Lists numbered
// "[n]" or "n." are split at the markers, which are removed; otherwise an
// entry starts at a "Surname, I." line following a line ending in a period.
func SplitReferences(lines []string) []string {
	switch {
	case countMatches(lines, bracketMarkerPattern) >= 2:
		return splitAt(lines, bracketMarkerPattern.MatchString, func(s string) string {
			return bracketMarkerPattern.ReplaceAllString(s, "")
		})
	case countMatches(lines, numberMarkerPattern) >= 2:
		return splitAt(lines, numberMarkerPattern.MatchString, func(s string) string {
			_, after, _ := strings.Cut(s, ".")
			return strings.TrimSpace(after)
		})
	}

	var entries []string
	var cur []string
	for _, l := range lines {
		if len(cur) > 0 && authorStartPattern.MatchString(l) && strings.HasSuffix(cur[len(cur)-1], ".") {
			entries = append(entries, joinHyphenated(cur))
			cur = nil
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		entries = append(entries, joinHyphenated(cur))
	}
	return entries
}

func countMatches(lines []string, re *regexp.Regexp) int {
	n := 0
	for _, l := range lines {
		if re.MatchString(l) {
			n++
		}
	}
	return n
}

// splitAt starts a new entry at every line where isStart holds. Lines before
// the first marker are discarded.
func splitAt(lines []string, isStart func(string) bool, strip func(string) string) []string {
	var entries []string
	var cur []string
	for _, l := range lines {
		if isStart(l) {
			if len(cur) > 0 {
				entries = append(entries, joinHyphenated(cur))
			}
			cur = []string{strip(l)}
			continue
		}
		if cur != nil {
			cur = append(cur, l)
		}
	}
	if len(cur) > 0 {
		entries = append(entries, joinHyphenated(cur))
	}
	return entries
}

// publicationYear returns the first plausible year in text, or zero.
func publicationYear(text string, referenceYear int) int {
	for _, m := range yearPattern.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err == nil && y <= referenceYear+1 {
			return y
		}
	}
	return 0
}

func isPatternRecognition(folded string) bool {
	for _, venue := range notPatternRecognition {
		folded = strings.ReplaceAll(folded, venue, "")
	}
	return strings.Contains(folded, "pattern recognit")
}

// ReferencesOption configures a ReferencesProvider.
type ReferencesOption func(*ReferencesProvider)

// WithRecentYears sets the recency window. Non-positive values are ignored.
func WithRecentYears(years int) ReferencesOption {
	return func(p *ReferencesProvider) {
		if years > 0 {
			p.recentYears = years
		}
	}
}

// WithReferenceYear fixes the year recency is measured from. Zero uses the
// current year.
func WithReferenceYear(year int) ReferencesOption {
	return func(p *ReferencesProvider) { p.referenceYear = year }
}

// WithReferenceClock sets the clock used when no reference year is fixed.
func WithReferenceClock(now func() time.Time) ReferencesOption {
	return func(p *ReferencesProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// ReferencesProvider serves the references key.
type ReferencesProvider struct {
	loader        Loader
	recentYears   int
	referenceYear int
	now           func() time.Time
}

var _ ports.MetricProvider = (*ReferencesProvider)(nil)

// NewReferencesProvider creates the references provider.
func NewReferencesProvider(loader Loader, opts ...ReferencesOption) *ReferencesProvider {
	p := &ReferencesProvider{
		loader:      loader,
		recentYears: DefaultRecentYears,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key implements ports.MetricProvider.
func (p *ReferencesProvider) Key() string { return KeyReferences }

// Extract implements ports.MetricProvider.
func (p *ReferencesProvider) Extract(ctx context.Context, docPath string) (any, error) {
	doc, err := p.loader.Load(ctx, docPath)
	if err != nil {
		return nil, err
	}
	year := p.referenceYear
	if year == 0 {
		year = p.now().Year()
	}
	return AnalyzeReferences(doc, year, p.recentYears), nil
}
