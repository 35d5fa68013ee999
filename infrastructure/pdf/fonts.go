package pdf

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/ahrav/galley/internal/ports"
)

// KeyFonts is the provider key of the font report.
const KeyFonts = "fonts"

// DefaultFirstNPages is how many leading pages the font inventory covers.
const DefaultFirstNPages = 5

// FontKey identifies a font at a size.
type FontKey struct {
	Font string  `json:"font"`
	Size float64 `json:"size"`
}

// FontCount is one inventory row.
type FontCount struct {
	FontKey
	Count int `json:"count"`
}

// StripSubset removes the embedded-subset prefix, e.g.
// "ABCDEF+TimesNewRomanPSMT" becomes "TimesNewRomanPSMT".
func StripSubset(name string) string {
	if _, after, found := strings.Cut(name, "+"); found {
		return after
	}
	return name
}

// baseFont strips style qualifiers such as ",Bold".
func baseFont(name string) string {
	base, _, _ := strings.Cut(name, ",")
	return base
}

// FontInventory counts visible characters per (font, size) over the first n
// pages, ranked by count, then font name, then size. n <= 0 covers every page.
func FontInventory(pages []Page, n int) []FontCount {
	if n > 0 && len(pages) > n {
		pages = pages[:n]
	}
	counts := make(map[FontKey]int)
	for _, p := range pages {
		for _, s := range p.Spans {
			chars := countVisible(s.Text)
			if chars == 0 {
				continue
			}
			counts[FontKey{Font: StripSubset(s.Font), Size: roundTo(s.Size, 1)}] += chars
		}
	}

	inv := make([]FontCount, 0, len(counts))
	for k, c := range counts {
		inv = append(inv, FontCount{FontKey: k, Count: c})
	}
	slices.SortFunc(inv, func(a, b FontCount) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.Font, b.Font),
			cmp.Compare(a.Size, b.Size),
		)
	})
	return inv
}

func countVisible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// HasOnlyAllowedFonts reports whether every font in the inventory, with style
// qualifiers stripped, is in the allowlist.
func HasOnlyAllowedFonts(inv []FontCount, allowed []string) bool {
	for _, fc := range inv {
		if !slices.Contains(allowed, baseFont(fc.Font)) {
			return false
		}
	}
	return true
}

// BodySize returns the size carrying the most characters across pages.
func BodySize(pages []Page) float64 {
	bySize := make(map[float64]int)
	for _, p := range pages {
		for _, s := range p.Spans {
			bySize[roundTo(s.Size, 1)] += countVisible(s.Text)
		}
	}
	return argmax(bySize)
}

func argmax[K cmp.Ordered](m map[K]int) K {
	var best K
	bestN := 0
	for k, n := range m {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// FontSizes holds the sizes of the main text roles in points. Roles that could
// not be identified are nil.
type FontSizes struct {
	TitlePt     *float64 `json:"title_pt,omitempty"`
	BodyPt      *float64 `json:"body_pt,omitempty"`
	SmallTextPt *float64 `json:"smalltext_pt,omitempty"`
}

// Field implements ports.FieldAccessor. Unidentified roles are missing.
func (s FontSizes) Field(name string) (any, bool) {
	var v *float64
	switch name {
	case "title_pt":
		v = s.TitlePt
	case "body_pt":
		v = s.BodyPt
	case "smalltext_pt":
		v = s.SmallTextPt
	}
	if v == nil {
		return nil, false
	}
	return *v, true
}

// FontReport is the result of the fonts provider.
type FontReport struct {
	Inventory          []FontCount    `json:"inventory"`
	MostCommonBodyFont string         `json:"most_common_body_font"`
	OnlyAllowedFonts   bool           `json:"only_allowed_fonts"`
	FontDistribution   map[string]int `json:"font_distribution"`
	FontSize           FontSizes      `json:"fontsize"`
}

var (
	_ ports.FieldAccessor = FontReport{}
	_ ports.FieldAccessor = FontSizes{}
)

// Field implements ports.FieldAccessor.
func (r FontReport) Field(name string) (any, bool) {
	switch name {
	case "inventory":
		return r.Inventory, true
	case "most_common_body_font":
		if r.MostCommonBodyFont == "" {
			return nil, false
		}
		return r.MostCommonBodyFont, true
	case "only_allowed_fonts":
		return r.OnlyAllowedFonts, true
	case "font_distribution":
		return r.FontDistribution, true
	case "fontsize":
		return r.FontSize, true
	default:
		return nil, false
	}
}

// BuildFontReport derives the font report from the first n pages.
func BuildFontReport(pages []Page, n int, allowed []string) FontReport {
	inv := FontInventory(pages, n)

	dist := make(map[string]int)
	bySize := make(map[float64]int)
	for _, fc := range inv {
		dist[baseFont(fc.Font)] += fc.Count
		bySize[fc.Size] += fc.Count
	}

	report := FontReport{
		Inventory:          inv,
		MostCommonBodyFont: argmax(dist),
		OnlyAllowedFonts:   HasOnlyAllowedFonts(inv, allowed),
		FontDistribution:   dist,
	}
	if len(inv) == 0 {
		return report
	}

	body := argmax(bySize)
	report.FontSize.BodyPt = &body
	if title, ok := titleSize(pages); ok {
		report.FontSize.TitlePt = &title
	}

	small := make(map[float64]int)
	for size, n := range bySize {
		if size <= body-1 {
			small[size] = n
		}
	}
	if len(small) > 0 {
		s := argmax(small)
		report.FontSize.SmallTextPt = &s
	}
	return report
}

// titleSize returns the largest size on the first page that sets at least a
// few characters, so drop caps and symbols are ignored.
func titleSize(pages []Page) (float64, bool) {
	if len(pages) == 0 {
		return 0, false
	}
	bySize := make(map[float64]int)
	for _, s := range pages[0].Spans {
		bySize[roundTo(s.Size, 1)] += countVisible(s.Text)
	}
	var best float64
	found := false
	for size, n := range bySize {
		if n >= 4 && size > best {
			best, found = size, true
		}
	}
	return best, found
}

// FontProvider serves the fonts key.
type FontProvider struct {
	loader      Loader
	firstNPages int
	allowed     []string
}

var _ ports.MetricProvider = (*FontProvider)(nil)

// NewFontProvider creates the font provider. firstNPages <= 0 uses
// DefaultFirstNPages.
func NewFontProvider(loader Loader, firstNPages int, allowed []string) *FontProvider {
	if firstNPages <= 0 {
		firstNPages = DefaultFirstNPages
	}
	return &FontProvider{loader: loader, firstNPages: firstNPages, allowed: allowed}
}

// Key implements ports.MetricProvider.
func (p *FontProvider) Key() string { return KeyFonts }

// Extract implements ports.MetricProvider.
func (p *FontProvider) Extract(ctx context.Context, docPath string) (any, error) {
	doc, err := p.loader.Load(ctx, docPath)
	if err != nil {
		return nil, err
	}
	return BuildFontReport(doc.Pages, p.firstNPages, p.allowed), nil
}
