package pdf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ahrav/galley/internal/ports"
)

// ErrNoText indicates a document without text on any page.
var ErrNoText = errors.New("document has no text")

// doubleSpacingRatio is the minimum baseline gap, in multiples of the body
// font size, for text to count as double-spaced.
const doubleSpacingRatio = 1.8

// Provider keys for the geometry providers.
const (
	KeyPageMetrics = "geometry.page_metrics"
	KeyLayout      = "geometry.structure"
)

// PageGeometry holds the measurements of one page in centimetres.
type PageGeometry struct {
	Number             int
	WidthCM            float64
	HeightCM           float64
	HasText            bool
	LeftMarginCM       float64
	RightMarginCM      float64
	TopMarginCM        float64
	BottomMarginCM     float64
	FootnoteBaselineCM float64
	SingleColumn       bool
	// LineSpacing is the median baseline gap divided by the body size.
	// Zero when the page has fewer than two body lines.
	LineSpacing float64
}

// MeasurePage computes the geometry of one page. bodySize is the document's
// body font size; text within half a point of it counts as body text.
func MeasurePage(p Page, bodySize float64) PageGeometry {
	g := PageGeometry{
		Number:   p.Number,
		WidthCM:  p.Width * PtToCM,
		HeightCM: p.Height * PtToCM,
	}
	lines := p.Lines()
	if len(lines) == 0 {
		g.SingleColumn = true
		return g
	}
	g.HasText = true

	minX, maxX := math.Inf(1), math.Inf(-1)
	maxTop, minBase, minBodyBase := math.Inf(-1), math.Inf(1), math.Inf(1)
	for _, l := range lines {
		minX = math.Min(minX, l.X0)
		maxX = math.Max(maxX, l.X1)
		maxTop = math.Max(maxTop, l.Y+l.Size())
		minBase = math.Min(minBase, l.Y)
		if isBody(l, bodySize) {
			minBodyBase = math.Min(minBodyBase, l.Y)
		}
	}
	if math.IsInf(minBodyBase, 1) {
		minBodyBase = minBase
	}

	g.LeftMarginCM = minX * PtToCM
	g.RightMarginCM = (p.Width - maxX) * PtToCM
	g.TopMarginCM = (p.Height - maxTop) * PtToCM
	g.BottomMarginCM = minBodyBase * PtToCM
	g.FootnoteBaselineCM = minBase * PtToCM
	g.SingleColumn = !isMultiColumn(lines, p.Width)
	g.LineSpacing = lineSpacing(lines, bodySize)
	return g
}

func isBody(l Line, bodySize float64) bool {
	return bodySize > 0 && math.Abs(l.Size()-bodySize) <= 0.5
}

// isMultiColumn reports whether enough lines hold a segment entirely in each
// half of the page to suggest side-by-side columns.
func isMultiColumn(lines []Line, width float64) bool {
	const minPerSide = 3
	mid := width / 2
	var left, right int
	for _, l := range lines {
		hasLeft, hasRight := columnSides(l, mid)
		if hasLeft {
			left++
		}
		if hasRight {
			right++
		}
	}
	return left >= minPerSide && right >= minPerSide && float64(right) >= 0.25*float64(len(lines))
}

// columnSides reports which halves of the page hold text of l. Columns that
// share a baseline merge into one line, so a line counts for both halves when
// a gutter separates its segments. A line crossing the midline counts for
// neither.
func columnSides(l Line, mid float64) (left, right bool) {
	leftEnd, rightStart := math.Inf(-1), math.Inf(1)
	for _, s := range l.Spans {
		switch {
		case s.X1() <= mid:
			left = true
			leftEnd = max(leftEnd, s.X1())
		case s.X >= mid:
			right = true
			rightStart = min(rightStart, s.X)
		default:
			return false, false
		}
	}
	if left && right && rightStart-leftEnd < 1.5*math.Max(l.Size(), 1) {
		return false, false
	}
	return left, right
}

func lineSpacing(lines []Line, bodySize float64) float64 {
	if bodySize <= 0 {
		return 0
	}
	var gaps []float64
	for i := 1; i < len(lines); i++ {
		prev, cur := lines[i-1], lines[i]
		if !isBody(prev, bodySize) || !isBody(cur, bodySize) {
			continue
		}
		gap := prev.Y - cur.Y
		// Paragraph breaks and figure gaps are not line spacing.
		if gap <= 0 || gap > 4*bodySize {
			continue
		}
		gaps = append(gaps, gap/bodySize)
	}
	return median(gaps)
}

// PageMetrics is the document-wide geometry: median page size and footnote
// baseline, minimum margins, and single-column layout on every page.
type PageMetrics struct {
	PageWidthCM        float64 `json:"page_width_cm"`
	PageHeightCM       float64 `json:"page_height_cm"`
	LeftMarginCM       float64 `json:"left_margin_cm"`
	RightMarginCM      float64 `json:"right_margin_cm"`
	TopMarginCM        float64 `json:"top_margin_cm"`
	BottomMarginCM     float64 `json:"bottom_margin_cm"`
	FootnoteBaselineCM float64 `json:"footnote_baseline_cm"`
	IsSingleColumn     bool    `json:"is_single_column"`
	PageCount          int     `json:"page_count"`
}

var _ ports.FieldAccessor = PageMetrics{}

// Field implements ports.FieldAccessor.
func (m PageMetrics) Field(name string) (any, bool) {
	switch name {
	case "page_width_cm", "page_w_cm":
		return m.PageWidthCM, true
	case "page_height_cm", "page_h_cm":
		return m.PageHeightCM, true
	case "left_margin_cm":
		return m.LeftMarginCM, true
	case "right_margin_cm":
		return m.RightMarginCM, true
	case "top_margin_cm":
		return m.TopMarginCM, true
	case "bottom_margin_cm":
		return m.BottomMarginCM, true
	case "footnote_baseline_cm":
		return m.FootnoteBaselineCM, true
	case "is_single_column":
		return m.IsSingleColumn, true
	case "two_column":
		return !m.IsSingleColumn, true
	case "page_count":
		return m.PageCount, true
	default:
		return nil, false
	}
}

// AggregatePageMetrics combines per-page geometry. Page size is the median over
// all pages. Margins are the minimum and the footnote baseline the median over
// pages with text; the layout is single-column only if every such page is.
func AggregatePageMetrics(pages []PageGeometry) (PageMetrics, error) {
	if len(pages) == 0 {
		return PageMetrics{}, ErrNoPages
	}

	var widths, heights, footnotes []float64
	var left, right, top, bottom []float64
	single := true
	for _, g := range pages {
		widths = append(widths, g.WidthCM)
		heights = append(heights, g.HeightCM)
		if !g.HasText {
			continue
		}
		left = append(left, g.LeftMarginCM)
		right = append(right, g.RightMarginCM)
		top = append(top, g.TopMarginCM)
		bottom = append(bottom, g.BottomMarginCM)
		footnotes = append(footnotes, g.FootnoteBaselineCM)
		single = single && g.SingleColumn
	}
	if len(left) == 0 {
		return PageMetrics{}, ErrNoText
	}

	return PageMetrics{
		PageWidthCM:        roundTo(median(widths), 2),
		PageHeightCM:       roundTo(median(heights), 2),
		LeftMarginCM:       roundTo(slices.Min(left), 2),
		RightMarginCM:      roundTo(slices.Min(right), 2),
		TopMarginCM:        roundTo(slices.Min(top), 2),
		BottomMarginCM:     roundTo(slices.Min(bottom), 2),
		FootnoteBaselineCM: roundTo(median(footnotes), 2),
		IsSingleColumn:     single,
		PageCount:          len(pages),
	}, nil
}

// LayoutStructure reports document-wide layout properties.
type LayoutStructure struct {
	SingleColumn     bool    `json:"single_column"`
	DoubleSpaced     bool    `json:"double_spaced"`
	LineSpacingRatio float64 `json:"line_spacing_ratio"`
}

var _ ports.FieldAccessor = LayoutStructure{}

// Field implements ports.FieldAccessor.
func (s LayoutStructure) Field(name string) (any, bool) {
	switch name {
	case "single_column":
		return s.SingleColumn, true
	case "double_spaced":
		return s.DoubleSpaced, true
	case "single_column_double_spaced":
		return s.SingleColumn && s.DoubleSpaced, true
	case "line_spacing_ratio":
		return s.LineSpacingRatio, true
	default:
		return nil, false
	}
}

// AggregateLayout combines per-page layout: single-column on every page with
// text, and double-spaced when the median line spacing reaches the threshold.
func AggregateLayout(pages []PageGeometry) (LayoutStructure, error) {
	var spacings []float64
	single, anyText := true, false
	for _, g := range pages {
		if !g.HasText {
			continue
		}
		anyText = true
		single = single && g.SingleColumn
		if g.LineSpacing > 0 {
			spacings = append(spacings, g.LineSpacing)
		}
	}
	if !anyText {
		return LayoutStructure{}, ErrNoText
	}
	ratio := roundTo(median(spacings), 2)
	return LayoutStructure{
		SingleColumn:     single,
		DoubleSpaced:     ratio >= doubleSpacingRatio,
		LineSpacingRatio: ratio,
	}, nil
}

// MeasureDocument measures every page of doc using the document body size.
func MeasureDocument(doc *Document) []PageGeometry {
	body := BodySize(doc.Pages)
	out := make([]PageGeometry, len(doc.Pages))
	for i, p := range doc.Pages {
		out[i] = MeasurePage(p, body)
	}
	return out
}

// GeometryProvider serves geometry.page_metrics.
type GeometryProvider struct {
	loader Loader
}

var _ ports.MetricProvider = (*GeometryProvider)(nil)

// NewGeometryProvider creates the page metrics provider.
func NewGeometryProvider(loader Loader) *GeometryProvider {
	return &GeometryProvider{loader: loader}
}

// Key implements ports.MetricProvider.
func (p *GeometryProvider) Key() string { return KeyPageMetrics }

// Extract implements ports.MetricProvider.
func (p *GeometryProvider) Extract(ctx context.Context, docPath string) (any, error) {
	doc, err := p.loader.Load(ctx, docPath)
	if err != nil {
		return nil, err
	}
	m, err := AggregatePageMetrics(MeasureDocument(doc))
	if err != nil {
		return nil, fmt.Errorf("page metrics for %s: %w", docPath, err)
	}
	return m, nil
}

// LayoutProvider serves geometry.structure.
type LayoutProvider struct {
	loader Loader
}

var _ ports.MetricProvider = (*LayoutProvider)(nil)

// NewLayoutProvider creates the layout structure provider.
func NewLayoutProvider(loader Loader) *LayoutProvider {
	return &LayoutProvider{loader: loader}
}

// Key implements ports.MetricProvider.
func (p *LayoutProvider) Key() string { return KeyLayout }

// Extract implements ports.MetricProvider.
func (p *LayoutProvider) Extract(ctx context.Context, docPath string) (any, error) {
	doc, err := p.loader.Load(ctx, docPath)
	if err != nil {
		return nil, err
	}
	s, err := AggregateLayout(MeasureDocument(doc))
	if err != nil {
		return nil, fmt.Errorf("layout for %s: %w", docPath, err)
	}
	return s, nil
}
