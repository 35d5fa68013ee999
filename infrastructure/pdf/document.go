// Package pdf extracts page geometry, font usage, section structure and
// reference statistics from manuscript PDFs.
//
// Every provider opens the document inside its Extract call and releases it
// before returning, so providers can be invoked once per criterion.
package pdf

import (
	"context"
	"math"
	"slices"
	"strings"
)

// PtToCM converts PDF points to centimetres.
const PtToCM = 2.54 / 72.0

// Span is a run of text drawn with one font at one size on one baseline.
// Coordinates are PDF points with the origin at the bottom-left of the page.
type Span struct {
	Text string
	Font string
	Size float64
	X    float64
	Y    float64
	W    float64
}

// X1 returns the right edge of the span.
func (s Span) X1() float64 { return s.X + s.W }

// Line is a group of spans sharing a baseline, ordered left to right.
type Line struct {
	Spans []Span
	Y     float64
	X0    float64
	X1    float64
}

// Text joins the spans of the line, inserting spaces at visible gaps.
func (l Line) Text() string {
	var b strings.Builder
	for i, s := range l.Spans {
		if i > 0 {
			prev := l.Spans[i-1]
			if s.X-prev.X1() > 0.15*math.Max(s.Size, 1) && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(s.Text, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(s.Text)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}

// Size returns the size carrying the most characters on the line.
func (l Line) Size() float64 {
	weights := make(map[float64]int)
	for _, s := range l.Spans {
		weights[roundTo(s.Size, 1)] += len([]rune(strings.TrimSpace(s.Text)))
	}
	var best float64
	bestN := -1
	for size, n := range weights {
		if n > bestN || (n == bestN && size > best) {
			best, bestN = size, n
		}
	}
	return best
}

// Page is one page of a document.
type Page struct {
	// Number is the 1-based page index.
	Number int
	// Width and Height are the media box dimensions in points.
	Width  float64
	Height float64
	Spans  []Span
}

// HasText reports whether the page carries any visible text.
func (p Page) HasText() bool {
	for _, s := range p.Spans {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

// Lines groups the page's spans into lines, top to bottom. Spans whose
// baselines differ by less than tolerance points share a line.
func (p Page) Lines() []Line {
	const tolerance = 2.0

	spans := make([]Span, 0, len(p.Spans))
	for _, s := range p.Spans {
		if strings.TrimSpace(s.Text) != "" {
			spans = append(spans, s)
		}
	}
	slices.SortStableFunc(spans, func(a, b Span) int {
		switch {
		case a.Y > b.Y:
			return -1
		case a.Y < b.Y:
			return 1
		default:
			return 0
		}
	})

	var lines []Line
	for _, s := range spans {
		if n := len(lines); n > 0 && math.Abs(lines[n-1].Y-s.Y) < tolerance {
			lines[n-1].Spans = append(lines[n-1].Spans, s)
			continue
		}
		lines = append(lines, Line{Y: s.Y, Spans: []Span{s}})
	}

	for i := range lines {
		l := &lines[i]
		slices.SortFunc(l.Spans, func(a, b Span) int {
			switch {
			case a.X < b.X:
				return -1
			case a.X > b.X:
				return 1
			default:
				return 0
			}
		})
		l.X0 = l.Spans[0].X
		l.X1 = l.Spans[0].X1()
		for _, s := range l.Spans[1:] {
			l.X1 = math.Max(l.X1, s.X1())
		}
	}
	return lines
}

// Document is a parsed PDF.
type Document struct {
	Path  string
	Pages []Page
}

// Lines returns the lines of every page in reading order.
func (d *Document) Lines() []Line {
	var out []Line
	for _, p := range d.Pages {
		out = append(out, p.Lines()...)
	}
	return out
}

// Text returns the document text, one line per row.
func (d *Document) Text() string {
	var b strings.Builder
	for _, l := range d.Lines() {
		b.WriteString(l.Text())
		b.WriteByte('\n')
	}
	return b.String()
}

// Loader opens and parses a document. Implementations must release any file
// handle before returning.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (*Document, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, path string) (*Document, error) { return f(ctx, path) }

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
