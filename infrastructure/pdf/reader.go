package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// ErrNoPages indicates a document without readable pages.
var ErrNoPages = errors.New("document has no pages")

// US Letter media box, used when a page declares none.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// ReaderLoader parses PDFs with github.com/ledongthuc/pdf.
type ReaderLoader struct {
	// MaxPages limits how many pages are read. Zero reads every page.
	MaxPages int
	Logger   *slog.Logger
}

// NewReaderLoader creates a loader reading every page.
func NewReaderLoader(logger *slog.Logger) *ReaderLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaderLoader{Logger: logger}
}

// Load opens path, extracts positioned text from each page and closes the file.
// Malformed content streams that make the parser panic are reported as errors.
func (l *ReaderLoader) Load(ctx context.Context, path string) (doc *Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("parse %s: %v", path, rec)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	if l.MaxPages > 0 && n > l.MaxPages {
		n = l.MaxPages
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}

	doc = &Document{Path: path, Pages: make([]Page, 0, n)}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			l.logger().DebugContext(ctx, "skipping null page", "document", path, "page", i)
			continue
		}
		w, h := mediaBox(p.V)
		doc.Pages = append(doc.Pages, Page{
			Number: i,
			Width:  w,
			Height: h,
			Spans:  mergeGlyphs(p.Content().Text),
		})
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}
	return doc, nil
}

func (l *ReaderLoader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// mediaBox returns the page size in points, following inherited attributes
// up the page tree.
func mediaBox(v lpdf.Value) (float64, float64) {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.IsNull() || box.Len() < 4 {
			continue
		}
		x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
		x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
		return math.Abs(x1 - x0), math.Abs(y1 - y0)
	}
	return letterWidth, letterHeight
}

// mergeGlyphs joins consecutive glyphs drawn with the same font and size on
// the same baseline into spans.
func mergeGlyphs(texts []lpdf.Text) []Span {
	var spans []Span
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if n := len(spans); n > 0 {
			last := &spans[n-1]
			gap := t.X - last.X1()
			if last.Font == t.Font && last.Size == t.FontSize &&
				math.Abs(last.Y-t.Y) < 0.5 && gap > -0.5 && gap < 0.15*math.Max(t.FontSize, 1) {
				last.Text += t.S
				last.W = t.X + t.W - last.X
				continue
			}
		}
		spans = append(spans, Span{
			Text: t.S,
			Font: t.Font,
			Size: t.FontSize,
			X:    t.X,
			Y:    t.Y,
			W:    t.W,
		})
	}
	for i := range spans {
		spans[i].Text = strings.ReplaceAll(spans[i].Text, "\u00a0", " ")
	}
	return spans
}
