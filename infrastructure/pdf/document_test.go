package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageLines(t *testing.T) {
	p := letterPage(1,
		span("world", testFont, 10, 130, 699),
		span("second line", testFont, 10, 72, 680),
		span("Hello", testFont, 10, 72, 700),
		span("   ", testFont, 10, 72, 600),
	)

	lines := p.Lines()
	require.Len(t, lines, 2, "spans within the baseline tolerance share a line; blank spans are dropped")

	assert.Equal(t, "Hello world", lines[0].Text())
	assert.Equal(t, "second line", lines[1].Text())
	assert.InDelta(t, 72.0, lines[0].X0, 1e-9)
	assert.InDelta(t, 130.0+5*10*charWidth, lines[0].X1, 1e-9)
}

func TestLineSize(t *testing.T) {
	l := Line{Spans: []Span{
		span("Heading", testFont, 12, 72, 700),
		span("a", testFont, 10, 160, 700),
	}}
	assert.Equal(t, 12.0, l.Size(), "the size carrying the most characters wins")
}

func TestPageHasText(t *testing.T) {
	assert.False(t, letterPage(1).HasText())
	assert.False(t, letterPage(1, span(" ", testFont, 10, 72, 700)).HasText())
	assert.True(t, letterPage(1, body("x", 700)).HasText())
}

func TestDocumentText(t *testing.T) {
	doc := &Document{Pages: []Page{
		letterPage(1, body("first", 700)),
		letterPage(2, body("second", 700)),
	}}
	assert.Equal(t, "first\nsecond\n", doc.Text())
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{name: "empty", in: nil, want: 0},
		{name: "odd", in: []float64{3, 1, 2}, want: 2},
		{name: "even", in: []float64{4, 1, 3, 2}, want: 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.in))
		})
	}
}
