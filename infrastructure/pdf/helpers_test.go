package pdf

import (
	"context"
	"unicode/utf8"
)

const (
	testFont  = "TimesNewRomanPSMT"
	letterW   = 612.0
	letterH   = 792.0
	charWidth = 0.5
)

// span builds a span whose width is proportional to its rune count.
func span(text, font string, size, x, y float64) Span {
	return Span{
		Text: text,
		Font: font,
		Size: size,
		X:    x,
		Y:    y,
		W:    float64(utf8.RuneCountInString(text)) * size * charWidth,
	}
}

// body builds a 10 pt body-font span at the left margin of a letter page.
func body(text string, y float64) Span { return span(text, testFont, 10, 72, y) }

func letterPage(n int, spans ...Span) Page {
	return Page{Number: n, Width: letterW, Height: letterH, Spans: spans}
}

func staticLoader(doc *Document) Loader {
	return LoaderFunc(func(context.Context, string) (*Document, error) { return doc, nil })
}
