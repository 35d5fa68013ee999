package pdf_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/galley/infrastructure/pdf"
	"github.com/ahrav/galley/internal/application"
	"github.com/ahrav/galley/internal/domain"
	"github.com/ahrav/galley/internal/ports"
)

type failingRegistrar struct{ err error }

func (r failingRegistrar) Register(ports.MetricProvider) error { return r.err }
func (r failingRegistrar) MarkPlanned(...string) error         { return nil }

func twoPageDocument() *pdf.Document {
	line := func(text string, size, y float64) pdf.Span {
		return pdf.Span{Text: text, Font: "ABCDEF+TimesNewRomanPSMT", Size: size, X: 136, Y: y, W: float64(len(text)) * size / 2}
	}
	return &pdf.Document{Path: "paper.pdf", Pages: []pdf.Page{
		{Number: 1, Width: 595, Height: 842, Spans: []pdf.Span{
			line("A Manuscript Title", 14, 760),
			line("Abstract", 10, 700),
			line("Short abstract text.", 10, 680),
		}},
		{Number: 2, Width: 595, Height: 842, Spans: []pdf.Span{
			line("1. Introduction", 10, 760),
			line("Body.", 10, 740),
			line("2", 10, 40),
		}},
	}}
}

func TestRegisterProvidersResolves(t *testing.T) {
	loader := pdf.LoaderFunc(func(context.Context, string) (*pdf.Document, error) {
		return twoPageDocument(), nil
	})

	reg, err := application.NewProviderRegistry()
	require.NoError(t, err)
	require.NoError(t, pdf.RegisterProviders(reg, loader, pdf.ProviderOptions{
		AllowedFonts: []string{"TimesNewRomanPSMT"},
	}))

	assert.Equal(t, []string{
		pdf.KeyFonts,
		pdf.KeyPageMetrics,
		pdf.KeyLayout,
		pdf.KeyReferences,
		pdf.KeyBulkCitationCommentary,
		pdf.KeyStructure,
		pdf.KeyHighlights,
	}, reg.Keys())
	assert.Equal(t, []string{pdf.KeyBulkCitationCommentary, pdf.KeyHighlights}, reg.Planned())

	resolver, err := application.NewResolver(reg)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		ref  domain.ExtractorRef
		want any
	}{
		{ref: "geometry.page_metrics.left_margin_cm", want: 4.8},
		{ref: "geometry.page_metrics.page_count", want: 2},
		{ref: "fonts.fontsize.title_pt", want: 14.0},
		{ref: "fonts.only_allowed_fonts", want: true},
		{ref: "structure.abstract_wordcount", want: 3},
		{ref: "structure.has_title_page", want: true},
		{ref: "references.count", want: 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.ref), func(t *testing.T) {
			got, err := resolver.Resolve(ctx, "paper.pdf", tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = resolver.Resolve(ctx, "paper.pdf", "structure.highlights_ok")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	_, err = resolver.Resolve(ctx, "paper.pdf", "references.share_recent_pct")
	assert.ErrorIs(t, err, domain.ErrFieldMissing, "shares are missing without a reference list")
}

func TestRegisterProvidersError(t *testing.T) {
	boom := errors.New("boom")
	err := pdf.RegisterProviders(failingRegistrar{err: boom}, nil, pdf.ProviderOptions{})
	assert.ErrorIs(t, err, boom)
}
