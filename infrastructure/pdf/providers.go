package pdf

import (
	"fmt"

	"github.com/ahrav/galley/internal/ports"
)

// Keys of checklist measurements that have no provider yet.
const (
	KeyHighlights             = "structure.highlights_ok"
	KeyBulkCitationCommentary = "references.bulk_citation_commentary"
)

// Registrar is the part of a provider registry RegisterProviders needs.
type Registrar interface {
	Register(p ports.MetricProvider) error
	MarkPlanned(keys ...string) error
}

// ProviderOptions configures the providers built by RegisterProviders.
type ProviderOptions struct {
	// FirstNPages bounds the font inventory. Zero uses DefaultFirstNPages.
	FirstNPages int
	// AllowedFonts is the font allowlist.
	AllowedFonts []string
	// References configures the references provider.
	References []ReferencesOption
}

// Providers builds every metric provider backed by loader.
func Providers(loader Loader, opts ProviderOptions) []ports.MetricProvider {
	return []ports.MetricProvider{
		NewGeometryProvider(loader),
		NewLayoutProvider(loader),
		NewFontProvider(loader, opts.FirstNPages, opts.AllowedFonts),
		NewStructureProvider(loader),
		NewReferencesProvider(loader, opts.References...),
	}
}

// RegisterProviders registers the PDF providers with reg and marks the
// checklist measurements without a provider as planned.
func RegisterProviders(reg Registrar, loader Loader, opts ProviderOptions) error {
	for _, p := range Providers(loader, opts) {
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("register %s provider: %w", p.Key(), err)
		}
	}
	if err := reg.MarkPlanned(KeyHighlights, KeyBulkCitationCommentary); err != nil {
		return fmt.Errorf("mark planned providers: %w", err)
	}
	return nil
}
