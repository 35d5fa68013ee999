package application

import (
	"fmt"
	"strings"

	"github.com/ahrav/galley/internal/domain"
)

// Catalog is the ordered, immutable set of criteria a Report covers.
// Catalog order is the canonical report order.
type Catalog struct {
	// criteria holds the definitions in declaration order.
	criteria []domain.Criterion
	// byID maps criterion ids to their definitions. It is built once in
	// NewCatalog and never mutated.
	byID map[string]domain.Criterion
}

// NewCatalog validates the criteria and builds the id lookup.
// Duplicate ids, malformed extractor references and invalid variant payloads
// are configuration errors: they are collected into one *domain.ValidationError
// so every problem in a catalog file is reported at once.
func NewCatalog(criteria ...domain.Criterion) (*Catalog, error) {
	verr := domain.NewValidationError("catalog")
	byID := make(map[string]domain.Criterion, len(criteria))
	ordered := make([]domain.Criterion, 0, len(criteria))

	for i, c := range criteria {
		if c == nil {
			verr.AddError(fmt.Sprintf("criterion %d is nil", i))
			continue
		}
		if err := domain.ValidateCriterion(c); err != nil {
			verr.AddError(err.Error())
		}

		id := c.Meta().ID
		if _, dup := byID[id]; dup {
			verr.AddError(fmt.Sprintf("%v: %s", domain.ErrDuplicateCriterion, id))
			continue
		}
		byID[id] = c
		ordered = append(ordered, c)
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return &Catalog{criteria: ordered, byID: byID}, nil
}

// MustCatalog is like NewCatalog but panics on a configuration error.
// It is meant for package-level catalogs built from literals.
func MustCatalog(criteria ...domain.Criterion) *Catalog {
	c, err := NewCatalog(criteria...)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the criteria in catalog order. The slice is a copy.
func (c *Catalog) All() []domain.Criterion {
	out := make([]domain.Criterion, len(c.criteria))
	copy(out, c.criteria)
	return out
}

// Get returns the criterion with the given id.
func (c *Catalog) Get(id string) (domain.Criterion, bool) {
	crit, ok := c.byID[id]
	return crit, ok
}

// IDs returns the criterion ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.criteria))
	for i, crit := range c.criteria {
		ids[i] = crit.Meta().ID
	}
	return ids
}

// Len returns the number of criteria.
func (c *Catalog) Len() int { return len(c.criteria) }

// Subset returns a catalog restricted to the given ids, keeping catalog order.
// Unknown ids are a configuration error.
func (c *Catalog) Subset(ids ...string) (*Catalog, error) {
	want := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := c.byID[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		want[id] = struct{}{}
	}
	if len(unknown) > 0 {
		verr := domain.NewValidationError("catalog subset")
		verr.AddError("unknown criterion ids: " + strings.Join(unknown, ", "))
		return nil, verr
	}

	subset := make([]domain.Criterion, 0, len(want))
	for _, crit := range c.criteria {
		if _, ok := want[crit.Meta().ID]; ok {
			subset = append(subset, crit)
		}
	}
	return NewCatalog(subset...)
}

// ExtractorRefs returns the distinct non-empty extractor references used by
// the catalog, in first-use order.
func (c *Catalog) ExtractorRefs() []domain.ExtractorRef {
	seen := make(map[domain.ExtractorRef]struct{})
	var refs []domain.ExtractorRef
	for _, crit := range c.criteria {
		ref := crit.Meta().Extractor
		if ref.IsEmpty() {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
