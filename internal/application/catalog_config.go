package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/galley/internal/domain"
)

// CatalogFile is the YAML form of a catalog.
type CatalogFile struct {
	Version  string          `yaml:"version,omitempty"`
	Criteria []CriterionSpec `yaml:"criteria" validate:"required,min=1,dive"`
}

// CriterionSpec is the YAML form of one criterion. Kind selects the variant;
// setting a field that belongs to another variant is a configuration error.
type CriterionSpec struct {
	ID          string `yaml:"id" validate:"required"`
	Kind        string `yaml:"kind" validate:"required,oneof=quantitative categorical existential structural qualitative"`
	Description string `yaml:"description,omitempty"`
	Severity    string `yaml:"severity,omitempty" validate:"severity"`
	Extractor   string `yaml:"extractor,omitempty" validate:"extractor_ref"`

	Target    *float64 `yaml:"target,omitempty"`
	Tolerance *float64 `yaml:"tolerance,omitempty" validate:"omitempty,gte=0"`
	MinValue  *float64 `yaml:"min_value,omitempty"`
	MaxValue  *float64 `yaml:"max_value,omitempty"`
	Units     string   `yaml:"units,omitempty"`

	AllowedValues       []string `yaml:"allowed_values,omitempty"`
	ProportionThreshold *float64 `yaml:"proportion_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`

	MustBeTrue *bool `yaml:"must_be_true,omitempty"`

	ExpectedStructure string `yaml:"expected_structure,omitempty"`

	PromptTemplate string `yaml:"prompt_template,omitempty"`
	LLMModel       string `yaml:"llm_model,omitempty"`
}

// CatalogLoader decodes and validates YAML catalog files.
type CatalogLoader struct {
	validator *validator.Validate
}

// NewCatalogLoader creates a loader with the catalog validators registered.
func NewCatalogLoader() (*CatalogLoader, error) {
	v := validator.New()
	if err := RegisterCatalogValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &CatalogLoader{validator: v}, nil
}

// LoadFromFile reads a catalog from a YAML file.
func (l *CatalogLoader) LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return l.Load(bytes.NewReader(data))
}

// Load decodes a catalog from r. Unknown fields, struct-tag violations and
// catalog-level problems are configuration errors.
func (l *CatalogLoader) Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file CatalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty catalog file", domain.ErrInvalidConfiguration)
		}
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", domain.ErrInvalidConfiguration, err)
	}

	if err := l.validator.Struct(file); err != nil {
		verr := domain.NewValidationError("catalog file")
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.AddError(fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			verr.AddError(err.Error())
		}
		return nil, verr
	}

	criteria := make([]domain.Criterion, 0, len(file.Criteria))
	for _, spec := range file.Criteria {
		c, err := spec.Criterion()
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return NewCatalog(criteria...)
}

// variantFields lists the payload keys each kind accepts.
var variantFields = map[domain.Kind][]string{
	domain.KindQuantitative: {"target", "tolerance", "min_value", "max_value", "units"},
	domain.KindCategorical:  {"allowed_values", "proportion_threshold"},
	domain.KindExistential:  {"must_be_true"},
	domain.KindStructural:   {"expected_structure"},
	domain.KindQualitative:  {"prompt_template", "llm_model"},
}

// foreignFields returns the payload keys set on s that its kind does not use.
func (s CriterionSpec) foreignFields() []string {
	set := []struct {
		name string
		ok   bool
	}{
		{"target", s.Target != nil},
		{"tolerance", s.Tolerance != nil},
		{"min_value", s.MinValue != nil},
		{"max_value", s.MaxValue != nil},
		{"units", s.Units != ""},
		{"allowed_values", len(s.AllowedValues) > 0},
		{"proportion_threshold", s.ProportionThreshold != nil},
		{"must_be_true", s.MustBeTrue != nil},
		{"expected_structure", s.ExpectedStructure != ""},
		{"prompt_template", s.PromptTemplate != ""},
		{"llm_model", s.LLMModel != ""},
	}
	own := variantFields[domain.Kind(s.Kind)]
	var foreign []string
	for _, f := range set {
		if f.ok && !slices.Contains(own, f.name) {
			foreign = append(foreign, f.name)
		}
	}
	return foreign
}

// Criterion builds the domain variant named by s.Kind.
func (s CriterionSpec) Criterion() (domain.Criterion, error) {
	if foreign := s.foreignFields(); len(foreign) > 0 && variantFields[domain.Kind(s.Kind)] != nil {
		return nil, fmt.Errorf("%w: criterion %s: %s not allowed for kind %s",
			domain.ErrInvalidConfiguration, s.ID, strings.Join(foreign, ", "), s.Kind)
	}
	severity := domain.Severity(s.Severity)
	if severity == "" {
		severity = domain.DefaultSeverity
	}
	base := domain.Rule{
		ID:          s.ID,
		Description: s.Description,
		Severity:    severity,
		Extractor:   domain.ExtractorRef(s.Extractor),
	}

	switch domain.Kind(s.Kind) {
	case domain.KindQuantitative:
		return domain.Quantitative{
			Rule:      base,
			Target:    s.Target,
			Tolerance: s.Tolerance,
			MinValue:  s.MinValue,
			MaxValue:  s.MaxValue,
			Units:     s.Units,
		}, nil
	case domain.KindCategorical:
		return domain.Categorical{
			Rule:                base,
			AllowedValues:       s.AllowedValues,
			ProportionThreshold: s.ProportionThreshold,
		}, nil
	case domain.KindExistential:
		mustBeTrue := true
		if s.MustBeTrue != nil {
			mustBeTrue = *s.MustBeTrue
		}
		return domain.Existential{Rule: base, MustBeTrue: mustBeTrue}, nil
	case domain.KindStructural:
		return domain.Structural{Rule: base, ExpectedStructure: s.ExpectedStructure}, nil
	case domain.KindQualitative:
		return domain.Qualitative{Rule: base, PromptTemplate: s.PromptTemplate, LLMModel: s.LLMModel}, nil
	default:
		return nil, fmt.Errorf("%w: criterion %s: unknown kind %q", domain.ErrInvalidConfiguration, s.ID, s.Kind)
	}
}

// SpecFor converts a criterion into its YAML form.
func SpecFor(c domain.Criterion) CriterionSpec {
	meta := c.Meta()
	spec := CriterionSpec{
		ID:          meta.ID,
		Kind:        string(c.Kind()),
		Description: meta.Description,
		Severity:    string(meta.Severity),
		Extractor:   meta.Extractor.String(),
	}
	switch v := c.(type) {
	case domain.Quantitative:
		spec.Target, spec.Tolerance = v.Target, v.Tolerance
		spec.MinValue, spec.MaxValue = v.MinValue, v.MaxValue
		spec.Units = v.Units
	case domain.Categorical:
		spec.AllowedValues = v.AllowedValues
		spec.ProportionThreshold = v.ProportionThreshold
	case domain.Existential:
		mustBeTrue := v.MustBeTrue
		spec.MustBeTrue = &mustBeTrue
	case domain.Structural:
		spec.ExpectedStructure = v.ExpectedStructure
	case domain.Qualitative:
		spec.PromptTemplate = v.PromptTemplate
		spec.LLMModel = v.LLMModel
	}
	return spec
}

// ExportCatalog writes c as a YAML catalog file that Load accepts.
func ExportCatalog(w io.Writer, c *Catalog) error {
	file := CatalogFile{Version: "1"}
	for _, crit := range c.All() {
		file.Criteria = append(file.Criteria, SpecFor(crit))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}
