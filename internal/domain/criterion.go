// Package domain contains the dependency-free editorial checklist model:
// criteria, severities, verdicts and reports.
package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity is the status a criterion reports when its check fails.
type Severity string

// Supported severities, ordered from least to most urgent.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DefaultSeverity is applied to criteria that do not declare one.
const DefaultSeverity = SeverityWarning

// Valid reports whether s is one of the supported severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// Rank orders severities so callers can pick the worst outcome of a report.
// Unknown severities rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// Kind names a criterion variant.
type Kind string

// Criterion variants.
const (
	KindQuantitative Kind = "quantitative"
	KindCategorical  Kind = "categorical"
	KindExistential  Kind = "existential"
	KindStructural   Kind = "structural"
	KindQualitative  Kind = "qualitative"
)

// DefaultLLMModel is used by qualitative criteria that do not name a model.
const DefaultLLMModel = "gpt-4o-mini"

// refPattern matches a dotted reference made of identifier segments.
var refPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ExtractorRef is a dotted reference naming a metric provider and an optional
// drill-down path into its result, e.g. "geometry.page_metrics.left_margin_cm".
// The empty reference marks a criterion whose extractor is not wired yet.
type ExtractorRef string

// IsEmpty reports whether the reference is unset.
func (r ExtractorRef) IsEmpty() bool { return strings.TrimSpace(string(r)) == "" }

// Segments splits the reference on dots. An empty reference has no segments.
func (r ExtractorRef) Segments() []string {
	if r.IsEmpty() {
		return nil
	}
	return strings.Split(string(r), ".")
}

// Validate checks the reference syntax. Empty references are valid.
func (r ExtractorRef) Validate() error {
	if r.IsEmpty() {
		return nil
	}
	if !refPattern.MatchString(string(r)) {
		return fmt.Errorf("%w: %q", ErrMalformedReference, string(r))
	}
	return nil
}

// String implements fmt.Stringer.
func (r ExtractorRef) String() string { return string(r) }

// Rule holds the attributes shared by every criterion variant.
type Rule struct {
	// ID is the stable short code of the checklist item, e.g. "L02L".
	ID string `json:"id" yaml:"id"`
	// Description is the human-readable checklist text.
	Description string `json:"description" yaml:"description"`
	// Severity is the status reported when the criterion fails.
	Severity Severity `json:"severity" yaml:"severity"`
	// Extractor locates the value the criterion is checked against.
	Extractor ExtractorRef `json:"extractor" yaml:"extractor"`
}

// Criterion is a closed sum type over the five rule variants.
// Only types in this package implement it.
type Criterion interface {
	// Meta returns the attributes shared by all variants.
	Meta() Rule
	// Kind names the variant.
	Kind() Kind

	sealed()
}

// Quantitative compares a numeric measurement against a target band or a range.
type Quantitative struct {
	Rule
	Target    *float64
	Tolerance *float64
	MinValue  *float64
	MaxValue  *float64
	// Units documents the measurement unit; it is never used numerically.
	Units string
}

// Categorical requires a discrete value to be in an allowed set, or a share of
// in-set occurrences to reach a threshold when the extractor yields a distribution.
type Categorical struct {
	Rule
	AllowedValues       []string
	ProportionThreshold *float64
}

// Existential asserts a boolean presence flag.
type Existential struct {
	Rule
	MustBeTrue bool
}

// Structural asserts a document-wide layout property. The extractor encodes
// the property as a boolean; ExpectedStructure only labels it.
type Structural struct {
	Rule
	ExpectedStructure string
}

// Qualitative forwards extracted text to a language-model judge.
type Qualitative struct {
	Rule
	PromptTemplate string
	LLMModel       string
}

func (c Quantitative) Meta() Rule { return c.Rule }
func (c Categorical) Meta() Rule  { return c.Rule }
func (c Existential) Meta() Rule  { return c.Rule }
func (c Structural) Meta() Rule   { return c.Rule }
func (c Qualitative) Meta() Rule  { return c.Rule }

func (Quantitative) Kind() Kind { return KindQuantitative }
func (Categorical) Kind() Kind  { return KindCategorical }
func (Existential) Kind() Kind  { return KindExistential }
func (Structural) Kind() Kind   { return KindStructural }
func (Qualitative) Kind() Kind  { return KindQualitative }

func (Quantitative) sealed() {}
func (Categorical) sealed()  {}
func (Existential) sealed()  {}
func (Structural) sealed()   {}
func (Qualitative) sealed()  {}

// Model returns the judge model, falling back to DefaultLLMModel.
func (c Qualitative) Model() string {
	if c.LLMModel == "" {
		return DefaultLLMModel
	}
	return c.LLMModel
}

// Float returns a pointer to v. It keeps catalog literals short.
func Float(v float64) *float64 { return &v }

// ValidateCriterion checks the shared attributes and the variant payload of c.
// Problems are accumulated into a single ValidationError.
func ValidateCriterion(c Criterion) error {
	meta := c.Meta()
	verr := NewValidationError("criterion " + meta.ID)

	if strings.TrimSpace(meta.ID) == "" {
		verr.AddError("id cannot be empty")
	}
	if !meta.Severity.Valid() {
		verr.AddError(fmt.Sprintf("invalid severity %q", meta.Severity))
	}
	if err := meta.Extractor.Validate(); err != nil {
		verr.AddError(err.Error())
	}

	switch v := c.(type) {
	case Quantitative:
		if (v.Target == nil) != (v.Tolerance == nil) && v.MinValue == nil && v.MaxValue == nil {
			verr.AddError("target and tolerance must be set together")
		}
		if v.Tolerance != nil && *v.Tolerance < 0 {
			verr.AddError("tolerance cannot be negative")
		}
		if v.MinValue != nil && v.MaxValue != nil && *v.MinValue > *v.MaxValue {
			verr.AddError("min_value exceeds max_value")
		}
	case Categorical:
		if len(v.AllowedValues) == 0 {
			verr.AddError("allowed_values cannot be empty")
		}
		if t := v.ProportionThreshold; t != nil && (*t < 0 || *t > 1) {
			verr.AddError("proportion_threshold must be between 0 and 1")
		}
	case Existential, Structural:
	case Qualitative:
		if strings.TrimSpace(v.PromptTemplate) == "" {
			verr.AddError("prompt_template cannot be empty")
		}
	default:
		verr.AddError(fmt.Sprintf("unsupported criterion variant %T", c))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
