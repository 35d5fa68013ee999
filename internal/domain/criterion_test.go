package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractorRef_Segments(t *testing.T) {
	tests := []struct {
		name string
		ref  ExtractorRef
		want []string
	}{
		{name: "empty", ref: "", want: nil},
		{name: "whitespace only", ref: "   ", want: nil},
		{name: "single segment", ref: "fonts", want: []string{"fonts"}},
		{name: "nested", ref: "geometry.page_metrics.left_margin_cm", want: []string{"geometry", "page_metrics", "left_margin_cm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Segments())
		})
	}
}

func TestExtractorRef_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ref     ExtractorRef
		wantErr bool
	}{
		{name: "empty is allowed", ref: ""},
		{name: "dotted identifiers", ref: "structure.abstract_wordcount"},
		{name: "digits after first rune", ref: "fonts.fontsize.t02_pt"},
		{name: "leading dot", ref: ".fonts", wantErr: true},
		{name: "trailing dot", ref: "fonts.", wantErr: true},
		{name: "double dot", ref: "fonts..body", wantErr: true},
		{name: "space inside", ref: "fonts. body", wantErr: true},
		{name: "segment starts with digit", ref: "fonts.2body", wantErr: true},
		{name: "path separator", ref: "geometry/page", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedReference)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSeverity(t *testing.T) {
	assert.True(t, SeverityInfo.Valid())
	assert.True(t, SeverityWarning.Valid())
	assert.True(t, SeverityError.Valid())
	assert.False(t, Severity("fatal").Valid())
	assert.False(t, Severity("").Valid())

	assert.Less(t, SeverityInfo.Rank(), SeverityWarning.Rank())
	assert.Less(t, SeverityWarning.Rank(), SeverityError.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestCriterion_KindAndMeta(t *testing.T) {
	rule := Rule{ID: "X1", Description: "d", Severity: SeverityError, Extractor: "a.b"}

	tests := []struct {
		criterion Criterion
		kind      Kind
	}{
		{Quantitative{Rule: rule}, KindQuantitative},
		{Categorical{Rule: rule}, KindCategorical},
		{Existential{Rule: rule}, KindExistential},
		{Structural{Rule: rule}, KindStructural},
		{Qualitative{Rule: rule}, KindQualitative},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.criterion.Kind())
			assert.Equal(t, rule, tt.criterion.Meta())
		})
	}
}

func TestQualitative_Model(t *testing.T) {
	assert.Equal(t, DefaultLLMModel, Qualitative{}.Model())
	assert.Equal(t, "claude-3-5-haiku-latest", Qualitative{LLMModel: "claude-3-5-haiku-latest"}.Model())
}

func TestValidateCriterion(t *testing.T) {
	base := Rule{ID: "Q1", Description: "d", Severity: SeverityWarning, Extractor: "a.b"}

	tests := []struct {
		name      string
		criterion Criterion
		wantMsg   string
	}{
		{name: "target band", criterion: Quantitative{Rule: base, Target: Float(10), Tolerance: Float(1)}},
		{name: "range", criterion: Quantitative{Rule: base, MinValue: Float(1), MaxValue: Float(7)}},
		{name: "no bounds is allowed", criterion: Quantitative{Rule: base}},
		{name: "empty extractor is allowed", criterion: Existential{Rule: Rule{ID: "E", Severity: SeverityInfo}}},
		{name: "structural", criterion: Structural{Rule: base, ExpectedStructure: "single_column"}},
		{name: "categorical", criterion: Categorical{Rule: base, AllowedValues: []string{"a"}, ProportionThreshold: Float(0.5)}},
		{name: "qualitative", criterion: Qualitative{Rule: base, PromptTemplate: "prompts/title_check"}},
		{
			name:      "empty id",
			criterion: Existential{Rule: Rule{Severity: SeverityError}},
			wantMsg:   "id cannot be empty",
		},
		{
			name:      "bad severity",
			criterion: Existential{Rule: Rule{ID: "E", Severity: "fatal"}},
			wantMsg:   `invalid severity "fatal"`,
		},
		{
			name:      "malformed reference",
			criterion: Existential{Rule: Rule{ID: "E", Severity: SeverityError, Extractor: "a..b"}},
			wantMsg:   "malformed extractor reference",
		},
		{
			name:      "target without tolerance",
			criterion: Quantitative{Rule: base, Target: Float(10)},
			wantMsg:   "target and tolerance must be set together",
		},
		{
			name:      "negative tolerance",
			criterion: Quantitative{Rule: base, Target: Float(10), Tolerance: Float(-1)},
			wantMsg:   "tolerance cannot be negative",
		},
		{
			name:      "inverted range",
			criterion: Quantitative{Rule: base, MinValue: Float(9), MaxValue: Float(3)},
			wantMsg:   "min_value exceeds max_value",
		},
		{
			name:      "categorical without values",
			criterion: Categorical{Rule: base},
			wantMsg:   "allowed_values cannot be empty",
		},
		{
			name:      "threshold out of range",
			criterion: Categorical{Rule: base, AllowedValues: []string{"a"}, ProportionThreshold: Float(1.5)},
			wantMsg:   "proportion_threshold must be between 0 and 1",
		},
		{
			name:      "qualitative without template",
			criterion: Qualitative{Rule: base},
			wantMsg:   "prompt_template cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCriterion(tt.criterion)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		})
	}
}
