package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/galley/internal/ports"
)

func reviewInput() ReviewInput {
	return ReviewInput{
		Document: "ms-42.pdf",
		Text:     "A Study of Things\nAbstract\nWe study things.",
		PageSizes: []PageSize{
			{WidthCM: 21.0, HeightCM: 29.7},
			{WidthCM: 21.0, HeightCM: 29.7},
		},
		Checklist: []ChecklistItem{
			{ID: "L01", Severity: "error", Kind: "quantitative", Description: "A4 page width"},
			{ID: "S01", Severity: "warning", Kind: "qualitative", Description: "Title quality"},
		},
	}
}

func TestReviewerPrompt(t *testing.T) {
	r, err := NewReviewer(&fakeLLM{})
	require.NoError(t, err)

	prompt, err := r.Prompt(reviewInput())
	require.NoError(t, err)

	assert.Contains(t, prompt, "Document: ms-42.pdf")
	assert.Contains(t, prompt, "Pages: 2")
	assert.Contains(t, prompt, "- page 1: 21.00 x 29.70")
	assert.Contains(t, prompt, "- page 2: 21.00 x 29.70")
	assert.Contains(t, prompt, "- **L01** (error, quantitative): A4 page width")
	assert.Contains(t, prompt, "- **S01** (warning, qualitative): Title quality")
	assert.Contains(t, prompt, "We study things.")
	assert.NotContains(t, prompt, "(truncated)")
}

func TestReviewerPromptTruncates(t *testing.T) {
	r, err := NewReviewer(&fakeLLM{}, WithReviewMaxChars(10))
	require.NoError(t, err)

	in := reviewInput()
	in.Text = strings.Repeat("é", 50)
	prompt, err := r.Prompt(in)
	require.NoError(t, err)

	assert.Contains(t, prompt, "(truncated)")
	assert.Contains(t, prompt, "<<<\n"+strings.Repeat("é", 10)+"\n>>>")
}

func TestReviewerReview(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{name: "plain", response: "# Review\n\nAll good.", want: "# Review\n\nAll good.\n"},
		{name: "fenced", response: "```markdown\n# Review\nok\n```", want: "# Review\nok\n"},
		{name: "bare fence", response: "```\n# Review\n```", want: "# Review\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{response: tt.response}
			r, err := NewReviewer(llm, WithReviewModel("gemini-2.5-pro"), WithReviewMaxTokens(100))
			require.NoError(t, err)

			got, err := r.Review(context.Background(), reviewInput())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			opts := llm.lastOptions()
			assert.Equal(t, "gemini-2.5-pro", opts["model"])
			assert.Equal(t, 100, opts["max_tokens"])
		})
	}
}

func TestReviewerDefaultModel(t *testing.T) {
	llm := &fakeLLM{response: "# ok"}
	r, err := NewReviewer(llm)
	require.NoError(t, err)

	_, err = r.Review(context.Background(), reviewInput())
	require.NoError(t, err)
	_, hasModel := llm.lastOptions()["model"]
	assert.False(t, hasModel, "the client default model is used")
	assert.Equal(t, DefaultReviewMaxTokens, llm.lastOptions()["max_tokens"])
}

func TestReviewerErrors(t *testing.T) {
	_, err := NewReviewer(nil)
	assert.ErrorIs(t, err, ErrNilClient)

	r, err := NewReviewer(&fakeLLM{response: "# ok"})
	require.NoError(t, err)
	in := reviewInput()
	in.Text = "   "
	_, err = r.Review(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmptyExcerpt)

	r, err = NewReviewer(&fakeLLM{response: "  "})
	require.NoError(t, err)
	_, err = r.Review(context.Background(), reviewInput())
	assert.ErrorIs(t, err, ErrEmptyReview)
	var llmErr *ports.LLMError
	assert.True(t, errors.As(err, &llmErr))

	boom := errors.New("boom")
	r, err = NewReviewer(&fakeLLM{err: boom})
	require.NoError(t, err)
	_, err = r.Review(context.Background(), reviewInput())
	assert.ErrorIs(t, err, boom)
}
