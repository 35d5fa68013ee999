package ports

import (
	"context"
	"fmt"
)

// Decision is the categorical outcome of a qualitative judgment.
type Decision string

// Supported judge decisions.
const (
	DecisionPass        Decision = "pass"
	DecisionFail        Decision = "fail"
	DecisionNeedsReview Decision = "needs_review"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionPass, DecisionFail, DecisionNeedsReview:
		return true
	default:
		return false
	}
}

// JudgeRequest carries everything a judge needs to assess one criterion.
type JudgeRequest struct {
	// CriterionID identifies the checklist item being judged.
	CriterionID string
	// Description is the checklist text of the criterion.
	Description string
	// Excerpt is the extracted manuscript text under review.
	Excerpt string
	// PromptTemplate names the prompt to render, e.g. "prompts/title_check".
	PromptTemplate string
	// Model is the language model the criterion asks for.
	Model string
}

// JudgeOutcome is the judge's categorical verdict plus its explanation.
type JudgeOutcome struct {
	Decision  Decision `json:"decision"`
	Rationale string   `json:"rationale,omitempty"`
	Model     string   `json:"model,omitempty"`
}

// String renders the outcome for text reports.
func (o JudgeOutcome) String() string {
	if o.Rationale == "" {
		return string(o.Decision)
	}
	return fmt.Sprintf("%s: %s", o.Decision, o.Rationale)
}

// Judge assesses free text against a qualitative criterion. An error means
// the judge could not be reached or produced no usable decision.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (JudgeOutcome, error)
}
