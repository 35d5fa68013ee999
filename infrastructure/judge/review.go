package judge

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/ahrav/galley/internal/ports"
)

//go:embed review/manuscript.tmpl
var reviewFS embed.FS

// Review defaults.
const (
	DefaultReviewMaxTokens = 8192
	DefaultReviewMaxChars  = 200_000
)

// ErrEmptyReview indicates the model returned no report text.
var ErrEmptyReview = errors.New("empty review")

// PageSize is a page's media box in centimeters.
type PageSize struct {
	WidthCM  float64
	HeightCM float64
}

// ChecklistItem is one catalog entry as shown to the reviewer.
type ChecklistItem struct {
	ID          string
	Severity    string
	Kind        string
	Description string
}

// ReviewInput is everything sent for one whole-manuscript review.
type ReviewInput struct {
	Document  string
	Text      string
	PageSizes []PageSize
	Checklist []ChecklistItem
}

// Reviewer asks a language model for a free-form markdown review of a whole
// manuscript against the checklist, complementing the per-criterion judge.
type Reviewer struct {
	client    ports.LLMClient
	model     string
	maxTokens int
	maxChars  int
	tmpl      *template.Template
	logger    *slog.Logger
}

// ReviewOption configures a Reviewer.
type ReviewOption func(*Reviewer)

// WithReviewModel sets the model; empty uses the client default.
func WithReviewModel(model string) ReviewOption {
	return func(r *Reviewer) { r.model = model }
}

// WithReviewMaxTokens bounds the report length.
func WithReviewMaxTokens(n int) ReviewOption {
	return func(r *Reviewer) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithReviewMaxChars bounds, in runes, the manuscript text in the prompt.
func WithReviewMaxChars(n int) ReviewOption {
	return func(r *Reviewer) {
		if n > 0 {
			r.maxChars = n
		}
	}
}

// WithReviewLogger sets the logger.
func WithReviewLogger(l *slog.Logger) ReviewOption {
	return func(r *Reviewer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReviewer creates a Reviewer backed by client.
func NewReviewer(client ports.LLMClient, opts ...ReviewOption) (*Reviewer, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	funcs := TemplateFuncs()
	funcs["add"] = func(a, b int) int { return a + b }
	tmpl, err := template.New("review").Funcs(funcs).ParseFS(reviewFS, "review/manuscript.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse review template: %w", err)
	}

	r := &Reviewer{
		client:    client,
		maxTokens: DefaultReviewMaxTokens,
		maxChars:  DefaultReviewMaxChars,
		tmpl:      tmpl.Lookup("manuscript.tmpl"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Review returns the markdown report for in.
func (r *Reviewer) Review(ctx context.Context, in ReviewInput) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", fmt.Errorf("review %s: %w", in.Document, ErrEmptyExcerpt)
	}
	prompt, err := r.Prompt(in)
	if err != nil {
		return "", fmt.Errorf("review %s: %w", in.Document, err)
	}

	opts := map[string]any{"max_tokens": r.maxTokens, "temperature": 0.0}
	model := r.client.GetModel()
	if r.model != "" {
		model = r.model
		opts["model"] = r.model
	}
	r.logger.InfoContext(ctx, "requesting manuscript review",
		"document", in.Document, "model", model, "prompt_chars", utf8.RuneCountInString(prompt))

	out, err := r.client.Complete(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("review %s: %w", in.Document, err)
	}
	report := stripMarkdownFence(out)
	if report == "" {
		return "", fmt.Errorf("review %s: %w", in.Document, ports.NewLLMError(model, "review", ErrEmptyReview))
	}
	return report + "\n", nil
}

// Prompt renders the review prompt without calling the model.
func (r *Reviewer) Prompt(in ReviewInput) (string, error) {
	text := strings.TrimSpace(in.Text)
	truncated := utf8.RuneCountInString(text) > r.maxChars
	if truncated {
		text = string([]rune(text)[:r.maxChars])
	}

	data := struct {
		ReviewInput
		Truncated bool
	}{ReviewInput: in, Truncated: truncated}
	data.Text = text

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render review prompt: %w", err)
	}
	return buf.String(), nil
}

// stripMarkdownFence removes a ```markdown fence wrapping the whole reply.
func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return s
	}
	return strings.TrimSpace(body)
}
