// Package judge implements ports.Judge with a language model. Each criterion
// names a prompt template; the rendered prompt asks the model for a JSON
// decision, which is validated before it becomes a verdict.
package judge

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/galley/infrastructure/cache"
	"github.com/ahrav/galley/internal/ports"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Defaults for LLM calls.
const (
	DefaultTemperature = 0.0
	DefaultMaxTokens   = 512
	DefaultMaxExcerpt  = 12000
	DefaultCacheTTL    = 30 * 24 * time.Hour

	genericTemplate = "generic"
)

var (
	// ErrEmptyExcerpt indicates a request without text to judge.
	ErrEmptyExcerpt = errors.New("empty excerpt")
	// ErrNilClient indicates a judge constructed without an LLM client.
	ErrNilClient = errors.New("LLM client cannot be nil")
)

var _ ports.Judge = (*LLMJudge)(nil)

// LLMJudge asks a language model for a pass, fail or needs_review decision.
// Verdicts are cached by model, template and excerpt, and concurrent
// identical requests share one model call.
type LLMJudge struct {
	client      ports.LLMClient
	store       ports.CacheStore
	cacheTTL    time.Duration
	model       string
	temperature float64
	maxTokens   int
	maxExcerpt  int
	templates   *template.Template
	validator   *validator.Validate
	group       singleflight.Group
	logger      *slog.Logger
}

// Option configures an LLMJudge.
type Option func(*LLMJudge)

// WithCache stores verdicts in store for ttl. A zero ttl uses DefaultCacheTTL.
func WithCache(store ports.CacheStore, ttl time.Duration) Option {
	return func(j *LLMJudge) {
		j.store = store
		if ttl > 0 {
			j.cacheTTL = ttl
		}
	}
}

// WithModel forces every request onto model, ignoring the model a criterion
// asks for. Use it when the configured provider cannot serve catalog models.
func WithModel(model string) Option {
	return func(j *LLMJudge) { j.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(j *LLMJudge) { j.temperature = t }
}

// WithMaxTokens bounds the response length.
func WithMaxTokens(n int) Option {
	return func(j *LLMJudge) {
		if n > 0 {
			j.maxTokens = n
		}
	}
}

// WithMaxExcerpt bounds, in runes, the excerpt placed in long-form prompts.
func WithMaxExcerpt(n int) Option {
	return func(j *LLMJudge) {
		if n > 0 {
			j.maxExcerpt = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *LLMJudge) {
		if l != nil {
			j.logger = l
		}
	}
}

// New creates a judge backed by client.
func New(client ports.LLMClient, opts ...Option) (*LLMJudge, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	tmpl, err := template.New("prompts").Funcs(TemplateFuncs()).ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}

	j := &LLMJudge{
		client:      client,
		cacheTTL:    DefaultCacheTTL,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		maxExcerpt:  DefaultMaxExcerpt,
		templates:   tmpl,
		validator:   validator.New(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Templates lists the embedded prompt names, e.g. "prompts/title_check".
func (j *LLMJudge) Templates() []string {
	var names []string
	for _, t := range j.templates.Templates() {
		if name, ok := strings.CutSuffix(t.Name(), ".tmpl"); ok {
			names = append(names, "prompts/"+name)
		}
	}
	return names
}

// Judge implements ports.Judge.
func (j *LLMJudge) Judge(ctx context.Context, req ports.JudgeRequest) (ports.JudgeOutcome, error) {
	if strings.TrimSpace(req.Excerpt) == "" {
		return ports.JudgeOutcome{}, fmt.Errorf("judge %s: %w", req.CriterionID, ErrEmptyExcerpt)
	}
	model := j.modelFor(req)

	prompt, err := j.render(req)
	if err != nil {
		return ports.JudgeOutcome{}, fmt.Errorf("judge %s: %w", req.CriterionID, err)
	}

	key := cache.Key(model, req.PromptTemplate, req.Excerpt)
	if outcome, ok := j.cached(ctx, key); ok {
		j.logger.DebugContext(ctx, "judge cache hit", "criterion", req.CriterionID, "model", model)
		return outcome, nil
	}

	v, err, shared := j.group.Do(key, func() (any, error) {
		return j.ask(ctx, key, model, prompt)
	})
	if err != nil {
		return ports.JudgeOutcome{}, fmt.Errorf("judge %s: %w", req.CriterionID, err)
	}
	j.logger.DebugContext(ctx, "judge decided",
		"criterion", req.CriterionID, "model", model, "shared", shared)
	return v.(ports.JudgeOutcome), nil
}

func (j *LLMJudge) modelFor(req ports.JudgeRequest) string {
	switch {
	case j.model != "":
		return j.model
	case req.Model != "":
		return req.Model
	default:
		return j.client.GetModel()
	}
}

// render executes the template named by req.PromptTemplate, falling back to
// the generic prompt for unknown names.
func (j *LLMJudge) render(req ports.JudgeRequest) (string, error) {
	name := path.Base(req.PromptTemplate)
	tmpl := j.templates.Lookup(name + ".tmpl")
	if tmpl == nil {
		j.logger.Debug("unknown prompt template, using generic", "template", req.PromptTemplate)
		tmpl = j.templates.Lookup(genericTemplate + ".tmpl")
	}

	data := struct {
		CriterionID string
		Description string
		Excerpt     string
		MaxExcerpt  int
	}{
		CriterionID: req.CriterionID,
		Description: req.Description,
		Excerpt:     req.Excerpt,
		MaxExcerpt:  j.maxExcerpt,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String() + responseFormat, nil
}

// cached returns a stored verdict. Unreadable entries are dropped.
func (j *LLMJudge) cached(ctx context.Context, key string) (ports.JudgeOutcome, bool) {
	if j.store == nil {
		return ports.JudgeOutcome{}, false
	}
	raw, found, err := j.store.Get(ctx, key)
	if err != nil {
		j.logger.WarnContext(ctx, "judge cache read failed", "error", err)
		return ports.JudgeOutcome{}, false
	}
	if !found {
		return ports.JudgeOutcome{}, false
	}

	var outcome ports.JudgeOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil || !outcome.Decision.Valid() {
		j.logger.WarnContext(ctx, "dropping corrupt judge cache entry", "key", key)
		_ = j.store.Delete(ctx, key)
		return ports.JudgeOutcome{}, false
	}
	return outcome, true
}

func (j *LLMJudge) ask(ctx context.Context, key, model, prompt string) (ports.JudgeOutcome, error) {
	response, err := j.client.Complete(ctx, prompt, map[string]any{
		"model":       model,
		"temperature": j.temperature,
		"max_tokens":  j.maxTokens,
	})
	if err != nil {
		return ports.JudgeOutcome{}, err
	}

	parsed, err := j.parseResponse(response)
	if err != nil {
		return ports.JudgeOutcome{}, ports.NewLLMError(model, "judge", err)
	}
	outcome := ports.JudgeOutcome{
		Decision:  ports.Decision(parsed.Decision),
		Rationale: parsed.Rationale,
		Model:     model,
	}

	if j.store != nil {
		raw, err := json.Marshal(outcome)
		if err == nil {
			err = j.store.Set(ctx, key, raw, j.cacheTTL)
		}
		if err != nil {
			j.logger.WarnContext(ctx, "judge cache write failed", "error", err)
		}
	}
	return outcome, nil
}
