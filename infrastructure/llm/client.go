// Package llm provides a ports.LLMClient over several model providers
// (OpenAI, Anthropic, Google Gemini) with a middleware chain for retries,
// rate limiting, circuit breaking, timeouts, metrics and tracing.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	    Middleware: llm.Chain(llm.ChainConfig{
//	        Provider:   "openai",
//	        MaxRetries: 2,
//	        Timeout:    60 * time.Second,
//	    }),
//	})
//	response, err := client.Complete(ctx, prompt, map[string]any{"temperature": 0.0})
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ahrav/galley/internal/ports"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// a CoreLLM and returns another.
type CoreLLM interface {
	// DoRequest sends prompt and returns the response text with input and
	// output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)
	GetModel() string
	SetModel(model string)
}

// TokenEstimator approximates token counts before a request is sent.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// Middleware wraps a CoreLLM with a cross-cutting concern.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig configures NewClient.
type ClientConfig struct {
	// APIKey authenticates with the provider.
	APIKey string
	// Model is the default model. Empty selects DefaultModel(provider).
	Model string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Timeout bounds each HTTP request made by the SDK. Zero means none.
	Timeout time.Duration
	// TokenEstimator defaults to SimpleTokenEstimator.
	TokenEstimator TokenEstimator
	// Middleware is applied so that the first entry is the outermost.
	Middleware []Middleware
}

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{
	ProviderOpenAI:    newOpenAIProvider,
	ProviderAnthropic: newAnthropicProvider,
	ProviderGoogle:    newGoogleProvider,
}

var defaultModels = map[string]string{
	ProviderOpenAI:    OpenAIDefaultModel,
	ProviderAnthropic: AnthropicDefaultModel,
	ProviderGoogle:    GoogleDefaultModel,
}

var apiKeyEnv = map[string][]string{
	ProviderOpenAI:    {"OPENAI_API_KEY"},
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderGoogle:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Providers lists the provider names NewClient accepts.
func Providers() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultModel returns the model used when a provider is configured
// without one.
func DefaultModel(provider string) string { return defaultModels[provider] }

// APIKeyFromEnv returns the first non-empty API key variable for provider.
func APIKeyFromEnv(provider string) string {
	for _, name := range apiKeyEnv[provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

var _ ports.LLMClient = (*Client)(nil)

// Client implements ports.LLMClient on top of a middleware-wrapped CoreLLM.
type Client struct {
	provider  string
	core      CoreLLM
	estimator TokenEstimator
}

// NewClient creates a client for providerType.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProvider, providerType, Providers())
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", providerType, ErrEmptyAPIKey)
	}
	if config.Model == "" {
		config.Model = DefaultModel(providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}
	return newClient(providerType, core, config), nil
}

func newClient(provider string, core CoreLLM, config ClientConfig) *Client {
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}
	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = SimpleTokenEstimator{}
	}
	return &Client{provider: provider, core: core, estimator: estimator}
}

// Complete implements ports.LLMClient. Failures are returned as
// *ports.LLMError.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage is Complete plus input and output token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	if err != nil {
		var llmErr *ports.LLMError
		if errors.As(err, &llmErr) {
			return "", 0, 0, err
		}
		model := ParseRequestOptions(options, c.core.GetModel()).Model
		return "", 0, 0, ports.NewLLMError(model, "complete", err)
	}
	return response, tokensIn, tokensOut, nil
}

// EstimateTokens implements ports.LLMClient.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel implements ports.LLMClient.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the provider name the client was created for.
func (c *Client) Provider() string { return c.provider }

// SimpleTokenEstimator assumes about four characters per token.
type SimpleTokenEstimator struct{}

// EstimateTokens rounds rune count / 4 up.
func (SimpleTokenEstimator) EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// baseProvider holds the mutable default model shared by all providers.
type baseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the default model.
func (b *baseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel replaces the default model.
func (b *baseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}
