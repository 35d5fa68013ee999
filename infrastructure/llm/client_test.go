package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/galley/internal/ports"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("mistral", ClientConfig{APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = NewClient(ProviderOpenAI, ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = NewClient(ProviderOpenAI, ClientConfig{APIKey: "k", BaseURL: "ftp://nope"})
	assert.Error(t, err)
}

func TestNewClientDefaultsModel(t *testing.T) {
	for _, provider := range []string{ProviderOpenAI, ProviderAnthropic} {
		t.Run(provider, func(t *testing.T) {
			c, err := NewClient(provider, ClientConfig{APIKey: "test-key"})
			require.NoError(t, err)
			assert.Equal(t, DefaultModel(provider), c.GetModel())
			assert.Equal(t, provider, c.Provider())
		})
	}
}

func TestProviders(t *testing.T) {
	assert.Equal(t, []string{"anthropic", "google", "openai"}, Providers())
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	assert.Equal(t, "google-key", APIKeyFromEnv(ProviderGoogle))

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	assert.Equal(t, "gemini-key", APIKeyFromEnv(ProviderGoogle))

	assert.Empty(t, APIKeyFromEnv("unknown"))
}

// recordingMiddleware appends name to trace on each request.
func recordingMiddleware(name string, trace *[]string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &orderLLM{CoreLLM: next, name: name, trace: trace}
	}
}

type orderLLM struct {
	CoreLLM
	name  string
	trace *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*o.trace = append(*o.trace, o.name)
	return o.CoreLLM.DoRequest(ctx, prompt, opts)
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	c := newClient("fake", newFakeCore(), ClientConfig{
		Middleware: []Middleware{
			recordingMiddleware("outer", &order),
			recordingMiddleware("inner", &order),
		},
	})

	_, err := c.Complete(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestClientCompleteWithUsage(t *testing.T) {
	c := newClient("fake", newFakeCore(), ClientConfig{})

	resp, in, out, err := c.CompleteWithUsage(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
}

func TestClientWrapsErrors(t *testing.T) {
	core := newFakeCore()
	core.errs = []error{NewProviderError("fake", ErrorTypeRateLimit, 429, "", nil)}
	c := newClient("fake", core, ClientConfig{})

	_, err := c.Complete(context.Background(), "hi", map[string]any{"model": "fake-large"})
	var llmErr *ports.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "fake-large", llmErr.Model)
	assert.True(t, llmErr.IsRetryable())
	assert.ErrorIs(t, err, ports.ErrRateLimited)
}

func TestClientKeepsExistingLLMError(t *testing.T) {
	core := newFakeCore()
	inner := ports.NewLLMError("m", "judge", errors.New("x"))
	core.errs = []error{inner}
	c := newClient("fake", core, ClientConfig{})

	_, err := c.Complete(context.Background(), "hi", nil)
	var llmErr *ports.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Same(t, inner, llmErr)
}

func TestEstimateTokens(t *testing.T) {
	c := newClient("fake", newFakeCore(), ClientConfig{})
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "a", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: "ééééé", want: 2},
	}
	for _, tt := range tests {
		got, err := c.EstimateTokens(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.text)
	}
}
