package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/galley/internal/ports"
)

func TestGenerationConfig(t *testing.T) {
	ro := ParseRequestOptions(map[string]any{
		"system":      "You review manuscripts.",
		"temperature": 0.2,
		"top_p":       0.9,
		"max_tokens":  8192,
		"top_k":       100,
		"json_mode":   true,
	}, GoogleDefaultModel)

	gc := generationConfig(ro)
	assert.Equal(t, int32(8192), gc.MaxOutputTokens)
	require.NotNil(t, gc.SystemInstruction)
	assert.Equal(t, "You review manuscripts.", gc.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.2, *gc.Temperature, 1e-6)
	require.NotNil(t, gc.TopP)
	assert.InDelta(t, 0.9, *gc.TopP, 1e-6)
	require.NotNil(t, gc.TopK)
	assert.Equal(t, float32(40), *gc.TopK)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
}

func TestGenerationConfigDefaults(t *testing.T) {
	gc := generationConfig(ParseRequestOptions(nil, GoogleDefaultModel))
	assert.Equal(t, int32(DefaultMaxTokens), gc.MaxOutputTokens)
	assert.Nil(t, gc.SystemInstruction)
	assert.Nil(t, gc.Temperature)
	assert.Empty(t, gc.ResponseMIMEType)
}

func TestGoogleHandleError(t *testing.T) {
	p := &googleProvider{classifier: errorClassifier{provider: ProviderGoogle}}
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		sentinel error
	}{
		{
			name:     "genai quota",
			err:      genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"},
			wantType: ErrorTypeRateLimit,
			sentinel: ports.ErrRateLimited,
		},
		{
			name:     "genai safety",
			err:      genai.APIError{Code: 400, Message: "Prompt blocked due to SAFETY", Status: "INVALID_ARGUMENT"},
			wantType: ErrorTypeContentPolicy,
		},
		{
			name:     "googleapi server error",
			err:      &googleapi.Error{Code: 503, Message: "backend unavailable"},
			wantType: ErrorTypeServerError,
			sentinel: ports.ErrServiceUnavailable,
		},
		{
			name:     "googleapi safety reason",
			err:      &googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "SAFETY", Message: "x"}}},
			wantType: ErrorTypeContentPolicy,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantType: ErrorTypeTimeout,
			sentinel: ports.ErrTimeout,
		},
		{
			name:     "other",
			err:      errors.New("dial tcp: connection refused"),
			wantType: ErrorTypeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.handleError(tt.err)
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantType, pe.Type)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestNewGoogleProviderRequiresKey(t *testing.T) {
	_, err := newGoogleProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = newGoogleProvider(ClientConfig{APIKey: "k", BaseURL: "not a url"})
	assert.Error(t, err)
}
