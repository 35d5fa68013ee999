package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		ro := ParseRequestOptions(nil, "gpt-4o-mini")
		assert.Equal(t, "gpt-4o-mini", ro.Model)
		assert.Equal(t, DefaultMaxTokens, ro.MaxTokens)
		assert.Nil(t, ro.Temperature)
		assert.Nil(t, ro.TopP)
		assert.Empty(t, ro.Extra)
	})

	t.Run("explicit values", func(t *testing.T) {
		ro := ParseRequestOptions(map[string]any{
			"model":       "gpt-4o",
			"max_tokens":  300,
			"temperature": 0,
			"top_p":       float32(0.5),
			"system":      "Be strict.",
			"top_k":       20,
		}, "default")
		assert.Equal(t, "gpt-4o", ro.Model)
		assert.Equal(t, 300, ro.MaxTokens)
		require.NotNil(t, ro.Temperature)
		assert.Equal(t, 0.0, *ro.Temperature)
		require.NotNil(t, ro.TopP)
		assert.InDelta(t, 0.5, *ro.TopP, 1e-6)
		assert.Equal(t, "Be strict.", ro.System)
		assert.Equal(t, map[string]any{"top_k": 20}, ro.Extra)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		ro := ParseRequestOptions(map[string]any{
			"model":       "",
			"max_tokens":  -5,
			"temperature": 3.5,
			"top_p":       "high",
		}, "default")
		assert.Equal(t, "default", ro.Model)
		assert.Equal(t, DefaultMaxTokens, ro.MaxTokens)
		assert.Nil(t, ro.Temperature)
		assert.Nil(t, ro.TopP)
	})
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "https://api.example.com/v1", want: "https://api.example.com/v1"},
		{in: "http://localhost:8080", want: "http://localhost:8080"},
		{in: "ftp://example.com", wantErr: true},
		{in: "api.example.com", wantErr: true},
		{in: "https://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	assert.Zero(t, ValidateTimeout(0))
	assert.Zero(t, ValidateTimeout(-time.Second))
	assert.Equal(t, MinTimeout, ValidateTimeout(time.Millisecond))
	assert.Equal(t, 30*time.Second, ValidateTimeout(30*time.Second))
	assert.Equal(t, MaxTimeout, ValidateTimeout(time.Hour))
}
