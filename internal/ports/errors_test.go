package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewLLMError("gpt-4o-mini", "Complete", ErrInvalidResponse)

		assert.Equal(t, "LLM error: model=gpt-4o-mini, operation=Complete, err=invalid response", err.Error())
		assert.Equal(t, "gpt-4o-mini", err.Model)
		assert.True(t, errors.Is(err, ErrInvalidResponse))
	})

	t.Run("transient sentinels survive wrapping", func(t *testing.T) {
		for _, base := range []error{ErrRateLimited, ErrServiceUnavailable, ErrTimeout} {
			err := fmt.Errorf("judge S01: %w", NewLLMError("m", "Complete", base))
			assert.ErrorIs(t, err, base)

			var llmErr *LLMError
			assert.ErrorAs(t, err, &llmErr)
			assert.Equal(t, "Complete", llmErr.Operation)
		}
	})
}

func TestCacheError(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		operation string
		err       error
		wantMsg   string
	}{
		{
			name:      "write failure",
			key:       "judge:S01:abc",
			operation: "Set",
			err:       errors.New("disk full"),
			wantMsg:   "cache error: operation=Set, key=judge:S01:abc, err=disk full",
		},
		{
			name:      "corrupted entry",
			key:       "judge:S03:def",
			operation: "Get",
			err:       ErrCacheCorrupted,
			wantMsg:   "cache error: operation=Get, key=judge:S03:def, err=cache corrupted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCacheError(tt.key, tt.operation, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("llm.api_key", ErrConfigNotFound)

	assert.Equal(t, "config error: key=llm.api_key, err=configuration not found", err.Error())
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
