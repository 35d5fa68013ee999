package testutils

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLLMClient_Complete(t *testing.T) {
	errRateLimited := errors.New("rate limited")

	tests := []struct {
		name    string
		extra   []MockResponse
		prompt  string
		want    string
		wantErr error
	}{
		{
			name:   "judge prompt gets a passing verdict",
			prompt: `Respond with JSON: {"decision": "pass" | "fail"}`,
			want:   PassVerdict,
		},
		{
			name:   "review prompt gets a markdown report",
			prompt: "Return only a MARKDOWN report.",
			want:   ReviewReply,
		},
		{
			name:   "unmatched prompt falls back to default",
			prompt: "hello",
			want:   DefaultReply,
		},
		{
			name:   "custom pattern takes priority",
			extra:  []MockResponse{{Pattern: "decision", Response: `{"decision": "fail", "rationale": "Too long."}`}},
			prompt: `{"decision": ...}`,
			want:   `{"decision": "fail", "rationale": "Too long."}`,
		},
		{
			name:    "custom error",
			extra:   []MockResponse{{Pattern: "title", Err: errRateLimited}},
			prompt:  "Is the Title concise?",
			wantErr: errRateLimited,
		},
		{
			name:    "empty prompt",
			prompt:  "",
			wantErr: ErrEmptyPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMockLLMClient("mock-model")
			for _, r := range tt.extra {
				m.AddResponse(r)
			}

			got, err := m.Complete(context.Background(), tt.prompt, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMockLLMClient_RecordsCalls(t *testing.T) {
	m := NewMockLLMClient("mock-model")
	assert.Equal(t, "mock-model", m.GetModel())
	assert.Nil(t, m.LastOptions())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Complete(context.Background(), "prompt", map[string]any{"temperature": 0.0})
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, m.Calls())
	assert.Len(t, m.Prompts(), 8)
	assert.Equal(t, 0.0, m.LastOptions()["temperature"])

	m.AddResponse(MockResponse{Pattern: "prompt", Response: "custom"})
	m.Reset()
	assert.Zero(t, m.Calls())
	got, err := m.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultReply, got)
}

func TestMockLLMClient_CanceledContext(t *testing.T) {
	m := NewMockLLMClient("mock-model")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, "prompt", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.Calls())
}

func TestMockLLMClient_EstimateTokens(t *testing.T) {
	m := NewMockLLMClient("mock-model")
	for text, want := range map[string]int{"": 0, "ab": 1, "abcdefgh": 2} {
		got, err := m.EstimateTokens(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}
}
