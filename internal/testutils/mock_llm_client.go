// Package testutils provides test doubles shared across galley's packages.
package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ahrav/galley/internal/ports"
)

// Canned replies returned by a fresh MockLLMClient.
const (
	PassVerdict  = `{"decision": "pass", "rationale": "The excerpt meets the criterion."}`
	ReviewReply  = "# Manuscript review\n\nAll checklist items pass."
	DefaultReply = "Mock response for testing purposes."
)

// ErrEmptyPrompt is returned by Complete for an empty prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// MockResponse pairs a prompt pattern with the reply, or error, it produces.
type MockResponse struct {
	// Pattern is matched case-insensitively as a substring of the prompt.
	// An empty pattern matches everything.
	Pattern  string
	Response string
	Err      error
}

// MockLLMClient implements ports.LLMClient with deterministic replies chosen
// by prompt pattern. It records every prompt it receives and is safe for
// concurrent use.
type MockLLMClient struct {
	model string

	mu        sync.Mutex
	responses []MockResponse
	prompts   []string
	options   []map[string]any
}

// NewMockLLMClient returns a client that answers judge prompts with a passing
// verdict and manuscript review prompts with a short markdown report.
func NewMockLLMClient(model string) *MockLLMClient {
	m := &MockLLMClient{model: model}
	m.setupDefaultResponses()
	return m
}

func (m *MockLLMClient) setupDefaultResponses() {
	m.responses = []MockResponse{
		{Pattern: `"decision"`, Response: PassVerdict},
		{Pattern: "markdown report", Response: ReviewReply},
		{Pattern: "", Response: DefaultReply},
	}
}

// AddResponse registers r ahead of every existing pattern.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]MockResponse{r}, m.responses...)
}

// Complete returns the reply of the first pattern found in prompt.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, options)

	lower := strings.ToLower(prompt)
	for _, r := range m.responses {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return r.Response, r.Err
		}
	}
	return DefaultReply, nil
}

// EstimateTokens approximates four characters per token.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(len(text)/4, 1), nil
}

// GetModel returns the model the client was created with.
func (m *MockLLMClient) GetModel() string { return m.model }

// Prompts returns a copy of every prompt received so far.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options of the most recent call, or nil.
func (m *MockLLMClient) LastOptions() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return nil
	}
	return m.options[len(m.options)-1]
}

// Calls returns the number of Complete calls.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Reset drops recorded prompts and custom responses.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts, m.options = nil, nil
	m.setupDefaultResponses()
}

var _ ports.LLMClient = (*MockLLMClient)(nil)
