package ports

import (
	"context"
	"time"
)

// LLMClient is a text-completion client for one model provider.
type LLMClient interface {
	// Complete returns the model's reply to prompt. Recognised options are
	// "temperature" (float64), "max_tokens" (int), "model" (string, replaces
	// the client default) and "system" (string). Providers ignore options
	// they do not support.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens approximates the prompt size before sending it.
	EstimateTokens(text string) (int, error)

	// GetModel returns the default model identifier.
	GetModel() string
}

// CacheStore keeps judge verdicts between runs. Values are opaque; callers
// own the encoding.
type CacheStore interface {
	// Get reports found=false, without error, for a missing or expired key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value for expiration, or the store default when zero.
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error
}

// MetricsCollector receives operational metrics from the engine and the LLM
// middleware. Implementations map metric names onto their own series.
type MetricsCollector interface {
	RecordLatency(operation string, duration time.Duration, labels map[string]string)
	RecordCounter(metric string, value float64, labels map[string]string)
	RecordGauge(metric string, value float64, labels map[string]string)
	RecordHistogram(metric string, value float64, labels map[string]string)
}
