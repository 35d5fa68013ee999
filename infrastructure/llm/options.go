package llm

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Parameter ranges shared by all providers.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 10 * time.Minute

	// DefaultMaxTokens bounds responses when the caller sets no limit.
	DefaultMaxTokens = 1024
)

// RequestOptions is the provider-neutral form of the options map accepted
// by ports.LLMClient.Complete.
type RequestOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	System      string
	// Extra holds keys no common option claims, e.g. "top_k".
	Extra map[string]any
}

// ParseRequestOptions reads the common keys from opts. Missing or invalid
// values fall back to defaults; model falls back to defaultModel.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	ro := RequestOptions{
		Model:     optional(opts, "model", defaultModel, func(s string) bool { return s != "" }),
		MaxTokens: optional(opts, "max_tokens", DefaultMaxTokens, func(n int) bool { return n > 0 }),
		System:    optional(opts, "system", "", nil),
		Extra:     make(map[string]any),
	}
	if t, ok := number(opts, "temperature"); ok && t >= MinTemperature && t <= MaxTemperature {
		ro.Temperature = &t
	}
	if p, ok := number(opts, "top_p"); ok && p >= MinTopP && p <= MaxTopP {
		ro.TopP = &p
	}
	for k, v := range opts {
		switch k {
		case "model", "max_tokens", "system", "temperature", "top_p":
		default:
			ro.Extra[k] = v
		}
	}
	return ro
}

// optional returns opts[key] when it has type T and passes valid.
func optional[T any](opts map[string]any, key string, def T, valid func(T) bool) T {
	v, ok := opts[key].(T)
	if !ok || (valid != nil && !valid(v)) {
		return def
	}
	return v
}

// number reads a numeric option of any common Go numeric type.
func number(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ValidateBaseURL checks that a non-empty endpoint override is an absolute
// http(s) URL. An empty string selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("URL must include a host")
	}
	return u.String(), nil
}

// ValidateTimeout clamps a positive timeout to [MinTimeout, MaxTimeout].
// Non-positive values return zero, meaning no client-side timeout.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return min(max(timeout, MinTimeout), MaxTimeout)
}

func clamp(v, lo, hi float64) float64 { return min(max(v, lo), hi) }
