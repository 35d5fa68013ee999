package ports

import (
	"errors"
	"fmt"
)

// Sentinels shared by the language model, cache and configuration adapters.
// Adapters wrap them so callers can branch with errors.Is regardless of which
// provider or store produced the failure.
var (
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timed out")

	// ErrInvalidResponse marks a model reply that could not be parsed into
	// the shape the caller asked for.
	ErrInvalidResponse = errors.New("invalid response")

	ErrCacheCorrupted = errors.New("cache corrupted")
	ErrConfigNotFound = errors.New("configuration not found")
)

// LLMError records which model and operation failed.
type LLMError struct {
	Model     string
	Operation string
	Err       error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("LLM error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// NewLLMError wraps err with the model and operation that produced it.
func NewLLMError(model, operation string, err error) *LLMError {
	return &LLMError{Model: model, Operation: operation, Err: err}
}

// CacheError is returned by CacheStore implementations. A cache failure never
// fails an evaluation; callers log it and fall through to the model.
type CacheError struct {
	Key       string
	Operation string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError wraps err with the cache key and operation.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{Key: key, Operation: operation, Err: err}
}

// ConfigError names the configuration key, dotted as in the YAML file, or the
// file path that could not be loaded.
type ConfigError struct {
	ConfigKey string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err with the offending key.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{ConfigKey: key, Err: err}
}
