// Package ports defines the interfaces between the evaluation engine and its
// infrastructure: metric providers, the qualitative judge, language model
// clients, caches and metrics.
package ports

import "context"

// MetricProvider computes one category of document measurement, such as page
// geometry or the font inventory.
//
// Extract is invoked with the path of the manuscript and must acquire and
// release any file handle it needs within the call: callers may invoke it
// once per criterion that references it.
//
// The result is either a nested map[string]any or a record implementing
// FieldAccessor so the resolver can drill into named fields.
type MetricProvider interface {
	// Key returns the dotted registry key this provider is registered under,
	// e.g. "geometry.page_metrics".
	Key() string

	// Extract computes the provider's measurements for the document.
	Extract(ctx context.Context, docPath string) (any, error)
}

// FieldAccessor is implemented by structured provider results. Field returns
// the value of a named field and false when the record has no such field.
type FieldAccessor interface {
	Field(name string) (any, bool)
}

// ProviderFunc adapts a function to the MetricProvider interface.
type ProviderFunc struct {
	// Name is the registry key.
	Name string
	// Fn computes the measurement.
	Fn func(ctx context.Context, docPath string) (any, error)
}

// Key implements MetricProvider.
func (p ProviderFunc) Key() string { return p.Name }

// Extract implements MetricProvider.
func (p ProviderFunc) Extract(ctx context.Context, docPath string) (any, error) {
	return p.Fn(ctx, docPath)
}

// ProviderRegistry maps dotted keys to metric providers.
//
// A key can be registered with a nil provider to mark an extractor that is
// planned but not implemented; Lookup then reports registered=true with a nil
// provider.
type ProviderRegistry interface {
	// Lookup returns the provider registered under key. registered is false
	// when the key is unknown.
	Lookup(key string) (provider MetricProvider, registered bool)

	// Keys returns every registered key in lexical order.
	Keys() []string
}
