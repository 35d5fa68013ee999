package application

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/galley/internal/domain"
	"github.com/ahrav/galley/internal/ports"
)

// Resolver turns an extractor reference into a value by locating the
// responsible provider, invoking it with the document path, and drilling into
// its result.
//
// A reference is split into a provider key and a field path. The provider key
// is the longest dotted prefix of the reference that is registered; the
// remaining segments are field lookups into the provider's result. Resolution
// never panics: provider errors and panics are returned as
// *domain.ResolutionError values whose message doubles as a skip reason.
type Resolver struct {
	registry ports.ProviderRegistry
	logger   *slog.Logger
	metrics  ports.MetricsCollector
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for resolution diagnostics.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithResolverMetrics records provider latency through m.
func WithResolverMetrics(m ports.MetricsCollector) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(registry ports.ProviderRegistry, opts ...ResolverOption) (*Resolver, error) {
	if registry == nil {
		return nil, fmt.Errorf("provider registry cannot be nil")
	}
	r := &Resolver{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Memo caches provider results for one evaluation pass over one document,
// keyed by provider key. Errors are cached as well so a failing provider is
// invoked once per pass. A Memo must not be shared across documents.
type Memo struct {
	mu      sync.Mutex
	results map[string]memoEntry
}

type memoEntry struct {
	value any
	err   error
}

// NewMemo creates an empty per-pass memo.
func NewMemo() *Memo { return &Memo{results: make(map[string]memoEntry)} }

// Len returns the number of memoized providers.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

// Resolve resolves ref against docPath, invoking the provider on every call.
func (r *Resolver) Resolve(ctx context.Context, docPath string, ref domain.ExtractorRef) (any, error) {
	return r.ResolveCached(ctx, docPath, ref, nil)
}

// ResolveCached resolves ref against docPath, sharing provider results
// through memo. A nil memo disables caching.
func (r *Resolver) ResolveCached(
	ctx context.Context,
	docPath string,
	ref domain.ExtractorRef,
	memo *Memo,
) (any, error) {
	segments := ref.Segments()
	if len(segments) == 0 {
		return nil, domain.NewResolutionError(ref, "", domain.ErrEmptyPath)
	}

	key, provider, rest, err := r.locate(ref, segments)
	if err != nil {
		return nil, err
	}

	cursor, err := r.extract(ctx, key, provider, docPath, memo)
	if err != nil {
		return nil, domain.NewResolutionError(ref, key, err)
	}

	return walkFields(ref, cursor, rest)
}

// walkFields drills into cursor one segment at a time. A panic raised by a
// field accessor is reported as a missing field at that segment.
func walkFields(ref domain.ExtractorRef, cursor any, rest []string) (value any, err error) {
	var seg string
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = domain.NewResolutionError(ref, seg, fmt.Errorf("%w: panic: %v", domain.ErrFieldMissing, rec))
		}
	}()

	for _, seg = range rest {
		next, ok := lookupField(cursor, seg)
		if !ok {
			return nil, domain.NewResolutionError(ref, seg, domain.ErrFieldMissing)
		}
		cursor = next
	}
	return cursor, nil
}

// locate finds the provider for the longest registered prefix of segments.
// When no prefix is registered but one names a namespace of implemented
// providers, the miss is reported as a missing field under that namespace.
func (r *Resolver) locate(
	ref domain.ExtractorRef,
	segments []string,
) (string, ports.MetricProvider, []string, error) {
	for n := len(segments); n > 0; n-- {
		key := strings.Join(segments[:n], ".")
		provider, registered := r.registry.Lookup(key)
		if !registered {
			continue
		}
		if provider == nil {
			return "", nil, nil, domain.NewResolutionError(ref, key, domain.ErrNotImplemented)
		}
		return key, provider, segments[n:], nil
	}

	keys := r.registry.Keys()
	for n := len(segments) - 1; n > 0; n-- {
		prefix := strings.Join(segments[:n], ".") + "."
		for _, k := range keys {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			if p, _ := r.registry.Lookup(k); p != nil {
				return "", nil, nil, domain.NewResolutionError(ref, segments[n], domain.ErrFieldMissing)
			}
		}
	}
	return "", nil, nil, domain.NewResolutionError(ref, segments[0], domain.ErrModuleNotFound)
}

func (r *Resolver) extract(
	ctx context.Context,
	key string,
	provider ports.MetricProvider,
	docPath string,
	memo *Memo,
) (any, error) {
	if memo == nil {
		return r.invoke(ctx, key, provider, docPath)
	}

	memo.mu.Lock()
	defer memo.mu.Unlock()
	if e, ok := memo.results[key]; ok {
		return e.value, e.err
	}
	value, err := r.invoke(ctx, key, provider, docPath)
	memo.results[key] = memoEntry{value: value, err: err}
	return value, err
}

// invoke calls the provider exactly once, converting errors and panics into
// domain.ErrProviderFailed.
func (r *Resolver) invoke(
	ctx context.Context,
	key string,
	provider ports.MetricProvider,
	docPath string,
) (value any, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrProviderFailed, rec)
		}
		status := "success"
		if err != nil {
			status = "error"
			r.logger.DebugContext(ctx, "provider failed", "provider", key, "error", err)
		}
		if r.metrics != nil {
			r.metrics.RecordLatency("provider_extract", time.Since(start), map[string]string{
				"provider": key,
				"status":   status,
			})
		}
	}()

	value, err = provider.Extract(ctx, docPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailed, err)
	}
	return value, nil
}

// lookupField steps into a named field of a provider result. It supports
// records implementing ports.FieldAccessor and maps keyed by strings. A nil
// pointer has no fields.
func lookupField(cursor any, name string) (any, bool) {
	if rv := reflect.ValueOf(cursor); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	switch c := cursor.(type) {
	case nil:
		return nil, false
	case ports.FieldAccessor:
		return c.Field(name)
	case map[string]any:
		v, ok := c[name]
		return v, ok
	}

	rv := reflect.ValueOf(cursor)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
		if fa, ok := rv.Interface().(ports.FieldAccessor); ok {
			return fa.Field(name)
		}
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
	if !mv.IsValid() {
		return nil, false
	}
	return mv.Interface(), true
}
