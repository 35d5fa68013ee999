package application

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ahrav/galley/internal/domain"
	"github.com/ahrav/galley/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.ProviderRegistry = (*ProviderRegistry)(nil)

// ProviderRegistry maps dotted provider keys to metric providers.
// It is built explicitly at startup and passed to the Resolver; there is no
// process-wide registry.
type ProviderRegistry struct {
	// providers maps keys to providers. A nil value marks a planned provider.
	providers map[string]ports.MetricProvider
	// mu protects concurrent access to the providers map.
	mu sync.RWMutex
}

// NewProviderRegistry creates a registry holding the given providers.
func NewProviderRegistry(providers ...ports.MetricProvider) (*ProviderRegistry, error) {
	r := &ProviderRegistry{providers: make(map[string]ports.MetricProvider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider under its own key. Registering a key twice is an
// error, except that a planned marker may be replaced by a real provider.
func (r *ProviderRegistry) Register(p ports.MetricProvider) error {
	if p == nil {
		return fmt.Errorf("provider cannot be nil")
	}
	key := p.Key()
	if err := validateProviderKey(key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.providers[key]; ok && existing != nil {
		return fmt.Errorf("provider %q already registered", key)
	}
	r.providers[key] = p
	return nil
}

// MarkPlanned registers keys whose providers are not implemented yet.
// References into them resolve to domain.ErrNotImplemented rather than
// domain.ErrModuleNotFound. Keys that already hold a provider are left alone.
func (r *ProviderRegistry) MarkPlanned(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		if err := validateProviderKey(key); err != nil {
			return err
		}
		if _, ok := r.providers[key]; ok {
			continue
		}
		r.providers[key] = nil
	}
	return nil
}

// Lookup returns the provider registered under key.
func (r *ProviderRegistry) Lookup(key string) (ports.MetricProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[key]
	return p, ok
}

// Keys returns all registered keys in lexical order.
func (r *ProviderRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Planned returns the keys registered without a provider, in lexical order.
func (r *ProviderRegistry) Planned() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for k, p := range r.providers {
		if p == nil {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func validateProviderKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("provider key cannot be empty")
	}
	if err := domain.ExtractorRef(key).Validate(); err != nil {
		return fmt.Errorf("invalid provider key: %w", err)
	}
	return nil
}
