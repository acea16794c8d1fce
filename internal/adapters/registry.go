package adapters

import (
	"errors"
	"fitsync/internal/core"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrAdapterAlreadyExists = errors.New("adapter already registered")
)

// MissingAdapterError is returned by Registry.Get when no adapter serves the
// provider. It matches core.ErrNoAdapter, and also core.ErrUnsupportedProvider
// when the provider is not one of core.AllProviders.
type MissingAdapterError struct {
	Provider core.ProviderType
	Known    bool
}

func (e *MissingAdapterError) Error() string {
	if !e.Known {
		return fmt.Sprintf("%s: unknown provider %q", core.ErrNoAdapter, e.Provider)
	}
	return fmt.Sprintf("%s: %s", core.ErrNoAdapter, e.Provider)
}

func (e *MissingAdapterError) Is(target error) bool {
	return target == core.ErrNoAdapter || (!e.Known && target == core.ErrUnsupportedProvider)
}

// Registry holds at most one adapter per known provider. An adapter is always
// stored under its own Provider(), so a lookup never hands a provider's token
// to another provider's adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[core.ProviderType]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[core.ProviderType]Adapter, len(core.AllProviders)),
	}
}

// Register adds an adapter under the provider it reports
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter is nil")
	}
	provider := adapter.Provider()
	if !slices.Contains(core.AllProviders, provider) {
		return fmt.Errorf("%w: cannot register adapter for %q", core.ErrUnsupportedProvider, provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[provider]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterAlreadyExists, provider)
	}
	r.adapters[provider] = adapter
	return nil
}

// Get returns the adapter for provider or a *MissingAdapterError
func (r *Registry) Get(provider core.ProviderType) (Adapter, error) {
	r.mu.RLock()
	adapter, exists := r.adapters[provider]
	r.mu.RUnlock()

	if !exists {
		return nil, &MissingAdapterError{
			Provider: provider,
			Known:    slices.Contains(core.AllProviders, provider),
		}
	}
	return adapter, nil
}

// List returns the providers that have an adapter, in core.AllProviders order
func (r *Registry) List() []core.ProviderType {
	return r.filter(true)
}

// Missing returns the known providers that have no adapter yet
func (r *Registry) Missing() []core.ProviderType {
	return r.filter(false)
}

func (r *Registry) filter(registered bool) []core.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.ProviderType
	for _, provider := range core.AllProviders {
		if _, ok := r.adapters[provider]; ok == registered {
			out = append(out, provider)
		}
	}
	return out
}

// Len returns the number of registered adapters
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
