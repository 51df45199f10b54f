package scraper

import (
	"net/url"
	"strings"
	"sync"
)

// Registry keeps adapters in priority order. The first adapter whose
// CanHandle accepts a URL wins, so catch-all adapters go last.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry builds a registry with the given adapters in priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// DefaultRegistry registers the AliExpress adapter ahead of the generic one.
func DefaultRegistry() *Registry {
	return NewRegistry(NewAliExpressAdapter(), NewGenericAdapter())
}

// Register appends an adapter, or replaces one registered under the same name
// while keeping its position.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.adapters {
		if existing.Name() == adapter.Name() {
			r.adapters[i] = adapter
			return
		}
	}
	r.adapters = append(r.adapters, adapter)
}

// Resolve returns the adapter for a URL or a *NoAdapterError.
func (r *Registry) Resolve(rawURL string) (Adapter, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &NoAdapterError{URL: rawURL}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, adapter := range r.adapters {
		if adapter.CanHandle(rawURL) {
			return adapter, nil
		}
	}
	return nil, &NoAdapterError{URL: rawURL}
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, adapter := range r.adapters {
		if adapter.Name() == name {
			return adapter, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		names = append(names, adapter.Name())
	}
	return names
}
