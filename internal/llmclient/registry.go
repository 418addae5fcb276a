package llmclient

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brainless/nocodo-agentcore/internal/providers"
)

// AdapterRegistry resolves a provider name to its adapter instance. Built
// once at startup from configuration; read-only afterward.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]providers.Adapter
}

// NewAdapterRegistry builds an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: map[string]providers.Adapter{}}
}

// Register binds name (case-insensitive) to adapter.
func (r *AdapterRegistry) Register(name string, adapter providers.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(name)] = adapter
}

// Resolve returns the adapter registered under name.
func (r *AdapterRegistry) Resolve(name string) (providers.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("llmclient: no adapter registered for provider %q", name)
	}
	return a, nil
}
