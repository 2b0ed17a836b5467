package roadmap

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderFactory builds a configured provider instance. The returned
// provider is not yet initialized; callers run Init before first use.
type ProviderFactory func(cfg *Config) (Provider, error)

// Registry manages registered provider plugins. Providers register
// themselves at init time, and the registry builds them by name at
// configuration time.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// globalRegistry is the default registry used by Register and New.
var globalRegistry = &Registry{
	providers: make(map[string]ProviderFactory),
}

// Register adds a provider factory to the global registry. This is
// typically called from provider plugin init() functions. The name should
// be lowercase (e.g., "jira").
func Register(name string, factory ProviderFactory) {
	globalRegistry.Register(name, factory)
}

// New builds a new instance of the named provider from the global registry.
func New(name string, cfg *Config) (Provider, error) {
	return globalRegistry.New(name, cfg)
}

// List returns the names of all globally registered providers.
func List() []string {
	return globalRegistry.List()
}

// IsRegistered checks the global registry for a provider name.
func IsRegistered(name string) bool {
	return globalRegistry.IsRegistered(name)
}

// Register adds a provider factory to this registry.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = factory
}

// New builds a new instance of the named provider.
func (r *Registry) New(name string, cfg *Config) (Provider, error) {
	r.mu.RLock()
	factory := r.providers[name]
	r.mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, r.List())
	}
	return factory(cfg)
}

// List returns the names of all registered providers, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a provider with the given name is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Clear removes all registered providers. Used primarily for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]ProviderFactory)
}
