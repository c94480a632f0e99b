package llm

import (
	"github.com/swarmkit/swarmkit/registry"
)

// Registry maps a configured name (e.g. "default-llm", "worker-llm") to the
// concrete Provider instance a component manager wired for it.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

// NewRegistry creates an empty LLM registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

// RegisterProvider validates and adds a provider under name.
func (r *Registry) RegisterProvider(name string, p Provider) error {
	if name == "" {
		return newProviderError("Registry", "RegisterProvider", "provider name cannot be empty", nil)
	}
	if p == nil {
		return newProviderError("Registry", "RegisterProvider", "provider cannot be nil", nil)
	}
	return r.Register(name, p)
}

// MustGet retrieves a provider by name, returning a descriptive error if unbound.
func (r *Registry) MustGet(name string) (Provider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, newProviderError("Registry", "MustGet", "no LLM provider registered under name "+name, nil)
	}
	return p, nil
}
