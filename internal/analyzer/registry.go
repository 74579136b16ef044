// Package analyzer selects and decorates analysis providers.
package analyzer

import (
	"fmt"
	"sort"

	"JournalSync/internal/ports"
)

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]ports.AnalysisProvider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]ports.AnalysisProvider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(provider ports.AnalysisProvider) {
	if provider == nil {
		return
	}
	if r.providers == nil {
		r.providers = map[string]ports.AnalysisProvider{}
	}
	r.providers[provider.Name()] = provider
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.AnalysisProvider, error) {
	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("analysis provider %s is not registered", name)
}

// Names lists registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
