package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a provider instance. Credentials and clients are captured by
// the closure when the factory is registered.
type Factory func() (Provider, error)

// Registry resolves provider kinds to live provider instances.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// Register adds a factory for kind, replacing any previous one.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
	delete(r.instances, kind)
}

// Get returns the provider for kind, building it on first use.
func (r *Registry) Get(kind string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[kind]; ok {
		return p, nil
	}

	f, ok := r.factories[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}

	p, err := f()
	if err != nil {
		return nil, fmt.Errorf("failed to build provider %s: %w", kind, err)
	}
	r.instances[kind] = p
	return p, nil
}

// Kinds returns the registered provider kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Enabled resolves the enabled kinds in order. Blank and repeated kinds are
// skipped. Kinds that cannot be resolved are left out of the result and
// reported through the joined error; the returned providers remain usable.
func (r *Registry) Enabled(kinds []string) ([]Provider, error) {
	var (
		providers []Provider
		errs      []error
	)
	seen := make(map[string]struct{}, len(kinds))

	for _, kind := range kinds {
		kind = strings.TrimSpace(kind)
		if kind == "" {
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}

		p, err := r.Get(kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}

	return providers, errors.Join(errs...)
}

// HelpTexts joins the help texts of providers with spaces.
func HelpTexts(providers []Provider) string {
	texts := make([]string, 0, len(providers))
	for _, p := range providers {
		if t := p.HelpText(); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}
