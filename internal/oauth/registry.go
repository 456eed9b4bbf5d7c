package oauth

import (
	"fmt"
	"sort"
)

// Registry maps provider ids to strategies. It is filled by NewRegistry or
// Build and never mutated afterwards, so lookups need no locking.
type Registry struct {
	strategies map[string]Strategy
	ids        []string
}

// NewRegistry indexes strategies by ID. Duplicate or empty ids are an error.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		id := s.ID()
		if id == "" {
			return nil, fmt.Errorf("oauth: strategy with empty id")
		}
		if _, dup := r.strategies[id]; dup {
			return nil, fmt.Errorf("oauth: provider %q registered twice", id)
		}
		r.strategies[id] = s
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r, nil
}

// Build constructs one strategy per config using the factory for its kind.
func Build(cfgs []ProviderConfig, factories map[string]Factory, deps Deps) (*Registry, error) {
	strategies := make([]Strategy, 0, len(cfgs))
	for _, cfg := range cfgs {
		factory, ok := factories[cfg.KindOrID()]
		if !ok {
			return nil, fmt.Errorf("oauth: no implementation for provider kind %q (id %q)", cfg.KindOrID(), cfg.ID)
		}
		s, err := factory(cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("oauth: build provider %s: %w", cfg.ID, err)
		}
		strategies = append(strategies, s)
	}
	return NewRegistry(strategies...)
}

// Get returns the strategy for id, or ErrProviderNotFound.
func (r *Registry) Get(id string) (Strategy, error) {
	if s, ok := r.strategies[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
}

// IDs lists registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Len is the number of registered providers.
func (r *Registry) Len() int { return len(r.ids) }
