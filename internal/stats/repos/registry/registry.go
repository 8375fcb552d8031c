// Package registry holds the (dataset, league) → provider descriptor table.
// A Registry is constructed once at startup and injected into the engine;
// tests build isolated instances freely. Entries are read-only after
// registration, except for administrative re-registration.
package registry

import (
	"fmt"
	"sync"

	"github.com/statlinehq/statline/internal/stats/domain"
)

type key struct {
	dataset domain.Dataset
	league  domain.League
}

// Registry maps (dataset, league) pairs to provider descriptors.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]*domain.ProviderDescriptor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[key]*domain.ProviderDescriptor)}
}

// Register installs (or administratively replaces) the descriptor for its
// (dataset, league) pair.
func (r *Registry) Register(d *domain.ProviderDescriptor) error {
	if d == nil {
		return fmt.Errorf("nil descriptor")
	}
	if !d.Dataset.IsValid() {
		return fmt.Errorf("descriptor has unknown dataset %q", d.Dataset)
	}
	if !d.League.IsValid() {
		return fmt.Errorf("descriptor has unknown league %q", d.League)
	}
	if d.ProviderID == "" {
		return fmt.Errorf("descriptor for (%s, %s) has no provider id", d.Dataset, d.League)
	}
	if d.Adapter == nil {
		return fmt.Errorf("descriptor for (%s, %s) has no adapter", d.Dataset, d.League)
	}
	r.mu.Lock()
	r.entries[key{d.Dataset, d.League}] = d
	r.mu.Unlock()
	return nil
}

// Resolve returns the descriptor for (dataset, league). A false result is
// the explicit "no dedicated adapter" answer, not an error; dispatch decides
// whether a fallback derivation applies.
func (r *Registry) Resolve(dataset domain.Dataset, league domain.League) (*domain.ProviderDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[key{dataset, league}]
	return d, ok
}

// Pairs lists every registered (dataset, league) combination.
func (r *Registry) Pairs() [][2]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][2]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, [2]string{string(k.dataset), string(k.league)})
	}
	return out
}
