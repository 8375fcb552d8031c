package engine

import (
	"context"
	"time"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// Registry resolves a (dataset, league) pair to its provider descriptor.
// A false result means "no dedicated adapter"; dispatch decides whether a
// derived fallback applies.
type Registry interface {
	Resolve(dataset domain.Dataset, league domain.League) (*domain.ProviderDescriptor, bool)
}

// Cache is the two-tier cache manager contract. Implementations never
// surface cache faults; any tier failure falls through to fetch.
type Cache interface {
	GetOrFetch(ctx context.Context, key, partition string, ttl time.Duration, persist bool, fetch func(context.Context) (domain.Table, error), forceRefresh bool) (domain.Table, bool, error)
}

// CallGuard wraps a provider call with rate limiting and retry. It returns
// only classified errors: transient failures that exhausted retries come
// back permanent.
type CallGuard interface {
	Call(ctx context.Context, providerID string, fn func(context.Context) (domain.Outcome, error)) (domain.Outcome, error)
}

// NameResolver maps display names to canonical ids, exact and alias-table
// matches only.
type NameResolver interface {
	ResolveTeam(league domain.League, name string) (string, bool)
	ResolvePlayer(league domain.League, name string) (string, bool)
}

// noResolver is used when no alias database is wired; every name stays
// unresolved and flows through the mode-dependent unresolved-name policy.
type noResolver struct{}

func (noResolver) ResolveTeam(domain.League, string) (string, bool)   { return "", false }
func (noResolver) ResolvePlayer(domain.League, string) (string, bool) { return "", false }
