// Package querycache composes the two cache tiers behind one get-or-fetch
// entry point: a short-TTL in-process LRU in front of the persistent
// columnar partition store. Reads run memory → disk → fetch; successful
// fetches write through to both tiers.
package querycache

import (
	"context"
	"errors"
	"time"

	"github.com/statlinehq/statline/internal/stats/common/log"
	"github.com/statlinehq/statline/internal/stats/common/metrics"
	"github.com/statlinehq/statline/internal/stats/domain"
	"github.com/statlinehq/statline/internal/stats/repos/colstore"
	"github.com/statlinehq/statline/internal/stats/repos/memcache"
)

// FetchFunc produces the value for a cache key on a miss.
type FetchFunc = func(ctx context.Context) (domain.Table, error)

// Manager is the two-tier cache manager. The persistent tier is optional;
// without it the manager degrades to memory-only. The manager itself never
// returns a cache fault: any tier failure falls through to fetch.
type Manager struct {
	mem       *memcache.Cache
	disk      *colstore.Store
	memoryTTL time.Duration
	metrics   *metrics.Metrics
	logger    log.Logger
}

// Options configures a Manager.
type Options struct {
	Memory *memcache.Cache
	// Disk may be nil to disable the persistent tier.
	Disk *colstore.Store
	// MemoryTTL bounds how long any entry stays in the hot tier.
	MemoryTTL time.Duration
	Metrics   *metrics.Metrics
	Logger    log.Logger
}

// New constructs a Manager from its tiers. The memory tier is required; only
// the persistent tier is optional.
func New(opts Options) (*Manager, error) {
	if opts.Memory == nil {
		return nil, errors.New("querycache: memory tier is required")
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = 2 * time.Minute
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Manager{
		mem:       opts.Memory,
		disk:      opts.Disk,
		memoryTTL: opts.MemoryTTL,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}, nil
}

// GetOrFetch returns the table for key, consulting memory then disk, and
// invoking fetch on a miss. persist controls whether a fetched value is
// written to the persistent tier (season-wide pulls are; point queries are
// not worth a partition file). forceRefresh bypasses both tiers on read but
// still writes through on success. The bool result reports whether the value
// came from a cache tier.
func (m *Manager) GetOrFetch(ctx context.Context, key, partition string, ttl time.Duration, persist bool, fetch FetchFunc, forceRefresh bool) (domain.Table, bool, error) {
	if !forceRefresh {
		if t, ok := m.mem.Get(key); ok {
			m.metrics.CacheHits.WithLabelValues("memory").Inc()
			return t, true, nil
		}
		m.metrics.CacheMisses.WithLabelValues("memory").Inc()

		if m.disk != nil {
			if t, ok := m.disk.Get(key, partition); ok {
				m.metrics.CacheHits.WithLabelValues("persistent").Inc()
				// Promote so the next read skips the disk.
				m.mem.Set(key, t, m.memoryTTL)
				return t, true, nil
			}
			m.metrics.CacheMisses.WithLabelValues("persistent").Inc()
		}
	}

	t, err := fetch(ctx)
	if err != nil {
		return domain.Table{}, false, err
	}

	// A duplicate concurrent miss for the same key writes the same value
	// twice; last writer wins and no locking is needed, since the value is
	// a pure function of the key.
	m.mem.Set(key, t, m.memoryTTL)
	if persist && m.disk != nil {
		m.disk.Set(key, partition, t, ttl)
	}
	return t, false, nil
}

// Invalidate drops key from both tiers.
func (m *Manager) Invalidate(key, partition string) {
	m.mem.Delete(key)
	if m.disk != nil {
		m.disk.Delete(key, partition)
	}
}
