// Package engine implements the unified query pipeline: filter parsing and
// validation, compilation against provider capabilities, capability-aware
// dispatch with derived fallbacks, cached fetch, and residual masking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/statlinehq/statline/internal/stats/common/clock"
	"github.com/statlinehq/statline/internal/stats/common/log"
	"github.com/statlinehq/statline/internal/stats/common/metrics"
	"github.com/statlinehq/statline/internal/stats/domain"
)

const (
	defaultMemoryTTL  = 2 * time.Minute
	defaultPersistTTL = 24 * time.Hour
)

// Options configures an Engine. Registry, Cache, and Guard are required;
// everything else has a sensible default.
type Options struct {
	Registry Registry
	Cache    Cache
	Guard    CallGuard
	Names    NameResolver

	Clock   clock.Clock
	Logger  log.Logger
	Metrics *metrics.Metrics

	// FanOutWorkers bounds concurrent per-game fetches. Defaults to 6.
	FanOutWorkers int
	// MemoryTTL is advisory metadata recorded with cached entries; the
	// in-process tier enforces its own TTL. PersistTTL bounds the lifetime
	// of season-wide entries in the columnar tier.
	MemoryTTL  time.Duration
	PersistTTL time.Duration
}

// Engine is the unified query entrypoint. One Engine serves all datasets and
// leagues; per-request state lives on the stack.
type Engine struct {
	registry   Registry
	cache      Cache
	guard      CallGuard
	names      NameResolver
	clk        clock.Clock
	logger     log.Logger
	metrics    *metrics.Metrics
	workers    int
	persistTTL time.Duration
}

// New validates the options and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("engine: cache is required")
	}
	if opts.Guard == nil {
		return nil, errors.New("engine: call guard is required")
	}
	if opts.Names == nil {
		opts.Names = noResolver{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.FanOutWorkers <= 0 {
		opts.FanOutWorkers = defaultFanOutWorkers
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = defaultMemoryTTL
	}
	if opts.PersistTTL <= 0 {
		opts.PersistTTL = defaultPersistTTL
	}
	return &Engine{
		registry:   opts.Registry,
		cache:      opts.Cache,
		guard:      opts.Guard,
		names:      opts.Names,
		clk:        opts.Clock,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		workers:    opts.FanOutWorkers,
		persistTTL: opts.PersistTTL,
	}, nil
}

// QueryOptions are per-call knobs orthogonal to the filter set.
type QueryOptions struct {
	// Limit truncates the result after masking and caching. Zero means no
	// limit. A limit inside the filter map takes effect the same way.
	Limit int
	// ForceRefresh bypasses both cache tiers on read but still writes
	// through on success.
	ForceRefresh bool
	// Strict turns every droppable-filter condition into an error instead
	// of a warning.
	Strict bool
}

// Query runs one request through the full pipeline and returns the result
// table plus any warnings accumulated along the way. A valid query matching
// nothing returns an empty table with the dataset's columns, not an error.
func (e *Engine) Query(ctx context.Context, dataset string, filters map[string]any, opts QueryOptions) (domain.Table, []string, error) {
	start := e.clk.Now()
	requestID := uuid.NewString()

	ds, err := domain.ParseDataset(dataset)
	if err != nil {
		return domain.Table{}, nil, domain.NewValidationError("dataset", "%v", err)
	}

	f, warnings, err := domain.ParseFilters(filters, opts.Strict)
	if err != nil {
		return domain.Table{}, nil, err
	}
	vw, err := e.validate(f, ds, opts.Strict)
	if err != nil {
		return domain.Table{}, nil, err
	}
	warnings = append(warnings, vw...)

	if opts.Limit > 0 {
		f.Limit = opts.Limit
	}

	e.logger.Debug(map[string]any{
		"request_id": requestID,
		"dataset":    string(ds),
		"league":     string(f.League),
		"season":     f.Season,
		"strict":     opts.Strict,
	}, "query accepted")

	var t domain.Table
	d, ok := e.registry.Resolve(ds, f.League)
	switch {
	case ok:
		t, err = e.execute(ctx, ds, d, f, opts.ForceRefresh)
	case ds == domain.DatasetSeasonTotals:
		// No bulk totals endpoint; derive from per-game box scores.
		t, err = e.executeDerived(ctx, f, opts.ForceRefresh)
	default:
		err = fmt.Errorf("no provider for %s/%s: %w", ds, f.League, domain.ErrNotSupported)
	}

	if err != nil {
		if notSupportedOutcome(err) && !opts.Strict {
			warnings = append(warnings, fmt.Sprintf("dataset %q is not available for league %q", ds, f.League))
			t = domain.NewTable(domain.RequiredColumns(ds)...)
		} else {
			e.logger.Error(map[string]any{
				"request_id": requestID,
				"dataset":    string(ds),
				"league":     string(f.League),
				"error":      err.Error(),
			}, "query failed")
			return domain.Table{}, warnings, err
		}
	}

	t = t.Project(f.Columns).Head(f.Limit)

	e.metrics.QueryDuration.Observe(e.clk.Now().Sub(start).Seconds())
	e.logger.Info(map[string]any{
		"request_id": requestID,
		"dataset":    string(ds),
		"league":     string(f.League),
		"rows":       t.Len(),
		"warnings":   len(warnings),
	}, "query returned")
	return t, warnings, nil
}

// execute runs a resolved descriptor through compile, cache, dispatch, and
// mask. The cached value is the masked result; cache hits only need limit
// and projection applied by the caller.
func (e *Engine) execute(ctx context.Context, ds domain.Dataset, d *domain.ProviderDescriptor, f *domain.FilterModel, forceRefresh bool) (domain.Table, error) {
	req, compileWarnings := compile(f, d)
	for _, w := range compileWarnings {
		e.logger.Debug(map[string]any{"provider": d.ProviderID}, w)
	}

	key, err := req.CacheKey()
	if err != nil {
		// An unkeyable request is a bug, not a provider fault; fetch
		// directly rather than failing the query.
		e.logger.Error(map[string]any{"error": err.Error()}, "cache key derivation failed")
		return e.dispatch(ctx, d, req, f)
	}

	persist := f.Season != "" && !f.HasDateRange() && len(f.GameIDs) == 0
	t, _, err := e.cache.GetOrFetch(ctx, key, req.PartitionKey(), e.persistTTL, persist,
		func(ctx context.Context) (domain.Table, error) {
			return e.dispatch(ctx, d, req, f)
		}, forceRefresh)
	if err != nil {
		return domain.Table{}, err
	}
	return t, nil
}

// executeDerived caches the derived season-totals path the same way execute
// caches a direct fetch; a repeated season-wide totals query must not replay
// the per-game fan-out. The key is compiled against a capability-less
// synthetic descriptor so every filter, aggregate mode included, lands in
// the residual set and therefore in the key.
func (e *Engine) executeDerived(ctx context.Context, f *domain.FilterModel, forceRefresh bool) (domain.Table, error) {
	req, _ := compile(f, &domain.ProviderDescriptor{
		ProviderID: "derived",
		Dataset:    domain.DatasetSeasonTotals,
		League:     f.League,
	})

	key, err := req.CacheKey()
	if err != nil {
		e.logger.Error(map[string]any{"error": err.Error()}, "cache key derivation failed")
		return e.deriveSeasonTotals(ctx, f)
	}

	persist := f.Season != "" && !f.HasDateRange() && len(f.GameIDs) == 0
	t, _, err := e.cache.GetOrFetch(ctx, key, req.PartitionKey(), e.persistTTL, persist,
		func(ctx context.Context) (domain.Table, error) {
			return e.deriveSeasonTotals(ctx, f)
		}, forceRefresh)
	if err != nil {
		return domain.Table{}, err
	}
	return t, nil
}
