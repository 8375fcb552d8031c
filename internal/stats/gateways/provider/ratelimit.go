package provider

import (
	"context"
	"sync"
	"time"

	"github.com/statlinehq/statline/internal/stats/common/clock"
)

// BucketConfig sizes one provider's token bucket. Capacity is the burst
// allowance; RefillRate is sustained tokens per second, set from each
// provider's observed safe limits.
type BucketConfig struct {
	Capacity   float64
	RefillRate float64
}

// DefaultBucket is applied to providers with no explicit configuration.
var DefaultBucket = BucketConfig{Capacity: 4, RefillRate: 2}

type bucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	cfg    BucketConfig
}

// Limiter holds one token bucket per provider, shared by every call routed
// to that provider. Acquire is the only place the engine deliberately
// sleeps.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	configs map[string]BucketConfig
	clk     clock.Clock

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

// NewLimiter builds a Limiter. configs maps provider id to bucket sizing;
// unlisted providers get DefaultBucket.
func NewLimiter(configs map[string]BucketConfig, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		configs: configs,
		clk:     clk,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) bucketFor(providerID string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[providerID]
	if !ok {
		cfg, found := l.configs[providerID]
		if !found {
			cfg = DefaultBucket
		}
		b = &bucket{tokens: cfg.Capacity, last: l.clk.Now(), cfg: cfg}
		l.buckets[providerID] = b
	}
	return b
}

// Acquire blocks until a token is available from providerID's bucket or ctx
// is done. Returns the time spent waiting.
func (l *Limiter) Acquire(ctx context.Context, providerID string) (time.Duration, error) {
	b := l.bucketFor(providerID)
	var waited time.Duration
	for {
		b.mu.Lock()
		now := l.clk.Now()
		elapsed := now.Sub(b.last).Seconds()
		if elapsed > 0 {
			b.tokens += elapsed * b.cfg.RefillRate
			if b.tokens > b.cfg.Capacity {
				b.tokens = b.cfg.Capacity
			}
			b.last = now
		}
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return waited, nil
		}
		deficit := 1 - b.tokens
		wait := time.Duration(deficit / b.cfg.RefillRate * float64(time.Second))
		b.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}
