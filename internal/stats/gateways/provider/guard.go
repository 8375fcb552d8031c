// Package provider holds the outbound side of the engine: the adapter
// contract, the per-provider rate limiter, the retry guard that wraps every
// adapter call, and two reference adapters (JSON API and scraped HTML table).
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/statlinehq/statline/internal/stats/common/log"
	"github.com/statlinehq/statline/internal/stats/common/metrics"
	"github.com/statlinehq/statline/internal/stats/domain"
)

var (
	// Thread-safe random source for backoff jitter.
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GuardOptions configures the retry/backoff behavior around adapter calls.
type GuardOptions struct {
	Limiter *Limiter
	// MaxAttempts bounds the total tries per call, first attempt included.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	// Timeout caps each individual attempt. Exceeding it is transient and
	// flows into the retry loop like any other transient failure.
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  log.Logger

	// Sleep is injectable for tests; nil means context-aware time.Sleep.
	Sleep func(context.Context, time.Duration) error
}

// Guard wraps every provider call with rate limiting and bounded
// exponential backoff, retrying only classified-transient failures.
type Guard struct {
	opts GuardOptions
}

// NewGuard validates options and constructs a Guard.
func NewGuard(opts GuardOptions) (*Guard, error) {
	if opts.Limiter == nil {
		return nil, errors.New("guard requires a limiter")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Guard{opts: opts}, nil
}

// Call runs fn under providerID's rate limit with retry. Transient failures
// are retried up to MaxAttempts with exponential backoff plus jitter;
// permanent failures propagate immediately. Exhausted retries surface as a
// PermanentError carrying the provider id and the last cause.
func (g *Guard) Call(ctx context.Context, providerID string, fn func(context.Context) (domain.Outcome, error)) (domain.Outcome, error) {
	delay := g.opts.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		waited, err := g.opts.Limiter.Acquire(ctx, providerID)
		if err != nil {
			return domain.Outcome{}, domain.Transient(providerID, err)
		}
		g.opts.Metrics.RateLimitWait.Observe(waited.Seconds())
		g.opts.Metrics.ProviderCalls.WithLabelValues(providerID).Inc()

		out, err := g.attempt(ctx, fn)
		if err == nil {
			return out, nil
		}
		if isAttemptTransient(err) {
			lastErr = err
			if attempt == g.opts.MaxAttempts {
				break
			}
			g.opts.Metrics.ProviderRetries.WithLabelValues(providerID).Inc()
			g.opts.Logger.Debug(map[string]any{
				"provider": providerID,
				"attempt":  attempt,
				"error":    err.Error(),
			}, "transient provider failure, backing off")
			if serr := g.opts.Sleep(ctx, g.withJitter(delay)); serr != nil {
				return domain.Outcome{}, domain.Transient(providerID, serr)
			}
			delay = time.Duration(float64(delay) * g.opts.Multiplier)
			if delay > g.opts.MaxDelay {
				delay = g.opts.MaxDelay
			}
			continue
		}
		// Permanent: no retry.
		g.opts.Metrics.ProviderErrors.WithLabelValues(providerID).Inc()
		if domain.IsPermanent(err) {
			return domain.Outcome{}, err
		}
		return domain.Outcome{}, domain.Permanent(providerID, err)
	}

	g.opts.Metrics.ProviderErrors.WithLabelValues(providerID).Inc()
	// Surface the underlying cause, not the transient wrapper, so the
	// result classifies permanent and nothing upstream retries it again.
	cause := lastErr
	var te *domain.TransientError
	if errors.As(lastErr, &te) {
		cause = te.Cause
	}
	return domain.Outcome{}, domain.Permanent(providerID,
		fmt.Errorf("retries exhausted after %d attempts: %w", g.opts.MaxAttempts, cause))
}

// attempt runs fn under the per-attempt timeout.
func (g *Guard) attempt(ctx context.Context, fn func(context.Context) (domain.Outcome, error)) (domain.Outcome, error) {
	actx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	return fn(actx)
}

// isAttemptTransient treats explicit transient classifications and attempt
// timeouts as retryable.
func isAttemptTransient(err error) bool {
	return domain.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

func (g *Guard) withJitter(d time.Duration) time.Duration {
	if !g.opts.Jitter {
		return d
	}
	randMu.Lock()
	f := randSource.Float64()
	randMu.Unlock()
	// up to +50% of the base delay
	return d + time.Duration(f*0.5*float64(d))
}

// ClassifyStatus maps an HTTP response status to the engine's error
// taxonomy: 429 and 5xx are transient, any other 4xx is permanent, and
// 2xx maps to nil.
func ClassifyStatus(providerID string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return domain.Transient(providerID, fmt.Errorf("rate limited (status %d)", status))
	case status >= 500:
		return domain.Transient(providerID, fmt.Errorf("server error (status %d)", status))
	default:
		return domain.Permanent(providerID, fmt.Errorf("request rejected (status %d)", status))
	}
}
