// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package rpcchain implements the RPC fallback chain from spec §4.5: the
// densest component, combining the circuit breaker, the per-endpoint rate
// limiter, retries with exponential backoff, a hard wall-clock deadline,
// and an optional last-known-good cache.
package rpcchain

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/cygnus-wealth/evm-access-core/breaker"
	"github.com/cygnus-wealth/evm-access-core/cache"
	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
	"github.com/cygnus-wealth/evm-access-core/metrics"
	"github.com/cygnus-wealth/evm-access-core/ratelimit"
)

// Op is the caller-supplied call: given an endpoint URL, produce a value or
// fail. Implementations should honor ctx cancellation (§6 external
// interface #1).
type Op func(ctx context.Context, endpointURL string) (interface{}, error)

// Config holds the §6 rpc.* options.
type Config struct {
	TotalTimeout       time.Duration // rpc.totalTimeoutMs, default 30s
	MaxRetryAttempts   int           // rpc.maxRetryAttempts, default 2 (additional to the initial try)
	NonRetriableStatus map[int]struct{}
	EnableCache        bool
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{
		TotalTimeout:       30 * time.Second,
		MaxRetryAttempts:   2,
		NonRetriableStatus: errs.DefaultNonRetriableStatus(),
	}
}

// backoffFor is the §4.5 edge policy: 1s, 2s, 4s, ... capped by
// remaining deadline.
func backoffFor(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// Result carries the outcome of a successful Execute call, including the
// observability fields §8 scenario assertions check (provider, attempts,
// fromCache).
type Result struct {
	Value     interface{}
	Endpoint  string
	Provider  string
	Latency   time.Duration
	Attempts  int
	FromCache bool
}

// Chain orchestrates one chain's ordered endpoint list against a shared
// breaker.Manager, per-endpoint ratelimit.Bucket pool, metrics.ProviderMetrics,
// and optional cache.Cache.
type Chain struct {
	chainID   string
	endpoints []chain.Endpoint
	cfg       Config
	clock     clock.Clock
	log       log.Logger

	breakers *breaker.Manager
	pm       *metrics.ProviderMetrics
	fc       *cache.Cache

	mu      sync.Mutex
	buckets map[string]*ratelimit.Bucket
}

// New builds a Chain. endpoints is sorted once here per §4.5's "sorted
// once at construction" edge policy.
func New(chainID string, endpoints []chain.Endpoint, cfg Config, breakers *breaker.Manager, pm *metrics.ProviderMetrics, fc *cache.Cache) *Chain {
	return NewWithClock(chainID, endpoints, cfg, breakers, pm, fc, clock.Real{})
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(chainID string, endpoints []chain.Endpoint, cfg Config, breakers *breaker.Manager, pm *metrics.ProviderMetrics, fc *cache.Cache, c clock.Clock) *Chain {
	if cfg.TotalTimeout <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.NonRetriableStatus == nil {
		cfg.NonRetriableStatus = errs.DefaultNonRetriableStatus()
	}
	sorted := chain.SortEndpoints(endpoints)
	return &Chain{
		chainID:   chainID,
		endpoints: sorted,
		cfg:       cfg,
		clock:     c,
		log:       log.New("component", "rpcchain", "chain", chainID),
		breakers:  breakers,
		pm:        pm,
		fc:        fc,
		buckets:   make(map[string]*ratelimit.Bucket),
	}
}

func (c *Chain) bucketFor(ep chain.Endpoint) *ratelimit.Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[ep.URL]
	if !ok {
		rps := ep.RPS
		if rps <= 0 {
			rps = 10
		}
		b = ratelimit.NewWithClock(ep.URL, rps, ratelimit.DefaultMaxWait, c.clock)
		c.buckets[ep.URL] = b
	}
	return b
}

// Execute runs op across the ordered endpoint list per the §4.5 algorithm.
// A span is opened per call (and per endpoint attempt) using the tracer
// registered with opentracing's global tracer, matching the teacher's own
// request-scoped instrumentation convention.
func (c *Chain) Execute(ctx context.Context, op Op) (Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rpcchain.Execute")
	span.SetTag("chain", c.chainID)
	defer span.Finish()

	deadline := c.clock.Now().Add(c.cfg.TotalTimeout)
	var endpointErrs []errs.EndpointError

	for _, ep := range c.endpoints {
		if !c.clock.Now().Before(deadline) {
			return Result{}, c.deadlineErr()
		}
		br := c.breakers.For(c.chainID, ep.Provider)
		if br.State() == breaker.Open {
			c.log.Debug("skipping endpoint with open breaker", "provider", ep.Provider)
			continue
		}

		result, deadlineExceeded, err := c.tryEndpoint(ctx, ep, br, deadline, op)
		if deadlineExceeded {
			return Result{}, c.deadlineErr()
		}
		if err == nil {
			return result, nil
		}
		endpointErrs = append(endpointErrs, errs.EndpointError{Endpoint: ep.URL, Provider: ep.Provider, Err: err})
	}

	return Result{}, errs.NewAllFailed(c.chainID, endpointErrs)
}

// deadlineErr is the §4.5/§7 distinct terminal Timeout kind surfaced when
// the overall wall-clock deadline elapses, rather than folding it into
// AllEndpointsFailed.
func (c *Chain) deadlineErr() error {
	return errs.New(errs.Timeout, "rpcchain: total deadline exceeded for chain "+c.chainID)
}

// tryEndpoint runs the retry loop for a single endpoint. The bool return
// reports whether the loop stopped because the overall deadline elapsed,
// as opposed to the endpoint's own attempts being exhausted.
func (c *Chain) tryEndpoint(ctx context.Context, ep chain.Endpoint, br *breaker.Breaker, deadline time.Time, op Op) (Result, bool, error) {
	bucket := c.bucketFor(ep)
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetryAttempts; attempt++ {
		if !c.clock.Now().Before(deadline) {
			return Result{}, true, lastErr
		}

		start := c.clock.Now()
		if err := bucket.Acquire(); err != nil {
			lastErr = err
			break
		}

		attemptSpan, attemptCtx := opentracing.StartSpanFromContext(ctx, "rpcchain.attempt")
		attemptSpan.SetTag("provider", ep.Provider)
		attemptSpan.SetTag("attempt", attempt+1)
		remaining := deadline.Sub(c.clock.Now())
		callCtx, cancel := context.WithTimeout(attemptCtx, remaining)
		var value interface{}
		execErr := br.Execute(func() error {
			v, err := op(callCtx, ep.URL)
			value = v
			return err
		})
		cancel()
		attemptSpan.Finish()

		latency := c.clock.Now().Sub(start)
		if execErr == nil {
			c.pm.RecordSuccess(c.chainID, ep.Provider, latency)
			return Result{Value: value, Endpoint: ep.URL, Provider: ep.Provider, Latency: latency, Attempts: attempt + 1}, false, nil
		}

		if errs.Is(execErr, errs.CircuitOpen) {
			// The breaker tripped mid-retry; routing, not a call failure.
			return Result{}, false, execErr
		}

		c.pm.RecordError(c.chainID, ep.Provider, latency)
		lastErr = execErr

		if errs.IsNonRetriableStatus(execErr, c.cfg.NonRetriableStatus) {
			break
		}
		if attempt < c.cfg.MaxRetryAttempts {
			wait := backoffFor(attempt)
			remaining := deadline.Sub(c.clock.Now())
			if remaining <= 0 {
				return Result{}, true, lastErr
			}
			if wait > remaining {
				wait = remaining
			}
			select {
			case <-c.clock.NewTimer(wait).C():
			case <-ctx.Done():
				return Result{}, false, ctx.Err()
			}
		}
	}
	return Result{}, false, lastErr
}

// ExecuteWithCache wraps Execute with the §4.5 executeWithCache contract:
// on success, cache[key] <- value; on terminal failure, fall back to the
// cached value with FromCache=true if present, else re-raise.
func (c *Chain) ExecuteWithCache(ctx context.Context, key string, op Op) (Result, error) {
	result, err := c.Execute(ctx, op)
	if err == nil {
		if c.fc != nil && c.cfg.EnableCache {
			_ = c.fc.Set(key, result.Value)
		}
		return result, nil
	}
	if c.fc == nil || !c.cfg.EnableCache {
		return Result{}, err
	}
	var cached interface{}
	ok, getErr := c.fc.Get(key, &cached)
	if getErr != nil || !ok {
		return Result{}, err
	}
	return Result{Value: cached, Endpoint: "cache", Provider: "cache", FromCache: true}, nil
}

// EndpointStats reports the current breaker and metrics snapshot per
// endpoint, preserving the simpler implementation's getEndpointStats shape
// (see DESIGN.md Open Question #1).
type EndpointStats struct {
	Endpoint string
	Provider string
	Breaker  breaker.Stats
	Metrics  metrics.Snapshot
}

// Stats returns a sorted-by-provider snapshot across every configured
// endpoint.
func (c *Chain) Stats() []EndpointStats {
	out := make([]EndpointStats, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		snap, _ := c.pm.Snapshot(c.chainID, ep.Provider)
		out = append(out, EndpointStats{
			Endpoint: ep.URL,
			Provider: ep.Provider,
			Breaker:  c.breakers.For(c.chainID, ep.Provider).Stats(),
			Metrics:  snap,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
