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

// Package ratelimit implements the per-endpoint token-bucket admission
// limiter described in spec §4.1: lazy refill, FIFO waiter queue, and a
// coarse poller that grants queued waiters as tokens become available.
package ratelimit

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
)

// pollInterval is the coarse tick the background waiter-draining loop
// runs on. §9 open question: observable only as an upper bound on grant
// latency, not part of the documented contract.
const pollInterval = 100 * time.Millisecond

// DefaultMaxWait is the §6 bucket.maxWaitMs default.
const DefaultMaxWait = 5 * time.Second

// Bucket is a single endpoint's token bucket. The refill math is backed
// by golang.org/x/time/rate, which already implements the lazy
// min(capacity, tokens + elapsed*rate) accounting this spec calls for;
// Bucket adds the FIFO wait queue and named rate-limit errors on top.
type Bucket struct {
	name     string
	capacity float64
	maxWait  time.Duration
	clock    clock.Clock
	limiter  *rate.Limiter

	mu      sync.Mutex
	waiters list.List // of *waiter
	started bool
	stop    chan struct{}
}

type waiter struct {
	deadline time.Time
	granted  chan struct{}
	timedOut chan struct{}
	done     bool
}

// New creates a Bucket admitting rps requests per second, with capacity
// equal to rps (per §3 TokenBucketState: capacity = RPS).
func New(name string, rps float64, maxWait time.Duration) *Bucket {
	return NewWithClock(name, rps, maxWait, clock.Real{})
}

// NewWithClock is New with an injectable clock, for deterministic tests.
func NewWithClock(name string, rps float64, maxWait time.Duration, c clock.Clock) *Bucket {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	b := &Bucket{
		name:     name,
		capacity: rps,
		maxWait:  maxWait,
		clock:    c,
		limiter:  rate.NewLimiter(rate.Limit(rps), int(capacityCeil(rps))),
		stop:     make(chan struct{}),
	}
	return b
}

func capacityCeil(rps float64) float64 {
	if rps < 1 {
		return 1
	}
	return rps
}

// TryAcquire consumes a token if one is immediately available, without
// waiting, and reports whether it succeeded.
func (b *Bucket) TryAcquire() bool {
	return b.limiter.AllowN(b.clock.Now(), 1)
}

// Available refills (without consuming) and returns floor(tokens).
func (b *Bucket) Available() int {
	tokens := b.limiter.TokensAt(b.clock.Now())
	if tokens > b.capacity {
		tokens = b.capacity
	}
	return int(tokens)
}

// Acquire blocks until a token is consumed or maxWait elapses, in which
// case it returns a RateLimit error naming the limiter and period.
func (b *Bucket) Acquire() error {
	if b.TryAcquire() {
		return nil
	}
	b.ensurePoller()

	w := &waiter{
		deadline: b.clock.Now().Add(b.maxWait),
		granted:  make(chan struct{}),
		timedOut: make(chan struct{}),
	}
	b.mu.Lock()
	elem := b.waiters.PushBack(w)
	b.mu.Unlock()

	timer := b.clock.NewTimer(b.maxWait)
	defer timer.Stop()

	select {
	case <-w.granted:
		return nil
	case <-timer.C():
		b.mu.Lock()
		if !w.done {
			w.done = true
			b.waiters.Remove(elem)
		}
		b.mu.Unlock()
		log.Debug("rate limiter wait timed out", "limiter", b.name, "maxWait", b.maxWait)
		return errs.Wrap(errs.RateLimit, nil, fmt.Sprintf("limiter %q: max wait %s exceeded", b.name, b.maxWait))
	}
}

func (b *Bucket) ensurePoller() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	go b.drainLoop()
}

// drainLoop wakes on pollInterval and grants queued waiters FIFO while
// tokens remain available.
func (b *Bucket) drainLoop() {
	ticker := b.clock.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C():
			b.drainOnce()
		}
	}
}

func (b *Bucket) drainOnce() {
	for {
		b.mu.Lock()
		front := b.waiters.Front()
		if front == nil {
			b.mu.Unlock()
			return
		}
		w := front.Value.(*waiter)
		if w.done {
			b.waiters.Remove(front)
			b.mu.Unlock()
			continue
		}
		if !b.TryAcquire() {
			b.mu.Unlock()
			return
		}
		w.done = true
		b.waiters.Remove(front)
		b.mu.Unlock()
		close(w.granted)
	}
}

// Close stops the background drain goroutine, if one was started.
func (b *Bucket) Close() {
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
}

// Name returns the limiter's identifying name, used in rate-limit errors.
func (b *Bucket) Name() string { return b.name }
