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

// Package health implements the periodic per-endpoint probe from spec
// §4.8. Per DESIGN.md Open Question #3, health failures never open the
// breaker that guards real traffic — they only feed metrics.ProviderMetrics
// so the breaker's trip decision is driven solely by real call outcomes.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
	"github.com/cygnus-wealth/evm-access-core/metrics"
)

// CheckFunc returns the current block number for an endpoint, or an error.
type CheckFunc func(ctx context.Context, endpointURL string) (blockNumber uint64, err error)

// Target is one registered endpoint to probe.
type Target struct {
	ChainID  string
	Provider string
	URL      string
	Check    CheckFunc
}

// Status is the last observed outcome for a Target.
type Status struct {
	Healthy     bool
	BlockNumber uint64
	Err         error
	CheckedAt   time.Time
}

// DefaultInterval is the §6 health.intervalMs default.
const DefaultInterval = 60 * time.Second

// Monitor pings every registered Target on Interval and records outcomes
// into a shared metrics.ProviderMetrics.
type Monitor struct {
	interval time.Duration
	pm       *metrics.ProviderMetrics
	clock    clock.Clock
	log      log.Logger

	mu      sync.Mutex
	targets []Target
	status  map[string]Status

	stop chan struct{}
	done chan struct{}
}

// New creates a Monitor. interval <= 0 uses DefaultInterval.
func New(interval time.Duration, pm *metrics.ProviderMetrics) *Monitor {
	return NewWithClock(interval, pm, clock.Real{})
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(interval time.Duration, pm *metrics.ProviderMetrics, c clock.Clock) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		interval: interval,
		pm:       pm,
		clock:    c,
		log:      log.New("component", "health"),
		status:   make(map[string]Status),
	}
}

// Register adds an endpoint to probe. Safe to call before or after Start.
func (m *Monitor) Register(t Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, t)
}

func targetKey(t Target) string { return t.ChainID + ":" + t.Provider + ":" + t.URL }

// Start runs an initial check then schedules periodics on m.interval, per
// §4.8. It returns immediately; the loop runs in its own goroutine.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop()
}

func (m *Monitor) loop() {
	defer close(m.done)
	m.RunAllChecks(context.Background())

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C():
			m.RunAllChecks(context.Background())
		}
	}
}

// Stop cancels the periodic loop; safe to call even if Start was never
// called.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// RunAllChecks fires every registered Target concurrently and blocks until
// all complete, per §4.8.
func (m *Monitor) RunAllChecks(ctx context.Context) {
	m.mu.Lock()
	targets := append([]Target(nil), m.targets...)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range targets {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.runOne(ctx, t)
		}()
	}
	wg.Wait()
}

func (m *Monitor) runOne(ctx context.Context, t Target) {
	start := m.clock.Now()
	block, err := t.Check(ctx, t.URL)
	latency := m.clock.Now().Sub(start)

	st := Status{CheckedAt: m.clock.Now(), BlockNumber: block, Err: err, Healthy: err == nil}
	m.mu.Lock()
	m.status[targetKey(t)] = st
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("health check failed", "chain", t.ChainID, "provider", t.Provider, "err", err)
		m.pm.RecordError(t.ChainID, t.Provider, latency)
		return
	}
	m.pm.RecordSuccess(t.ChainID, t.Provider, latency)
}

// StatusOf returns the last recorded status for a Target, if any.
func (m *Monitor) StatusOf(t Target) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[targetKey(t)]
	return st, ok
}
