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

// Package metrics implements the per-(chain,provider) rolling-window
// latency/error-rate ring from spec §4.7, plus Prometheus and InfluxDB
// export sinks (SPEC_FULL §3).
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cygnus-wealth/evm-access-core/internal/clock"
)

// DefaultWindow is the §6 metrics.rollingWindowMs default.
const DefaultWindow = 5 * time.Minute

type event struct {
	at      time.Time
	latency time.Duration
	isError bool
}

// Snapshot is a point-in-time read, computed over the pruned window.
type Snapshot struct {
	Chain        string
	Provider     string
	TotalRequests int
	TotalErrors   int
	ErrorRate     float64
	P50           time.Duration
	P95           time.Duration
	P99           time.Duration
}

type series struct {
	mu     sync.Mutex
	events []event
}

// ProviderMetrics is the append-from-many, prune-on-read metrics store
// shared across a chain's RPC fallback chain and health monitor.
type ProviderMetrics struct {
	window time.Duration
	clock  clock.Clock

	mu   sync.Mutex
	data map[string]*series
}

func key(chain, provider string) string { return chain + ":" + provider }

// New creates a ProviderMetrics with the given rolling window.
func New(window time.Duration) *ProviderMetrics {
	return NewWithClock(window, clock.Real{})
}

// NewWithClock is New with an injectable clock.
func NewWithClock(window time.Duration, c clock.Clock) *ProviderMetrics {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ProviderMetrics{window: window, clock: c, data: make(map[string]*series)}
}

func (m *ProviderMetrics) seriesFor(chain, provider string) *series {
	k := key(chain, provider)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[k]
	if !ok {
		s = &series{}
		m.data[k] = s
	}
	return s
}

// RecordSuccess appends a successful-call latency sample.
func (m *ProviderMetrics) RecordSuccess(chain, provider string, latency time.Duration) {
	m.append(chain, provider, latency, false)
}

// RecordError appends a failed-call latency sample.
func (m *ProviderMetrics) RecordError(chain, provider string, latency time.Duration) {
	m.append(chain, provider, latency, true)
}

func (m *ProviderMetrics) append(chain, provider string, latency time.Duration, isErr bool) {
	s := m.seriesFor(chain, provider)
	s.mu.Lock()
	s.events = append(s.events, event{at: m.clock.Now(), latency: latency, isError: isErr})
	s.mu.Unlock()
}

// Snapshot prunes to the rolling window and computes nearest-rank
// percentiles. The second return is false if there are zero entries in
// the window.
func (m *ProviderMetrics) Snapshot(chain, provider string) (Snapshot, bool) {
	s := m.seriesFor(chain, provider)
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.window)
	s.events = pruneEvents(s.events, cutoff)
	if len(s.events) == 0 {
		return Snapshot{}, false
	}

	latencies := make([]time.Duration, len(s.events))
	errCount := 0
	for i, e := range s.events {
		latencies[i] = e.latency
		if e.isError {
			errCount++
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	n := len(latencies)
	snap := Snapshot{
		Chain:         chain,
		Provider:      provider,
		TotalRequests: n,
		TotalErrors:   errCount,
		ErrorRate:     float64(errCount) / float64(n),
		P50:           percentile(latencies, 0.50),
		P95:           percentile(latencies, 0.95),
		P99:           percentile(latencies, 0.99),
	}
	return snap, true
}

// percentile implements nearest-rank: idx = max(0, ceil(n*q) - 1), on an
// already-ascending-sorted slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(n)*q)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func pruneEvents(events []event, cutoff time.Time) []event {
	i := 0
	for i < len(events) && events[i].at.Before(cutoff) {
		i++
	}
	if i == 0 {
		return events
	}
	return append([]event(nil), events[i:]...)
}

// AllKeys returns every (chain,provider) pair that has been recorded or
// passed to Snapshot, including pairs whose events have all been pruned,
// for observability sweeps (e.g. Prometheus export).
func (m *ProviderMetrics) AllKeys() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][2]string, 0, len(m.data))
	for k := range m.data {
		for i := 0; i < len(k); i++ {
			if k[i] == ':' {
				out = append(out, [2]string{k[:i], k[i+1:]})
				break
			}
		}
	}
	return out
}
