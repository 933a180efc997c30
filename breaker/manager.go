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

package breaker

import (
	"sync"

	"github.com/cygnus-wealth/evm-access-core/internal/clock"
)

// Manager lazily creates and owns one Breaker per (chain, provider) key,
// shared between the RPC fallback chain and the health monitor (§5
// "Shared resources").
type Manager struct {
	cfg   Config
	clock clock.Clock

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewManager creates a Manager applying cfg to every breaker it creates.
func NewManager(cfg Config) *Manager {
	return NewManagerWithClock(cfg, clock.Real{})
}

// NewManagerWithClock is NewManager with an injectable clock.
func NewManagerWithClock(cfg Config, c clock.Clock) *Manager {
	return &Manager{cfg: cfg, clock: c, breakers: make(map[string]*Breaker)}
}

func key(chain, provider string) string { return chain + ":" + provider }

// For returns the Breaker for (chain, provider), creating it on first
// use and keeping it for the Manager's lifetime.
func (m *Manager) For(chain, provider string) *Breaker {
	k := key(chain, provider)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[k]
	if !ok {
		b = NewWithClock(k, m.cfg, m.clock)
		m.breakers[k] = b
	}
	return b
}

// AllStats snapshots every breaker the Manager has created so far.
func (m *Manager) AllStats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Stats, 0, len(m.breakers))
	for _, b := range m.breakers {
		out = append(out, b.Stats())
	}
	return out
}
