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

package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock is a virtual Clock for deterministic tests. Advance(d) moves time
// forward and fires any timers/tickers whose deadline has passed.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*mockWaiter
}

type mockWaiter struct {
	deadline time.Time
	period   time.Duration // zero for one-shot After/Timer
	ch       chan time.Time
	active   bool
}

// NewMock returns a Mock clock starting at the given instant.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &mockWaiter{deadline: m.now.Add(d), ch: make(chan time.Time, 1), active: true}
	m.waiters = append(m.waiters, w)
	return w.ch
}

func (m *Mock) Sleep(d time.Duration) {
	<-m.After(d)
}

func (m *Mock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &mockWaiter{deadline: m.now.Add(d), ch: make(chan time.Time, 1), active: true}
	m.waiters = append(m.waiters, w)
	return &mockTimer{m: m, w: w}
}

func (m *Mock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &mockWaiter{deadline: m.now.Add(d), period: d, ch: make(chan time.Time, 1), active: true}
	m.waiters = append(m.waiters, w)
	return &mockTicker{m: m, w: w}
}

// Advance moves virtual time forward by d, firing any waiters whose
// deadline falls at or before the new instant, in deadline order.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	due := make([]*mockWaiter, 0, len(m.waiters))
	for _, w := range m.waiters {
		if w.active && !w.deadline.After(target) {
			due = append(due, w)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	m.now = target
	m.mu.Unlock()

	for _, w := range due {
		select {
		case w.ch <- target:
		default:
		}
		m.mu.Lock()
		if w.period > 0 {
			w.deadline = w.deadline.Add(w.period)
		} else {
			w.active = false
		}
		m.mu.Unlock()
	}
}

type mockTimer struct {
	m *Mock
	w *mockWaiter
}

func (t *mockTimer) C() <-chan time.Time { return t.w.ch }

func (t *mockTimer) Reset(d time.Duration) bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	was := t.w.active
	t.w.active = true
	t.w.deadline = t.m.now.Add(d)
	return was
}

func (t *mockTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	was := t.w.active
	t.w.active = false
	return was
}

type mockTicker struct {
	m *Mock
	w *mockWaiter
}

func (t *mockTicker) C() <-chan time.Time { return t.w.ch }

func (t *mockTicker) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.w.active = false
}
