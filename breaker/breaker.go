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

// Package breaker implements the three-state per-(chain,provider)
// circuit breaker from spec §4.2: rolling-window failure counting,
// fail-fast while OPEN, and single-probe admission while HALF_OPEN.
package breaker

import (
	"sync"
	"time"

	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
)

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config holds the §6 breaker.* options.
type Config struct {
	FailureThreshold  int           // breaker.failureThreshold, default 5
	VolumeThreshold   int           // minimum events in window before tripping; default equals FailureThreshold
	RollingWindow     time.Duration // breaker.rollingWindowMs, default 60s
	OpenTimeout       time.Duration // breaker.openTimeoutMs, default 30s
	SuccessThreshold  int           // breaker.successThreshold, default 3
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		VolumeThreshold:  5,
		RollingWindow:    60 * time.Second,
		OpenTimeout:      30 * time.Second,
		SuccessThreshold: 3,
	}
}

// Breaker guards calls to a single (chain, provider) pair.
type Breaker struct {
	name   string
	cfg    Config
	clock  clock.Clock
	log    log.Logger

	mu               sync.Mutex
	state            State
	failureTimes     []time.Time
	eventTimes       []time.Time // all events (success+failure) in-window, for volumeThreshold
	halfOpenInFlight bool
	halfOpenSuccess  int
	openUntil        time.Time
}

// New creates a Breaker identified by name (typically "chain:provider").
func New(name string, cfg Config) *Breaker {
	return NewWithClock(name, cfg, clock.Real{})
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(name string, cfg Config, c clock.Clock) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.VolumeThreshold <= 0 {
		cfg.VolumeThreshold = cfg.FailureThreshold
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		clock: c,
		log:   log.New("component", "breaker", "name", name),
		state: Closed,
	}
}

// State reports the current state, resolving an elapsed OPEN timeout to
// HALF_OPEN as a side effect (the transition happens lazily, on the next
// observation, per §4.2).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == Open && !b.clock.Now().Before(b.openUntil) {
		b.state = HalfOpen
		b.halfOpenInFlight = false
		b.halfOpenSuccess = 0
		b.log.Info("breaker transitioning to half-open", "now", b.clock.Now())
	}
}

// Execute runs fn if the breaker admits it, recording the outcome. It
// returns errs.CircuitOpen without calling fn if the breaker is OPEN or
// if HALF_OPEN already has a probe in flight.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	b.maybeHalfOpenLocked()
	switch b.state {
	case Open:
		b.mu.Unlock()
		return errs.New(errs.CircuitOpen, "circuit "+b.name+" is open")
	case HalfOpen:
		if b.halfOpenInFlight {
			b.mu.Unlock()
			return errs.New(errs.CircuitOpen, "circuit "+b.name+" half-open probe already in flight")
		}
		b.halfOpenInFlight = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	b.halfOpenInFlight = false
	b.mu.Unlock()

	if err != nil {
		b.recordFailure()
	} else {
		b.recordSuccess()
	}
	return err
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	b.eventTimes = append(b.eventTimes, now)

	switch b.state {
	case HalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.cfg.SuccessThreshold {
			b.resetLocked()
			b.log.Info("breaker closed after successful probes", "successes", b.halfOpenSuccess)
		}
	case Closed:
		b.pruneLocked(now)
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	b.eventTimes = append(b.eventTimes, now)
	b.failureTimes = append(b.failureTimes, now)
	b.pruneLocked(now)

	switch b.state {
	case HalfOpen:
		b.tripLocked(now)
		b.log.Warn("breaker re-opened after half-open failure")
	case Closed:
		if len(b.failureTimes) >= b.cfg.FailureThreshold && len(b.eventTimes) >= b.cfg.VolumeThreshold {
			b.tripLocked(now)
			b.log.Warn("breaker opened", "failures", len(b.failureTimes), "events", len(b.eventTimes))
		}
	}
}

func (b *Breaker) tripLocked(now time.Time) {
	b.state = Open
	b.openUntil = now.Add(b.cfg.OpenTimeout)
	b.halfOpenInFlight = false
	b.halfOpenSuccess = 0
}

// pruneLocked drops failure/event timestamps older than the rolling
// window, evaluated at now.
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.RollingWindow)
	b.failureTimes = pruneBefore(b.failureTimes, cutoff)
	b.eventTimes = pruneBefore(b.eventTimes, cutoff)
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append([]time.Time(nil), ts[i:]...)
}

func (b *Breaker) resetLocked() {
	b.state = Closed
	b.failureTimes = nil
	b.eventTimes = nil
	b.halfOpenInFlight = false
	b.halfOpenSuccess = 0
	b.openUntil = time.Time{}
}

// Reset forces CLOSED and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

// Stats is a point-in-time snapshot for observability (§8 scenario 3:
// getEndpointStats).
type Stats struct {
	Name         string
	State        State
	FailureCount int
	OpenUntil    time.Time
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return Stats{
		Name:         b.name,
		State:        b.state,
		FailureCount: len(b.failureTimes),
		OpenUntil:    b.openUntil,
	}
}
