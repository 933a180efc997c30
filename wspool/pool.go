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

// Package wspool implements the per-chain WebSocket connection pool from
// spec §4.6: lazy connect, a WS-URL walk guarded by a smoke call, automatic
// degradation to HTTP polling, heartbeat, and exponential-backoff-with-
// jitter reconnect.
package wspool

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/eventbus"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
)

// Status mirrors §3 ConnectionPoolEntry.status.
type Status string

const (
	Connecting   Status = "connecting"
	Connected    Status = "connected"
	Disconnected Status = "disconnected"
	Reconnecting Status = "reconnecting"
	Failed       Status = "failed"
)

// Transport mirrors §3 ConnectionPoolEntry.transport.
type Transport string

const (
	TransportWebsocket Transport = "websocket"
	TransportPolling   Transport = "polling"
)

// SmokeCall is the lightweight RPC call (e.g. eth_blockNumber) used both to
// validate a fresh connection and, per DESIGN.md Open Question #4, as the
// heartbeat payload.
type SmokeCall func(ctx context.Context, url string) error

// Config holds the §6 ws.* options.
type Config struct {
	ConnectionTimeout    time.Duration // ws.connectionTimeoutMs, default 10s
	HeartbeatInterval    time.Duration // ws.heartbeatIntervalMs, default 30s
	PongTimeout          time.Duration // ws.pongTimeoutMs, default 5s
	ReconnectBaseDelay   time.Duration // ws.reconnectBaseDelayMs, default 1s
	ReconnectMaxDelay    time.Duration // ws.reconnectMaxDelayMs, default 30s
	MaxReconnectAttempts int           // ws.maxReconnectAttempts, default 10
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{
		ConnectionTimeout:    10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		PongTimeout:          5 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: 10,
	}
}

// Entry is a single chain's pool state, §3 ConnectionPoolEntry.
type Entry struct {
	mu sync.Mutex

	chainID  string
	wsURLs   []string
	httpURLs []string
	smoke    SmokeCall

	status            Status
	transport         Transport
	activeURL         string
	connectedAt       time.Time
	lastError         error
	reconnectAttempts int
	subscriptions     int32

	conn        *websocket.Conn
	heartbeatCh chan struct{} // closed/replaced each heartbeat start/stop cycle
	reconnectCh chan struct{} // closed exactly once to cancel any in-flight reconnect loop
	stopOnce    sync.Once
}

// Pool owns one Entry per chain.
type Pool struct {
	cfg   Config
	clock clock.Clock
	log   log.Logger
	bus   *eventbus.Bus

	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates a Pool. bus receives every lifecycle event per §6 external
// interface #4.
func New(cfg Config, bus *eventbus.Bus) *Pool {
	return NewWithClock(cfg, bus, clock.Real{})
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(cfg Config, bus *eventbus.Bus, c clock.Clock) *Pool {
	if cfg.ConnectionTimeout <= 0 {
		cfg = DefaultConfig()
	}
	return &Pool{cfg: cfg, clock: c, log: log.New("component", "wspool"), bus: bus, entries: make(map[string]*Entry)}
}

// Connect lazily connects chainID, walking wsURLs in order before falling
// back to httpURLs per §4.6 step 2-3.
func (p *Pool) Connect(ctx context.Context, chainID string, wsURLs, httpURLs []string, smoke SmokeCall) (*Entry, error) {
	p.mu.Lock()
	e, ok := p.entries[chainID]
	if !ok {
		e = &Entry{chainID: chainID, wsURLs: wsURLs, httpURLs: httpURLs, smoke: smoke, heartbeatCh: make(chan struct{}), reconnectCh: make(chan struct{}, 1)}
		p.entries[chainID] = e
	}
	p.mu.Unlock()

	e.mu.Lock()
	if e.status == Connected {
		e.mu.Unlock()
		return e, nil
	}
	e.status = Connecting
	e.mu.Unlock()

	if err := p.tryWebsocketURLs(ctx, e); err == nil {
		p.startHeartbeat(e)
		p.emit(eventbus.WebsocketConnected, chainID, e.activeURL)
		return e, nil
	}

	if len(httpURLs) == 0 {
		e.mu.Lock()
		e.status = Failed
		e.mu.Unlock()
		p.emit(eventbus.WebsocketFailed, chainID, "no endpoints available")
		return nil, errs.New(errs.Upstream, "wspool: no websocket or http endpoints for chain "+chainID)
	}

	e.mu.Lock()
	e.transport = TransportPolling
	e.status = Connected
	e.activeURL = httpURLs[0]
	e.connectedAt = p.clock.Now()
	e.mu.Unlock()
	p.emit(eventbus.TransportFallbackToPoll, chainID, httpURLs[0])
	return e, nil
}

func (p *Pool) tryWebsocketURLs(ctx context.Context, e *Entry) error {
	var lastErr error
	for _, url := range e.wsURLs {
		cctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, url, nil)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}
		if e.smoke != nil {
			if err := e.smoke(cctx, url); err != nil {
				conn.Close()
				cancel()
				lastErr = err
				continue
			}
		}
		cancel()

		e.mu.Lock()
		e.conn = conn
		e.transport = TransportWebsocket
		e.status = Connected
		e.activeURL = url
		e.connectedAt = p.clock.Now()
		e.reconnectAttempts = 0
		e.mu.Unlock()
		return nil
	}
	if lastErr == nil {
		lastErr = errs.New(errs.Upstream, "wspool: no websocket urls configured")
	}
	return lastErr
}

func (p *Pool) startHeartbeat(e *Entry) {
	e.mu.Lock()
	stop := make(chan struct{})
	e.heartbeatCh = stop
	e.mu.Unlock()

	go func() {
		ticker := p.clock.NewTicker(p.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				p.beat(e)
			}
		}
	}()
}

// closeHeartbeat stops the running heartbeat goroutine, if any, and is
// idempotent: a second call is a no-op rather than a double close.
func (e *Entry) closeHeartbeat() {
	e.mu.Lock()
	ch := e.heartbeatCh
	e.heartbeatCh = nil
	e.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (p *Pool) beat(e *Entry) {
	e.mu.Lock()
	url := e.activeURL
	smoke := e.smoke
	e.mu.Unlock()
	if smoke == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PongTimeout)
	err := smoke(ctx, url)
	cancel()
	if err != nil {
		p.handleDisconnect(e, err)
	}
}

func (p *Pool) handleDisconnect(e *Entry, cause error) {
	e.mu.Lock()
	if e.status != Connected {
		e.mu.Unlock()
		return
	}
	e.status = Disconnected
	e.lastError = cause
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.mu.Unlock()

	e.closeHeartbeat()
	p.emit(eventbus.WebsocketDisconnected, e.chainID, cause)
	go p.scheduleReconnect(e)
}

// scheduleReconnect implements the §4.6 exponential-backoff-with-jitter
// reconnect schedule. It exits early, without reconnecting, if e.reconnectCh
// is closed (explicit Disconnect/Destroy tore the entry down).
func (p *Pool) scheduleReconnect(e *Entry) {
	for {
		select {
		case <-e.reconnectCh:
			return
		default:
		}

		e.mu.Lock()
		attempt := e.reconnectAttempts + 1
		e.reconnectAttempts = attempt
		e.status = Reconnecting
		e.mu.Unlock()

		if attempt > p.cfg.MaxReconnectAttempts {
			e.mu.Lock()
			e.status = Failed
			e.mu.Unlock()
			p.emit(eventbus.WebsocketFailed, e.chainID, "max reconnect attempts exceeded")
			return
		}

		p.emit(eventbus.WebsocketReconnecting, e.chainID, attempt)
		delay := reconnectDelay(p.cfg, attempt)
		timer := p.clock.NewTimer(delay)
		select {
		case <-timer.C():
		case <-e.reconnectCh:
			timer.Stop()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectionTimeout)
		err := p.tryWebsocketURLs(ctx, e)
		cancel()
		if err == nil {
			select {
			case <-e.reconnectCh:
				// Torn down while reconnecting; drop the fresh connection.
				e.mu.Lock()
				if e.conn != nil {
					e.conn.Close()
					e.conn = nil
				}
				e.mu.Unlock()
				return
			default:
			}
			p.startHeartbeat(e)
			p.emit(eventbus.WebsocketConnected, e.chainID, e.activeURL)
			return
		}
	}
}

// reconnectDelay implements delay = min(base*2^(attempt-1) + jitter, max).
func reconnectDelay(cfg Config, attempt int) time.Duration {
	base := float64(cfg.ReconnectBaseDelay)
	exp := base
	for i := 1; i < attempt; i++ {
		exp *= 2
	}
	jitter := rand.Float64() * base / 2
	delay := time.Duration(exp + jitter)
	if delay > cfg.ReconnectMaxDelay {
		delay = cfg.ReconnectMaxDelay
	}
	return delay
}

func (p *Pool) emit(t eventbus.Type, chainID string, payload interface{}) {
	if p.bus == nil {
		return
	}
	p.bus.Emit(t, chainID, payload)
	p.log.Debug("wspool event", "type", t, "chain", chainID)
}

// Disconnect tears down a chain's entry: closes the connection, stops the
// heartbeat goroutine, cancels any in-flight reconnect loop, and removes it
// from the pool.
func (p *Pool) Disconnect(chainID string) {
	p.mu.Lock()
	e, ok := p.entries[chainID]
	if ok {
		delete(p.entries, chainID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	p.teardown(e)
}

// Destroy tears down every registered chain's entry, per §5's destroy()
// contract: cancel all timers and stop all active connections.
func (p *Pool) Destroy() {
	p.mu.Lock()
	entries := make([]*Entry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.entries = make(map[string]*Entry)
	p.mu.Unlock()

	for _, e := range entries {
		p.teardown(e)
	}
}

func (p *Pool) teardown(e *Entry) {
	e.mu.Lock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.status = Disconnected
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.reconnectCh) })
	e.closeHeartbeat()
}

// IncSubscriptions/DecSubscriptions are used by subscription owners for
// observability per §4.6's closing note; the pool itself never tears down
// a connection solely because the counter reaches zero.
func (e *Entry) IncSubscriptions()    { atomic.AddInt32(&e.subscriptions, 1) }
func (e *Entry) DecSubscriptions()    { atomic.AddInt32(&e.subscriptions, -1) }
func (e *Entry) Subscriptions() int32 { return atomic.LoadInt32(&e.subscriptions) }

// Status reports the entry's current lifecycle status and transport.
func (e *Entry) Status() (Status, Transport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.transport
}
