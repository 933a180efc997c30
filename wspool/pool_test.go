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

package wspool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/eventbus"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
)

func noopSmoke(ctx context.Context, url string) error { return nil }

func TestConnectFallsBackToPollingWithoutWSEndpoints(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	p := NewWithClock(DefaultConfig(), eventbus.New(), mc)

	e, err := p.Connect(context.Background(), "1", nil, []string{"http://rpc.example"}, noopSmoke)
	require.NoError(t, err)
	status, transport := e.Status()
	assert.Equal(t, Connected, status)
	assert.Equal(t, TransportPolling, transport)
}

func TestConnectFailsWithNoEndpointsAtAll(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	p := NewWithClock(DefaultConfig(), eventbus.New(), mc)

	_, err := p.Connect(context.Background(), "1", nil, nil, noopSmoke)
	require.Error(t, err)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	p := NewWithClock(DefaultConfig(), eventbus.New(), mc)

	_, err := p.Connect(context.Background(), "1", nil, []string{"http://rpc.example"}, noopSmoke)
	require.NoError(t, err)

	p.Disconnect("1")
	assert.NotPanics(t, func() { p.Disconnect("1") })
	// A chain that was never connected is also a safe no-op.
	assert.NotPanics(t, func() { p.Disconnect("never-connected") })
}

func TestDestroyTearsDownEveryChain(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	p := NewWithClock(DefaultConfig(), eventbus.New(), mc)

	_, err := p.Connect(context.Background(), "1", nil, []string{"http://a"}, noopSmoke)
	require.NoError(t, err)
	_, err = p.Connect(context.Background(), "2", nil, []string{"http://b"}, noopSmoke)
	require.NoError(t, err)

	assert.NotPanics(t, func() { p.Destroy() })
	// Destroy again, with no entries left, must not panic either.
	assert.NotPanics(t, func() { p.Destroy() })
}

// TestCloseHeartbeatStopsGoroutineAndIsIdempotent exercises the fix for the
// heartbeat goroutine leak: a started heartbeat's stop channel is closed
// exactly once, and a second stop attempt is a no-op rather than a panic.
func TestCloseHeartbeatStopsGoroutineAndIsIdempotent(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Second
	p := NewWithClock(cfg, eventbus.New(), mc)

	e := &Entry{chainID: "1", heartbeatCh: make(chan struct{}), reconnectCh: make(chan struct{}, 1)}
	p.startHeartbeat(e)

	e.mu.Lock()
	stopCh := e.heartbeatCh
	e.mu.Unlock()
	require.NotNil(t, stopCh)

	e.closeHeartbeat()
	select {
	case <-stopCh:
	default:
		t.Fatal("heartbeat stop channel was not closed")
	}
	assert.NotPanics(t, func() { e.closeHeartbeat() })
}
