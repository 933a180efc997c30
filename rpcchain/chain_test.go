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

package rpcchain

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/breaker"
	"github.com/cygnus-wealth/evm-access-core/cache"
	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/metrics"
)

func newChain(t *testing.T, eps []chain.Endpoint, cfg Config) *Chain {
	t.Helper()
	bm := breaker.NewManager(breaker.DefaultConfig())
	pm := metrics.New(time.Minute)
	return New("1", eps, cfg, bm, pm, nil)
}

func TestHappyPathPrimarySucceeds(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
		{URL: "secondary", Provider: "secondary", Priority: 2, RPS: 100},
	}
	c := newChain(t, eps, Config{TotalTimeout: time.Second, MaxRetryAttempts: 0})

	result, err := c.Execute(context.Background(), func(ctx context.Context, url string) (interface{}, error) {
		if url == "primary" {
			return "ok", nil
		}
		return nil, assert.AnError
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Value)
	assert.Equal(t, "primary", result.Provider)
	assert.Equal(t, 1, result.Attempts)
}

func TestPrimaryFailsSecondarySucceeds(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
		{URL: "secondary", Provider: "secondary", Priority: 2, RPS: 100},
	}
	c := newChain(t, eps, Config{TotalTimeout: time.Second, MaxRetryAttempts: 0})

	result, err := c.Execute(context.Background(), func(ctx context.Context, url string) (interface{}, error) {
		if url == "primary" {
			return nil, assert.AnError
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "secondary", result.Provider)
}

func TestNonRetriableStatusTriesExactlyOnce(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
		{URL: "secondary", Provider: "secondary", Priority: 2, RPS: 100},
	}
	c := newChain(t, eps, Config{TotalTimeout: time.Second, MaxRetryAttempts: 2, NonRetriableStatus: errs.DefaultNonRetriableStatus()})

	var primaryCalls int32
	result, err := c.Execute(context.Background(), func(ctx context.Context, url string) (interface{}, error) {
		if url == "primary" {
			atomic.AddInt32(&primaryCalls, 1)
			return nil, &errs.StatusError{Status: 403, Err: assert.AnError}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "secondary", result.Provider)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryCalls))
}

func TestAllEndpointsFailReturnsAllFailedError(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
	}
	c := newChain(t, eps, Config{TotalTimeout: time.Second, MaxRetryAttempts: 0})

	_, err := c.Execute(context.Background(), func(ctx context.Context, url string) (interface{}, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.AllEndpointsFailed))
}

func TestOverallDeadlineExceededReturnsTimeoutError(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
		{URL: "secondary", Provider: "secondary", Priority: 2, RPS: 100},
	}
	bm := breaker.NewManager(breaker.DefaultConfig())
	pm := metrics.New(time.Minute)
	mc := clock.NewMock(time.Now())
	c := NewWithClock("1", eps, Config{TotalTimeout: 10 * time.Millisecond, MaxRetryAttempts: 0}, bm, pm, nil, mc)

	var secondaryCalls int32
	_, err := c.Execute(context.Background(), func(ctx context.Context, url string) (interface{}, error) {
		if url == "primary" {
			mc.Advance(time.Second) // blow well past the 10ms total deadline
			return nil, assert.AnError
		}
		atomic.AddInt32(&secondaryCalls, 1)
		return "ok", nil
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Timeout))
	assert.False(t, errs.Is(err, errs.AllEndpointsFailed))
	assert.Equal(t, int32(0), atomic.LoadInt32(&secondaryCalls))
}

func TestOpenBreakerSkipsEndpoint(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
		{URL: "secondary", Provider: "secondary", Priority: 2, RPS: 100},
	}
	bm := breaker.NewManager(breaker.Config{FailureThreshold: 1, VolumeThreshold: 1, RollingWindow: time.Minute, OpenTimeout: time.Minute, SuccessThreshold: 1})
	pm := metrics.New(time.Minute)
	c := New("1", eps, Config{TotalTimeout: time.Second, MaxRetryAttempts: 0}, bm, pm, nil)

	// Trip primary's breaker directly.
	_ = bm.For("1", "primary").Execute(func() error { return assert.AnError })

	var primaryCalls int32
	result, err := c.Execute(context.Background(), func(ctx context.Context, url string) (interface{}, error) {
		if url == "primary" {
			atomic.AddInt32(&primaryCalls, 1)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "secondary", result.Provider)
	assert.Equal(t, int32(0), atomic.LoadInt32(&primaryCalls))
}

func TestExecuteWithCacheFallsBackOnFailure(t *testing.T) {
	eps := []chain.Endpoint{
		{URL: "primary", Provider: "primary", Priority: 1, RPS: 100},
	}
	bm := breaker.NewManager(breaker.DefaultConfig())
	pm := metrics.New(time.Minute)
	fc := cache.New("1", 1<<20)
	c := New("1", eps, Config{TotalTimeout: time.Second, MaxRetryAttempts: 0, EnableCache: true}, bm, pm, fc)

	succeed := true
	op := func(ctx context.Context, url string) (interface{}, error) {
		if succeed {
			return "V", nil
		}
		return nil, assert.AnError
	}

	r1, err := c.ExecuteWithCache(context.Background(), "key", op)
	require.NoError(t, err)
	assert.Equal(t, "V", r1.Value)
	assert.False(t, r1.FromCache)

	succeed = false
	r2, err := c.ExecuteWithCache(context.Background(), "key", op)
	require.NoError(t, err)
	assert.Equal(t, "V", r2.Value)
	assert.True(t, r2.FromCache)
	assert.Equal(t, "cache", r2.Provider)
}
