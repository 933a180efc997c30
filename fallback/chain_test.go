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

package fallback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
)

func TestFirstSuccessWins(t *testing.T) {
	c := New(
		Strategy{Name: "primary", Execute: func() (interface{}, error) { return "ok", nil }},
		Strategy{Name: "secondary", Execute: func() (interface{}, error) { return "never", nil }},
	)
	res, err := c.Execute()
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, "primary", res.Name)
}

func TestFallsThroughOnFailure(t *testing.T) {
	c := New(
		Strategy{Name: "primary", Execute: func() (interface{}, error) { return nil, errors.New("down") }},
		Strategy{Name: "secondary", Execute: func() (interface{}, error) { return "ok", nil }},
	)
	res, err := c.Execute()
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 1, res.Index)
	require.Len(t, res.Errors, 1)
}

func TestGuardSkipsStrategyWithoutError(t *testing.T) {
	c := New(
		Strategy{Name: "skip-me", ShouldAttempt: func() bool { return false }, Execute: func() (interface{}, error) { return nil, errors.New("must not run") }},
		Strategy{Name: "only", Execute: func() (interface{}, error) { return "ok", nil }},
	)
	res, err := c.Execute()
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Empty(t, res.Errors, "skipped strategies do not contribute errors")
}

func TestAllFailedReturnsDefault(t *testing.T) {
	c := New(
		Strategy{Name: "a", Execute: func() (interface{}, error) { return nil, errors.New("a-down") }},
		Strategy{Name: "b", Execute: func() (interface{}, error) { return nil, errors.New("b-down") }},
	).WithDefault("fallback-value")

	res, err := c.Execute()
	require.NoError(t, err)
	assert.Equal(t, "fallback-value", res.Value)
	assert.Equal(t, -1, res.Index)
	assert.True(t, res.Success)
}

func TestAllFailedWithoutDefaultRaises(t *testing.T) {
	c := New(
		Strategy{Name: "a", Execute: func() (interface{}, error) { return nil, errors.New("a-down") }},
		Strategy{Name: "b", Execute: func() (interface{}, error) { return nil, errors.New("b-down") }},
	)
	_, err := c.Execute()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.AllEndpointsFailed))
	assert.Contains(t, err.Error(), "a-down")
	assert.Contains(t, err.Error(), "b-down")
}

func TestPerStrategyTimeoutFallsThrough(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	release := make(chan struct{})
	defer close(release)

	c := New(
		Strategy{Name: "slow", Timeout: 10 * time.Millisecond, Execute: func() (interface{}, error) {
			<-release
			return "too-late", nil
		}},
		Strategy{Name: "fast", Execute: func() (interface{}, error) { return "ok", nil }},
	).WithClock(mc)

	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := c.Execute()
		resultCh <- res
		errCh <- err
	}()

	// Give the goroutine a moment to register the timer, then fire it.
	time.Sleep(10 * time.Millisecond)
	mc.Advance(10 * time.Millisecond)

	res := <-resultCh
	err := <-errCh
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	require.Len(t, res.Errors, 1)
	assert.True(t, errs.Is(res.Errors[0], errs.Timeout))
}
