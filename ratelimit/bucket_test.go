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

package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/errs"
)

func TestTryAcquireRespectsCapacity(t *testing.T) {
	b := New("primary", 2, time.Second)
	defer b.Close()

	assert.True(t, b.TryAcquire())
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire(), "capacity of 2 should be exhausted")
}

func TestAcquireRefillsOverTime(t *testing.T) {
	b := New("primary", 10, time.Second)
	defer b.Close()

	for i := 0; i < 10; i++ {
		require.True(t, b.TryAcquire())
	}
	require.False(t, b.TryAcquire())

	require.NoError(t, b.Acquire(), "waiter should be granted once refill produces a token")
}

func TestAcquireTimesOutWithRateLimitError(t *testing.T) {
	b := New("starved", 1, 150*time.Millisecond)
	defer b.Close()
	require.True(t, b.TryAcquire())

	err := b.Acquire()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.RateLimit))
	assert.Contains(t, err.Error(), "starved")
}

func TestAcquireGrantsFIFO(t *testing.T) {
	// At 1 token/s the fifth waiter is granted after about 5s.
	b := New("fifo", 1, 6*time.Second)
	defer b.Close()
	require.True(t, b.TryAcquire()) // drain the initial token

	const n = 5
	order := make([]int, 0, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Stagger submissions slightly so queue order is deterministic.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			if err := b.Acquire(); err == nil {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, order, n)
	for i := range order {
		assert.Equal(t, i, order[i], "waiters should be granted in submission order")
	}
}

func TestAvailableDoesNotConsume(t *testing.T) {
	b := New("observe", 3, time.Second)
	defer b.Close()

	first := b.Available()
	second := b.Available()
	assert.Equal(t, first, second)
	assert.True(t, b.TryAcquire(), "observation must not have consumed a token")
}
