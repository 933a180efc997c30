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

package bulkhead

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/errs"
)

func TestExecuteRunsImmediatelyUnderCapacity(t *testing.T) {
	b := New("test", Config{MaxConcurrent: 1, MaxQueue: 1, QueueTimeout: time.Second})
	val, err := b.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
}

func TestFIFOCompletionOrder(t *testing.T) {
	b := New("fifo", Config{MaxConcurrent: 1, MaxQueue: 3, QueueTimeout: 2 * time.Second})
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	submit := func(i int, sleep time.Duration) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Execute(func() (interface{}, error) {
				time.Sleep(sleep)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err)
		}()
		time.Sleep(5 * time.Millisecond) // ensure submission order
	}

	submit(1, 40*time.Millisecond)
	submit(2, 0)
	submit(3, 0)
	submit(4, 0)
	wg.Wait()

	require.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestQueueFullRejects(t *testing.T) {
	b := New("full", Config{MaxConcurrent: 1, MaxQueue: 1, QueueTimeout: time.Second})
	release := make(chan struct{})
	go b.Execute(func() (interface{}, error) { <-release; return nil, nil })
	time.Sleep(10 * time.Millisecond)

	go b.Execute(func() (interface{}, error) { <-release; return nil, nil }) // occupies the queue
	time.Sleep(10 * time.Millisecond)

	_, err := b.Execute(func() (interface{}, error) { return nil, nil })
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BulkheadFull))
	close(release)
}

func TestQueueTimeoutRejectsAndIncrementsCounter(t *testing.T) {
	b := New("timeout", Config{MaxConcurrent: 1, MaxQueue: 1, QueueTimeout: 30 * time.Millisecond})
	release := make(chan struct{})
	go b.Execute(func() (interface{}, error) { <-release; return nil, nil })
	time.Sleep(10 * time.Millisecond)

	_, err := b.Execute(func() (interface{}, error) { return nil, nil })
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BulkheadQueueTimeout))
	assert.Equal(t, int64(1), b.Stats().TotalTimedOut)
	close(release)
}

func TestLoadPercent(t *testing.T) {
	b := New("load", Config{MaxConcurrent: 2, MaxQueue: 2, QueueTimeout: time.Second})
	release := make(chan struct{})
	go b.Execute(func() (interface{}, error) { <-release; return nil, nil })
	time.Sleep(10 * time.Millisecond)

	stats := b.Stats()
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 25, stats.LoadPercent) // (1+0)/(2+2) = 25%
	close(release)
}

func TestClearQueueRejectsAllWaiters(t *testing.T) {
	b := New("clear", Config{MaxConcurrent: 1, MaxQueue: 2, QueueTimeout: 5 * time.Second})
	release := make(chan struct{})
	go b.Execute(func() (interface{}, error) { <-release; return nil, nil })
	time.Sleep(10 * time.Millisecond)

	var wg sync.WaitGroup
	errs2 := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.Execute(func() (interface{}, error) { return nil, nil })
			errs2[i] = err
		}(i)
	}
	time.Sleep(10 * time.Millisecond)
	b.ClearQueue()
	wg.Wait()

	for _, err := range errs2 {
		require.Error(t, err)
	}
	close(release)
}
