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

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/internal/clock"
)

func TestSnapshotAbsentWhenEmpty(t *testing.T) {
	m := New(time.Minute)
	_, ok := m.Snapshot("1", "alchemy")
	assert.False(t, ok)
}

func TestSnapshotSingleEntry(t *testing.T) {
	m := New(time.Minute)
	m.RecordSuccess("1", "alchemy", 100*time.Millisecond)
	snap, ok := m.Snapshot("1", "alchemy")
	require.True(t, ok)
	assert.Equal(t, 1, snap.TotalRequests)
	assert.Equal(t, 0, snap.TotalErrors)
	assert.Equal(t, 100*time.Millisecond, snap.P50)
	assert.Equal(t, snap.P50, snap.P95)
	assert.Equal(t, snap.P50, snap.P99)
}

func TestSnapshotTwoEntries(t *testing.T) {
	m := New(time.Minute)
	m.RecordSuccess("1", "alchemy", 50*time.Millisecond)
	m.RecordSuccess("1", "alchemy", 150*time.Millisecond)
	snap, ok := m.Snapshot("1", "alchemy")
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, snap.P50)
	assert.Equal(t, 150*time.Millisecond, snap.P95)
	assert.Equal(t, 150*time.Millisecond, snap.P99)
}

func TestErrorRateRoundTrip(t *testing.T) {
	m := New(time.Minute)
	m.RecordSuccess("1", "alchemy", 10*time.Millisecond)
	m.RecordError("1", "alchemy", 20*time.Millisecond)
	m.RecordError("1", "alchemy", 30*time.Millisecond)
	snap, ok := m.Snapshot("1", "alchemy")
	require.True(t, ok)
	assert.Equal(t, 3, snap.TotalRequests)
	assert.Equal(t, 2, snap.TotalErrors)
	assert.InDelta(t, 2.0/3.0, snap.ErrorRate, 1e-9)
}

func TestPruningDropsStaleEntries(t *testing.T) {
	mc := clock.NewMock(time.Unix(0, 0))
	m := NewWithClock(time.Second, mc)
	m.RecordSuccess("1", "alchemy", 10*time.Millisecond)

	mc.Advance(2 * time.Second)
	_, ok := m.Snapshot("1", "alchemy")
	assert.False(t, ok, "entry older than the rolling window must not appear")
}

func TestNearestRankPercentile(t *testing.T) {
	m := New(time.Minute)
	for _, ms := range []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100} {
		m.RecordSuccess("1", "infura", time.Duration(ms)*time.Millisecond)
	}
	snap, ok := m.Snapshot("1", "infura")
	require.True(t, ok)
	// n=10: p50 idx = ceil(10*0.5)-1 = 4 -> 50ms; p95 idx=ceil(9.5)-1=9 -> 100ms
	assert.Equal(t, 50*time.Millisecond, snap.P50)
	assert.Equal(t, 100*time.Millisecond, snap.P95)
}
