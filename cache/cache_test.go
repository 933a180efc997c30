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

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New("1", 1024*1024)
	require.NoError(t, c.Set("balance:0xabc", "123456"))

	var out string
	ok, err := c.Get("balance:0xabc", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "123456", out)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New("1", 1024*1024)
	var out string
	ok, err := c.Get("missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	c := New("1", 1024*1024)
	require.NoError(t, c.Set("k", "v1"))
	require.NoError(t, c.Set("k", "v2"))

	var out string
	ok, _ := c.Get("k", &out)
	require.True(t, ok)
	assert.Equal(t, "v2", out)
}

func TestResetClearsEntries(t *testing.T) {
	c := New("1", 1024*1024)
	require.NoError(t, c.Set("k", "v"))
	c.Reset()

	var out string
	ok, _ := c.Get("k", &out)
	assert.False(t, ok)
}

func TestDistinctChainsDoNotCollide(t *testing.T) {
	c1 := New("1", 1024*1024)
	c2 := New("137", 1024*1024)
	require.NoError(t, c1.Set("k", "chain1-value"))

	var out string
	ok, _ := c2.Get("k", &out)
	assert.False(t, ok, "separate Cache instances must not share state")
}
