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

// Package cache implements the last-known-good FallbackCache from spec
// §3/§4.5: one entry per cache key, written on every successful RPC
// fallback-chain call, read only on the all-endpoints-failed path.
package cache

import (
	"encoding/json"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/zeebo/blake3"
)

// DefaultSizeBytes is the fastcache working-set size for a single chain's
// fallback cache. fastcache rounds this up internally to its bucket
// granularity.
const DefaultSizeBytes = 32 * 1024 * 1024

// Cache is a single-writer-per-chain, last-successful-value store keyed by
// an opaque string key (typically method+args for a given chain). Values
// are JSON-encoded before storage so any caller-supplied value type can be
// round-tripped through fastcache's []byte API.
type Cache struct {
	chain string
	mu    sync.Mutex
	fc    *fastcache.Cache
}

// New creates a Cache for chain, sized sizeBytes (DefaultSizeBytes if <= 0).
func New(chain string, sizeBytes int) *Cache {
	if sizeBytes <= 0 {
		sizeBytes = DefaultSizeBytes
	}
	return &Cache{chain: chain, fc: fastcache.New(sizeBytes)}
}

// hashKey reduces an arbitrary-length key to blake3's fixed digest so
// fastcache (which works best with short keys) never sees unbounded input.
func hashKey(chain, key string) []byte {
	h := blake3.Sum256([]byte(chain + ":" + key))
	return h[:]
}

// Set stores value under key, overwriting any prior entry. Called on every
// successful RPC fallback-chain call per §4.5's executeWithCache contract.
func (c *Cache) Set(key string, value interface{}) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.fc.Set(hashKey(c.chain, key), buf)
	c.mu.Unlock()
	return nil
}

// Get looks up key and unmarshals into out (a pointer). It reports whether
// an entry was found; a miss leaves out untouched.
func (c *Cache) Get(key string, out interface{}) (bool, error) {
	c.mu.Lock()
	buf, ok := c.fc.HasGet(nil, hashKey(c.chain, key))
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears every entry for this chain.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.fc.Reset()
	c.mu.Unlock()
}
