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

package service

import (
	"sync"

	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/defi"
)

// ChainRegistry is the concrete Registry/AggregatorRegistry implementation
// tying adapter.Default instances and defi.Aggregator instances to chain
// ids; the process entrypoint populates one at startup from config.
type ChainRegistry struct {
	mu          sync.RWMutex
	adapters    map[string]chain.Adapter
	aggregators map[string]*defi.Aggregator
}

// NewChainRegistry builds an empty ChainRegistry.
func NewChainRegistry() *ChainRegistry {
	return &ChainRegistry{
		adapters:    make(map[string]chain.Adapter),
		aggregators: make(map[string]*defi.Aggregator),
	}
}

// RegisterAdapter associates chainID with ad; later calls for the same
// chainID replace the earlier adapter.
func (r *ChainRegistry) RegisterAdapter(chainID string, ad chain.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[chainID] = ad
}

// RegisterAggregator associates chainID with agg.
func (r *ChainRegistry) RegisterAggregator(chainID string, agg *defi.Aggregator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregators[chainID] = agg
}

// Adapter implements Registry.
func (r *ChainRegistry) Adapter(chainID string) (chain.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ad, ok := r.adapters[chainID]
	return ad, ok
}

// Aggregator implements AggregatorRegistry.
func (r *ChainRegistry) Aggregator(chainID string) (*defi.Aggregator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg, ok := r.aggregators[chainID]
	return agg, ok
}

// ChainIDs lists every chain id with a registered adapter, sorted by
// insertion is not guaranteed; callers that need stable order should sort.
func (r *ChainRegistry) ChainIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}

var (
	_ Registry           = (*ChainRegistry)(nil)
	_ AggregatorRegistry = (*ChainRegistry)(nil)
)
