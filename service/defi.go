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
	"context"

	"github.com/cygnus-wealth/evm-access-core/defi"
	"github.com/cygnus-wealth/evm-access-core/fanin"
)

// AggregatorRegistry resolves a chain id to the defi.Aggregator configured
// for it (each chain may have a different protocol roster).
type AggregatorRegistry interface {
	Aggregator(chainID string) (*defi.Aggregator, bool)
}

// DeFiService fans DeFi position lookups out across accounts, applying the
// §4.9 partial-failure policy per (address, chain) through defi.Aggregator,
// and the outer fan-in/dedup policy across the request batch.
type DeFiService struct {
	registry AggregatorRegistry
}

// NewDeFiService builds a DeFiService over registry.
func NewDeFiService(registry AggregatorRegistry) *DeFiService {
	return &DeFiService{registry: registry}
}

// GetPositions resolves combined DeFi positions for a batch of requests.
func (s *DeFiService) GetPositions(ctx context.Context, requests []fanin.AddressRequest) ([]fanin.AccountResult, []fanin.AccountError) {
	requests, invalid := validateAddresses(requests)
	results, errList := fanin.Run(ctx, requests, func(ctx context.Context, address, chainID string) (interface{}, error) {
		agg, ok := s.registry.Aggregator(chainID)
		if !ok {
			return []defi.Position{}, nil // no protocols configured for this chain: empty, not an error
		}
		return agg.GetAllPositions(ctx, address, chainID)
	})
	return results, append(invalid, errList...)
}
