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

// Package defi defines the §6 external interface #3 DeFi protocol adapter
// and an Aggregator applying the §4.9 DeFi-specific partial-failure
// policy across however many protocol adapters are registered for a chain.
package defi

import "context"

// Position is the minimal shape every protocol-specific position reduces
// to at the aggregation boundary; richer decoding is an out-of-scope
// external collaborator per §1.
type Position struct {
	Protocol string
	Kind     string // "lending", "staked", "liquidity"
	Asset    string
	Amount   string
}

// Adapter is the §6 external interface #3 contract. Each adapter is
// self-describing about which chains it supports.
type Adapter interface {
	ProtocolName() string
	SupportedChains() []string
	SupportsChain(chainID string) bool
	GetLendingPositions(ctx context.Context, address, chainID string) ([]Position, error)
	GetStakedPositions(ctx context.Context, address, chainID string) ([]Position, error)
	GetLiquidityPositions(ctx context.Context, address, chainID string) ([]Position, error)
}

// Aggregator combines positions across every registered Adapter applicable
// to a chain, per the §4.9 partial-failure policy:
//   - no applicable protocols -> success, empty positions
//   - protocols exist and all fail -> propagate the first error
//   - at least one succeeds -> combine successes, discard the rest silently
type Aggregator struct {
	adapters []Adapter
}

// New builds an Aggregator over the given protocol adapters.
func New(adapters ...Adapter) *Aggregator {
	return &Aggregator{adapters: adapters}
}

func (a *Aggregator) applicable(chainID string) []Adapter {
	out := make([]Adapter, 0, len(a.adapters))
	for _, ad := range a.adapters {
		if ad.SupportsChain(chainID) {
			out = append(out, ad)
		}
	}
	return out
}

// GetAllPositions runs all three position kinds across every applicable
// adapter. An adapter counts as failed if any of its three calls fails, and
// its positions from the other calls are then dropped. The partial-failure
// policy is applied across adapters: the first error is returned only when
// every adapter failed.
func (a *Aggregator) GetAllPositions(ctx context.Context, address, chainID string) ([]Position, error) {
	adapters := a.applicable(chainID)
	if len(adapters) == 0 {
		return nil, nil
	}

	type outcome struct {
		positions []Position
		err       error
	}
	outcomes := make([]outcome, len(adapters))
	done := make(chan int, len(adapters))
	for i, ad := range adapters {
		i, ad := i, ad
		go func() {
			var positions []Position
			var firstErr error
			for _, fn := range []func(context.Context, string, string) ([]Position, error){
				ad.GetLendingPositions, ad.GetStakedPositions, ad.GetLiquidityPositions,
			} {
				p, err := fn(ctx, address, chainID)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				positions = append(positions, p...)
			}
			outcomes[i] = outcome{positions: positions, err: firstErr}
			done <- i
		}()
	}
	for range adapters {
		<-done
	}

	var combined []Position
	var firstErr error
	anySucceeded := false
	for _, o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		anySucceeded = true
		combined = append(combined, o.positions...)
	}

	if !anySucceeded && firstErr != nil {
		return nil, firstErr
	}
	return combined, nil
}
