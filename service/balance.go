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

// Package service wires the resilience layer into the Balance,
// Transaction, and DeFi façades — the "19% of core" wiring layer spec §2
// names as the top of the leaf-first dependency order.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/fanin"
	"github.com/cygnus-wealth/evm-access-core/log"
)

// Registry resolves a chain id to its configured Adapter, the minimal
// lookup every façade needs.
type Registry interface {
	Adapter(chainID string) (chain.Adapter, bool)
}

// BalanceService exposes account-attributed, deduplicated balance lookups
// across one or more chains via fanin.Run.
type BalanceService struct {
	registry Registry
	log      log.Logger
}

// NewBalanceService builds a BalanceService over registry.
func NewBalanceService(registry Registry) *BalanceService {
	return &BalanceService{registry: registry, log: log.New("component", "service.balance")}
}

// GetNativeBalances resolves native balances for every AddressRequest,
// deduplicating identical (address, chain) pairs per §4.9.
func (s *BalanceService) GetNativeBalances(ctx context.Context, requests []fanin.AddressRequest) ([]fanin.AccountResult, []fanin.AccountError) {
	requestID := uuid.NewString()
	s.log.Debug("balance batch starting", "request_id", requestID, "accounts", len(requests))

	requests, invalid := validateAddresses(requests)
	results, errList := fanin.Run(ctx, requests, func(ctx context.Context, address, chainID string) (interface{}, error) {
		ad, ok := s.registry.Adapter(chainID)
		if !ok {
			return nil, chainNotConfigured(chainID)
		}
		return ad.GetNativeBalance(ctx, address)
	})
	errList = append(invalid, errList...)

	s.log.Debug("balance batch complete", "request_id", requestID, "results", len(results), "errors", len(errList))
	return results, errList
}

// GetTokenBalances is GetNativeBalances' token-list counterpart; tokens
// applies uniformly to every request in the batch.
func (s *BalanceService) GetTokenBalances(ctx context.Context, requests []fanin.AddressRequest, tokens []chain.TokenDescriptor) ([]fanin.AccountResult, []fanin.AccountError) {
	requests, invalid := validateAddresses(requests)
	results, errList := fanin.Run(ctx, requests, func(ctx context.Context, address, chainID string) (interface{}, error) {
		ad, ok := s.registry.Adapter(chainID)
		if !ok {
			return nil, chainNotConfigured(chainID)
		}
		return ad.GetTokenBalances(ctx, address, tokens)
	})
	return results, append(invalid, errList...)
}
