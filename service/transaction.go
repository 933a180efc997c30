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

	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/fanin"
)

func chainNotConfigured(chainID string) error {
	return errs.New(errs.Validation, "chain "+chainID+" is not configured")
}

// validateAddresses is the §7 "raised synchronously at the call site
// before any I/O" preflight: malformed addresses are rejected immediately,
// one AccountError per (accountId, chainScope entry), and never reach
// fanin.Run's goroutines. Well-formed requests pass through unchanged.
func validateAddresses(requests []fanin.AddressRequest) ([]fanin.AddressRequest, []fanin.AccountError) {
	valid := make([]fanin.AddressRequest, 0, len(requests))
	var invalid []fanin.AccountError
	for _, r := range requests {
		if chain.ValidAddress(r.Address) {
			valid = append(valid, r)
			continue
		}
		err := errs.New(errs.Validation, "malformed address "+r.Address)
		for _, chainID := range r.ChainScope {
			invalid = append(invalid, fanin.AccountError{AccountID: r.AccountID, Address: r.Address, ChainID: chainID, Err: err})
		}
	}
	return valid, invalid
}

// TransactionService wraps chain.Adapter's transaction read/subscribe
// methods with the same account-attributed fan-in as BalanceService.
type TransactionService struct {
	registry Registry
}

// NewTransactionService builds a TransactionService over registry.
func NewTransactionService(registry Registry) *TransactionService {
	return &TransactionService{registry: registry}
}

// GetTransactions resolves transaction history for a batch of requests,
// deduplicating identical (address, chain) pairs.
func (s *TransactionService) GetTransactions(ctx context.Context, requests []fanin.AddressRequest, opts chain.TxOptions) ([]fanin.AccountResult, []fanin.AccountError) {
	requests, invalid := validateAddresses(requests)
	results, errList := fanin.Run(ctx, requests, func(ctx context.Context, address, chainID string) (interface{}, error) {
		ad, ok := s.registry.Adapter(chainID)
		if !ok {
			return nil, chainNotConfigured(chainID)
		}
		return ad.GetTransactions(ctx, address, opts)
	})
	return results, append(invalid, errList...)
}

// Subscribe opens a live transaction subscription for a single
// (address, chain) pair; subscriptions are not batched through fanin since
// each caller owns its own unsubscribe handle.
func (s *TransactionService) Subscribe(ctx context.Context, address, chainID string, onTx func(chain.Transaction)) (chain.Unsubscribe, error) {
	if !chain.ValidAddress(address) {
		return nil, errs.New(errs.Validation, "malformed address "+address)
	}
	ad, ok := s.registry.Adapter(chainID)
	if !ok {
		return nil, chainNotConfigured(chainID)
	}
	return ad.SubscribeTransactions(ctx, address, onTx)
}
