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

// Package fanin implements the account-attributed request fan-in from
// spec §4.9: requests naming distinct accounts but the same (address,
// chain) are deduplicated into one underlying query, whose result (or
// error) is fanned back out to every originating account.
package fanin

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// AddressRequest is one caller's query, per §3.
type AddressRequest struct {
	AccountID  string
	Address    string
	ChainScope []string
}

// AccountResult pairs a query result with the account that requested it.
type AccountResult struct {
	AccountID string
	Address   string
	ChainID   string
	Value     interface{}
}

// AccountError pairs a query failure with the account that requested it.
type AccountError struct {
	AccountID string
	Address   string
	ChainID   string
	Err       error
}

// Query executes the underlying, deduplicated lookup for one
// (address, chain) pair.
type Query func(ctx context.Context, address, chainID string) (interface{}, error)

// Key is lowercase(address) + ":" + chainId, the §4.9 dedup key.
func Key(address, chainID string) string {
	return strings.ToLower(address) + ":" + chainID
}

// Run deduplicates requests by Key, executes query once per unique key
// concurrently (via singleflight, equivalent to Promise.allSettled), and
// fans each outcome back out to every AccountID that asked for it.
// Failures in one query never abort the others.
func Run(ctx context.Context, requests []AddressRequest, query Query) ([]AccountResult, []AccountError) {
	type target struct {
		address, chainID string
		accountIDs       []string
	}

	targets := make(map[string]*target)
	var order []string
	for _, r := range requests {
		for _, chainID := range r.ChainScope {
			k := Key(r.Address, chainID)
			t, ok := targets[k]
			if !ok {
				t = &target{address: r.Address, chainID: chainID}
				targets[k] = t
				order = append(order, k)
			}
			t.accountIDs = append(t.accountIDs, r.AccountID)
		}
	}

	var (
		g       singleflight.Group
		mu      sync.Mutex
		results []AccountResult
		errs    []AccountError
		wg      sync.WaitGroup
	)

	for _, k := range order {
		t := targets[k]
		wg.Add(1)
		go func(k string, t *target) {
			defer wg.Done()
			v, err, _ := g.Do(k, func() (interface{}, error) {
				return query(ctx, t.address, t.chainID)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for _, acct := range t.accountIDs {
					errs = append(errs, AccountError{AccountID: acct, Address: t.address, ChainID: t.chainID, Err: err})
				}
				return
			}
			for _, acct := range t.accountIDs {
				results = append(results, AccountResult{AccountID: acct, Address: t.address, ChainID: t.chainID, Value: v})
			}
		}(k, t)
	}
	wg.Wait()

	return results, errs
}

// UniqueKeyCount reports the number of distinct (address, chain) targets a
// request set resolves to, for the §8 testable-property assertion that the
// number of underlying queries equals this count.
func UniqueKeyCount(requests []AddressRequest) int {
	seen := make(map[string]struct{})
	for _, r := range requests {
		for _, chainID := range r.ChainScope {
			seen[Key(r.Address, chainID)] = struct{}{}
		}
	}
	return len(seen)
}
