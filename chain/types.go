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

// Package chain holds the static per-chain configuration shared by the
// RPC fallback chain, the WebSocket pool, and the health monitor: endpoint
// lists, priority ordering, and the narrow ChainAdapter/DeFi external
// interfaces from spec §6.
package chain

import (
	"context"
	"regexp"

	"golang.org/x/exp/slices"
)

// Endpoint is one provider's RPC entry for a chain, per §3 ConnectionPoolEntry
// and §4.5's "ordered endpoint list".
type Endpoint struct {
	URL      string
	WSURL    string // empty if the provider has no WebSocket endpoint
	Provider string
	Priority int // ascending: lower is tried first
	RPS      float64
}

// Config is the static description of one chain: its id, human name, and
// its ordered endpoint list (ordering applied by SortEndpoints).
type Config struct {
	ID        string
	Name      string
	Endpoints []Endpoint
}

// SortEndpoints orders endpoints by ascending priority, ties broken by
// original insertion order (§4.5 edge policy: "sorted once at
// construction"). Uses golang.org/x/exp/slices.SortStableFunc so ties keep
// their relative order without a manual index-carrying comparator.
func SortEndpoints(endpoints []Endpoint) []Endpoint {
	out := append([]Endpoint(nil), endpoints...)
	slices.SortStableFunc(out, func(a, b Endpoint) bool { return a.Priority < b.Priority })
	return out
}

// TokenDescriptor names a token balance lookup target for the ChainAdapter
// balance-batch operation (§6 external interface #2).
type TokenDescriptor struct {
	Address  string
	Symbol   string
	Decimals int
}

// TxOptions bounds a transaction history query.
type TxOptions struct {
	Limit     int
	FromBlock uint64
	ToBlock   uint64
}

// Info is the static chain info a ChainAdapter reports (§6 "get static
// chain info").
type Info struct {
	ID           string
	Name         string
	NativeSymbol string
	Decimals     int
}

// Adapter is the narrow external interface (§6 #2) the service façades
// depend on; every read method is expected to route through the RPC
// fallback chain internally.
type Adapter interface {
	GetNativeBalance(ctx context.Context, address string) (string, error)
	GetTokenBalances(ctx context.Context, address string, tokens []TokenDescriptor) (map[string]string, error)
	GetTransactions(ctx context.Context, address string, opts TxOptions) ([]Transaction, error)
	SubscribeBalance(ctx context.Context, address string, onChange func(balance string)) (Unsubscribe, error)
	SubscribeTransactions(ctx context.Context, address string, onTx func(tx Transaction)) (Unsubscribe, error)
	Info() Info
	IsHealthy(ctx context.Context) bool
	Connect(ctx context.Context) error
	Disconnect() error
}

// addressPattern matches a 20-byte EVM address in 0x-prefixed hex, per §7's
// "address format" Validation kind.
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether address is a well-formed EVM address. It is
// a pure format check, not a checksum/existence check.
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// Unsubscribe cancels a subscription registered through Adapter.
type Unsubscribe func()

// Transaction is the minimal transaction shape the façades need; richer
// decoding is an out-of-scope external collaborator per §1.
type Transaction struct {
	Hash        string
	From        string
	To          string
	Value       string
	BlockNumber uint64
}
