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

// Package adapter provides the default chain.Adapter, wiring rpcchain for
// every read method and wspool for the subscription methods, per §6
// external interface #2 ("all read methods route through the fallback
// chain").
package adapter

import (
	"context"
	"encoding/json"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/eventbus"
	"github.com/cygnus-wealth/evm-access-core/rpcchain"
	"github.com/cygnus-wealth/evm-access-core/wspool"
)

// RawCaller is the §6 external interface #1 RPC call function, parameterized
// by method and args so a single Adapter can issue any JSON-RPC call.
type RawCaller func(ctx context.Context, endpointURL, method string, args ...interface{}) (json.RawMessage, error)

// Default is the default chain.Adapter, combining an rpcchain.Chain for
// request/response reads and a wspool.Pool for subscriptions.
type Default struct {
	info chain.Info
	rpc  *rpcchain.Chain
	pool *wspool.Pool
	call RawCaller
	bus  *eventbus.Bus

	wsURLs, httpURLs []string
}

// New builds a Default adapter. call is the raw JSON-RPC transport; rpc
// must already be constructed over the same chain's endpoints.
func New(info chain.Info, rpc *rpcchain.Chain, pool *wspool.Pool, call RawCaller, bus *eventbus.Bus, wsURLs, httpURLs []string) *Default {
	return &Default{info: info, rpc: rpc, pool: pool, call: call, bus: bus, wsURLs: wsURLs, httpURLs: httpURLs}
}

func (d *Default) Info() chain.Info { return d.info }

// GetNativeBalance routes eth_getBalance through the fallback chain,
// decoding the hex-quantity result with holiman/uint256 so large balances
// never lose precision to a float64 conversion.
func (d *Default) GetNativeBalance(ctx context.Context, address string) (string, error) {
	result, err := d.rpc.Execute(ctx, func(ctx context.Context, url string) (interface{}, error) {
		raw, err := d.call(ctx, url, "eth_getBalance", address, "latest")
		if err != nil {
			return nil, err
		}
		var hexQty string
		if err := json.Unmarshal(raw, &hexQty); err != nil {
			return nil, errs.Wrap(errs.Upstream, err, "decoding eth_getBalance result")
		}
		return hexQty, nil
	})
	if err != nil {
		return "", err
	}
	hexQty, _ := result.Value.(string)
	balance, err := parseHexU256(hexQty)
	if err != nil {
		return "", errs.Wrap(errs.Upstream, err, "parsing balance "+hexQty)
	}
	return balance.Dec(), nil
}

func parseHexU256(hexQty string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if err := v.SetFromHex(hexQty); err != nil {
		return nil, err
	}
	return v, nil
}

// GetTokenBalances batches one eth_call per token descriptor through the
// fallback chain, each call independently retried; results are not
// cached. mapset dedups
// token addresses within a single batch so a caller-supplied duplicate
// does not cost a second RPC round trip.
func (d *Default) GetTokenBalances(ctx context.Context, address string, tokens []chain.TokenDescriptor) (map[string]string, error) {
	out := make(map[string]string, len(tokens))
	unique := mapset.NewSet[string]()
	for _, t := range tokens {
		if unique.Contains(t.Address) {
			continue
		}
		unique.Add(t.Address)

		result, err := d.rpc.Execute(ctx, func(ctx context.Context, url string) (interface{}, error) {
			raw, err := d.call(ctx, url, "eth_call", map[string]string{
				"to":   t.Address,
				"data": "0x70a08231" + padAddress(address), // balanceOf(address)
			}, "latest")
			if err != nil {
				return nil, err
			}
			var hexQty string
			if err := json.Unmarshal(raw, &hexQty); err != nil {
				return nil, errs.Wrap(errs.Upstream, err, "decoding token balance")
			}
			return hexQty, nil
		})
		if err != nil {
			return nil, err
		}
		hexQty, _ := result.Value.(string)
		balance, err := parseHexU256(hexQty)
		if err != nil {
			return nil, errs.Wrap(errs.Upstream, err, "parsing token balance")
		}
		out[t.Address] = balance.Dec()
	}
	return out, nil
}

func padAddress(address string) string {
	a := address
	if len(a) >= 2 && a[:2] == "0x" {
		a = a[2:]
	}
	for len(a) < 64 {
		a = "0" + a
	}
	return a
}

// GetTransactions is an out-of-scope external collaborator per §1
// ("the on-chain call shapes...themselves"); this default returns an
// Upstream error instructing callers to supply their own implementation.
func (d *Default) GetTransactions(ctx context.Context, address string, opts chain.TxOptions) ([]chain.Transaction, error) {
	return nil, errs.New(errs.Upstream, "GetTransactions requires a chain-specific adapter override")
}

// SubscribeBalance and SubscribeTransactions are push-based and therefore
// route through wspool rather than rpcchain; they are left as thin seams
// here pending the actual subscription protocol, which like GetTransactions
// is an out-of-scope external collaborator per §1.
func (d *Default) SubscribeBalance(ctx context.Context, address string, onChange func(balance string)) (chain.Unsubscribe, error) {
	entry, err := d.pool.Connect(ctx, d.info.ID, d.wsURLs, d.httpURLs, d.smokeCall)
	if err != nil {
		return nil, err
	}
	entry.IncSubscriptions()
	return func() { entry.DecSubscriptions() }, nil
}

func (d *Default) SubscribeTransactions(ctx context.Context, address string, onTx func(tx chain.Transaction)) (chain.Unsubscribe, error) {
	entry, err := d.pool.Connect(ctx, d.info.ID, d.wsURLs, d.httpURLs, d.smokeCall)
	if err != nil {
		return nil, err
	}
	entry.IncSubscriptions()
	return func() { entry.DecSubscriptions() }, nil
}

func (d *Default) smokeCall(ctx context.Context, url string) error {
	_, err := d.call(ctx, url, "eth_blockNumber")
	return err
}

func (d *Default) IsHealthy(ctx context.Context) bool {
	_, err := d.rpc.Execute(ctx, func(ctx context.Context, url string) (interface{}, error) {
		return d.call(ctx, url, "eth_blockNumber")
	})
	return err == nil
}

func (d *Default) Connect(ctx context.Context) error {
	_, err := d.pool.Connect(ctx, d.info.ID, d.wsURLs, d.httpURLs, d.smokeCall)
	return err
}

func (d *Default) Disconnect() error {
	d.pool.Disconnect(d.info.ID)
	return nil
}

var _ chain.Adapter = (*Default)(nil)
