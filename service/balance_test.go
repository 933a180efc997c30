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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cygnus-wealth/evm-access-core/chain"
	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/fanin"
)

// fakeAdapter counts GetNativeBalance calls, so preflight-rejected requests
// can be asserted to never reach it.
type fakeAdapter struct {
	t       *testing.T
	balance string
	calls   int32
}

func (f *fakeAdapter) GetNativeBalance(ctx context.Context, address string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.t != nil {
		f.t.Helper()
	}
	return f.balance, nil
}
func (f *fakeAdapter) GetTokenBalances(ctx context.Context, address string, tokens []chain.TokenDescriptor) (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakeAdapter) GetTransactions(ctx context.Context, address string, opts chain.TxOptions) ([]chain.Transaction, error) {
	return nil, nil
}
func (f *fakeAdapter) SubscribeBalance(ctx context.Context, address string, onChange func(string)) (chain.Unsubscribe, error) {
	return func() {}, nil
}
func (f *fakeAdapter) SubscribeTransactions(ctx context.Context, address string, onTx func(chain.Transaction)) (chain.Unsubscribe, error) {
	return func() {}, nil
}
func (f *fakeAdapter) Info() chain.Info                   { return chain.Info{ID: "1"} }
func (f *fakeAdapter) IsHealthy(ctx context.Context) bool { return true }
func (f *fakeAdapter) Connect(ctx context.Context) error  { return nil }
func (f *fakeAdapter) Disconnect() error                  { return nil }

type fakeRegistry struct {
	adapters map[string]chain.Adapter
}

func (r *fakeRegistry) Adapter(chainID string) (chain.Adapter, bool) {
	ad, ok := r.adapters[chainID]
	return ad, ok
}

func TestGetNativeBalancesRejectsMalformedAddressBeforeIO(t *testing.T) {
	reg := &fakeRegistry{adapters: map[string]chain.Adapter{"1": &fakeAdapter{t: t, balance: "100"}}}
	svc := NewBalanceService(reg)

	requests := []fanin.AddressRequest{
		{AccountID: "acct-good", Address: "0x1111111111111111111111111111111111111111", ChainScope: []string{"1"}},
		{AccountID: "acct-bad", Address: "not-an-address", ChainScope: []string{"1"}},
	}

	results, errList := svc.GetNativeBalances(context.Background(), requests)
	require.Len(t, results, 1)
	assert.Equal(t, "acct-good", results[0].AccountID)

	require.Len(t, errList, 1)
	assert.Equal(t, "acct-bad", errList[0].AccountID)
	assert.True(t, errs.Is(errList[0].Err, errs.Validation))
}

func TestGetNativeBalancesAllMalformedNeverCallsAdapter(t *testing.T) {
	fake := &fakeAdapter{t: t, balance: "100"}
	reg := &fakeRegistry{adapters: map[string]chain.Adapter{"1": fake}}
	svc := NewBalanceService(reg)

	requests := []fanin.AddressRequest{
		{AccountID: "acct-1", Address: "0xshort", ChainScope: []string{"1"}},
	}

	results, errList := svc.GetNativeBalances(context.Background(), requests)
	assert.Empty(t, results)
	require.Len(t, errList, 1)
	assert.True(t, errs.Is(errList[0].Err, errs.Validation))
	assert.Zero(t, atomic.LoadInt32(&fake.calls), "rejected requests must not reach the adapter")
}
