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

package api

import (
	"context"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/cygnus-wealth/evm-access-core/fanin"
	"github.com/cygnus-wealth/evm-access-core/service"
)

const schemaSrc = `
	schema {
		query: Query
	}

	type Query {
		balances(accounts: [AccountInput!]!): [BalanceResult!]!
	}

	input AccountInput {
		accountId: String!
		address: String!
		chainId: String!
	}

	type BalanceResult {
		accountId: String!
		address: String!
		chainId: String!
		value: String!
	}
`

// Resolver is the graphql-go root resolver, delegating to the balance
// façade so the GraphQL and REST surfaces share identical semantics.
type Resolver struct {
	Service *service.BalanceService
}

type accountInput struct {
	AccountID string
	Address   string
	ChainID   string
}

type balanceResult struct {
	accountID string
	address   string
	chainID   string
	value     string
}

func (b balanceResult) AccountID() string { return b.accountID }
func (b balanceResult) Address() string   { return b.address }
func (b balanceResult) ChainID() string   { return b.chainID }
func (b balanceResult) Value() string     { return b.value }

// Balances resolves the balances(accounts:) query field.
func (r *Resolver) Balances(ctx context.Context, args struct{ Accounts []accountInput }) ([]balanceResult, error) {
	requests := make([]fanin.AddressRequest, 0, len(args.Accounts))
	for _, a := range args.Accounts {
		requests = append(requests, fanin.AddressRequest{AccountID: a.AccountID, Address: a.Address, ChainScope: []string{a.ChainID}})
	}

	results, accErrs := r.Service.GetNativeBalances(ctx, requests)
	out := make([]balanceResult, 0, len(results))
	for _, res := range results {
		value, _ := res.Value.(string)
		out = append(out, balanceResult{accountID: res.AccountID, address: res.Address, chainID: res.ChainID, value: value})
	}
	if len(accErrs) > 0 {
		return out, accErrs[0].Err
	}
	return out, nil
}

// NewGraphQLHandler builds the graph-gophers HTTP handler for the schema
// above, parsed and validated once at startup.
func NewGraphQLHandler(resolver *Resolver) (http.Handler, error) {
	schema, err := graphql.ParseSchema(schemaSrc, resolver)
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}
