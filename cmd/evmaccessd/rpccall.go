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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cygnus-wealth/evm-access-core/errs"
)

// httpListenAndServe starts handler on addr; split out of main.go so the
// serve subcommand's wiring stays focused on component construction.
func httpListenAndServe(addr string, handler http.Handler) error {
	return http.ListenAndServe(addr, handler)
}

type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

// httpJSONRPCCall is the adapter.RawCaller backing every chain adapter; it
// is the one boundary piece of wire plumbing not covered by any pack
// dependency (see DESIGN.md), so it is plain net/http + encoding/json.
func httpJSONRPCCall(ctx context.Context, endpointURL, method string, args ...interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: args})
	if err != nil {
		return nil, errs.Wrap(errs.Validation, err, "encoding jsonrpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.Validation, err, "building jsonrpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Upstream, err, "calling "+endpointURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &errs.StatusError{Status: resp.StatusCode, Err: fmt.Errorf("%s returned HTTP %d", endpointURL, resp.StatusCode)}
	}

	var parsed jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errs.Wrap(errs.Upstream, err, "decoding jsonrpc response")
	}
	if parsed.Error != nil {
		return nil, errs.New(errs.Upstream, fmt.Sprintf("%s: jsonrpc error %d: %s", endpointURL, parsed.Error.Code, parsed.Error.Message))
	}
	return parsed.Result, nil
}
