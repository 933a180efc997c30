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

package config

import (
	"os"

	"github.com/naoina/toml"

	"github.com/cygnus-wealth/evm-access-core/chain"
)

// EndpointSpec is the TOML shape of a single chain.Endpoint.
type EndpointSpec struct {
	URL      string  `toml:"url"`
	WSURL    string  `toml:"wsUrl"`
	Provider string  `toml:"provider"`
	Priority int     `toml:"priority"`
	RPS      float64 `toml:"rps"`
}

// ChainSpec is the TOML shape of a single chain.Config.
type ChainSpec struct {
	ID            string         `toml:"id"`
	Name          string         `toml:"name"`
	NativeSymbol  string         `toml:"nativeSymbol"`
	Decimals      int            `toml:"decimals"`
	EndpointSpecs []EndpointSpec `toml:"endpoints"`
}

// ChainsFile is the top-level shape of the chains.toml roster file.
type ChainsFile struct {
	Chains []ChainSpec `toml:"chain"`
}

// LoadChains parses a chains.toml roster into one ChainSpec per configured
// chain; Endpoints and Info convert a ChainSpec into chain types.
func LoadChains(path string) ([]ChainSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file ChainsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Chains, nil
}

// Endpoints converts a ChainSpec's TOML endpoints into chain.Endpoint.
func (s ChainSpec) Endpoints() []chain.Endpoint {
	out := make([]chain.Endpoint, 0, len(s.EndpointSpecs))
	for _, e := range s.EndpointSpecs {
		out = append(out, chain.Endpoint{URL: e.URL, WSURL: e.WSURL, Provider: e.Provider, Priority: e.Priority, RPS: e.RPS})
	}
	return out
}

// Info converts a ChainSpec into a chain.Info.
func (s ChainSpec) Info() chain.Info {
	return chain.Info{ID: s.ID, Name: s.Name, NativeSymbol: s.NativeSymbol, Decimals: s.Decimals}
}
