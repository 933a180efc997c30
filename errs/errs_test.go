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

package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindIs(t *testing.T) {
	err := New(Timeout, "deadline exceeded waiting for endpoint")
	assert.True(t, Is(err, Timeout))
	assert.False(t, Is(err, RateLimit))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := &StatusError{Status: 403, Err: assertError("forbidden")}
	wrapped := Wrap(Upstream, cause, "primary endpoint rejected request")
	require.True(t, Is(wrapped, Upstream))
	assert.Equal(t, 403, HTTPStatus(wrapped))
}

func TestIsNonRetriableStatus(t *testing.T) {
	set := DefaultNonRetriableStatus()
	err := Wrap(Upstream, &StatusError{Status: 401, Err: assertError("unauthorized")}, "auth failed")
	assert.True(t, IsNonRetriableStatus(err, set))

	err500 := Wrap(Upstream, &StatusError{Status: 500, Err: assertError("boom")}, "server error")
	assert.False(t, IsNonRetriableStatus(err500, set))
}

func TestAllFailedError(t *testing.T) {
	err := NewAllFailed("1", []EndpointError{
		{Endpoint: "https://a", Provider: "alchemy", Err: assertError("timeout")},
		{Endpoint: "https://b", Provider: "infura", Err: assertError("502")},
	})
	assert.True(t, Is(err, AllEndpointsFailed))
	assert.Contains(t, err.Error(), "alchemy")
	assert.Contains(t, err.Error(), "infura")
}

type assertError string

func (e assertError) Error() string { return string(e) }
