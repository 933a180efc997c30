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
)

type creds struct {
	Endpoint string
	APIKey   string
	Nested   map[string]string
}

func TestSanitizeStructAndMap(t *testing.T) {
	in := creds{
		Endpoint: "https://rpc.example/v2",
		APIKey:   "sk-super-secret",
		Nested:   map[string]string{"password": "hunter2", "other": "fine"},
	}
	out := Sanitize(in).(creds)
	assert.Equal(t, "https://rpc.example/v2", out.Endpoint)
	assert.Equal(t, redacted, out.APIKey)
	assert.Equal(t, redacted, out.Nested["password"])
	assert.Equal(t, "fine", out.Nested["other"])
}

func TestSanitizeMapKeyVariants(t *testing.T) {
	in := map[string]interface{}{
		"api_key":    "abc",
		"privateKey": "0xdeadbeef",
		"token":      "jwt-value",
		"safe":       "kept",
	}
	out := Sanitize(in).(map[string]interface{})
	assert.Equal(t, redacted, out["api_key"])
	assert.Equal(t, redacted, out["privateKey"])
	assert.Equal(t, redacted, out["token"])
	assert.Equal(t, "kept", out["safe"])
}
