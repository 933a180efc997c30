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

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesContext(t *testing.T) {
	var buf bytes.Buffer
	old, oldLevel := currentHandler()
	SetHandler(StreamHandler(&buf, TerminalFormat(false)))
	SetLevel(LevelTrace)
	defer func() { SetHandler(old); SetLevel(oldLevel) }()

	l := New("component", "rpcchain")
	l.Info("endpoint succeeded", "chain", "1", "provider", "alchemy")

	out := buf.String()
	assert.Contains(t, out, "endpoint succeeded")
	assert.Contains(t, out, "component=rpcchain")
	assert.Contains(t, out, "chain=1")
	assert.Contains(t, out, "provider=alchemy")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	old, oldLevel := currentHandler()
	SetHandler(StreamHandler(&buf, TerminalFormat(false)))
	SetLevel(LevelWarn)
	defer func() { SetHandler(old); SetLevel(oldLevel) }()

	Debug("should not appear")
	Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}
