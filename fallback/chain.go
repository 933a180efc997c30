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

// Package fallback implements the generic ordered-try-until-success
// combinator from spec §4.3. The RPC fallback chain (package rpcchain)
// is a richer, domain-specific instance of this pattern; this package
// is the reusable primitive other strategies (e.g. a future read-replica
// fallback) can build on directly.
package fallback

import (
	"time"

	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
)

// Strategy is one ordered candidate in a Chain.
type Strategy struct {
	Name          string
	Execute       func() (interface{}, error)
	ShouldAttempt func() bool   // optional guard; nil means always attempt
	Timeout       time.Duration // optional per-strategy timeout; zero means none
}

// Result is returned by Chain.Execute.
type Result struct {
	Value   interface{}
	Index   int // winning strategy index, or -1 if the default value was used
	Name    string
	Errors  []error // errors from strategies that were attempted and failed
	Elapsed time.Duration
	Success bool
}

// Chain is a non-empty ordered list of strategies with an optional
// default value used when every strategy fails.
type Chain struct {
	strategies []Strategy
	hasDefault bool
	defaultVal interface{}
	clock      clock.Clock
}

// New builds a Chain from strategies, which must be non-empty.
func New(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, clock: clock.Real{}}
}

// WithClock overrides the Chain's clock (for deterministic tests of
// per-strategy timeouts).
func (c *Chain) WithClock(cl clock.Clock) *Chain {
	c.clock = cl
	return c
}

// WithDefault sets the value returned (success=true, index=-1) when
// every strategy fails or is skipped.
func (c *Chain) WithDefault(v interface{}) *Chain {
	c.hasDefault = true
	c.defaultVal = v
	return c
}

// Execute tries each strategy in order, skipping those whose
// ShouldAttempt guard returns false, and returns the first success.
func (c *Chain) Execute() (Result, error) {
	start := c.clock.Now()
	var errors []error

	for i, s := range c.strategies {
		if s.ShouldAttempt != nil && !s.ShouldAttempt() {
			continue
		}
		val, err := c.runOne(s)
		if err == nil {
			return Result{Value: val, Index: i, Name: s.Name, Errors: errors, Elapsed: c.clock.Now().Sub(start), Success: true}, nil
		}
		errors = append(errors, err)
	}

	if c.hasDefault {
		return Result{Value: c.defaultVal, Index: -1, Errors: errors, Elapsed: c.clock.Now().Sub(start), Success: true}, nil
	}
	msg := "all strategies failed:"
	for _, e := range errors {
		msg += " [" + e.Error() + "]"
	}
	return Result{Errors: errors, Elapsed: c.clock.Now().Sub(start), Success: false}, errs.New(errs.AllEndpointsFailed, msg)
}

func (c *Chain) runOne(s Strategy) (interface{}, error) {
	if s.Timeout <= 0 {
		return s.Execute()
	}

	type outcome struct {
		val interface{}
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := s.Execute()
		done <- outcome{v, err}
	}()

	timer := c.clock.NewTimer(s.Timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.val, o.err
	case <-timer.C():
		return nil, errs.New(errs.Timeout, "strategy "+s.Name+" exceeded timeout "+s.Timeout.String())
	}
}
