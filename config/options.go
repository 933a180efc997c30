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

// Package config loads the flattened §6 options table from TOML and
// supports hot reload, following the teacher's own node-configuration
// convention.
package config

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/naoina/toml"

	"github.com/cygnus-wealth/evm-access-core/log"
)

// Options is the flattened §6 recognized-configuration-options table.
type Options struct {
	RPC      RPCOptions      `toml:"rpc"`
	Breaker  BreakerOptions  `toml:"breaker"`
	Bucket   BucketOptions   `toml:"bucket"`
	Bulkhead BulkheadOptions `toml:"bulkhead"`
	WS       WSOptions       `toml:"ws"`
	Metrics  MetricsOptions  `toml:"metrics"`
	Health   HealthOptions   `toml:"health"`
}

type RPCOptions struct {
	TotalTimeoutMs     int   `toml:"totalTimeoutMs"`
	MaxRetryAttempts   int   `toml:"maxRetryAttempts"`
	NonRetriableStatus []int `toml:"nonRetriableStatus"`
}

type BreakerOptions struct {
	FailureThreshold int `toml:"failureThreshold"`
	RollingWindowMs  int `toml:"rollingWindowMs"`
	OpenTimeoutMs    int `toml:"openTimeoutMs"`
	SuccessThreshold int `toml:"successThreshold"`
}

type BucketOptions struct {
	MaxWaitMs int `toml:"maxWaitMs"`
}

type BulkheadOptions struct {
	MaxConcurrent  int `toml:"maxConcurrent"`
	MaxQueue       int `toml:"maxQueue"`
	QueueTimeoutMs int `toml:"queueTimeoutMs"`
}

type WSOptions struct {
	ConnectionTimeoutMs  int `toml:"connectionTimeoutMs"`
	HeartbeatIntervalMs  int `toml:"heartbeatIntervalMs"`
	PongTimeoutMs        int `toml:"pongTimeoutMs"`
	ReconnectBaseDelayMs int `toml:"reconnectBaseDelayMs"`
	ReconnectMaxDelayMs  int `toml:"reconnectMaxDelayMs"`
	MaxReconnectAttempts int `toml:"maxReconnectAttempts"`
}

type MetricsOptions struct {
	RollingWindowMs int `toml:"rollingWindowMs"`
}

type HealthOptions struct {
	IntervalMs int `toml:"intervalMs"`
}

// Defaults returns Options pre-filled with the §6 default values.
func Defaults() Options {
	return Options{
		RPC:      RPCOptions{TotalTimeoutMs: 30_000, MaxRetryAttempts: 2, NonRetriableStatus: []int{401, 403}},
		Breaker:  BreakerOptions{FailureThreshold: 5, RollingWindowMs: 60_000, OpenTimeoutMs: 30_000, SuccessThreshold: 3},
		Bucket:   BucketOptions{MaxWaitMs: 5_000},
		Bulkhead: BulkheadOptions{MaxConcurrent: 10, MaxQueue: 50, QueueTimeoutMs: 5_000},
		WS: WSOptions{
			ConnectionTimeoutMs: 10_000, HeartbeatIntervalMs: 30_000, PongTimeoutMs: 5_000,
			ReconnectBaseDelayMs: 1_000, ReconnectMaxDelayMs: 30_000, MaxReconnectAttempts: 10,
		},
		Metrics: MetricsOptions{RollingWindowMs: 300_000},
		Health:  HealthOptions{IntervalMs: 60_000},
	}
}

// Load parses a TOML file at path over Defaults(), so any field the file
// omits keeps its default value.
func Load(path string) (Options, error) {
	opts := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := toml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// Ms is a convenience conversion used throughout the wiring layer.
func Ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// AtomicOptions is an atomically-swappable Options handle, so hot reload
// can publish a new value without callers holding a lock.
type AtomicOptions struct {
	v atomic.Value // holds Options
}

// NewAtomicOptions seeds the handle with an initial value.
func NewAtomicOptions(initial Options) *AtomicOptions {
	a := &AtomicOptions{}
	a.v.Store(initial)
	return a
}

// Get returns the current Options snapshot.
func (a *AtomicOptions) Get() Options {
	return a.v.Load().(Options)
}

// Set publishes a new Options snapshot.
func (a *AtomicOptions) Set(o Options) {
	a.v.Store(o)
}

var logger = log.New("component", "config")
