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

// Package promexport exposes ProviderMetrics, breaker, and bulkhead
// state as Prometheus metrics, grounded on the teacher's
// metrics/prometheus.Handler pattern but built on the real
// prometheus/client_golang collector interface rather than a hand-rolled
// text formatter.
package promexport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cygnus-wealth/evm-access-core/breaker"
	"github.com/cygnus-wealth/evm-access-core/bulkhead"
	"github.com/cygnus-wealth/evm-access-core/metrics"
)

var (
	requestsDesc = prometheus.NewDesc(
		"evm_access_provider_requests_total", "Total requests recorded for a (chain,provider) pair in the rolling window.",
		[]string{"chain", "provider"}, nil)
	errorsDesc = prometheus.NewDesc(
		"evm_access_provider_errors_total", "Total errors recorded for a (chain,provider) pair in the rolling window.",
		[]string{"chain", "provider"}, nil)
	errorRateDesc = prometheus.NewDesc(
		"evm_access_provider_error_rate", "Error rate over the rolling window.",
		[]string{"chain", "provider"}, nil)
	latencyDesc = prometheus.NewDesc(
		"evm_access_provider_latency_seconds", "Latency percentile over the rolling window.",
		[]string{"chain", "provider", "quantile"}, nil)
	breakerStateDesc = prometheus.NewDesc(
		"evm_access_breaker_state", "Circuit breaker state: 0=closed, 1=open, 2=half_open.",
		[]string{"name"}, nil)
	bulkheadLoadDesc = prometheus.NewDesc(
		"evm_access_bulkhead_load_percent", "Bulkhead load percentage.",
		[]string{"name"}, nil)
)

// Collector adapts the resilience-layer stores to prometheus.Collector.
type Collector struct {
	providerMetrics *metrics.ProviderMetrics
	breakers        *breaker.Manager
	bulkheads       func() []*bulkhead.Bulkhead
}

// New builds a Collector. bulkheads is a callback so the registry can be
// built before every chain's bulkhead exists.
func New(pm *metrics.ProviderMetrics, breakers *breaker.Manager, bulkheads func() []*bulkhead.Bulkhead) *Collector {
	return &Collector{providerMetrics: pm, breakers: breakers, bulkheads: bulkheads}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- errorsDesc
	ch <- errorRateDesc
	ch <- latencyDesc
	ch <- breakerStateDesc
	ch <- bulkheadLoadDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.providerMetrics != nil {
		for _, k := range c.providerMetrics.AllKeys() {
			chainID, provider := k[0], k[1]
			snap, ok := c.providerMetrics.Snapshot(chainID, provider)
			if !ok {
				continue
			}
			ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(snap.TotalRequests), chainID, provider)
			ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(snap.TotalErrors), chainID, provider)
			ch <- prometheus.MustNewConstMetric(errorRateDesc, prometheus.GaugeValue, snap.ErrorRate, chainID, provider)
			ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue, snap.P50.Seconds(), chainID, provider, "0.5")
			ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue, snap.P95.Seconds(), chainID, provider, "0.95")
			ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue, snap.P99.Seconds(), chainID, provider, "0.99")
		}
	}

	if c.breakers != nil {
		for _, s := range c.breakers.AllStats() {
			ch <- prometheus.MustNewConstMetric(breakerStateDesc, prometheus.GaugeValue, breakerStateValue(s.State), s.Name)
		}
	}

	if c.bulkheads != nil {
		for _, bh := range c.bulkheads() {
			st := bh.Stats()
			ch <- prometheus.MustNewConstMetric(bulkheadLoadDesc, prometheus.GaugeValue, float64(st.LoadPercent), st.Name)
		}
	}
}

// breakerStateValue maps breaker.State to the documented metric values
// (closed=0, open=1, half-open=2) with an explicit switch rather than a
// cast of the enum.
func breakerStateValue(s breaker.State) float64 {
	switch s {
	case breaker.Open:
		return 1
	case breaker.HalfOpen:
		return 2
	default:
		return 0
	}
}

// Registry builds a prometheus.Registry with the Collector registered,
// ready to serve via promhttp.Handler(registry).
func Registry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return reg
}
