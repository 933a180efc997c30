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

// evmaccessd is the process entrypoint wiring every package in this
// module into a running client-side EVM access layer: it loads the
// resilience/chain configuration, builds one adapter per configured
// chain, and serves the status/health HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/cygnus-wealth/evm-access-core/adapter"
	"github.com/cygnus-wealth/evm-access-core/api"
	"github.com/cygnus-wealth/evm-access-core/breaker"
	"github.com/cygnus-wealth/evm-access-core/bulkhead"
	"github.com/cygnus-wealth/evm-access-core/cache"
	"github.com/cygnus-wealth/evm-access-core/config"
	"github.com/cygnus-wealth/evm-access-core/eventbus"
	"github.com/cygnus-wealth/evm-access-core/health"
	"github.com/cygnus-wealth/evm-access-core/log"
	"github.com/cygnus-wealth/evm-access-core/metrics"
	"github.com/cygnus-wealth/evm-access-core/metrics/promexport"
	"github.com/cygnus-wealth/evm-access-core/rpcchain"
	"github.com/cygnus-wealth/evm-access-core/service"
	"github.com/cygnus-wealth/evm-access-core/wspool"
)

var (
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to the options TOML file",
		Value: "config.toml",
	}
	ChainsFlag = &cli.StringFlag{
		Name:  "chains",
		Usage: "path to the chain roster TOML file",
		Value: "chains.toml",
	}
	ListenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "address the status/health HTTP surface listens on",
		Value: "127.0.0.1:8585",
	}
	JWTSecretFlag = &cli.StringFlag{
		Name:  "jwt-secret",
		Usage: "bearer-token secret guarding /status; empty disables auth",
	}
)

// deployment bundles every wired-up component the serve/status/chains
// subcommands need, built once from config+chains.toml.
type deployment struct {
	opts      config.Options
	registry  *service.ChainRegistry
	breakers  *breaker.Manager
	bulkheads []*bulkhead.Bulkhead
	health    *health.Monitor
	pm        *metrics.ProviderMetrics
	bus       *eventbus.Bus
	chains    []config.ChainSpec
}

func buildDeployment(c *cli.Context) (*deployment, error) {
	opts, err := config.Load(c.String(ConfigFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("loading options: %w", err)
	}
	chains, err := config.LoadChains(c.String(ChainsFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("loading chain roster: %w", err)
	}

	nonRetriable := make(map[int]struct{}, len(opts.RPC.NonRetriableStatus))
	for _, s := range opts.RPC.NonRetriableStatus {
		nonRetriable[s] = struct{}{}
	}

	d := &deployment{
		opts:     opts,
		registry: service.NewChainRegistry(),
		breakers: breaker.NewManager(breaker.Config{
			FailureThreshold: opts.Breaker.FailureThreshold,
			VolumeThreshold:  opts.Breaker.FailureThreshold,
			RollingWindow:    config.Ms(opts.Breaker.RollingWindowMs),
			OpenTimeout:      config.Ms(opts.Breaker.OpenTimeoutMs),
			SuccessThreshold: opts.Breaker.SuccessThreshold,
		}),
		pm:     metrics.New(config.Ms(opts.Metrics.RollingWindowMs)),
		bus:    eventbus.New(),
		chains: chains,
	}
	d.health = health.New(config.Ms(opts.Health.IntervalMs), d.pm)

	fcCache := cache.New("evm-access", cache.DefaultSizeBytes)
	wsPool := wspool.New(wspool.Config{
		ConnectionTimeout:    config.Ms(opts.WS.ConnectionTimeoutMs),
		HeartbeatInterval:    config.Ms(opts.WS.HeartbeatIntervalMs),
		PongTimeout:          config.Ms(opts.WS.PongTimeoutMs),
		ReconnectBaseDelay:   config.Ms(opts.WS.ReconnectBaseDelayMs),
		ReconnectMaxDelay:    config.Ms(opts.WS.ReconnectMaxDelayMs),
		MaxReconnectAttempts: opts.WS.MaxReconnectAttempts,
	}, d.bus)

	for _, spec := range chains {
		rpcCfg := rpcchain.Config{
			TotalTimeout:       config.Ms(opts.RPC.TotalTimeoutMs),
			MaxRetryAttempts:   opts.RPC.MaxRetryAttempts,
			NonRetriableStatus: nonRetriable,
			EnableCache:        true,
		}
		rc := rpcchain.New(spec.ID, spec.Endpoints(), rpcCfg, d.breakers, d.pm, fcCache)

		var wsURLs, httpURLs []string
		for _, ep := range spec.Endpoints() {
			httpURLs = append(httpURLs, ep.URL)
			if ep.WSURL != "" {
				wsURLs = append(wsURLs, ep.WSURL)
			}
		}

		ad := adapter.New(spec.Info(), rc, wsPool, httpJSONRPCCall, d.bus, wsURLs, httpURLs)
		d.registry.RegisterAdapter(spec.ID, ad)

		bh := bulkhead.New(spec.ID, bulkhead.Config{
			MaxConcurrent: opts.Bulkhead.MaxConcurrent,
			MaxQueue:      opts.Bulkhead.MaxQueue,
			QueueTimeout:  config.Ms(opts.Bulkhead.QueueTimeoutMs),
		})
		d.bulkheads = append(d.bulkheads, bh)

		for _, ep := range spec.Endpoints() {
			ep := ep
			d.health.Register(health.Target{
				ChainID:  spec.ID,
				Provider: ep.Provider,
				URL:      ep.URL,
				Check: func(ctx context.Context, url string) (uint64, error) {
					_, err := httpJSONRPCCall(ctx, url, "eth_blockNumber")
					return 0, err
				},
			})
		}
	}

	return d, nil
}

func (d *deployment) bulkheadSnapshot() []*bulkhead.Bulkhead { return d.bulkheads }

func runServe(c *cli.Context) error {
	d, err := buildDeployment(c)
	if err != nil {
		return err
	}
	d.health.Start()
	defer d.health.Stop()

	router := api.NewRouter(api.Sources{
		Breakers:  d.breakers,
		Bulkheads: d.bulkheadSnapshot,
		Health:    d.health,
		Metrics:   d.pm,
	}, []byte(c.String(JWTSecretFlag.Name)))

	logger := log.New("component", "cmd.evmaccessd")
	logger.Info("serving status surface", "listen", c.String(ListenFlag.Name))
	return httpListenAndServe(c.String(ListenFlag.Name), router)
}

func runStatus(c *cli.Context) error {
	d, err := buildDeployment(c)
	if err != nil {
		return err
	}
	d.health.RunAllChecks(c.Context)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Chain", "Provider", "Breaker", "Failures"})
	for _, s := range d.breakers.AllStats() {
		table.Append([]string{s.Name, "", s.State.String(), fmt.Sprintf("%d", s.FailureCount)})
	}
	table.Render()
	return nil
}

func runChains(c *cli.Context) error {
	chains, err := config.LoadChains(c.String(ChainsFlag.Name))
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Endpoints"})
	for _, spec := range chains {
		table.Append([]string{spec.ID, spec.Name, fmt.Sprintf("%d", len(spec.EndpointSpecs))})
	}
	table.Render()
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "evmaccessd",
		Usage: "client-side multi-chain EVM access layer",
		Flags: []cli.Flag{ConfigFlag, ChainsFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the status/health HTTP surface",
				Flags:  []cli.Flag{ListenFlag, JWTSecretFlag},
				Action: runServe,
			},
			{
				Name:   "status",
				Usage:  "run every configured health check once and print a summary table",
				Action: runStatus,
			},
			{
				Name:   "chains",
				Usage:  "list the configured chain roster",
				Action: runChains,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "evmaccessd:", err)
		os.Exit(1)
	}
}
