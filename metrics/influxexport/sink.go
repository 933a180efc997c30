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

// Package influxexport periodically pushes ProviderMetrics snapshots to
// InfluxDB, the sibling of promexport in the upstream geth metrics
// reporter convention (metrics/influxdb next to metrics/prometheus).
package influxexport

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
	"github.com/cygnus-wealth/evm-access-core/metrics"
)

// Config holds the connection and push-cadence settings for the sink.
type Config struct {
	URL          string
	Token        string
	Org          string
	Bucket       string
	PushInterval time.Duration // default 10s
}

// Sink pushes ProviderMetrics snapshots to InfluxDB on a fixed cadence
// until Close is called.
type Sink struct {
	cfg Config
	pm  *metrics.ProviderMetrics
	log log.Logger

	client influxdb2.Client
	clock  clock.Clock

	stop chan struct{}
	done chan struct{}
}

// New builds a Sink against pm. Call Start to begin periodic pushes.
func New(cfg Config, pm *metrics.ProviderMetrics) *Sink {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 10 * time.Second
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Sink{
		cfg:    cfg,
		pm:     pm,
		log:    log.New("component", "influxexport"),
		client: client,
		clock:  clock.Real{},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the periodic push loop in its own goroutine.
func (s *Sink) Start() {
	go s.run()
}

func (s *Sink) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	writeAPI := s.client.WriteAPIBlocking(s.cfg.Org, s.cfg.Bucket)
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.pushOnce(writeAPI, now)
		}
	}
}

func (s *Sink) pushOnce(writeAPI interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}, now time.Time) {
	points := make([]*write.Point, 0, len(s.pm.AllKeys()))
	for _, k := range s.pm.AllKeys() {
		chainID, provider := k[0], k[1]
		snap, ok := s.pm.Snapshot(chainID, provider)
		if !ok {
			continue
		}
		p := influxdb2.NewPoint(
			"evm_access_provider",
			map[string]string{"chain": chainID, "provider": provider},
			map[string]interface{}{
				"requests_total": snap.TotalRequests,
				"errors_total":   snap.TotalErrors,
				"error_rate":     snap.ErrorRate,
				"p50_ms":         float64(snap.P50.Microseconds()) / 1000,
				"p95_ms":         float64(snap.P95.Microseconds()) / 1000,
				"p99_ms":         float64(snap.P99.Microseconds()) / 1000,
			},
			now,
		)
		points = append(points, p)
	}
	if len(points) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		s.log.Warn("influxdb write failed", "err", err)
	}
}

// Close stops the push loop and releases the underlying client.
func (s *Sink) Close() {
	close(s.stop)
	<-s.done
	s.client.Close()
}
