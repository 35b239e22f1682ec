// Copyright 2026 The snap-coin Authors
// This file is part of the snap-coin library.
//
// The snap-coin library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The snap-coin library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package metrics reports node gauges (chain height, peer count, pool
// size) to InfluxDB on a fixed interval, the same shape as the classic
// go-ethereum metrics/influxdb reporter: a ticking goroutine that turns
// a snapshot of counters into one client.Point per metric and writes
// them as a single batch.
package metrics

import (
	"context"
	"time"

	influxclient "github.com/influxdata/influxdb/client"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
)

// Sampler supplies the gauges to report; node.Coordinator and chain.Store
// satisfy it indirectly via a small adapter in cmd/snapcoind so this
// package never imports either.
type Sampler interface {
	// Sample returns the current value of every reported gauge, keyed by
	// metric name ("height", "peer_count", "pool_size", ...).
	Sample() map[string]float64
}

// Config configures the InfluxDB v1 HTTP endpoint this reporter writes to.
type Config struct {
	Enabled   bool
	Endpoint  string
	Database  string
	Username  string
	Password  string
	Tags      map[string]string
	Namespace string
}

// Reporter periodically samples a Sampler and writes the result to
// InfluxDB as one batch of points.
type Reporter struct {
	cfg      Config
	sampler  Sampler
	log      nodelog.Logger
	client   *influxclient.Client
	interval time.Duration
}

// New constructs a Reporter. It does not dial InfluxDB until Run starts;
// a misconfigured or unreachable endpoint only ever produces a logged
// warning, never a fatal error, since metrics are never load-bearing.
func New(cfg Config, sampler Sampler, interval time.Duration, log nodelog.Logger) *Reporter {
	return &Reporter{cfg: cfg, sampler: sampler, interval: interval, log: log}
}

// Run blocks, reporting once per the interval given to New until ctx is
// done. It is a no-op
// if cfg.Enabled is false.
func (r *Reporter) Run(ctx context.Context) {
	if !r.cfg.Enabled {
		return
	}
	if err := r.connect(); err != nil {
		r.log.Warn("metrics: failed to connect to InfluxDB", "endpoint", r.cfg.Endpoint, "err", err)
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := r.send(now); err != nil {
				r.log.Warn("metrics: failed to write to InfluxDB", "err", err)
			}
		}
	}
}

func (r *Reporter) connect() error {
	u, err := parseURL(r.cfg.Endpoint)
	if err != nil {
		return err
	}
	client, err := influxclient.NewClient(influxclient.Config{
		URL:      *u,
		Username: r.cfg.Username,
		Password: r.cfg.Password,
	})
	if err != nil {
		return err
	}
	r.client = client
	return nil
}

func (r *Reporter) send(now time.Time) error {
	bps, err := influxclient.NewBatchPoints(influxclient.BatchPointsConfig{
		Database: r.cfg.Database,
	})
	if err != nil {
		return err
	}
	for name, value := range r.sampler.Sample() {
		point, err := influxclient.NewPoint(r.cfg.Namespace+name, r.cfg.Tags, map[string]interface{}{
			"value": value,
		}, now)
		if err != nil {
			return err
		}
		bps.AddPoint(point)
	}
	_, err = r.client.Write(bps)
	return err
}
