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

// Command snapcoind is the snap-coin full node process: it loads
// configuration, constructs the in-memory blockchain store, opens the
// P2P listener, dials seed peers, and serves the read-only query API,
// wiring together every package in this module the way cmd/gprobe wires
// together go-probe's node, probe and rpc packages.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/snap-coin/snap-coin-node/api"
	"github.com/snap-coin/snap-coin-node/api/gql"
	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/internal/dnsdisco"
	"github.com/snap-coin/snap-coin-node/internal/logarchive"
	"github.com/snap-coin/snap-coin-node/internal/metrics"
	"github.com/snap-coin/snap-coin-node/internal/nodeconfig"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/snap-coin/snap-coin-node/node"
	"github.com/snap-coin/snap-coin-node/p2pnet"
	syncpkg "github.com/snap-coin/snap-coin-node/sync"
	"gopkg.in/urfave/cli.v1"
)

// genesisTimestamp is the fixed height-0 timestamp every node derives its
// genesis block from, alongside common.GenesisSeed, so independently
// started nodes converge on an identical genesis block without needing to
// exchange or persist it.
const genesisTimestamp = uint64(1735689600) // 2025-01-01T00:00:00Z

func main() {
	app := cli.NewApp()
	app.Name = "snapcoind"
	app.Usage = "snap-coin full node"
	app.Flags = nodeconfig.Flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg := nodeconfig.Default()
	if file := cliCtx.GlobalString(nodeconfig.ConfigFileFlag.Name); file != "" {
		if err := nodeconfig.LoadFile(file, &cfg); err != nil {
			return fmt.Errorf("snapcoind: loading config: %w", err)
		}
	}
	nodeconfig.ApplyFlags(cliCtx, &cfg)

	if !cfg.CreateGenesis && len(cfg.SeedPeers) == 0 {
		return fmt.Errorf("snapcoind: refusing to start with neither --create-genesis nor --peers")
	}

	if err := os.MkdirAll(cfg.NodePath, 0755); err != nil {
		return fmt.Errorf("snapcoind: creating node path: %w", err)
	}
	logPath := filepath.Join(cfg.NodePath, "info.log")
	fileHandler, closer, err := nodelog.FileHandler(logPath)
	if err != nil {
		return fmt.Errorf("snapcoind: opening %s: %w", logPath, err)
	}
	defer closer.Close()
	if cfg.Headless {
		nodelog.SetHandler(fileHandler)
	} else {
		nodelog.SetHandler(nodelog.MultiHandler(
			nodelog.StreamHandler(os.Stderr, nodelog.TerminalFormat()),
			fileHandler,
		))
	}
	log := nodelog.Root()

	mode := chaincrypto.ModeLight
	if cfg.FullMemory {
		mode = chaincrypto.ModeFull
	}
	engine, err := chaincrypto.NewEngine(mode, filepath.Join(cfg.NodePath, "powcache.dat"))
	if err != nil {
		return fmt.Errorf("snapcoind: constructing pow engine: %w", err)
	}
	defer engine.Close()

	store := chain.NewGenesisStore(engine, common.GenesisSeed, genesisTimestamp)
	log.Info("genesis constructed", "height", store.GetHeight(), "dev_balance", store.GetBalance(common.DevWallet))

	coordinator := node.NewCoordinator(store, log, node.Config{
		SeedPeers:   cfg.SeedPeers,
		ReservedIPs: cfg.ReservedIPs,
	})
	driver := syncpkg.New(store, log)
	coordinator.SetSyncer(driver)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	autopeerCtx, cancelAutopeer := context.WithCancel(rootCtx)
	watchdogCtx, cancelWatchdog := context.WithCancel(rootCtx)

	listener, err := p2pnet.Listen(fmt.Sprintf(":%d", cfg.NodePort), log)
	if err != nil {
		return fmt.Errorf("snapcoind: %w", err)
	}

	go acceptLoop(rootCtx, listener, coordinator, driver, store, log, cfg.NoIBD)
	for _, addr := range cfg.SeedPeers {
		go dialSeed(rootCtx, addr, coordinator, driver, store, log, cfg.NoIBD)
	}
	if !cfg.NoAutoPeer {
		go coordinator.RunAutopeer(autopeerCtx)
	}
	go coordinator.RunWatchdog(watchdogCtx)

	var httpServer *http.Server
	if !cfg.NoAPI {
		httpServer = startAPIServer(store, driver, log, cfg.APIPort)
	}

	if cfg.Metrics.Enabled {
		reporter := metrics.New(metrics.Config{
			Enabled:   true,
			Endpoint:  cfg.Metrics.InfluxDBEndpoint,
			Database:  cfg.Metrics.InfluxDBDatabase,
			Username:  cfg.Metrics.InfluxDBUsername,
			Password:  cfg.Metrics.InfluxDBPassword,
			Namespace: "snapcoin.",
		}, nodeSampler{store: store, coordinator: coordinator}, 15*time.Second, log)
		go reporter.Run(rootCtx)
	}

	if cfg.DNSDisco.Enabled {
		startDNSDisco(rootCtx, cfg, coordinator, log)
	}

	if cfg.LogArchive.Enabled {
		archiver, err := logarchive.New(logarchive.Config{
			Enabled:       true,
			AccountName:   os.Getenv("SNAPCOIN_AZURE_ACCOUNT"),
			AccountKey:    os.Getenv("SNAPCOIN_AZURE_KEY"),
			ContainerName: cfg.LogArchive.ContainerName,
		}, log)
		if err != nil {
			log.Warn("logarchive: disabled due to setup failure", "err", err)
		} else {
			go archiver.Run(rootCtx, logPath, 10*time.Minute)
		}
	}

	log.Info("snapcoind started", "node_port", cfg.NodePort, "api_port", cfg.APIPort)
	waitForShutdownSignal()

	// Shutdown order per the node's cancellation contract: auto-peer, then
	// watchdog, then the P2P listener, before draining peers.
	cancelAutopeer()
	cancelWatchdog()
	_ = listener.Close()
	for _, p := range coordinator.ReadyPeers() {
		_ = p.Close(fmt.Errorf("snapcoind: shutting down"))
	}
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	rootCancel()

	log.Info("snapcoind stopped cleanly")
	return nil
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

func acceptLoop(ctx context.Context, listener *p2pnet.Listener, coordinator *node.Coordinator, driver *syncpkg.Driver, store *chain.Store, log nodelog.Logger, noIBD bool) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Warn("accept failed", "err", err)
				continue
			}
		}
		go acceptPeer(ctx, conn, coordinator, driver, store, log, noIBD)
	}
}

func acceptPeer(ctx context.Context, conn net.Conn, coordinator *node.Coordinator, driver *syncpkg.Driver, store *chain.Store, log nodelog.Logger, noIBD bool) {
	p := p2pnet.NewPeerHandle(conn, false, coordinator, log)
	if _, err := p.Handshake(ctx, store.GetHeight()); err != nil {
		log.Warn("inbound handshake failed", "remote", conn.RemoteAddr(), "err", err)
		return
	}
	coordinator.Register(p)
	go p.Run()
	if !noIBD {
		go syncWithPeer(ctx, driver, p, log)
	}
}

func dialSeed(ctx context.Context, addr string, coordinator *node.Coordinator, driver *syncpkg.Driver, store *chain.Store, log nodelog.Logger, noIBD bool) {
	p, _, err := p2pnet.Dial(ctx, addr, store.GetHeight(), coordinator, log)
	if err != nil {
		log.Warn("dial seed peer failed", "addr", addr, "err", err)
		return
	}
	coordinator.Register(p)
	go p.Run()
	if !noIBD {
		go syncWithPeer(ctx, driver, p, log)
	}
}

func syncWithPeer(ctx context.Context, driver *syncpkg.Driver, p *p2pnet.PeerHandle, log nodelog.Logger) {
	if driver.IsSyncing() {
		return
	}
	if err := driver.SyncAgainst(ctx, p); err != nil {
		log.Warn("initial sync against peer failed", "remote", p.RemoteAddr, "err", err)
	}
}

func startAPIServer(store *chain.Store, status api.SyncStatus, log nodelog.Logger, port int) *http.Server {
	server := api.NewServer(store, status, log)
	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())

	if gqlHandler, err := gql.NewHandler(store, status); err != nil {
		log.Warn("gql: disabled due to schema error", "err", err)
	} else {
		mux.Handle("/graphql", gqlHandler)
	}

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server stopped unexpectedly", "err", err)
		}
	}()
	return httpServer
}

func startDNSDisco(ctx context.Context, cfg nodeconfig.Config, coordinator *node.Coordinator, log nodelog.Logger) {
	provider, err := dnsdisco.NewProvider(ctx, cfg.DNSDisco.Provider, cfg.DNSDisco.Zone, os.Getenv("SNAPCOIN_CLOUDFLARE_TOKEN"))
	if err != nil {
		log.Warn("dnsdisco: disabled due to setup failure", "err", err)
		return
	}
	publisher := dnsdisco.New(provider, cfg.DNSDisco.RecordName, log)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var addrs []string
				for _, p := range coordinator.ReadyPeers() {
					addrs = append(addrs, p.RemoteAddr.String())
				}
				publisher.Publish(ctx, addrs)
			}
		}
	}()
}

// nodeSampler adapts chain.Store/node.Coordinator into metrics.Sampler.
type nodeSampler struct {
	store       *chain.Store
	coordinator *node.Coordinator
}

func (s nodeSampler) Sample() map[string]float64 {
	return map[string]float64{
		"height":     float64(s.store.GetHeight()),
		"peer_count": float64(s.coordinator.PeerCount()),
		"pool_size":  float64(s.store.PoolSize()),
	}
}
