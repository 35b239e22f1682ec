package node

import (
	"context"
	"time"

	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/p2pnet"
)

// RunWatchdog implements spec.md §4.5: every WatchdogInterval, if the
// registry is empty and at least one seed peer was configured, redial the
// first seed and re-trigger IBD on success.
func (c *Coordinator) RunWatchdog(ctx context.Context) {
	if len(c.seedPeers) == 0 {
		return
	}
	ticker := time.NewTicker(common.WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.watchdogTick(ctx)
		}
	}
}

func (c *Coordinator) watchdogTick(ctx context.Context) {
	if c.PeerCount() > 0 {
		return
	}
	seed := c.seedPeers[0]
	dctx, cancel := context.WithTimeout(ctx, common.HandshakeTimeout)
	defer cancel()

	p, _, err := p2pnet.Dial(dctx, seed, c.localHeight(), c, c.log)
	if err != nil {
		c.log.Warn("watchdog: redial seed peer failed", "seed", seed, "err", err)
		return
	}
	c.Register(p)
	go p.Run()

	if c.syncer != nil && !c.syncer.IsSyncing() {
		go func() {
			if serr := c.syncer.SyncAgainst(context.Background(), p); serr != nil {
				c.log.Warn("watchdog: re-triggered ibd failed", "seed", seed, "err", serr)
			}
		}()
	}
}
