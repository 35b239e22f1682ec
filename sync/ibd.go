// Package sync implements initial block download per spec.md §4.6,
// grounded directly on original_source/src/sync.rs's Ping/Pong height
// exchange followed by a serial GetBlockHashes + GetBlock + add_block
// loop — the original the distilled spec.md §4.6 summarizes.
package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/snap-coin/snap-coin-node/p2pnet"
	"github.com/snap-coin/snap-coin-node/wire"
)

// Driver runs IBD against a given peer and tracks the coordinator-visible
// is_syncing flag from spec.md's NodeState.
type Driver struct {
	store           *chain.Store
	log             nodelog.Logger
	syncing         int32 // atomic bool
	localHeightFunc func() uint64
}

func New(store *chain.Store, log nodelog.Logger) *Driver {
	return &Driver{store: store, log: log, localHeightFunc: store.GetHeight}
}

func (d *Driver) IsSyncing() bool { return atomic.LoadInt32(&d.syncing) == 1 }

// SyncAgainst implements the four steps of spec.md §4.6.
func (d *Driver) SyncAgainst(ctx context.Context, p *p2pnet.PeerHandle) error {
	if !atomic.CompareAndSwapInt32(&d.syncing, 0, 1) {
		return nil // already syncing against someone
	}
	defer atomic.StoreInt32(&d.syncing, 0)

	hLocal := d.localHeightFunc()

	// Step 1: Ping/Pong height exchange.
	resp, err := p.Request(ctx, &wire.Command{Tag: wire.TagPing, PingHeight: hLocal})
	if err != nil {
		return fmt.Errorf("ibd: ping: %w", err)
	}
	hRemote := resp.PingHeight
	if hRemote <= hLocal {
		return nil
	}

	d.log.Info("starting ibd", "remote", p.RemoteAddr, "local_height", hLocal, "remote_height", hRemote)

	// Step 2: GetBlockHashes covering the half-open range [hLocal, hRemote).
	hashesResp, err := p.Request(ctx, &wire.Command{
		Tag:            wire.TagGetBlockHashes,
		HashRangeStart: hLocal,
		HashRangeEnd:   hRemote,
	})
	if err != nil {
		return fmt.Errorf("ibd: get_block_hashes: %w", err)
	}

	// Step 3: serial GetBlock + add_block, in order. No pipelining — kept
	// serial deliberately (spec.md §4.6: "avoids the need for out-of-order
	// buffering").
	for _, hash := range hashesResp.Hashes {
		blockResp, err := p.Request(ctx, &wire.Command{Tag: wire.TagGetBlock, BlockHash: hash})
		if err != nil {
			return fmt.Errorf("ibd: get_block %s: %w", hash, err)
		}
		if blockResp.Block == nil {
			return fmt.Errorf("ibd: peer reported missing block %s", hash)
		}
		if blockResp.Block.PowDigest != hash {
			return fmt.Errorf("ibd: peer returned block %s for requested hash %s", blockResp.Block.PowDigest, hash)
		}
		if err := d.store.AddBlock(blockResp.Block); err != nil {
			return fmt.Errorf("ibd: add_block %s: %w", hash, err)
		}
	}

	// Step 4: sequence exhausted, is_syncing cleared by the deferred reset.
	d.log.Info("ibd complete", "remote", p.RemoteAddr, "new_height", d.localHeightFunc())
	return nil
}
