package node

import (
	"context"
	"math/rand"
	"time"

	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/p2pnet"
	"github.com/snap-coin/snap-coin-node/wire"
)

// RunAutopeer drives the background discovery loop of spec.md §4.5: every
// AutopeerInterval, if below TargetPeers, pick a random Ready peer, ask it
// for its peers, and dial a random unknown one. Grounded on the teacher's
// probe/handler.go dial-loop shape, generalized to this protocol's
// GetPeers/GetPeersResponse round trip.
func (c *Coordinator) RunAutopeer(ctx context.Context) {
	ticker := time.NewTicker(common.AutopeerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.autopeerTick(ctx)
		}
	}
}

func (c *Coordinator) autopeerTick(ctx context.Context) {
	if c.PeerCount() >= common.TargetPeers {
		return
	}
	peers := c.ReadyPeers()
	if len(peers) == 0 {
		return
	}
	from := peers[rand.Intn(len(peers))]

	rctx, cancel := context.WithTimeout(ctx, common.RequestTimeout)
	defer cancel()
	c.getPeersFrom(rctx, from)
}

// getPeersFrom issues a GetPeers request and dials a random previously
// unknown address from the reply.
func (c *Coordinator) getPeersFrom(ctx context.Context, from *p2pnet.PeerHandle) {
	resp, err := from.Request(ctx, &wire.Command{Tag: wire.TagGetPeers})
	if err != nil || resp == nil {
		c.log.Debug("autopeer: GetPeers failed", "remote", from.RemoteAddr, "err", err)
		return
	}

	var candidates []string
	for _, peer := range resp.Peers {
		addr := peer.String()
		c.peersMu.RLock()
		_, known := c.peers[addr]
		c.peersMu.RUnlock()
		if known || c.isReserved(peer.IP.String()) {
			continue
		}
		candidates = append(candidates, addr)
	}
	if len(candidates) == 0 {
		return
	}
	target := candidates[rand.Intn(len(candidates))]

	localHeight := c.localHeight()
	p, _, err := p2pnet.Dial(ctx, target, localHeight, c, c.log)
	if err != nil {
		c.log.Debug("autopeer: dial failed", "target", target, "err", err)
		return
	}
	c.Register(p)
	go p.Run()
}
