package sync

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/snap-coin/snap-coin-node/p2pnet"
	"github.com/snap-coin/snap-coin-node/powengine"
	"github.com/snap-coin/snap-coin-node/wire"
	"github.com/stretchr/testify/require"
)

// remoteHandler answers the handful of commands IBD's Driver issues,
// standing in for the full node.Coordinator dispatch table so this test
// exercises the IBD protocol in isolation.
type remoteHandler struct {
	store *chain.Store
}

func (h *remoteHandler) HandleCommand(p *p2pnet.PeerHandle, msgID uint64, cmd *wire.Command) {
	switch cmd.Tag {
	case wire.TagPing:
		_ = p.Reply(msgID, &wire.Command{Tag: wire.TagPong, PingHeight: h.store.GetHeight()})
	case wire.TagGetBlockHashes:
		tip := h.store.GetHeight()
		end := cmd.HashRangeEnd
		if end > tip {
			end = tip
		}
		resp := &wire.Command{Tag: wire.TagGetBlockHashesResponse}
		for height := cmd.HashRangeStart; height < end; height++ {
			hash, ok := h.store.GetBlockHashByHeight(height)
			if !ok {
				break
			}
			resp.Hashes = append(resp.Hashes, hash)
		}
		_ = p.Reply(msgID, resp)
	case wire.TagGetBlock:
		b, ok := h.store.GetBlockByHash(cmd.BlockHash)
		if !ok {
			_ = p.Reply(msgID, &wire.Command{Tag: wire.TagGetBlockResponse})
			return
		}
		_ = p.Reply(msgID, &wire.Command{Tag: wire.TagGetBlockResponse, Block: &b})
	}
}

func (h *remoteHandler) OnClose(p *p2pnet.PeerHandle, err error) {}

// localHandler only needs to exist to satisfy the interface; the IBD
// Driver drives everything through Request/Response correlation, never
// through unsolicited inbound commands.
type localHandler struct{}

func (localHandler) HandleCommand(p *p2pnet.PeerHandle, msgID uint64, cmd *wire.Command) {}
func (localHandler) OnClose(p *p2pnet.PeerHandle, err error)                             {}

func TestSyncAgainstAppliesRemoteBlocks(t *testing.T) {
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, err := chaincrypto.RandomHash()
	require.NoError(t, err)

	remoteStore := chain.NewGenesisStore(engine, genesisSeed, 1000)
	miner := [20]byte{1, 2, 3}
	sealer := powengine.NewSealer(engine)
	ts := uint64(1001)
	for i := 0; i < 3; i++ {
		b := remoteStore.BuildBlock(miner, ts)
		require.NoError(t, sealer.Seal(context.Background(), b, genesisSeed))
		require.NoError(t, remoteStore.AddBlock(b))
		ts++
	}
	require.Equal(t, uint64(4), remoteStore.GetHeight())

	localStore := chain.NewGenesisStore(engine, genesisSeed, 1000)
	require.Equal(t, uint64(1), localStore.GetHeight())

	// A loopback TCP pair, not net.Pipe: Handshake has both sides write
	// their Ping before reading, which relies on the socket's send buffer.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()
	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	serverConn := <-accepted
	require.NotNil(t, serverConn)
	log := nodelog.Root()

	localPeer := p2pnet.NewPeerHandle(clientConn, true, localHandler{}, log)
	remotePeer := p2pnet.NewPeerHandle(serverConn, false, &remoteHandler{store: remoteStore}, log)

	handshakeErrs := make(chan error, 2)
	go func() {
		_, err := localPeer.Handshake(context.Background(), localStore.GetHeight())
		handshakeErrs <- err
	}()
	go func() {
		_, err := remotePeer.Handshake(context.Background(), remoteStore.GetHeight())
		handshakeErrs <- err
	}()
	require.NoError(t, <-handshakeErrs)
	require.NoError(t, <-handshakeErrs)

	go localPeer.Run()
	go remotePeer.Run()

	driver := New(localStore, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, driver.SyncAgainst(ctx, localPeer))

	require.Equal(t, remoteStore.GetHeight(), localStore.GetHeight())
	require.False(t, driver.IsSyncing())
}
