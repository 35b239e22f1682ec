package chain

import (
	"context"
	"testing"

	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/powengine"
	"github.com/snap-coin/snap-coin-node/wire"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *chaincrypto.Engine, common.Hash) {
	t.Helper()
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, err := chaincrypto.RandomHash()
	require.NoError(t, err)
	s := NewGenesisStore(engine, genesisSeed, 1000)
	return s, engine, genesisSeed
}

func TestGenesisOnly(t *testing.T) {
	s, _, _ := newTestStore(t)
	require.Equal(t, uint64(1), s.GetHeight())
	hash, ok := s.GetBlockHashByHeight(0)
	require.True(t, ok)
	require.NotEqual(t, common.ZeroHash, hash)
	require.Equal(t, common.Subsidy(0), s.GetBalance(common.DevWallet))
}

func mineNext(t *testing.T, s *Store, engine *chaincrypto.Engine, genesisSeed common.Hash, coinbase common.Address, timestamp uint64) *wire.Block {
	t.Helper()
	b := s.BuildBlock(coinbase, timestamp)
	sealer := powengine.NewSealer(engine)
	require.NoError(t, sealer.Seal(context.Background(), b, genesisSeed))
	return b
}

func TestAddBlockExtendsTipAndPaysCoinbase(t *testing.T) {
	s, engine, genesisSeed := newTestStore(t)
	miner := common.BytesToAddress([]byte("miner-1"))

	b := mineNext(t, s, engine, genesisSeed, miner, 1001)
	require.NoError(t, s.AddBlock(b))
	require.Equal(t, uint64(2), s.GetHeight())
	require.Equal(t, common.Subsidy(1), s.GetBalance(miner))
}

func TestAddBlockRejectsWrongParent(t *testing.T) {
	s, engine, genesisSeed := newTestStore(t)
	miner := common.BytesToAddress([]byte("miner-1"))
	b := mineNext(t, s, engine, genesisSeed, miner, 1001)
	b.PrevHash = common.BytesToHash([]byte("not the tip"))
	require.ErrorIs(t, s.AddBlock(b), common.ErrInvalidParent)
}

func TestAddBlockRejectsNonMonotonicTimestamp(t *testing.T) {
	s, engine, genesisSeed := newTestStore(t)
	miner := common.BytesToAddress([]byte("miner-1"))
	b := s.BuildBlock(miner, 500) // <= genesis timestamp of 1000
	sealer := powengine.NewSealer(engine)
	require.NoError(t, sealer.Seal(context.Background(), b, genesisSeed))
	require.ErrorIs(t, s.AddBlock(b), common.ErrInvalidTimestamp)
}

func TestAddBlockRejectsBadPoW(t *testing.T) {
	s, engine, genesisSeed := newTestStore(t)
	miner := common.BytesToAddress([]byte("miner-1"))
	b := mineNext(t, s, engine, genesisSeed, miner, 1001)
	b.PowDigest[0] ^= 0xFF
	require.ErrorIs(t, s.AddBlock(b), common.ErrInvalidPoW)
}

func TestTransactionReplayFailsWithNonceMismatch(t *testing.T) {
	s, engine, genesisSeed := newTestStore(t)
	sender, err := chaincrypto.GenerateKeyPair()
	require.NoError(t, err)
	recipient := common.BytesToAddress([]byte("recipient"))
	miner := common.BytesToAddress([]byte("miner-1"))

	// Fund sender via a mined block's coinbase, then spend from it.
	b1 := s.BuildBlock(sender.Address(), 1001)
	sealer := powengine.NewSealer(engine)
	require.NoError(t, sealer.Seal(context.Background(), b1, genesisSeed))
	require.NoError(t, s.AddBlock(b1))

	tx := wire.Transaction{Sender: sender.Address(), Recipient: recipient, Amount: 1, Fee: 0, Nonce: 0}
	sig, err := chaincrypto.Sign(sender, tx.Digest())
	require.NoError(t, err)
	tx.Signature = sig

	require.NoError(t, s.AddTransaction(tx))

	b2 := s.BuildBlock(miner, 1002)
	require.NoError(t, sealer.Seal(context.Background(), b2, genesisSeed))
	require.NoError(t, s.AddBlock(b2))

	require.ErrorIs(t, s.AddTransaction(tx), common.ErrNonceMismatch)
}

func TestBuildBlockOrdersByFeeDensity(t *testing.T) {
	s, _, _ := newTestStore(t)
	low := wire.Transaction{Sender: common.BytesToAddress([]byte("a")), Amount: 100, Fee: 1}
	high := wire.Transaction{Sender: common.BytesToAddress([]byte("b")), Amount: 100, Fee: 50}
	s.pool.admit(low)
	s.pool.admit(high)

	b := s.BuildBlock(common.DevWallet, 1001)
	require.Len(t, b.Transactions, 2)
	require.Equal(t, high.Sender, b.Transactions[0].Sender)
}
