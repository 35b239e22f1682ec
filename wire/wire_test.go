package wire

import (
	"bytes"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gofuzz"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/stretchr/testify/require"
)

func sampleTx(seed int64) Transaction {
	var tx Transaction
	f := fuzz.NewWithSeed(seed)
	f.Fuzz(&tx.Sender)
	f.Fuzz(&tx.Recipient)
	f.Fuzz(&tx.Amount)
	f.Fuzz(&tx.Fee)
	f.Fuzz(&tx.Nonce)
	f.Fuzz(&tx.Signature)
	return tx
}

func TestTransactionRoundTrip(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		tx := sampleTx(seed)
		w := NewWriter()
		tx.Encode(w)
		r := NewReader(w.Bytes())
		got := DecodeTransaction(r)
		require.NoError(t, r.Err())
		require.Empty(t, cmp.Diff(tx, got))
	}
}

func TestBlockRoundTrip(t *testing.T) {
	b := Block{
		PrevHash:          common.BytesToHash([]byte("parent")),
		Height:            7,
		Timestamp:         1234567,
		Difficulty:        common.GenesisDifficulty,
		Nonce:             42,
		CoinbaseRecipient: common.BytesToAddress([]byte("miner")),
		Transactions:      []Transaction{sampleTx(1), sampleTx(2)},
		PowDigest:         common.BytesToHash([]byte("digest")),
	}
	data := EncodeBlockBytes(&b)
	got, err := DecodeBlockBytes(data)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(b, got))
}

func TestBlockHeaderCanonicalExcludesPowDigest(t *testing.T) {
	b := Block{Height: 1, Timestamp: 1, Difficulty: 1}
	b.PowDigest = common.BytesToHash([]byte("one"))
	h1 := b.EncodeHeaderCanonical()
	b.PowDigest = common.BytesToHash([]byte("two"))
	h2 := b.EncodeHeaderCanonical()
	require.Equal(t, h1, h2, "header canonical bytes must not depend on pow_digest")
}

func TestTransactionCanonicalExcludesSignature(t *testing.T) {
	tx := sampleTx(5)
	c1 := tx.EncodeCanonical()
	tx.Signature = common.BytesToSignature([]byte("different signature bytes"))
	c2 := tx.EncodeCanonical()
	require.Equal(t, c1, c2, "canonical tx bytes must not depend on signature")
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []*Command{
		{Tag: TagPing, PingHeight: 10},
		{Tag: TagGetBlockHashes, HashRangeStart: 1, HashRangeEnd: 5},
		{Tag: TagGetBlockHashesResponse, Hashes: []common.Hash{common.BytesToHash([]byte("a")), common.BytesToHash([]byte("b"))}},
		{Tag: TagGetBlock, BlockHash: common.BytesToHash([]byte("x"))},
		{Tag: TagGetBlockResponse, Block: nil},
		{Tag: TagGetPeers},
		{Tag: TagGetPeersResponse, Peers: []PeerAddr{{IP: net.ParseIP("127.0.0.1"), Port: 8998}}},
	}
	for _, c := range cases {
		msg := &Message{ID: 99, Command: c}
		frame := EncodeFrame(msg)

		buf := bytes.NewReader(frame)
		got, err := ReadFrame(buf)
		require.NoError(t, err)
		require.Equal(t, msg.ID, got.ID)
		require.Equal(t, c.Tag, got.Command.Tag)
	}
}

func TestGetBlockHashesEmptyRange(t *testing.T) {
	c := &Command{Tag: TagGetBlockHashesResponse, Hashes: nil}
	w := NewWriter()
	EncodeCommand(w, c)
	r := NewReader(w.Bytes())
	got, err := DecodeCommand(r, TagGetBlockHashesResponse)
	require.NoError(t, err)
	require.Empty(t, got.Hashes)
}
