package wire

import (
	"github.com/snap-coin/snap-coin-node/common"
	"golang.org/x/crypto/sha3"
)

// Block is the wire and storage representation described in spec.md §3.
// A block's identity hash IS its PowDigest: the memory-hard PoW output
// doubles as the Bitcoin-style block hash used for height/hash indexing and
// as the next block's PrevHash, so there is exactly one canonical hash per
// block rather than a second, cheaper identity hash layered on top.
type Block struct {
	PrevHash          common.Hash
	Height            uint64
	Timestamp         uint64
	Difficulty        uint64
	Nonce             uint64
	CoinbaseRecipient common.Address
	Transactions      []Transaction
	PowDigest         common.Hash
}

// Hash returns the block's identity hash (its PoW digest).
func (b *Block) Hash() common.Hash { return b.PowDigest }

// TxRoot commits to the ordered transaction list with a simple concatenated
// hash (no Merkle tree: out of scope per the size budget, and nothing in
// spec.md requires Merkle proofs of inclusion).
func (b *Block) TxRoot() common.Hash {
	h := sha3.New256()
	for i := range b.Transactions {
		th := b.Transactions[i].Hash()
		h.Write(th[:])
	}
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// EncodeHeaderCanonical serializes the header fields that feed H_pow,
// EXCLUDING PowDigest (§4.1: "The canonical form of a block header for PoW
// EXCLUDES the pow_digest") AND EXCLUDING Nonce: the nonce is the value
// the sealing loop searches over, and powengine folds each candidate in
// separately via mixNonce rather than re-encoding the whole header per
// attempt. Including Nonce here would make the header hash the seal
// computed (at Nonce == 0) differ from the one Verify recomputes from the
// sealed block (at the winning Nonce), breaking verification for every
// nonce but 0.
func (b *Block) EncodeHeaderCanonical() []byte {
	w := NewWriter()
	w.WriteHash(b.PrevHash)
	w.WriteUint64(b.Height)
	w.WriteUint64(b.Timestamp)
	w.WriteUint64(b.Difficulty)
	w.WriteAddress(b.CoinbaseRecipient)
	txRoot := b.TxRoot()
	w.WriteHash(txRoot)
	return w.Bytes()
}

// Encode serializes the full block, including PowDigest, for wire transport
// and for the "decode(encode(block)) == block" round-trip law (§8).
func (b *Block) Encode(w *Writer) {
	w.WriteHash(b.PrevHash)
	w.WriteUint64(b.Height)
	w.WriteUint64(b.Timestamp)
	w.WriteUint64(b.Difficulty)
	w.WriteUint64(b.Nonce)
	w.WriteAddress(b.CoinbaseRecipient)
	EncodeTransactions(w, b.Transactions)
	w.WriteHash(b.PowDigest)
}

// DecodeBlock reads a block previously written by Encode.
func DecodeBlock(r *Reader) Block {
	var b Block
	b.PrevHash = r.ReadHash()
	b.Height = r.ReadUint64()
	b.Timestamp = r.ReadUint64()
	b.Difficulty = r.ReadUint64()
	b.Nonce = r.ReadUint64()
	b.CoinbaseRecipient = r.ReadAddress()
	b.Transactions = DecodeTransactions(r)
	b.PowDigest = r.ReadHash()
	return b
}

// EncodeBlockBytes and DecodeBlockBytes are convenience wrappers used by the
// query API and tests.
func EncodeBlockBytes(b *Block) []byte {
	w := NewWriter()
	b.Encode(w)
	return w.Bytes()
}

func DecodeBlockBytes(data []byte) (Block, error) {
	r := NewReader(data)
	b := DecodeBlock(r)
	if r.Err() != nil {
		return Block{}, r.Err()
	}
	return b, nil
}
