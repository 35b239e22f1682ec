package wire

import (
	"github.com/snap-coin/snap-coin-node/common"
	"golang.org/x/crypto/sha3"
)

// Transaction is the wire and storage representation of a value transfer,
// per the data model in spec.md §3.
type Transaction struct {
	Sender    common.Address
	Recipient common.Address
	Amount    uint64
	Fee       uint64
	Nonce     uint64
	Signature common.Signature
}

// EncodeCanonical serializes the fields that are signed over and hashed,
// EXCLUDING the Signature field (§4.1: "The canonical form of a
// transaction for signing and hashing EXCLUDES the signature field").
func (tx *Transaction) EncodeCanonical() []byte {
	w := NewWriter()
	w.WriteAddress(tx.Sender)
	w.WriteAddress(tx.Recipient)
	w.WriteUint64(tx.Amount)
	w.WriteUint64(tx.Fee)
	w.WriteUint64(tx.Nonce)
	return w.Bytes()
}

// Digest returns the hash of the canonical (unsigned) transaction body; this
// is the message that Signature must verify over.
func (tx *Transaction) Digest() common.Hash {
	return common.Hash(sha3.Sum256(tx.EncodeCanonical()))
}

// Encode serializes the full transaction, including its signature, for wire
// transport and for inclusion inside a block.
func (tx *Transaction) Encode(w *Writer) {
	w.WriteAddress(tx.Sender)
	w.WriteAddress(tx.Recipient)
	w.WriteUint64(tx.Amount)
	w.WriteUint64(tx.Fee)
	w.WriteUint64(tx.Nonce)
	w.WriteSignature(tx.Signature)
}

// DecodeTransaction reads a transaction previously written by Encode.
func DecodeTransaction(r *Reader) Transaction {
	var tx Transaction
	tx.Sender = r.ReadAddress()
	tx.Recipient = r.ReadAddress()
	tx.Amount = r.ReadUint64()
	tx.Fee = r.ReadUint64()
	tx.Nonce = r.ReadUint64()
	tx.Signature = r.ReadSignature()
	return tx
}

// Hash returns the transaction's content hash (over the fully-signed
// encoding), used as its pool/propagation identity.
func (tx *Transaction) Hash() common.Hash {
	w := NewWriter()
	tx.Encode(w)
	return common.Hash(sha3.Sum256(w.Bytes()))
}

// FeeDensity is the fee-per-unit-amount ordering key used by the pending
// pool's admission policy (§4.3 "Admission order is by fee density"). A
// zero-amount transaction is ranked purely by fee to avoid division by zero.
func (tx *Transaction) FeeDensity() float64 {
	if tx.Amount == 0 {
		return float64(tx.Fee)
	}
	return float64(tx.Fee) / float64(tx.Amount)
}

// EncodeTransactions writes a uint32_be count followed by count encoded
// transactions, the sequence form used throughout the wire protocol (§6).
func EncodeTransactions(w *Writer, txs []Transaction) {
	w.WriteUint32(uint32(len(txs)))
	for i := range txs {
		txs[i].Encode(w)
	}
}

func DecodeTransactions(r *Reader) []Transaction {
	n := r.ReadUint32()
	if n == 0 || r.Err() != nil {
		return nil
	}
	out := make([]Transaction, 0, n)
	for i := uint32(0); i < n; i++ {
		out = append(out, DecodeTransaction(r))
	}
	return out
}
