// Package chaincrypto implements the three operations described in
// spec.md §4.2: keypair generation, detached sign/verify over a
// transaction digest, and the memory-hard H_pow primitive. Keypairs use
// secp256k1 via github.com/btcsuite/btcd/btcec/v2, the same curve and
// library the wider retrieval pack (Jason-chen-taiwan-arcSignv2's bitcoin
// signer) already wires up for production signing.
package chaincrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/snap-coin/snap-coin-node/common"
)

// KeyPair holds a node or account's signing key, mirroring the
// Import/ExportECDSA pair in the teacher's crypto/probe/probe.go.
type KeyPair struct {
	Private *btcec.PrivateKey
}

// GenerateKeyPair creates a fresh secp256k1 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{Private: priv}, nil
}

// Address derives the account Address from the public key: the low
// AddressLength bytes of sha256(compressed pubkey), matching the
// right-aligned truncation convention used throughout common.BytesToAddress.
func (k *KeyPair) Address() common.Address {
	return AddressFromPubKey(k.Private.PubKey())
}

// AddressFromPubKey derives an Address from a public key.
func AddressFromPubKey(pub *btcec.PublicKey) common.Address {
	sum := sha256.Sum256(pub.SerializeCompressed())
	return common.BytesToAddress(sum[:])
}

// Sign produces a detached Signature over msg (the transaction's canonical
// digest, per spec.md §3). The signature is a recoverable ECDSA signature so
// Verify (and eventually peer-side address recovery) needs only the
// message and signature, not a separately carried public key.
func Sign(k *KeyPair, msg common.Hash) (common.Signature, error) {
	sig, err := ecdsa.SignCompact(k.Private, msg[:], true)
	if err != nil {
		return common.Signature{}, fmt.Errorf("sign: %w", err)
	}
	var out common.Signature
	copy(out[:], sig)
	return out, nil
}

// Verify reports whether sig is a valid signature by the holder of privkey
// matching address addr over msg.
func Verify(addr common.Address, msg common.Hash, sig common.Signature) bool {
	pub, _, err := ecdsa.RecoverCompact(sig[:], msg[:])
	if err != nil {
		return false
	}
	return AddressFromPubKey(pub) == addr
}

// LoadOrCreateNodeKey loads the node's persistent signing key from path, or
// generates and persists a new one if none exists. This supplements
// spec.md: the original Rust node keeps its miner/coinbase identity across
// restarts, a detail the distilled spec leaves implicit (see SPEC_FULL.md's
// Crypto supplement).
func LoadOrCreateNodeKey(path string) (*KeyPair, error) {
	data, err := ioutil.ReadFile(path)
	if err == nil {
		priv, pub := btcec.PrivKeyFromBytes(data)
		_ = pub
		return &KeyPair{Private: priv}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read node key: %w", err)
	}
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := ioutil.WriteFile(path, kp.Private.Serialize(), 0600); err != nil {
		return nil, fmt.Errorf("persist node key: %w", err)
	}
	return kp, nil
}

// RandomHash returns a cryptographically random Hash, used for epoch seeds
// and test fixtures.
func RandomHash() (common.Hash, error) {
	var h common.Hash
	if _, err := io.ReadFull(rand.Reader, h[:]); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}
