package common

import (
	"encoding/hex"
	"fmt"
)

// Address is a public-key derived account identifier, distinct from Hash.
type Address [AddressLength]byte

// ZeroAddress is the all-zero Address; it is never a valid sender.
var ZeroAddress = Address{}

// BytesToAddress right-aligns b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// AddressFromHex parses a 0x-prefixed (or bare) hex string into an Address,
// mirroring HashFromHex.
func AddressFromHex(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("common: invalid address length %d, want %d", len(b), AddressLength)
	}
	return BytesToAddress(b), nil
}

// Signature is a detached signature over a transaction's canonical digest:
// 64 bytes of (r, s) plus one recovery byte, matching the secp256k1 scheme
// used throughout the teacher's crypto package.
type Signature [SignatureLength]byte

func (s Signature) Bytes() []byte { return s[:] }

func BytesToSignature(b []byte) Signature {
	var s Signature
	copy(s[:], b)
	return s
}
