// Copyright 2026 The snap-coin Authors
// This file is part of the snap-coin library.
//
// The snap-coin library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The snap-coin library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package common holds the fixed-size primitives shared by every snap-coin
// package: hashes, addresses and signatures.
package common

import (
	"encoding/hex"
	"math/big"
)

// HashLength is the expected length of a Hash, in bytes.
const HashLength = 32

// AddressLength is the expected length of an Address, in bytes.
const AddressLength = 20

// SignatureLength is the expected length of a detached Signature, in bytes.
const SignatureLength = 65

// base36Alphabet is used to render Hash values in the compact log form
// described by the data model ("Encodable in a compact base36 form for
// logs"); it mirrors the `dump_base36` helper of the original node.
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Hash is a 32-byte opaque identifier. Equality is bytewise; no ordering is
// implied or required.
type Hash [HashLength]byte

// ZeroHash is the hash reserved for the genesis block's prev_hash field.
var ZeroHash = Hash{}

// BytesToHash right-aligns b into a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero hash (the genesis sentinel).
func (h Hash) IsZero() bool { return h == ZeroHash }

// Hex renders the hash as a 0x-prefixed hex string, used by the structured
// logger and the query API.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// Base36 renders the hash as a compact base36 string for log lines and the
// terminal dashboard, matching the original node's `dump_base36`.
func (h Hash) Base36() string {
	n := new(big.Int).SetBytes(h[:])
	if n.Sign() == 0 {
		return "0"
	}
	base := big.NewInt(36)
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, base36Alphabet[mod.Int64()])
	}
	// reverse
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// HashFromHex parses a 0x-prefixed (or bare) hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b), nil
}
