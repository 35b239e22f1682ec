// Package wire implements the single canonical binary codec used both for
// on-wire peer messages and for hash pre-images (§4.1). It is deterministic,
// length-prefixed for variable-width fields, and big-endian for integers.
// Every exported Encode/Decode pair here must round-trip bit-exactly:
// peers reject non-canonical encodings, and PoW digests are computed over
// this exact byte layout.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/snap-coin/snap-coin-node/common"
)

// MaxFrameLength bounds a single decoded frame/blob to guard against a
// corrupt or hostile length prefix (§7 FrameTooLarge).
const MaxFrameLength = 16 << 20 // 16 MiB

// Writer accumulates a canonical byte stream.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) WriteUint8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteBytes writes a uint32_be length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *Writer) WriteFixed(b []byte) { w.buf.Write(b) }

func (w *Writer) WriteHash(h common.Hash) { w.buf.Write(h[:]) }

func (w *Writer) WriteAddress(a common.Address) { w.buf.Write(a[:]) }

func (w *Writer) WriteSignature(s common.Signature) { w.buf.Write(s[:]) }

// WriteOptionalHash encodes `uint8 tag (0|1) || [Hash if tag==1]` per §6.
func (w *Writer) WriteOptionalHash(h *common.Hash) {
	if h == nil {
		w.WriteUint8(0)
		return
	}
	w.WriteUint8(1)
	w.WriteHash(*h)
}

// Reader consumes a canonical byte stream, accumulating the first error
// encountered so call sites can chain reads and check once at the end.
type Reader struct {
	b   []byte
	pos int
	err error
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.b) {
		r.fail(fmt.Errorf("%w: need %d bytes, have %d", common.ErrMalformedFrame, n, len(r.b)-r.pos))
		return false
	}
	return true
}

func (r *Reader) ReadUint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *Reader) ReadUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}

func (r *Reader) ReadUint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v
}

func (r *Reader) ReadBytes() []byte {
	n := r.ReadUint32()
	if n > MaxFrameLength {
		r.fail(fmt.Errorf("%w: blob length %d exceeds max", common.ErrFrameTooLarge, n))
		return nil
	}
	if !r.need(int(n)) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.b[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out
}

func (r *Reader) ReadFixed(n int) []byte {
	if !r.need(n) {
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, r.b[r.pos:r.pos+n])
	r.pos += n
	return out
}

func (r *Reader) ReadHash() common.Hash {
	return common.BytesToHash(r.ReadFixed(common.HashLength))
}

func (r *Reader) ReadAddress() common.Address {
	return common.BytesToAddress(r.ReadFixed(common.AddressLength))
}

func (r *Reader) ReadSignature() common.Signature {
	return common.BytesToSignature(r.ReadFixed(common.SignatureLength))
}

// ReadOptionalHash decodes `uint8 tag (0|1) || [Hash if tag==1]`.
func (r *Reader) ReadOptionalHash() *common.Hash {
	tag := r.ReadUint8()
	if tag == 0 {
		return nil
	}
	h := r.ReadHash()
	return &h
}

// Remaining returns the number of unconsumed bytes left in the reader.
func (r *Reader) Remaining() int { return len(r.b) - r.pos }
