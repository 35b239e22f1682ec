package powengine

import (
	"context"
	"crypto/sha256"

	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/wire"
)

// Sealer drives the nonce-search loop that turns a header-complete,
// nonce-zero block into one whose PowDigest satisfies its own difficulty
// target. Shape grounded on the teacher's consensus/probeash.Sealer.Seal:
// a cancellable loop trying successive nonces until one succeeds or the
// context is cancelled by a competing block arriving over p2pnet.
type Sealer struct {
	engine *chaincrypto.Engine
}

func NewSealer(engine *chaincrypto.Engine) *Sealer {
	return &Sealer{engine: engine}
}

// Seal mutates b.Nonce and b.PowDigest in place, searching from nonce 0
// until CheckPoW succeeds or ctx is done. genesisSeed anchors EpochSeed.
func (s *Sealer) Seal(ctx context.Context, b *wire.Block, genesisSeed common.Hash) error {
	seed := chaincrypto.EpochSeed(genesisSeed, b.Height)
	header := b.EncodeHeaderCanonical()
	headerHash := common.Hash(headerDigest(header))

	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		input := mixNonce(headerHash, nonce)
		digest := s.engine.Hash(seed, input)
		if CheckPoW(digest, b.Difficulty) {
			b.Nonce = nonce
			b.PowDigest = digest
			return nil
		}
	}
}

// Verify reports whether b's PowDigest is the correct H_pow output for its
// header and nonce under the given difficulty, re-deriving it the same way
// Seal produced it. Both honest miners and verifying peers call this, so
// light and full mode engines must (and do, per chaincrypto's contract)
// agree on the result.
func Verify(engine *chaincrypto.Engine, b *wire.Block, genesisSeed common.Hash) bool {
	seed := chaincrypto.EpochSeed(genesisSeed, b.Height)
	header := b.EncodeHeaderCanonical()
	headerHash := common.Hash(headerDigest(header))
	input := mixNonce(headerHash, b.Nonce)
	digest := engine.Hash(seed, input)
	return digest == b.PowDigest && CheckPoW(digest, b.Difficulty)
}

func headerDigest(header []byte) [32]byte {
	return sha256.Sum256(header)
}

// mixNonce folds a candidate nonce into the header hash to produce the
// per-attempt PoW input, mirroring how sealer.go folds SealHash with the
// nonce before hashing.
func mixNonce(headerHash common.Hash, nonce uint64) common.Hash {
	var buf [40]byte
	copy(buf[:32], headerHash[:])
	buf[32] = byte(nonce >> 56)
	buf[33] = byte(nonce >> 48)
	buf[34] = byte(nonce >> 40)
	buf[35] = byte(nonce >> 32)
	buf[36] = byte(nonce >> 24)
	buf[37] = byte(nonce >> 16)
	buf[38] = byte(nonce >> 8)
	buf[39] = byte(nonce)
	return sha256.Sum256(buf[:])
}
