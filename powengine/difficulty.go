// Package powengine implements the proof-of-work target/difficulty model
// and the sealing (mining) loop described in spec.md §4.2–§4.3, grounded on
// the retarget and Seal shape of the teacher's consensus/probeash package.
package powengine

import (
	"math/big"

	"github.com/snap-coin/snap-coin-node/common"
)

// maxTarget is the target at difficulty 1: the full 256-bit space, so
// target(difficulty) = maxTarget / difficulty shrinks monotonically as
// difficulty increases.
var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Target computes target(difficulty): a PoW digest, read as a big-endian
// unsigned integer, must be strictly less than this value to be accepted
// (§3 Block invariants).
func Target(difficulty uint64) *big.Int {
	if difficulty == 0 {
		difficulty = 1
	}
	return new(big.Int).Div(maxTarget, new(big.Int).SetUint64(difficulty))
}

// CheckPoW reports whether digest satisfies target(difficulty).
func CheckPoW(digest common.Hash, difficulty uint64) bool {
	n := new(big.Int).SetBytes(digest[:])
	return n.Cmp(Target(difficulty)) < 0
}

// RetargetWindow is the block header subset the retarget formula needs:
// the timestamps of the window's first and last block and the difficulty
// in force across the window.
type RetargetWindow struct {
	FirstTimestamp uint64
	LastTimestamp  uint64
	PriorDifficulty uint64
}

// NextDifficulty implements §4.3's retarget rule: "Retargets every
// RETARGET_INTERVAL blocks by comparing actual vs. expected elapsed time
// across the window, clamped to [1/4, 4] of prior difficulty. Before the
// first retarget, difficulty equals the genesis difficulty."
//
// height is the height of the block that closes the window (chain.Store
// passes the block it has just appended). The window spans
// common.RetargetInterval blocks; callers only invoke this at the window
// boundary (height % RetargetInterval == 0, height > 0), the closed-interval
// boundary semantics required by spec.md §8's boundary case.
func NextDifficulty(height uint64, w RetargetWindow) uint64 {
	if height == 0 || height%common.RetargetInterval != 0 {
		return w.PriorDifficulty
	}
	expected := common.RetargetInterval * int64(common.TargetBlockInterval/1e9) // seconds
	actual := int64(w.LastTimestamp) - int64(w.FirstTimestamp)
	if actual <= 0 {
		actual = 1
	}
	if expected <= 0 {
		expected = 1
	}

	next := new(big.Int).Mul(big.NewInt(int64(w.PriorDifficulty)), big.NewInt(expected))
	next.Div(next, big.NewInt(actual))

	maxNext := new(big.Int).Mul(big.NewInt(int64(w.PriorDifficulty)), big.NewInt(common.MaxDifficultyAdjustmentNum))
	maxNext.Div(maxNext, big.NewInt(common.MaxDifficultyAdjustmentDen))
	minNext := new(big.Int).Mul(big.NewInt(int64(w.PriorDifficulty)), big.NewInt(common.MinDifficultyAdjustmentNum))
	minNext.Div(minNext, big.NewInt(common.MinDifficultyAdjustmentDen))

	if next.Cmp(maxNext) > 0 {
		next.Set(maxNext)
	}
	if next.Cmp(minNext) < 0 {
		next.Set(minNext)
	}
	if next.Sign() <= 0 {
		next.SetInt64(1)
	}
	return next.Uint64()
}
