package powengine

import (
	"context"
	"testing"
	"time"

	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/wire"
	"github.com/stretchr/testify/require"
)

func TestTargetMonotonicallyShrinks(t *testing.T) {
	t1 := Target(1)
	t2 := Target(2)
	require.True(t, t2.Cmp(t1) < 0)
}

func TestNextDifficultyHoldsOffWindowBoundary(t *testing.T) {
	w := RetargetWindow{FirstTimestamp: 0, LastTimestamp: 1000, PriorDifficulty: 100}
	require.Equal(t, uint64(100), NextDifficulty(1, w))
	require.Equal(t, uint64(100), NextDifficulty(common.RetargetInterval-1, w))
}

func TestNextDifficultyClampsToQuarterAndQuadruple(t *testing.T) {
	fast := RetargetWindow{FirstTimestamp: 0, LastTimestamp: 1, PriorDifficulty: 1000}
	got := NextDifficulty(common.RetargetInterval, fast)
	require.Equal(t, uint64(4000), got, "elapsed time far below target must clamp at 4x")

	slow := RetargetWindow{FirstTimestamp: 0, LastTimestamp: 1 << 40, PriorDifficulty: 1000}
	got = NextDifficulty(common.RetargetInterval, slow)
	require.Equal(t, uint64(250), got, "elapsed time far above target must clamp at 1/4x")
}

func TestSealProducesVerifiableBlock(t *testing.T) {
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)

	genesisSeed, _ := chaincrypto.RandomHash()
	b := &wire.Block{
		PrevHash:   common.ZeroHash,
		Height:     1,
		Timestamp:  1,
		Difficulty: 4,
	}

	s := NewSealer(engine)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Seal(ctx, b, genesisSeed))
	require.True(t, CheckPoW(b.PowDigest, b.Difficulty))
	require.True(t, Verify(engine, b, genesisSeed))
}

func TestVerifyRejectsTamperedNonce(t *testing.T) {
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, _ := chaincrypto.RandomHash()
	b := &wire.Block{Height: 1, Timestamp: 1, Difficulty: 4}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, NewSealer(engine).Seal(ctx, b, genesisSeed))

	b.Nonce++
	require.False(t, Verify(engine, b, genesisSeed))
}
