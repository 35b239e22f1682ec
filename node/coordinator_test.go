package node

import (
	"testing"

	"github.com/deckarep/golang-set"
	"github.com/hashicorp/golang-lru"
	"github.com/holiman/bloomfilter/v2"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	filter, err := bloomfilter.NewOptimal(1000, 0.001)
	require.NoError(t, err)
	seenLRU, err := lru.New(1000)
	require.NoError(t, err)
	return &Coordinator{
		log:         nodelog.Root(),
		seen:        filter,
		seenLRU:     seenLRU,
		peers:       make(map[string]*peerEntry),
		strikes:     make(map[string]int),
		reservedIPs: mapset.NewSet(),
	}
}

func TestMarkSeenOnceDedupesWithinGossipWindow(t *testing.T) {
	c := newTestCoordinator(t)
	digest := common.BytesToHash([]byte("block-1"))

	require.True(t, c.markSeenOnce(digest), "first sighting must be fresh")
	require.False(t, c.markSeenOnce(digest), "re-sighting within the window must be deduped")
}

func TestMarkSeenOnceDistinguishesDigests(t *testing.T) {
	c := newTestCoordinator(t)
	require.True(t, c.markSeenOnce(common.BytesToHash([]byte("a"))))
	require.True(t, c.markSeenOnce(common.BytesToHash([]byte("b"))))
}

func TestReservedIPsExemptFromAutopeer(t *testing.T) {
	log := nodelog.Root()
	c := NewCoordinator(nil, log, Config{ReservedIPs: []string{"10.0.0.5"}})
	require.True(t, c.isReserved("10.0.0.5"))
	require.False(t, c.isReserved("10.0.0.6"))
}
