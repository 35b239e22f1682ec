package chain

import (
	"container/heap"
	"sort"

	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/wire"
)

// txPool is the pending transaction pool of spec.md §4.3: bounded, keyed
// by (sender, nonce), admission ordered by fee density, eviction on
// overflow drops the lowest-fee-density entry, and a resubmission with the
// same key replaces the existing entry only if strictly more valuable.
//
// A min-heap ordered on fee density gives O(log n) eviction of the worst
// entry without needing a sorted slice rebuilt on every admission —
// grounded on the same trade-off the teacher's core/tx_pool-equivalent
// priced-heap eviction makes for its pending queue.
type txPool struct {
	byKey map[poolKey]*poolEntry
	heap  entryHeap
}

type poolKey struct {
	sender common.Address
	nonce  uint64
}

type poolEntry struct {
	tx    wire.Transaction
	index int
}

func newTxPool() *txPool {
	return &txPool{byKey: make(map[poolKey]*poolEntry)}
}

func key(tx wire.Transaction) poolKey {
	return poolKey{sender: tx.Sender, nonce: tx.Nonce}
}

// admit inserts tx, replacing any existing (sender, nonce) entry iff tx's
// fee is strictly greater, then trims the pool to common.MaxTxPoolSize by
// evicting the lowest fee-density entries.
func (p *txPool) admit(tx wire.Transaction) {
	k := key(tx)
	if existing, ok := p.byKey[k]; ok {
		if tx.Fee <= existing.tx.Fee {
			return
		}
		existing.tx = tx
		heap.Fix(&p.heap, existing.index)
		return
	}

	e := &poolEntry{tx: tx}
	p.byKey[k] = e
	heap.Push(&p.heap, e)

	for len(p.heap) > common.MaxTxPoolSize {
		worst := heap.Pop(&p.heap).(*poolEntry)
		delete(p.byKey, key(worst.tx))
	}
}

// confirm removes a transaction that has just been included in a block.
func (p *txPool) confirm(sender common.Address, nonce uint64) {
	k := poolKey{sender: sender, nonce: nonce}
	e, ok := p.byKey[k]
	if !ok {
		return
	}
	heap.Remove(&p.heap, e.index)
	delete(p.byKey, k)
}

// snapshotOrdered returns the pool's contents ordered by descending fee
// density, the order build_block selects candidates in. The heap itself
// only guarantees the root is the minimum, so this sorts a copy rather
// than trusting heap storage order.
func (p *txPool) snapshotOrdered() []wire.Transaction {
	out := make([]wire.Transaction, len(p.heap))
	for i, e := range p.heap {
		out[i] = e.tx
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FeeDensity() > out[j].FeeDensity()
	})
	return out
}

// entryHeap is a container/heap.Interface min-heap on fee density.
type entryHeap []*poolEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	return h[i].tx.FeeDensity() < h[j].tx.FeeDensity()
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*poolEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
