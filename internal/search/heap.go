package search

import "github.com/stitts-dev/lineup-optimizer/internal/lineup"

// topNHeap is a bounded min-heap of size N, keyed by score: the lowest
// score sits at the root so a new, better candidate can evict it in
// O(log N). Grounded on the graph package's nodePQ/nodeItem container/heap
// pattern elsewhere in this ecosystem — the same technique applied to
// lineup candidates instead of graph-search frontier nodes.
type topNHeap struct {
	items []lineup.ScoredLineup
	cap   int
}

func newTopNHeap(capacity int) *topNHeap {
	return &topNHeap{items: make([]lineup.ScoredLineup, 0, capacity), cap: capacity}
}

func (h *topNHeap) Len() int { return len(h.items) }

// Less puts the worst entry at the root: lowest score, and among equal
// scores the lexicographically greatest order, so eviction keeps the
// lex-smaller of tied lineups.
func (h *topNHeap) Less(i, j int) bool {
	if h.items[i].Score != h.items[j].Score {
		return h.items[i].Score < h.items[j].Score
	}
	return lexLess(h.items[j].Order, h.items[i].Order)
}

func (h *topNHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *topNHeap) Push(x interface{}) {
	h.items = append(h.items, x.(lineup.ScoredLineup))
}

func (h *topNHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// full reports whether the heap already holds cap entries. offer (in
// engine.go) uses it to choose between a plain push and a pop-then-push
// through container/heap.
func (h *topNHeap) full() bool {
	return len(h.items) >= h.cap
}

func (h *topNHeap) min() float64 {
	if len(h.items) == 0 {
		return 0
	}
	return h.items[0].Score
}
