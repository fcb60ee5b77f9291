// Package search enumerates the constrained permutation space and returns
// the top-N highest-scoring lineups. Parallel over permutations, grounded
// on the worker-pool/channel pattern this codebase uses for Monte Carlo
// simulation: a fixed pool of goroutines, each scoring its own contiguous
// range of permutation ranks and sending its private top-N back over a
// channel, merged at the end rather than contending on a single shared
// structure.
package search

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/stitts-dev/lineup-optimizer/internal/bdnrp"
	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
)

var scoreFn = bdnrp.Score

// cancelCheckInterval is how many candidates a worker evaluates between
// cooperative cancellation checks.
const cancelCheckInterval = 4096

// Request bundles everything the engine needs to search one constrained
// lineup space.
type Request struct {
	Tensor      *lineup.Tensor
	FreeSlots   []int
	FreeHitters []int
	Fixed       map[int]int
	Predicate   func(lineup.Lineup) bool
	TopN        int
	Workers     int // 0 => runtime.NumCPU()
}

// Run searches the full permutation space of FreeHitters placed into
// FreeSlots (combined with the fixed assignment), scoring every candidate
// that satisfies Predicate, and returns the top TopN by score descending,
// ties broken by lexicographic order of the lineup's hitter indices.
func Run(ctx context.Context, req Request) ([]lineup.ScoredLineup, error) {
	m := len(req.FreeHitters)
	if m != len(req.FreeSlots) {
		return nil, fmt.Errorf("%w: %d free slots but %d free hitters", lineup.ErrMalformedRequest, len(req.FreeSlots), m)
	}

	base := lineup.Lineup{}
	for slot, hitter := range req.Fixed {
		base[slot] = hitter
	}

	if m == 0 {
		if !req.Predicate(base) {
			return nil, lineup.ErrNoFeasibleLineup
		}
		score := scoreFn(base, req.Tensor)
		return []lineup.ScoredLineup{{Order: base, Score: score}}, nil
	}

	total := factorial(m)
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total {
		workers = total
	}

	resultsCh := make(chan []lineup.ScoredLineup, workers)
	errCh := make(chan error, workers)
	doneCh := make(chan struct{})
	defer close(doneCh)

	chunk := total / workers
	remainder := total % workers

	start := 0
	var pending int
	for w := 0; w < workers; w++ {
		size := chunk
		if w < remainder {
			size++
		}
		if size == 0 {
			continue
		}
		pending++
		go worker(ctx, req, base, start, size, resultsCh, errCh)
		start += size
	}

	var merged []lineup.ScoredLineup
	var firstErr error
	for i := 0; i < pending; i++ {
		select {
		case err := <-errCh:
			if firstErr == nil {
				firstErr = err
			}
		case res := <-resultsCh:
			merged = append(merged, res...)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sortScoredLineups(merged)

	if len(merged) == 0 {
		return nil, lineup.ErrNoFeasibleLineup
	}

	n := req.TopN
	if n <= 0 || n > len(merged) {
		n = len(merged)
	}
	return merged[:n], nil
}

func worker(ctx context.Context, req Request, base lineup.Lineup, rankStart, count int, resultsCh chan<- []lineup.ScoredLineup, errCh chan<- error) {
	h := newTopNHeap(req.TopN)
	perm := unrank(rankStart, req.FreeHitters)

	evaluated := 0
	for i := 0; i < count; i++ {
		if i > 0 {
			nextPermutation(perm)
		}

		candidate := base
		for idx, slot := range req.FreeSlots {
			candidate[slot] = perm[idx]
		}

		// Check once per candidate batch AND on the first iteration, so a
		// worker whose whole assigned range is smaller than
		// cancelCheckInterval still observes ctx at least once instead of
		// running its entire range to completion regardless of deadline.
		if evaluated%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				errCh <- ctxErr(ctx)
				return
			default:
			}
		}
		evaluated++

		if !req.Predicate(candidate) {
			continue
		}
		score := scoreFn(candidate, req.Tensor)
		offer(h, lineup.ScoredLineup{Order: candidate, Score: score})
	}

	resultsCh <- h.items
}

func offer(h *topNHeap, sl lineup.ScoredLineup) {
	if !h.full() {
		heap.Push(h, sl)
		return
	}
	if sl.Score > h.min() {
		heap.Pop(h)
		heap.Push(h, sl)
	}
}

func ctxErr(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return lineup.ErrDeadlineExceeded
	}
	return lineup.ErrCancelled
}

// sortScoredLineups orders by score descending, ties broken by
// lexicographic order of the lineup's hitter indices — independent of
// which worker discovered which candidate, so results are deterministic
// regardless of thread count.
func sortScoredLineups(items []lineup.ScoredLineup) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return lexLess(items[i].Order, items[j].Order)
	})
}

func lexLess(a, b lineup.Lineup) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func factorial(n int) int {
	r := 1
	for i := 2; i <= n; i++ {
		r *= i
	}
	return r
}

// unrank produces the rank-th permutation (0-indexed, lexicographic order
// over items sorted ascending) using the factorial number system.
func unrank(rank int, items []int) []int {
	n := len(items)
	avail := make([]int, n)
	copy(avail, items)
	sort.Ints(avail)

	result := make([]int, n)
	for i := 0; i < n; i++ {
		f := factorial(n - 1 - i)
		idx := rank / f
		rank %= f
		result[i] = avail[idx]
		avail = append(avail[:idx], avail[idx+1:]...)
	}
	return result
}

// nextPermutation advances arr in place to the next lexicographically
// greater permutation (standard algorithm). The caller guarantees it is
// never invoked past the last permutation in its assigned range.
func nextPermutation(arr []int) bool {
	n := len(arr)
	i := n - 2
	for i >= 0 && arr[i] >= arr[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := n - 1
	for arr[j] <= arr[i] {
		j--
	}
	arr[i], arr[j] = arr[j], arr[i]
	for l, r := i+1, n-1; l < r; l, r = l+1, r-1 {
		arr[l], arr[r] = arr[r], arr[l]
	}
	return true
}
