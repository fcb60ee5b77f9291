package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/lineup-optimizer/internal/bdnrp"
	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
	"github.com/stitts-dev/lineup-optimizer/internal/stats"
)

func buildTestTensor(t *testing.T, n int) *lineup.Tensor {
	t.Helper()
	rates := make([]lineup.HitterRates, n)
	for i := 0; i < n; i++ {
		r, err := stats.DeriveRates(lineup.Counts{
			PA: 600, H: 140 + i, Doubles: 25, Triples: 2, HR: 10 + i, BB: 50, HBP: 5, IBB: 1,
		})
		require.NoError(t, err)
		rates[i] = r
	}
	return bdnrp.Build(rates, nil)
}

func alwaysAccept(lineup.Lineup) bool { return true }

func TestRun_FullSpaceReturnsTopN(t *testing.T) {
	tensor := buildTestTensor(t, 9)
	req := Request{
		Tensor:      tensor,
		FreeSlots:   []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		FreeHitters: []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		Fixed:       map[int]int{},
		Predicate:   alwaysAccept,
		TopN:        5,
		Workers:     4,
	}
	results, err := Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestRun_OneFixedSlotSearchesEightFactorial(t *testing.T) {
	tensor := buildTestTensor(t, 9)
	req := Request{
		Tensor:      tensor,
		FreeSlots:   []int{1, 2, 3, 4, 5, 6, 7, 8},
		FreeHitters: []int{1, 2, 3, 4, 5, 6, 7, 8},
		Fixed:       map[int]int{0: 0},
		Predicate:   alwaysAccept,
		TopN:        1,
		Workers:     4,
	}
	results, err := Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Order[0])
}

func TestRun_AllFixedIsSingleCandidate(t *testing.T) {
	tensor := buildTestTensor(t, 9)
	fixed := map[int]int{}
	for i := 0; i < 9; i++ {
		fixed[i] = i
	}
	req := Request{
		Tensor:      tensor,
		FreeSlots:   nil,
		FreeHitters: nil,
		Fixed:       fixed,
		Predicate:   alwaysAccept,
		TopN:        5,
	}
	results, err := Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestRun_TopNMonotonicity(t *testing.T) {
	tensor := buildTestTensor(t, 9)
	base := Request{
		Tensor:      tensor,
		FreeSlots:   []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		FreeHitters: []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		Fixed:       map[int]int{},
		Predicate:   alwaysAccept,
		Workers:     4,
	}

	top3req := base
	top3req.TopN = 3
	top3, err := Run(context.Background(), top3req)
	require.NoError(t, err)

	top7req := base
	top7req.TopN = 7
	top7, err := Run(context.Background(), top7req)
	require.NoError(t, err)

	require.Len(t, top3, 3)
	require.Len(t, top7, 7)
	for i := 0; i < 3; i++ {
		assert.Equal(t, top3[i], top7[i])
	}
}

func TestRun_PredicateRejectingEverythingIsNoFeasibleLineup(t *testing.T) {
	tensor := buildTestTensor(t, 9)
	req := Request{
		Tensor:      tensor,
		FreeSlots:   []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		FreeHitters: []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		Fixed:       map[int]int{},
		Predicate:   func(lineup.Lineup) bool { return false },
		TopN:        5,
		Workers:     2,
	}
	_, err := Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lineup.ErrNoFeasibleLineup))
}

func TestRun_CancellationWithinBoundedSlack(t *testing.T) {
	tensor := buildTestTensor(t, 9)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	req := Request{
		Tensor:      tensor,
		FreeSlots:   []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		FreeHitters: []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		Fixed:       map[int]int{},
		Predicate:   alwaysAccept,
		TopN:        5,
		Workers:     1,
	}

	start := time.Now()
	_, err := Run(ctx, req)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, lineup.ErrDeadlineExceeded) || errors.Is(err, lineup.ErrCancelled))
	assert.Less(t, elapsed, 2*time.Second)
}

func TestUnrankAndNextPermutation_CoverFullSpace(t *testing.T) {
	items := []int{0, 1, 2, 3}
	perm := unrank(0, items)
	seen := make(map[string]bool)
	for i := 0; i < factorial(4); i++ {
		key := ""
		for _, v := range perm {
			key += string(rune('a' + v))
		}
		assert.False(t, seen[key], "permutation repeated: %v", perm)
		seen[key] = true
		if i < factorial(4)-1 {
			require.True(t, nextPermutation(perm))
		}
	}
	assert.Len(t, seen, factorial(4))
}
