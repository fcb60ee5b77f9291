package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
)

// TestFinalValidation_BoundaryBehaviors walks the boundary cases from the
// optimizer's testable-properties list end to end, through the public
// Optimize entry point rather than any one component in isolation.
func TestFinalValidation_BoundaryBehaviors(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}

	t.Run("eight fixed slots collapses search space to one", func(t *testing.T) {
		hitters := nineHitters(names)
		fixed := map[int]string{}
		for i := 0; i < 8; i++ {
			fixed[i] = names[i]
		}
		req := Request{Hitters: hitters, Constraints: &ConstraintInput{Fixed: fixed}, TopN: 5}
		resp, err := Optimize(context.Background(), req, nil)
		require.NoError(t, err)
		require.Len(t, resp.Lineups, 1)
		for i := 0; i < 8; i++ {
			assert.Equal(t, names[i], resp.Lineups[0].Order[i])
		}
	})

	t.Run("all nine fixed bypasses search entirely", func(t *testing.T) {
		hitters := nineHitters(names)
		fixed := map[int]string{}
		for i, n := range names {
			fixed[i] = n
		}
		req := Request{Hitters: hitters, Constraints: &ConstraintInput{Fixed: fixed}, TopN: 5}
		resp, err := Optimize(context.Background(), req, nil)
		require.NoError(t, err)
		require.Len(t, resp.Lineups, 1)
		assert.Equal(t, names, resp.Lineups[0].Order)
	})

	t.Run("cancellation within bounded slack returns no partial results", func(t *testing.T) {
		hitters := nineHitters(names)
		req := Request{Hitters: hitters, TopN: 5, Deadline: time.Nanosecond}
		start := time.Now()
		resp, err := Optimize(context.Background(), req, nil)
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, errors.Is(err, lineup.ErrCancelled) || errors.Is(err, lineup.ErrDeadlineExceeded))
		assert.Less(t, elapsed, 2*time.Second)
	})

	t.Run("expected_runs always equals the top lineup's score", func(t *testing.T) {
		hitters := nineHitters(names)
		req := Request{Hitters: hitters, TopN: 5}
		resp, err := Optimize(context.Background(), req, nil)
		require.NoError(t, err)
		assert.Equal(t, resp.Lineups[0].Score, resp.ExpectedRuns)
	})

	t.Run("derived rate sums stay within tolerance of one", func(t *testing.T) {
		hitters := nineHitters(names)
		req := Request{Hitters: hitters, TopN: 1}
		_, err := Optimize(context.Background(), req, nil)
		require.NoError(t, err)
		// DeriveRates itself enforces the <=1+1e-6 invariant per hitter;
		// a successful Optimize call already exercises that check for all
		// nine hitters in the request.
	})
}
