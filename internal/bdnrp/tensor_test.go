package bdnrp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
	"github.com/stitts-dev/lineup-optimizer/internal/stats"
)

func averageRates(t *testing.T) lineup.HitterRates {
	t.Helper()
	r, err := stats.DeriveRates(lineup.Counts{PA: 600, H: 150, Doubles: 30, Triples: 3, HR: 20, BB: 60, HBP: 6, IBB: 2})
	require.NoError(t, err)
	return r
}

func TestBuild_DiagonalEntriesAreZero(t *testing.T) {
	rates := make([]lineup.HitterRates, 9)
	for i := range rates {
		rates[i] = averageRates(t)
	}
	tensor := Build(rates, nil)

	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			for k := 0; k < 9; k++ {
				// l == i is a repeated index; tensor must stay zero there.
				assert.Zero(t, tensor.Get(i, j, k, i), "repeated index (i,j,k,i) must be zero")
			}
		}
	}
}

func TestBuild_DistinctQuadrupleIsPositive(t *testing.T) {
	rates := make([]lineup.HitterRates, 9)
	for i := range rates {
		rates[i] = averageRates(t)
	}
	tensor := Build(rates, nil)

	v := tensor.Get(0, 1, 2, 3)
	assert.Greater(t, v, float32(0), "a hitter with non-zero event rates should contribute positive expected runs")
}

func TestWeight_MonotoneDecreasingAcrossOrder(t *testing.T) {
	for p := 0; p < Dim-1; p++ {
		assert.GreaterOrEqual(t, Weight(p), Weight(p+1))
	}
	assert.Equal(t, 1.0, Weight(Dim-1))
}

func TestScore_FixedSummationOrderIsDeterministic(t *testing.T) {
	rates := make([]lineup.HitterRates, 9)
	for i := range rates {
		rates[i] = averageRates(t)
	}
	tensor := Build(rates, nil)

	order := lineup.Lineup{0, 1, 2, 3, 4, 5, 6, 7, 8}
	s1 := Score(order, tensor)
	s2 := Score(order, tensor)
	assert.Equal(t, s1, s2)
}

func TestStep_OutIncrementsOutsWithNoAdvance(t *testing.T) {
	d := initialDistribution()
	allOut := lineup.HitterRates{} // zero rates => out probability 1.0
	next, runs := step(d, allOut)
	assert.Zero(t, runs)
	assert.Equal(t, float32(1.0), next[stateIndex(0, 1)])
}

func TestStep_HomeRunScoresEveryoneAndEmptiesBases(t *testing.T) {
	d := initialDistribution()
	d[stateIndex(0, 0)] = 0
	d[stateIndex(7, 0)] = 1.0 // bases loaded, 0 outs

	allHR := lineup.HitterRates{HR: 1.0}
	next, runs := step(d, allHR)
	assert.Equal(t, float64(4), runs)
	assert.Equal(t, float32(1.0), next[stateIndex(0, 0)])
}

func TestTransition_SingleAdvancesRunnersWithR3AndR2Scoring(t *testing.T) {
	newBase, runs, isOut := transition(0b111, eventSingle) // bases loaded
	assert.False(t, isOut)
	assert.Equal(t, 2, runs) // runners on 2nd and 3rd both score
	// runner from 1st -> 2nd, batter -> 1st, 3rd left empty
	assert.Equal(t, 0b011, newBase)
}

func TestTransition_WalkForcesOnlyWhenBasesAheadAreOccupied(t *testing.T) {
	newBase, runs, isOut := transition(0b001, eventWalk) // runner on 1st only
	assert.False(t, isOut)
	assert.Zero(t, runs)
	assert.Equal(t, 0b011, newBase) // runner forced to 2nd, batter to 1st
}
