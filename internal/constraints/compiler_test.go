package constraints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
)

func allHanded(h lineup.Handedness, n int) []lineup.Handedness {
	out := make([]lineup.Handedness, n)
	for i := range out {
		out[i] = h
	}
	return out
}

func TestCompile_NoConstraints(t *testing.T) {
	handedness := allHanded(lineup.Right, 9)
	compiled, err := Compile(lineup.ConstraintSet{}, handedness)
	require.NoError(t, err)
	assert.Len(t, compiled.FreeSlots, 9)
	assert.Len(t, compiled.FreeHitters, 9)
}

func TestCompile_OutOfRangeSlotIsMalformed(t *testing.T) {
	cs := lineup.ConstraintSet{Fixed: map[int]int{9: 0}}
	_, err := Compile(cs, allHanded(lineup.Right, 9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lineup.ErrMalformedConstraints))
}

func TestCompile_DuplicateHitterIsMalformed(t *testing.T) {
	cs := lineup.ConstraintSet{Fixed: map[int]int{0: 3, 1: 3}}
	_, err := Compile(cs, allHanded(lineup.Right, 9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lineup.ErrMalformedConstraints))
}

func TestCompile_FreeSlotsExcludeFixed(t *testing.T) {
	cs := lineup.ConstraintSet{Fixed: map[int]int{0: 4}}
	compiled, err := Compile(cs, allHanded(lineup.Right, 9))
	require.NoError(t, err)
	assert.Len(t, compiled.FreeSlots, 8)
	assert.NotContains(t, compiled.FreeSlots, 0)
	assert.Len(t, compiled.FreeHitters, 8)
	assert.NotContains(t, compiled.FreeHitters, 4)
}

func TestCheckHandedness_NoCapAlwaysPasses(t *testing.T) {
	order := lineup.Lineup{0, 1, 2, 3, 4, 5, 6, 7, 8}
	handedness := allHanded(lineup.Left, 9)
	assert.True(t, CheckHandedness(order, handedness, 0, 0))
}

func TestCheckHandedness_UniformLineupFailsAnyFiniteCap(t *testing.T) {
	order := lineup.Lineup{0, 1, 2, 3, 4, 5, 6, 7, 8}
	handedness := allHanded(lineup.Left, 9)
	assert.False(t, CheckHandedness(order, handedness, 2, 0))
}

func TestCheckHandedness_WraparoundIsEnforced(t *testing.T) {
	// Slots 7,8 are LEFT and slot 0 is LEFT too: a run of 3 wraps the cycle.
	handedness := []lineup.Handedness{
		lineup.Left, lineup.Right, lineup.Right, lineup.Right, lineup.Right,
		lineup.Right, lineup.Right, lineup.Left, lineup.Left,
	}
	order := lineup.Lineup{0, 1, 2, 3, 4, 5, 6, 7, 8}
	assert.False(t, CheckHandedness(order, handedness, 2, 0))
	assert.True(t, CheckHandedness(order, handedness, 3, 0))
}

func TestCheckHandedness_SwitchBreaksRun(t *testing.T) {
	handedness := []lineup.Handedness{
		lineup.Left, lineup.Left, lineup.Switch, lineup.Left, lineup.Left,
		lineup.Right, lineup.Right, lineup.Right, lineup.Right,
	}
	order := lineup.Lineup{0, 1, 2, 3, 4, 5, 6, 7, 8}
	assert.True(t, CheckHandedness(order, handedness, 2, 4))
}

func TestCheckFeasible_NineLeftWithLmax2IsInfeasible(t *testing.T) {
	free := HandednessCounts{Left: 9}
	assert.False(t, CheckFeasible(nil, free, 2, 0))
}

func TestCheckFeasible_MixedHandsWithinCapIsFeasible(t *testing.T) {
	free := HandednessCounts{Left: 5, Right: 4}
	assert.True(t, CheckFeasible(nil, free, 2, 2))
}

func TestCheckFeasible_FixedSlotsAreRespected(t *testing.T) {
	fixed := map[int]lineup.Handedness{0: lineup.Left, 1: lineup.Left, 2: lineup.Left}
	free := HandednessCounts{Right: 6}
	// Three fixed LEFTs in a row already violate a cap of 2, regardless of
	// how the remaining six RIGHT hitters get arranged.
	assert.False(t, CheckFeasible(fixed, free, 2, 0))
}

func TestCountHandedness(t *testing.T) {
	handedness := []lineup.Handedness{lineup.Left, lineup.Right, lineup.Switch, lineup.Left}
	c := CountHandedness([]int{0, 1, 2, 3}, handedness)
	assert.Equal(t, HandednessCounts{Left: 2, Right: 1, Switch: 1}, c)
}
