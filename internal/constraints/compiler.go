// Package constraints translates a request's high-level constraints — fixed
// batting positions and cyclic handedness-run caps — into a reduced search
// domain and a fast lineup predicate.
package constraints

import (
	"fmt"

	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
)

// Compiled is the output of compiling a lineup.ConstraintSet against a
// roster of hitters.
type Compiled struct {
	FreeSlots   []int
	FreeHitters []int
	Predicate   func(lineup.Lineup) bool
}

// Compile validates the fixed-position map and builds the free-slot /
// free-hitter lists plus the cyclic handedness predicate. It does not run
// the feasibility pre-check — call CheckFeasible separately before search.
func Compile(cs lineup.ConstraintSet, handedness []lineup.Handedness) (Compiled, error) {
	n := len(handedness)

	usedSlots := make(map[int]bool, len(cs.Fixed))
	usedHitters := make(map[int]bool, len(cs.Fixed))
	for slot, hitter := range cs.Fixed {
		if slot < 0 || slot >= lineup.NumSlots {
			return Compiled{}, fmt.Errorf("%w: fixed slot %d out of range 0..%d", lineup.ErrMalformedConstraints, slot, lineup.NumSlots-1)
		}
		if hitter < 0 || hitter >= n {
			return Compiled{}, fmt.Errorf("%w: fixed hitter index %d out of range 0..%d", lineup.ErrMalformedConstraints, hitter, n-1)
		}
		if usedSlots[slot] {
			return Compiled{}, fmt.Errorf("%w: slot %d assigned more than once", lineup.ErrMalformedConstraints, slot)
		}
		if usedHitters[hitter] {
			return Compiled{}, fmt.Errorf("%w: hitter %d assigned to more than one slot", lineup.ErrMalformedConstraints, hitter)
		}
		usedSlots[slot] = true
		usedHitters[hitter] = true
	}

	freeSlots := make([]int, 0, lineup.NumSlots-len(usedSlots))
	for s := 0; s < lineup.NumSlots; s++ {
		if !usedSlots[s] {
			freeSlots = append(freeSlots, s)
		}
	}
	freeHitters := make([]int, 0, n-len(usedHitters))
	for h := 0; h < n; h++ {
		if !usedHitters[h] {
			freeHitters = append(freeHitters, h)
		}
	}

	predicate := func(order lineup.Lineup) bool {
		return CheckHandedness(order, handedness, cs.MaxConsecutiveLeft, cs.MaxConsecutiveRight)
	}

	return Compiled{FreeSlots: freeSlots, FreeHitters: freeHitters, Predicate: predicate}, nil
}

// CheckHandedness reports whether order satisfies the cyclic left/right
// run caps. The lineup wraps: slot 8 is adjacent to slot 0. A cap of 0
// means "no cap". SWITCH hitters break both runs.
func CheckHandedness(order lineup.Lineup, handedness []lineup.Handedness, maxLeft, maxRight int) bool {
	if maxLeft <= 0 && maxRight <= 0 {
		return true
	}
	n := len(order)
	tokens := make([]lineup.Handedness, 2*n)
	for i := 0; i < 2*n; i++ {
		tokens[i] = handedness[order[i%n]]
	}

	longestRun := func(target lineup.Handedness) int {
		run, max := 0, 0
		for _, tok := range tokens {
			if tok == target {
				run++
				if run > max {
					max = run
				}
			} else {
				run = 0
			}
		}
		return max
	}

	if maxLeft > 0 && longestRun(lineup.Left) > maxLeft {
		return false
	}
	if maxRight > 0 && longestRun(lineup.Right) > maxRight {
		return false
	}
	return true
}

// HandednessCounts tallies the handedness of a set of hitter indices,
// which is all the feasibility pre-check needs — the identity of
// same-handed hitters is interchangeable for run-length purposes.
type HandednessCounts struct {
	Left, Right, Switch int
}

func CountHandedness(indices []int, handedness []lineup.Handedness) HandednessCounts {
	var c HandednessCounts
	for _, idx := range indices {
		switch handedness[idx] {
		case lineup.Left:
			c.Left++
		case lineup.Right:
			c.Right++
		default:
			c.Switch++
		}
	}
	return c
}

// CheckFeasible runs a depth-first search over the nine batting-order
// handedness tokens (fixed slots pinned, free slots drawn from the free
// hitter pool by handedness bucket) to determine whether any arrangement
// satisfies the caps. It returns as soon as one satisfying arrangement is
// found, or exhausts the space and reports infeasibility.
func CheckFeasible(fixed map[int]lineup.Handedness, free HandednessCounts, maxLeft, maxRight int) bool {
	assignment := make([]lineup.Handedness, lineup.NumSlots)
	fixedMask := make([]bool, lineup.NumSlots)
	for slot, h := range fixed {
		assignment[slot] = h
		fixedMask[slot] = true
	}
	return feasibleDFS(assignment, fixedMask, free, 0, maxLeft, maxRight)
}

func feasibleDFS(assignment []lineup.Handedness, fixedMask []bool, free HandednessCounts, slot, maxLeft, maxRight int) bool {
	if slot == lineup.NumSlots {
		return checkHandednessTokens(assignment, maxLeft, maxRight)
	}
	if fixedMask[slot] {
		if !runPrefixOK(assignment, slot, maxLeft, maxRight) {
			return false
		}
		return feasibleDFS(assignment, fixedMask, free, slot+1, maxLeft, maxRight)
	}

	if free.Left > 0 {
		assignment[slot] = lineup.Left
		free.Left--
		if runPrefixOK(assignment, slot, maxLeft, maxRight) && feasibleDFS(assignment, fixedMask, free, slot+1, maxLeft, maxRight) {
			return true
		}
		free.Left++
	}
	if free.Right > 0 {
		assignment[slot] = lineup.Right
		free.Right--
		if runPrefixOK(assignment, slot, maxLeft, maxRight) && feasibleDFS(assignment, fixedMask, free, slot+1, maxLeft, maxRight) {
			return true
		}
		free.Right++
	}
	if free.Switch > 0 {
		assignment[slot] = lineup.Switch
		free.Switch--
		if feasibleDFS(assignment, fixedMask, free, slot+1, maxLeft, maxRight) {
			return true
		}
		free.Switch++
	}
	return false
}

// runPrefixOK prunes a partial assignment as soon as the run ending at
// slot (not yet considering wraparound) exceeds its cap.
func runPrefixOK(assignment []lineup.Handedness, slot, maxLeft, maxRight int) bool {
	target := assignment[slot]
	if target != lineup.Left && target != lineup.Right {
		return true
	}
	runCap := maxRight
	if target == lineup.Left {
		runCap = maxLeft
	}
	if runCap <= 0 {
		return true
	}
	run := 0
	for i := slot; i >= 0 && assignment[i] == target; i-- {
		run++
	}
	return run <= runCap
}

func checkHandednessTokens(assignment []lineup.Handedness, maxLeft, maxRight int) bool {
	n := len(assignment)
	tokens := make([]lineup.Handedness, 2*n)
	for i := 0; i < 2*n; i++ {
		tokens[i] = assignment[i%n]
	}
	longestRun := func(target lineup.Handedness) int {
		run, max := 0, 0
		for _, tok := range tokens {
			if tok == target {
				run++
				if run > max {
					max = run
				}
			} else {
				run = 0
			}
		}
		return max
	}
	if maxLeft > 0 && longestRun(lineup.Left) > maxLeft {
		return false
	}
	if maxRight > 0 && longestRun(lineup.Right) > maxRight {
		return false
	}
	return true
}
