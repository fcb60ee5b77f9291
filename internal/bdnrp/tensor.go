// Package bdnrp computes the Batting-order Dependent Net Run Production
// tensor: for every ordered quadruple of distinct hitters (i,j,k,l), the
// expected runs contributed by hitter l batting with i, j, k immediately
// ahead of him in the order. The model is a small, explicit Markov chain
// over base-occupancy and out count within a single half-inning; it is the
// one fixed contract every caller and reimplementer must reproduce
// bit-for-bit (fixed event order, float32 arithmetic).
package bdnrp

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
)

// Dim is the tensor's axis size: nine batting slots.
const Dim = lineup.NumSlots

// numBaseStates is the number of distinct base-occupancy configurations
// (2^3: first, second, third each occupied or not).
const numBaseStates = 8

// numOutStates is the number of non-terminal out counts (0, 1, 2).
const numOutStates = 3

// terminalState is the absorbing "3 outs, inning over" state index.
const terminalState = numBaseStates * numOutStates

const numStates = terminalState + 1

// event is one plate-appearance outcome. Order matters: it is the fixed
// iteration order the contract requires.
type event int

const (
	eventSingle event = iota
	eventDouble
	eventTriple
	eventHR
	eventWalk // BB, HBP, and IBB all use forced-advance-only semantics
	eventOut
)

// distribution is a probability mass vector over the 25 states (24 live
// base/out combinations plus the terminal state).
type distribution [numStates]float32

func initialDistribution() distribution {
	var d distribution
	d[stateIndex(0, 0)] = 1.0
	return d
}

func stateIndex(base, outs int) int {
	return base*numOutStates + outs
}

// transition returns the post-event base configuration and whether the
// event records an out (the caller decides whether that out ends the
// inning). runsScored is how many runners (including the
// batter) cross the plate on this specific event from this specific base
// state.
func transition(base int, ev event) (newBase int, runsScored int, isOut bool) {
	r1 := base & 1
	r2 := (base >> 1) & 1
	r3 := (base >> 2) & 1

	switch ev {
	case eventSingle:
		// Adopted policy: runners on 2B and 3B both score; the runner on
		// 1B advances to 2B; the batter takes 1B.
		runs := r2 + r3
		newR2 := r1
		newR3 := 0
		newR1 := 1
		return newR1 | newR2<<1 | newR3<<2, runs, false
	case eventDouble:
		runs := r3 + r2
		newR3 := r1
		newR2 := 1
		return 0 | newR2<<1 | newR3<<2, runs, false
	case eventTriple:
		runs := r1 + r2 + r3
		return 1 << 2, runs, false
	case eventHR:
		runs := r1 + r2 + r3 + 1
		return 0, runs, false
	case eventWalk:
		newR1 := 1
		newR2 := r2
		newR3 := r3
		runs := 0
		if r1 == 1 {
			if r2 == 1 {
				if r3 == 1 {
					runs = 1
				}
				newR3 = 1
			}
			newR2 = 1
		}
		return newR1 | newR2<<1 | newR3<<2, runs, false
	case eventOut:
		return base, 0, true
	default:
		return base, 0, false
	}
}

// step applies one hitter's plate appearance to a distribution, returning
// the resulting distribution and the expected runs scored on this single
// step (summed over every state weighted by its incoming mass and the
// event's probability).
func step(d distribution, rates lineup.HitterRates) (distribution, float64) {
	probs := [6]float32{
		rates.Single, rates.Double, rates.Triple, rates.HR,
		rates.BB + rates.HBP + rates.IBB, // walk-type events share one transition
	}
	outProb := float32(1.0) - (rates.Single + rates.Double + rates.Triple + rates.HR + rates.BB + rates.HBP + rates.IBB)
	probs[5] = outProb

	var next distribution
	var expectedRuns float64

	for base := 0; base < numBaseStates; base++ {
		for outs := 0; outs < numOutStates; outs++ {
			mass := d[stateIndex(base, outs)]
			if mass == 0 {
				continue
			}
			for ev := eventSingle; ev <= eventOut; ev++ {
				p := probs[ev]
				if p == 0 {
					continue
				}
				newBase, runs, isOut := transition(base, ev)
				weighted := mass * p
				expectedRuns += float64(weighted) * float64(runs)

				if isOut {
					newOuts := outs + 1
					if newOuts >= numOutStates {
						next[terminalState] += weighted
					} else {
						next[stateIndex(newBase, newOuts)] += weighted
					}
				} else {
					next[stateIndex(newBase, outs)] += weighted
				}
			}
		}
	}
	// Terminal mass carries forward unchanged; no further events apply.
	next[terminalState] += d[terminalState]

	return next, expectedRuns
}

// clampAndRenormalize guards against float32 drift producing a slightly
// negative mass or a sum that drifted off 1.0. Returns true if it had to
// correct anything.
func clampAndRenormalize(d *distribution) bool {
	corrected := false
	var sum float64
	for i, v := range d {
		if v < 0 {
			d[i] = 0
			corrected = true
		}
		sum += float64(d[i])
	}
	if sum <= 0 {
		return corrected
	}
	if math.Abs(sum-1.0) > 1e-5 {
		corrected = true
		scale := float32(1.0 / sum)
		for i := range d {
			d[i] *= scale
		}
	}
	return corrected
}

// Build computes the full 9x9x9x9 tensor for the given hitters' derived
// rates. Entries with a repeated index are left at zero by construction —
// the loop only ever visits pairwise-distinct quadruples.
//
// Work is shared across the 504 (i,j,k) triples: the three-step
// distribution for a triple is computed once, then reused for every valid
// fourth hitter l.
func Build(rates []lineup.HitterRates, log *logrus.Entry) *lineup.Tensor {
	n := len(rates)
	t := lineup.NewTensor(Dim)
	warned := false

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			for k := 0; k < n; k++ {
				if k == i || k == j {
					continue
				}
				dist := initialDistribution()
				var unstable bool
				dist, _ = step(dist, rates[i])
				unstable = clampAndRenormalize(&dist) || unstable
				dist, _ = step(dist, rates[j])
				unstable = clampAndRenormalize(&dist) || unstable
				dist, _ = step(dist, rates[k])
				unstable = clampAndRenormalize(&dist) || unstable

				if unstable && !warned && log != nil {
					log.Warn("BDNRP distribution required clamp+renormalize")
					warned = true
				}

				for l := 0; l < n; l++ {
					if l == i || l == j || l == k {
						continue
					}
					_, runs := step(dist, rates[l])
					t.Set(i, j, k, l, float32(runs))
				}
			}
		}
	}
	return t
}

// Weight is the fixed positional-weight vector: slot p's contribution is
// scaled up the earlier it falls in the order, flattening out at the
// bottom of the lineup. This is a calibration constant of the model, not
// something derived per request.
//
//	W[p] = 1 + (8-p)/9   for p < 8
//	W[8] = 1
func Weight(slot int) float64 {
	if slot >= Dim-1 {
		return 1.0
	}
	return 1.0 + float64(Dim-1-slot)/float64(Dim)
}

// Score evaluates a full nine-hitter order against the tensor using the
// fixed positional weights. Summation order is slot 0 through 8, matching
// the reference model so that scores are bitwise-reproducible across
// runs and worker counts.
func Score(order lineup.Lineup, t *lineup.Tensor) float64 {
	var s float64
	n := Dim
	for pos := 0; pos < n; pos++ {
		p1 := order[((pos-3)%n+n)%n]
		p2 := order[((pos-2)%n+n)%n]
		p3 := order[((pos-1)%n+n)%n]
		p4 := order[pos]
		base := t.Get(p1, p2, p3, p4)
		s += float64(base) * Weight(pos)
	}
	return s
}
