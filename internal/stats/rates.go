// Package stats derives per-plate-appearance event rates from a hitter's
// raw season counts. Pure functions, no logger dependency — mirrors the
// small pure-calculation helpers the rest of this codebase keeps free of
// side effects.
package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
)

const rateOverflowTolerance = 1e-6

// DeriveRates converts a hitter's raw counts into the seven event
// probabilities (1B, 2B, 3B, HR, BB, HBP, IBB) in that fixed order. The
// implicit out-probability is 1 - sum(rates).
//
// Fails with lineup.ErrInvalidStats if PA <= 0 or any count is negative.
// Fails with lineup.ErrRateOverflow if the derived rates sum to more than
// 1 + 1e-6.
func DeriveRates(c lineup.Counts) (lineup.HitterRates, error) {
	if c.PA <= 0 {
		return lineup.HitterRates{}, fmt.Errorf("%w: pa=%d must be positive", lineup.ErrInvalidStats, c.PA)
	}
	for name, v := range map[string]int{
		"h": c.H, "2b": c.Doubles, "3b": c.Triples, "hr": c.HR,
		"bb": c.BB, "hbp": c.HBP, "ibb": c.IBB, "singles": c.Singles,
	} {
		if v < 0 {
			return lineup.HitterRates{}, fmt.Errorf("%w: %s=%d is negative", lineup.ErrInvalidStats, name, v)
		}
	}

	singles := c.Singles
	if expected := c.H - c.Doubles - c.Triples - c.HR; singles == 0 || singles != expected {
		singles = expected
	}
	if singles < 0 {
		return lineup.HitterRates{}, fmt.Errorf("%w: recomputed singles=%d is negative", lineup.ErrInvalidStats, singles)
	}

	pa := float64(c.PA)
	rates := []float64{
		float64(singles) / pa,
		float64(c.Doubles) / pa,
		float64(c.Triples) / pa,
		float64(c.HR) / pa,
		float64(c.BB) / pa,
		float64(c.HBP) / pa,
		float64(c.IBB) / pa,
	}

	if sum := floats.Sum(rates); sum > 1.0+rateOverflowTolerance {
		return lineup.HitterRates{}, fmt.Errorf("%w: sum=%.6f", lineup.ErrRateOverflow, sum)
	}

	return lineup.HitterRates{
		Single: float32(rates[0]),
		Double: float32(rates[1]),
		Triple: float32(rates[2]),
		HR:     float32(rates[3]),
		BB:     float32(rates[4]),
		HBP:    float32(rates[5]),
		IBB:    float32(rates[6]),
	}, nil
}

// Summary is an informational diagnostic (not used by the optimizer core)
// reporting the classic AVG/OBP/SLG/OPS quartet for a hitter's raw counts.
func Summary(c lineup.Counts) (avg, obp, slg, ops float64) {
	if c.PA <= 0 {
		return 0, 0, 0, 0
	}
	pa := float64(c.PA)
	singles := c.H - c.Doubles - c.Triples - c.HR
	avg = float64(c.H) / pa
	obp = float64(c.H+c.BB+c.HBP) / pa
	slg = float64(singles+2*c.Doubles+3*c.Triples+4*c.HR) / pa
	ops = obp + slg
	return avg, obp, slg, ops
}
