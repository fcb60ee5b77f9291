// Package optimizer orchestrates the rate deriver, BDNRP engine,
// constraint compiler, and search engine into the single operation the
// request surface exposes: given hitters and optional constraints, return
// the ranked lineups. This is the only layer that knows hitter names —
// everything below it addresses hitters by integer index.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-optimizer/internal/bdnrp"
	"github.com/stitts-dev/lineup-optimizer/internal/constraints"
	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
	"github.com/stitts-dev/lineup-optimizer/internal/search"
	"github.com/stitts-dev/lineup-optimizer/internal/stats"
)

const (
	defaultTopN = 5
	minTopN     = 1
	maxTopN     = 100

	// baselineRunsPerGame is the original model's calibration constant used
	// only for the supplemented, informational expected_runs_above_average
	// field — it never touches the primary expected_runs value.
	baselineRunsPerGame = 4.5
)

// HitterInput is one hitter as it arrives from the request surface, before
// name-to-index resolution.
type HitterInput struct {
	Name       string
	Counts     lineup.Counts
	Handedness lineup.Handedness // "" defaults to RIGHT
}

// ConstraintInput mirrors lineup.ConstraintSet but expresses fixed slots by
// hitter name, the way the wire format does.
type ConstraintInput struct {
	Fixed               map[int]string
	MaxConsecutiveLeft  int
	MaxConsecutiveRight int
}

// Request is one optimization request: exactly nine hitters in canonical
// index order, optional constraints, and search parameters.
//
// DefaultTopN, MaxTopN, Workers, and MaxDeadline carry operator-configured
// limits (internal/config.Config's DefaultTopN/MaxTopN/SearchWorkers/
// SearchTimeout) through from the request surface; a caller that leaves
// them zero gets this package's own fallback defaults, the way the
// teacher's algorithm.go accepts a per-call config struct rather than
// reading global state itself.
type Request struct {
	Hitters     []HitterInput
	Constraints *ConstraintInput
	TopN        int
	Deadline    time.Duration // 0 means no caller-requested deadline

	DefaultTopN int           // 0 => defaultTopN
	MaxTopN     int           // 0 => maxTopN
	Workers     int           // 0 => search engine's own default (runtime.NumCPU())
	MaxDeadline time.Duration // 0 => no server-wide wall-clock cap
}

// LineupResult is one ranked lineup, hitters identified by name.
type LineupResult struct {
	Order []string
	Score float64
}

// Response is the orchestrator's output, mapped onto the wire response by
// the request surface.
type Response struct {
	ExpectedRuns             float64
	Lineups                  []LineupResult
	ExpectedRunsAboveAverage float64
}

// Optimize runs the full C1->C2->C3->C4 pipeline for one request.
func Optimize(ctx context.Context, req Request, log *logrus.Entry) (*Response, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	defTopN := req.DefaultTopN
	if defTopN <= 0 {
		defTopN = defaultTopN
	}
	maxN := req.MaxTopN
	if maxN <= 0 {
		maxN = maxTopN
	}

	topN := req.TopN
	if topN <= 0 {
		topN = defTopN
	}
	if topN < minTopN {
		topN = minTopN
	}
	if topN > maxN {
		topN = maxN
	}

	n := len(req.Hitters)
	nameByIndex := make([]string, n)
	indexByName := make(map[string]int, n)
	handedness := make([]lineup.Handedness, n)
	rates := make([]lineup.HitterRates, n)

	for i, h := range req.Hitters {
		nameByIndex[i] = h.Name
		indexByName[h.Name] = i

		hand := h.Handedness
		if hand == "" {
			hand = lineup.Right
		}
		handedness[i] = hand

		r, err := stats.DeriveRates(h.Counts)
		if err != nil {
			return nil, fmt.Errorf("hitter %q: %w", h.Name, err)
		}
		rates[i] = r
	}

	cs, err := resolveConstraints(req.Constraints, indexByName)
	if err != nil {
		return nil, err
	}

	compiled, err := constraints.Compile(cs, handedness)
	if err != nil {
		return nil, err
	}

	fixedHandedness := make(map[int]lineup.Handedness, len(cs.Fixed))
	for slot, hitterIdx := range cs.Fixed {
		fixedHandedness[slot] = handedness[hitterIdx]
	}
	freeCounts := constraints.CountHandedness(compiled.FreeHitters, handedness)
	if !constraints.CheckFeasible(fixedHandedness, freeCounts, cs.MaxConsecutiveLeft, cs.MaxConsecutiveRight) {
		return nil, lineup.ErrInfeasibleConstraints
	}

	tensor := bdnrp.Build(rates, log)

	deadline := req.Deadline
	if req.MaxDeadline > 0 && (deadline <= 0 || deadline > req.MaxDeadline) {
		deadline = req.MaxDeadline
	}

	searchCtx := ctx
	if deadline > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	scored, err := search.Run(searchCtx, search.Request{
		Tensor:      tensor,
		FreeSlots:   compiled.FreeSlots,
		FreeHitters: compiled.FreeHitters,
		Fixed:       cs.Fixed,
		Predicate:   compiled.Predicate,
		TopN:        topN,
		Workers:     req.Workers,
	})
	if err != nil {
		return nil, err
	}

	lineups := make([]LineupResult, len(scored))
	for i, sl := range scored {
		order := make([]string, n)
		for slot, hitterIdx := range sl.Order {
			order[slot] = nameByIndex[hitterIdx]
		}
		lineups[i] = LineupResult{Order: order, Score: sl.Score}
	}

	best := lineups[0].Score
	return &Response{
		ExpectedRuns:             best,
		Lineups:                  lineups,
		ExpectedRunsAboveAverage: (best + baselineRunsPerGame) * 1.5,
	}, nil
}

func validateRequest(req Request) error {
	if len(req.Hitters) != lineup.NumSlots {
		return fmt.Errorf("%w: expected %d hitters, got %d", lineup.ErrMalformedRequest, lineup.NumSlots, len(req.Hitters))
	}
	seen := make(map[string]bool, len(req.Hitters))
	for _, h := range req.Hitters {
		if h.Name == "" {
			return fmt.Errorf("%w: hitter name must not be empty", lineup.ErrMalformedRequest)
		}
		if seen[h.Name] {
			return fmt.Errorf("%w: duplicate hitter name %q", lineup.ErrMalformedRequest, h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

func resolveConstraints(input *ConstraintInput, indexByName map[string]int) (lineup.ConstraintSet, error) {
	if input == nil {
		return lineup.ConstraintSet{Fixed: map[int]int{}}, nil
	}
	fixed := make(map[int]int, len(input.Fixed))
	for slot, name := range input.Fixed {
		idx, ok := indexByName[name]
		if !ok {
			return lineup.ConstraintSet{}, fmt.Errorf("%w: fixed slot %d references unknown hitter %q", lineup.ErrMalformedConstraints, slot, name)
		}
		fixed[slot] = idx
	}
	return lineup.ConstraintSet{
		Fixed:               fixed,
		MaxConsecutiveLeft:  input.MaxConsecutiveLeft,
		MaxConsecutiveRight: input.MaxConsecutiveRight,
	}, nil
}
