package lineup

import "errors"

// Sentinel errors for the optimizer's error taxonomy. Callers distinguish
// kinds with errors.Is; the request surface maps each to a wire-level code.
var (
	// Input errors: reported verbatim to the caller, no retry.
	ErrMalformedRequest     = errors.New("malformed request")
	ErrMalformedConstraints = errors.New("malformed constraints")
	ErrInvalidStats         = errors.New("invalid hitter stats")
	ErrRateOverflow         = errors.New("derived rates exceed 1.0")

	// Feasibility errors.
	ErrInfeasibleConstraints = errors.New("constraints admit no arrangement")
	ErrNoFeasibleLineup      = errors.New("no lineup satisfied the constraints")

	// Execution errors: no partial results returned.
	ErrCancelled        = errors.New("optimization cancelled")
	ErrDeadlineExceeded = errors.New("optimization deadline exceeded")

	// Internal: recovered locally when possible; surfaced as 500 otherwise.
	ErrNumericInstability = errors.New("numeric instability in BDNRP transition")
)
