package planservice

import (
	"fmt"

	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/guard"
)

var (
	// ErrBadToleranceWindow indicates tMin/tMax fall outside [0,1) or tMin > tMax.
	ErrBadToleranceWindow = fmt.Errorf("%w: planservice: tolerance window must satisfy 0 <= tMin <= tMax < 1", faults.ErrInvalidInput)

	// ErrBadHopLimits indicates minHops < 1 or maxHops < minHops.
	ErrBadHopLimits = fmt.Errorf("%w: planservice: hop limits must satisfy 1 <= minHops <= maxHops", faults.ErrInvalidInput)

	// ErrBadResultLimit indicates resultLimit < 1.
	ErrBadResultLimit = fmt.Errorf("%w: planservice: resultLimit must be >= 1", faults.ErrInvalidInput)

	// ErrZeroSpend indicates a spend amount of exactly zero, under which the
	// residual-tolerance fraction (D - actual)/D is undefined.
	ErrZeroSpend = fmt.Errorf("%w: planservice: spend amount must be > 0", faults.ErrInvalidInput)

	// ErrEmptyTargetCurrency indicates an empty or missing target currency.
	ErrEmptyTargetCurrency = fmt.Errorf("%w: planservice: target currency is empty", faults.ErrInvalidInput)

	// ErrPrecisionViolation indicates the configured scale collapses the
	// tolerance window (spendMin == spendMax == desired while tMax > 0).
	ErrPrecisionViolation = fmt.Errorf("%w: planservice: tolerance window collapsed at this scale", faults.ErrPrecisionViolation)
)

// GuardLimitExceededError is raised by FindBestPlans only when the caller
// opted into Request.ThrowOnGuardLimit and at least one guard flag tripped
// across the whole top-K run. It carries the aggregated report so a caller
// can inspect actual/limit pairs without re-parsing the message.
type GuardLimitExceededError struct {
	Report guard.SearchGuardReport
}

// Error renders the same one-line breach summary as SearchGuardReport.FormatBreach.
func (e *GuardLimitExceededError) Error() string {
	return e.Report.FormatBreach()
}

// Unwrap lets callers match with errors.Is(err, faults.ErrGuardLimitExceeded).
func (e *GuardLimitExceededError) Unwrap() error {
	return faults.ErrGuardLimitExceeded
}
