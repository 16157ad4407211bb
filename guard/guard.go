// Package guard tracks the resource budgets a search run is allowed to
// spend — an expansion counter, a visited-state registry ceiling, and an
// optional wall-clock budget — and produces the aggregated SearchGuardReport
// callers inspect after the fact. Grounded on tsp/bb.go's sparse,
// counter-gated deadline check and dijkstra.Options' MaxDistance-style
// explore-bound test performed at every pop.
//
// Errors:
//
//	ErrBadLimit - an expansion or visited-state limit was <= 0.
package guard

import (
	"fmt"
	"strings"

	"github.com/p2pflow/routefinder/faults"
)

// ErrBadLimit indicates a non-positive expansion or visited-state limit.
var ErrBadLimit = fmt.Errorf("%w: guard: limit must be >= 1", faults.ErrInvalidInput)

// SearchGuardReport is the read-only snapshot of one search run's resource
// consumption and whether any configured budget was exceeded.
type SearchGuardReport struct {
	Expansions    int
	VisitedStates int
	ElapsedMs     float64

	ExpansionLimit    int
	VisitedStateLimit int
	TimeBudgetMs      *float64

	ExpansionLimitReached bool
	VisitedStatesReached  bool
	TimeBudgetReached     bool

	// Notes holds human-readable diagnostic lines contributed by a caller
	// that attached a logger; the guard package itself never populates
	// this, and it does not participate in any invariant.
	Notes []string
}

// AnyLimitReached is the logical OR of the three *Reached flags.
func (r SearchGuardReport) AnyLimitReached() bool {
	return r.ExpansionLimitReached || r.VisitedStatesReached || r.TimeBudgetReached
}

// FormatBreach renders a one-line summary of every tripped limit as
// actual/limit pairs, in the order expansions, visited states, elapsed
// time — the message planservice.GuardLimitExceededError returns from
// Error().
func (r SearchGuardReport) FormatBreach() string {
	var parts []string
	if r.ExpansionLimitReached {
		parts = append(parts, fmt.Sprintf("expansions %d/%d", r.Expansions, r.ExpansionLimit))
	}
	if r.VisitedStatesReached {
		parts = append(parts, fmt.Sprintf("visited states %d/%d", r.VisitedStates, r.VisitedStateLimit))
	}
	if r.TimeBudgetReached && r.TimeBudgetMs != nil {
		parts = append(parts, fmt.Sprintf("elapsed %.3fms/%.0fms", r.ElapsedMs, *r.TimeBudgetMs))
	}
	if len(parts) == 0 {
		return "no guard limit reached"
	}

	return "Search terminated: " + strings.Join(parts, ", ")
}

// Clock returns the current time in seconds; callers inject a monotonic
// source (e.g. time.Since(start).Seconds) so elapsed time is testable
// without a wall-clock dependency.
type Clock func() float64

// Guard tracks one search run's consumption against its configured
// budgets. Not safe for concurrent use — a search run is single-threaded
// per spec §5.
type Guard struct {
	clock Clock
	start float64

	expansions    int
	visitedStates int

	expansionLimit    int
	visitedStateLimit int
	timeBudgetMs      *float64

	expansionReached bool
	visitedReached   bool
	timeReached      bool
}

// New constructs a Guard. expansionLimit and visitedStateLimit must be >=
// 1; timeBudgetMs may be nil to disable the wall-clock budget.
func New(expansionLimit, visitedStateLimit int, timeBudgetMs *float64, clock Clock) (*Guard, error) {
	if expansionLimit < 1 || visitedStateLimit < 1 {
		return nil, ErrBadLimit
	}
	if clock == nil {
		clock = func() float64 { return 0 }
	}

	return &Guard{
		clock:             clock,
		start:             clock(),
		expansionLimit:    expansionLimit,
		visitedStateLimit: visitedStateLimit,
		timeBudgetMs:      timeBudgetMs,
	}, nil
}

// CanExpand checks the wall-clock budget first, then the expansion
// counter, per spec §4.4 step 1. If either is already tripped it sets the
// corresponding flag and returns false; it never decrements or mutates
// counters itself (callers call RecordExpansion separately once they
// actually expand a state).
func (g *Guard) CanExpand() bool {
	if g.timeBudgetMs != nil {
		elapsed := (g.clock() - g.start) * 1000
		if elapsed >= *g.timeBudgetMs {
			g.timeReached = true

			return false
		}
	}
	if g.expansions >= g.expansionLimit {
		g.expansionReached = true

		return false
	}

	return true
}

// RecordExpansion increments the expansion counter. Call once per state
// actually popped and expanded.
func (g *Guard) RecordExpansion() { g.expansions++ }

// RegisterVisitedState attempts to record one new entry in the
// dominance/visited registry, returning false without mutating state if
// the visited-state ceiling has already been reached. Reaching the limit
// flips VisitedStatesReached but does not itself abort the in-flight pop.
func (g *Guard) RegisterVisitedState() bool {
	if g.visitedStates >= g.visitedStateLimit {
		g.visitedReached = true

		return false
	}
	g.visitedStates++

	return true
}

// Report snapshots the guard's current counters and flags.
func (g *Guard) Report() SearchGuardReport {
	return SearchGuardReport{
		Expansions:            g.expansions,
		VisitedStates:         g.visitedStates,
		ElapsedMs:             (g.clock() - g.start) * 1000,
		ExpansionLimit:        g.expansionLimit,
		VisitedStateLimit:     g.visitedStateLimit,
		TimeBudgetMs:          g.timeBudgetMs,
		ExpansionLimitReached: g.expansionReached,
		VisitedStatesReached:  g.visitedReached,
		TimeBudgetReached:     g.timeReached,
	}
}

// Merge combines two reports as the aggregated view spec §4.8 describes for
// the top-K driver's cumulative guard budgeting: counters add, limits are
// taken from b (the later iteration's configured limits, which are
// expected to be identical across iterations in the aggregate-budget
// model), and flags OR together.
func Merge(a, b SearchGuardReport) SearchGuardReport {
	out := SearchGuardReport{
		Expansions:            a.Expansions + b.Expansions,
		VisitedStates:         a.VisitedStates + b.VisitedStates,
		ElapsedMs:             a.ElapsedMs + b.ElapsedMs,
		ExpansionLimit:        b.ExpansionLimit,
		VisitedStateLimit:     b.VisitedStateLimit,
		TimeBudgetMs:          b.TimeBudgetMs,
		ExpansionLimitReached: a.ExpansionLimitReached || b.ExpansionLimitReached,
		VisitedStatesReached:  a.VisitedStatesReached || b.VisitedStatesReached,
		TimeBudgetReached:     a.TimeBudgetReached || b.TimeBudgetReached,
	}
	if len(a.Notes) > 0 || len(b.Notes) > 0 {
		out.Notes = append(append([]string{}, a.Notes...), b.Notes...)
	}

	return out
}
