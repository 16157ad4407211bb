// Package planservice is the public entry point spec §6 describes: given a
// Request (order book, spend, target, tolerance and hop windows, top-K and
// guard configuration), it builds the routing graph once, then drives the
// exclude-and-rerun top-K loop described in §4.8 — one search.Run per
// iteration, one materialize.Materialize per accepted candidate, one
// tolerance check per materialized plan — until resultLimit plans are found
// or the graph/guards are exhausted. Grounded on tsp/solve.go's dispatcher
// shape: a thin public entry point that validates, delegates to the
// lower-level packages, and wraps errors once at the boundary.
package planservice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/graphbuilder"
	"github.com/p2pflow/routefinder/guard"
	"github.com/p2pflow/routefinder/materialize"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/ports"
	"github.com/p2pflow/routefinder/reachability"
	"github.com/p2pflow/routefinder/search"
)

// Service runs FindBestPlans against a fixed, optional structured logger.
// The zero Service is usable; Logger nil disables all diagnostic logging.
type Service struct {
	Logger *zerolog.Logger
}

// FindBestPlans is the package-level convenience entry point for a Service
// with no logger attached.
func FindBestPlans(ctx context.Context, req Request) (Outcome, error) {
	var s Service

	return s.FindBestPlans(ctx, req)
}

// FindBestPlans validates req, builds the graph once, and drives the top-K
// loop until req.ResultLimit plans are found, the graph is exhausted, or a
// guard budget runs out. When req.ThrowOnGuardLimit is set and any guard
// flag tripped across the run, it returns the partial Outcome alongside a
// non-nil *GuardLimitExceededError — a deliberate deviation from the
// zero-value-on-error idiom so a caller can still inspect whatever plans
// were found before the budget ran out.
func (s Service) FindBestPlans(ctx context.Context, req Request) (Outcome, error) {
	if err := validate(req); err != nil {
		return Outcome{}, err
	}

	desired := req.SpendAmount
	window, err := deriveSpendWindow(desired, req.ToleranceMax)
	if err != nil {
		return Outcome{}, err
	}

	builder := graphbuilder.New(graphbuilder.WithFilter(ports.Chain(req.OrderFilters...)))
	g, err := builder.Build(req.OrderBook)
	if err != nil {
		return Outcome{}, fmt.Errorf("planservice: building graph: %w", err)
	}

	ordering := req.Ordering
	if ordering == nil {
		ordering = ports.DefaultOrdering{}
	}

	source := desired.Currency()
	initialCost, err := desired.Amount().ToScale(decimal.CanonicalScale)
	if err != nil {
		return Outcome{}, err
	}

	excluded := make(map[*order.Order]bool)
	var plans []Plan
	var cumulative guard.SearchGuardReport
	haveCumulative := false

	for len(plans) < req.ResultLimit {
		view := g.WithoutOrders(excluded)

		reach := false
		if _, ok := view.Node(source); ok {
			reach, err = reachability.Reachable(view, source, req.TargetCurrency, req.MaxHops)
			if err != nil {
				return Outcome{}, fmt.Errorf("planservice: reachability precheck: %w", err)
			}
		}
		if !reach {
			s.logNote(&cumulative, haveCumulative, "target unreachable within hop limit, stopping top-K loop")

			break
		}

		remainingExpansions := req.ExpansionLimit
		remainingVisited := req.VisitedStateLimit
		remainingTimeMs := req.TimeBudgetMs
		if haveCumulative {
			remainingExpansions = req.ExpansionLimit - cumulative.Expansions
			remainingVisited = req.VisitedStateLimit - cumulative.VisitedStates
			if remainingTimeMs != nil {
				left := *remainingTimeMs - cumulative.ElapsedMs
				remainingTimeMs = &left
			}
		}
		if remainingExpansions < 1 || remainingVisited < 1 || (remainingTimeMs != nil && *remainingTimeMs <= 0) {
			s.logNote(&cumulative, haveCumulative, "aggregated guard budget exhausted before top-K loop converged")

			break
		}

		it, err := guard.New(remainingExpansions, remainingVisited, remainingTimeMs, req.Clock)
		if err != nil {
			return Outcome{}, err
		}

		spendRange, err := search.NewSpendRange(window.Min, window.Max)
		if err != nil {
			return Outcome{}, err
		}

		var bestKey *ports.PathOrderKey
		var bestPlan materialize.MaterializedPlan
		var bestOrders []*order.Order
		insertionCounter := 0

		accept := func(cand search.CandidatePath) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if cand.Hops < req.MinHops || cand.Hops > req.MaxHops {
				return false, nil
			}

			plan, ok, err := materialize.Materialize(cand.Edges, window.Max, req.TargetCurrency)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}

			residual, err := residualTolerance(desired, plan.ToleranceSpent)
			if err != nil {
				return false, err
			}
			if !withinToleranceWindow(residual, req.ToleranceMin, req.ToleranceMax) {
				return false, nil
			}

			key := ports.PathOrderKey{
				Cost:           cand.Cost,
				Hops:           cand.Hops,
				RouteSignature: cand.RouteSignature(),
				InsertionOrder: insertionCounter,
			}
			insertionCounter++

			if bestKey == nil || ordering.Compare(key, *bestKey) < 0 {
				bestKey = &key
				bestPlan = plan
				bestOrders = search.UsedOrders(cand.Edges)
			}

			return true, nil
		}

		cfg := search.Config{
			Source:             source,
			Target:             req.TargetCurrency,
			MaxHops:            req.MaxHops,
			ResultLimit:        1,
			Guard:              it,
			Ordering:           ordering,
			ToleranceAmplifier: req.ToleranceMax,
			InitialSpendRange:  &spendRange,
			InitialDesired:     &desired,
			InitialCost:        initialCost,
			Accept:             accept,
		}

		out, err := search.Run(view, cfg)
		if err != nil {
			return Outcome{}, fmt.Errorf("planservice: search: %w", err)
		}

		if haveCumulative {
			cumulative = guard.Merge(cumulative, out.Report)
		} else {
			cumulative = out.Report
			haveCumulative = true
		}

		if bestKey == nil {
			s.logNote(&cumulative, haveCumulative, "no further accepted candidate found, stopping top-K loop")

			break
		}

		plan := buildPlan(req, desired, bestPlan)
		plans = append(plans, plan)

		for _, o := range bestOrders {
			excluded[o] = true
		}
	}

	cumulative.ExpansionLimit = req.ExpansionLimit
	cumulative.VisitedStateLimit = req.VisitedStateLimit
	cumulative.TimeBudgetMs = req.TimeBudgetMs

	outcome := Outcome{Plans: plans, GuardReport: cumulative}

	if req.ThrowOnGuardLimit && cumulative.AnyLimitReached() {
		return outcome, &GuardLimitExceededError{Report: cumulative}
	}

	return outcome, nil
}

// buildPlan converts a materialize.MaterializedPlan into the caller-facing
// Plan shape, computing ResidualTolerance and IsLinear along the way.
func buildPlan(req Request, desired money.Money, mp materialize.MaterializedPlan) Plan {
	steps := make([]Step, 0, len(mp.Legs))
	seenCurrency := make(map[string]bool, len(mp.Legs)+1)
	seenCurrency[desired.Currency()] = true
	linear := true

	for i, leg := range mp.Legs {
		steps = append(steps, Step{
			SequenceNumber: i,
			From:           leg.From,
			To:             leg.To,
			Spent:          leg.Spent,
			Received:       leg.Received,
			Fees:           leg.Fees,
			Order:          leg.Order,
		})
		if seenCurrency[leg.To] {
			linear = false
		}
		seenCurrency[leg.To] = true
	}

	residual, err := residualTolerance(desired, mp.ToleranceSpent)
	if err != nil {
		residual = decimal.Decimal{}
	}

	return Plan{
		SourceCurrency:    desired.Currency(),
		TargetCurrency:    req.TargetCurrency,
		TotalSpent:        mp.TotalSpent,
		TotalReceived:     mp.TotalReceived,
		ResidualTolerance: residual,
		StepCount:         len(steps),
		IsLinear:          linear,
		Steps:             steps,
		FeeBreakdown:      mp.FeeBreakdown,
	}
}

// logNote emits a diagnostic line through s.Logger, when one is attached,
// and appends it to report.Notes. haveCumulative gates only the append:
// before any iteration has produced a report the line is logged but not
// recorded in Notes.
func (s Service) logNote(report *guard.SearchGuardReport, haveCumulative bool, note string) {
	if s.Logger == nil {
		return
	}
	if haveCumulative {
		report.Notes = append(report.Notes, note)
	}
	s.Logger.Info().Str("component", "planservice").Msg(note)
}

// validate checks every Request invariant spec §4.6/§4.8/§6 requires
// before any graph work begins.
func validate(req Request) error {
	if req.SpendAmount.Amount().Sign() <= 0 {
		return ErrZeroSpend
	}
	if req.TargetCurrency == "" {
		return ErrEmptyTargetCurrency
	}
	if req.ToleranceMin.Sign() < 0 || req.ToleranceMax.Sign() < 0 {
		return ErrBadToleranceWindow
	}
	one, err := decimal.FromInt(1, decimal.CanonicalScale)
	if err != nil {
		return err
	}
	tMin, err := req.ToleranceMin.ToScale(decimal.CanonicalScale)
	if err != nil {
		return err
	}
	tMax, err := req.ToleranceMax.ToScale(decimal.CanonicalScale)
	if err != nil {
		return err
	}
	if decimal.Compare(tMin, one, decimal.CanonicalScale) >= 0 ||
		decimal.Compare(tMax, one, decimal.CanonicalScale) >= 0 ||
		decimal.Compare(tMin, tMax, decimal.CanonicalScale) > 0 {
		return ErrBadToleranceWindow
	}
	if req.MinHops < 1 || req.MaxHops < req.MinHops {
		return ErrBadHopLimits
	}
	if req.ResultLimit < 1 {
		return ErrBadResultLimit
	}
	if req.ExpansionLimit < 1 || req.VisitedStateLimit < 1 {
		return fmt.Errorf("%w: planservice: expansion/visited-state limits must be >= 1", faults.ErrInvalidInput)
	}

	return nil
}
