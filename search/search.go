package search

import (
	"container/heap"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/guard"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/ports"
	"github.com/p2pflow/routefinder/routegraph"
)

// Config parameterizes one Run invocation: everything the engine needs
// beyond the graph itself.
type Config struct {
	Source string
	Target string

	MaxHops     int
	ResultLimit int

	Guard    *guard.Guard
	Ordering ports.PathOrdering

	// ToleranceAmplifier is tMax: a successor whose cost exceeds
	// bestTargetCost*(1+ToleranceAmplifier) is pruned. A value <= 0
	// disables this prune (per spec §4.4).
	ToleranceAmplifier decimal.Decimal

	InitialSpendRange *SpendRange
	InitialDesired    *money.Money

	// InitialCost seeds the source state's cost. §4.6 derives the cost
	// metric as spend/productOfConversionRates, which at the seed
	// (product == 1) is simply the spend amount — see DESIGN.md's Open
	// Question note on reconciling this with §4.4's literal "cost 0".
	InitialCost decimal.Decimal

	// Accept is the acceptance callback; nil accepts every candidate
	// that reaches Target. An error aborts the search immediately.
	Accept func(CandidatePath) (bool, error)
}

// Outcome is the result of one Run: the bounded, ranked candidate list and
// the guard's resource report.
type Outcome struct {
	Candidates []CandidatePath
	Report     guard.SearchGuardReport
}

// Run executes the best-first search described in spec §4.4 against g.
func Run(g *routegraph.RouteGraph, cfg Config) (Outcome, error) {
	if cfg.MaxHops < 0 {
		return Outcome{}, ErrBadMaxHops
	}
	if g == nil {
		return Outcome{Report: cfg.Guard.Report()}, nil
	}
	if _, ok := g.Node(cfg.Source); !ok {
		return Outcome{Report: cfg.Guard.Report()}, nil
	}

	reg := newRegistry()
	pq := &priorityQueue{}
	heap.Init(pq)
	results := newResultHeap(cfg.Ordering)
	insertionCounter := 0
	resultInsertionCounter := 0
	var bestTargetCost *decimal.Decimal

	seedSig := stateSignature(cfg.Source, nil)
	seed := &SearchState{
		Node:           cfg.Source,
		Cost:           cfg.InitialCost,
		Hops:           0,
		Signature:      seedSig,
		SpendRange:     cfg.InitialSpendRange,
		Desired:        cfg.InitialDesired,
		insertionIndex: insertionCounter,
	}
	insertionCounter++
	reg.tryRegister(seedSig, seed.Cost, seed.Hops, cfg.Guard)
	heap.Push(pq, &queueItem{state: seed})

	for pq.Len() > 0 {
		if !cfg.Guard.CanExpand() {
			break
		}
		item := heap.Pop(pq).(*queueItem)
		state := item.state

		if reg.isStale(state.Signature, state.Cost, state.Hops) {
			continue
		}

		if state.Node == cfg.Target {
			candidate := CandidatePath{
				Cost:       state.Cost,
				Product:    productFor(cfg.InitialCost, state.Cost),
				Hops:       state.Hops,
				Edges:      state.PathEdges,
				SpendRange: state.SpendRange,
			}
			accept := true
			var err error
			if cfg.Accept != nil {
				accept, err = cfg.Accept(candidate)
				if err != nil {
					return Outcome{}, err
				}
			}
			if accept {
				key := ports.PathOrderKey{
					Cost:           candidate.Cost,
					Hops:           candidate.Hops,
					RouteSignature: candidate.RouteSignature(),
					InsertionOrder: resultInsertionCounter,
				}
				resultInsertionCounter++
				results.Offer(candidate, key, cfg.ResultLimit)
				if bestTargetCost == nil || decimal.Compare(state.Cost, *bestTargetCost, decimal.CanonicalScale) < 0 {
					c := state.Cost
					bestTargetCost = &c
				}
			}

			continue
		}

		if state.Hops >= cfg.MaxHops {
			continue
		}

		cfg.Guard.RecordExpansion()

		node, ok := g.Node(state.Node)
		if !ok {
			continue
		}

		for _, edge := range node.Edges {
			successor, ok, err := expand(state, edge, cfg, bestTargetCost)
			if err != nil {
				return Outcome{}, err
			}
			if !ok {
				continue
			}
			if !reg.tryRegister(successor.Signature, successor.Cost, successor.Hops, cfg.Guard) {
				continue
			}
			successor.insertionIndex = insertionCounter
			insertionCounter++
			heap.Push(pq, &queueItem{state: successor})
		}
	}

	return Outcome{Candidates: results.Sorted(), Report: cfg.Guard.Report()}, nil
}

// productFor recovers the cumulative conversion product implied by
// cost == initialCost/product, for CandidatePath's diagnostic Product
// field; division by zero is impossible here because InitialCost is a
// seed spend amount validated positive upstream (and cost only grows more
// negative-exponent, never to exactly zero, for any real edge rate).
func productFor(initialCost, cost decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return cost
	}
	p, err := initialCost.Div(cost, decimal.CanonicalScale)
	if err != nil {
		return cost
	}

	return p
}

// expand computes the successor SearchState crossing edge from state, or
// (nil, false, nil) if the edge is pruned (capacity, tolerance, or
// dominance at registration time).
func expand(state *SearchState, edge *routegraph.GraphEdge, cfg Config, bestTargetCost *decimal.Decimal) (*SearchState, bool, error) {
	var nextRange *SpendRange
	var nextDesired *money.Money

	if state.SpendRange != nil {
		clipped, ok, err := edgeSupportsAmount(edge, state.SpendRange)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		converted, err := convertRange(edge, clipped)
		if err != nil {
			return nil, false, err
		}
		nextRange = converted

		if state.Desired != nil {
			clampedDesired, err := clampToRange(*state.Desired, clipped)
			if err != nil {
				return nil, false, err
			}
			convertedDesired, err := convertAmount(edge, clampedDesired)
			if err != nil {
				return nil, false, err
			}
			nextDesired = &convertedDesired
		}
	}

	stepCost, err := nextCost(state.Cost, edge)
	if err != nil {
		return nil, false, err
	}

	if bestTargetCost != nil && cfg.ToleranceAmplifier.Sign() > 0 {
		one, err := decimal.FromInt(1, decimal.CanonicalScale)
		if err != nil {
			return nil, false, err
		}
		amplifier, err := one.Add(cfg.ToleranceAmplifier, decimal.CanonicalScale)
		if err != nil {
			return nil, false, err
		}
		frontier, err := bestTargetCost.Mul(amplifier, decimal.CanonicalScale)
		if err != nil {
			return nil, false, err
		}
		if decimal.Compare(stepCost, frontier, decimal.CanonicalScale) > 0 {
			return nil, false, nil
		}
	}

	edges := append(append([]*routegraph.GraphEdge{}, state.PathEdges...), edge)

	return &SearchState{
		Node:       edge.To,
		Cost:       stepCost,
		Hops:       state.Hops + 1,
		PathEdges:  edges,
		Signature:  stateSignature(edge.To, edges),
		SpendRange: nextRange,
		Desired:    nextDesired,
	}, true, nil
}

// nextCost applies spec §4.6's per-edge cost update: dividing by the
// edge's rate on a BUY traversal (base->quote, quantity grows by rate) and
// multiplying on a SELL traversal (quote->base, quantity shrinks by rate),
// keeping cost expressed in source-asset units throughout the path.
func nextCost(cost decimal.Decimal, edge *routegraph.GraphEdge) (decimal.Decimal, error) {
	rate := edge.Rate.Rate()
	if edge.Side == order.BUY {
		return cost.Div(rate, decimal.CanonicalScale)
	}

	return cost.Mul(rate, decimal.CanonicalScale)
}

// applicableCapacity returns the capacity side a SpendRange is checked
// against for edge: grossBaseCapacity for a BUY traversal (holding base,
// about to surrender it gross-of-fees), quoteCapacity for a SELL
// traversal (holding quote, about to spend it) — both expressed in
// edge.From's currency.
func applicableCapacity(edge *routegraph.GraphEdge) routegraph.Capacity {
	if edge.Side == order.BUY {
		return edge.GrossBaseCapacity
	}

	return edge.QuoteCapacity
}

// mandatoryApplicableTotal sums the mandatory segment's extent in the same
// representation as applicableCapacity, or a zero Money in that currency
// if there is no mandatory segment.
func mandatoryApplicableTotal(edge *routegraph.GraphEdge) (money.Money, error) {
	capacity := applicableCapacity(edge)
	for _, seg := range edge.Segments {
		if !seg.IsMandatory {
			continue
		}
		if edge.Side == order.BUY {
			return seg.GrossBase, nil
		}

		return seg.Quote, nil
	}
	z, err := decimal.Zero(capacity.Min.Scale())
	if err != nil {
		return money.Money{}, err
	}

	return money.New(capacity.Min.Currency(), z)
}

// edgeSupportsAmount intersects current with edge's applicable capacity,
// raising the lower bound to the segment mandatory total when that total
// exceeds the capacity's raw minimum. An empty intersection prunes the
// edge unless both current and the capacity floor include zero, in which
// case a degenerate zero-amount range passes through.
func edgeSupportsAmount(edge *routegraph.GraphEdge, current *SpendRange) (*SpendRange, bool, error) {
	capacity := applicableCapacity(edge)
	mandatory, err := mandatoryApplicableTotal(edge)
	if err != nil {
		return nil, false, err
	}

	effectiveMin := capacity.Min
	if cmp, err := money.Compare(mandatory, capacity.Min, -1); err == nil && cmp > 0 {
		effectiveMin = mandatory
	}

	newMin, err := money.Max(current.Min, effectiveMin)
	if err != nil {
		return nil, false, err
	}
	newMax, err := money.Min(current.Max, capacity.Max)
	if err != nil {
		return nil, false, err
	}

	cmp, err := money.Compare(newMin, newMax, -1)
	if err != nil {
		return nil, false, err
	}
	if cmp > 0 {
		if !current.Min.Amount().IsZero() || !effectiveMin.Amount().IsZero() {
			return nil, false, nil
		}
		z, err := decimal.Zero(capacity.Min.Scale())
		if err != nil {
			return nil, false, err
		}
		zeroM, err := money.New(capacity.Min.Currency(), z)
		if err != nil {
			return nil, false, err
		}

		return &SpendRange{Min: zeroM, Max: zeroM}, true, nil
	}

	r, err := NewSpendRange(newMin, newMax)
	if err != nil {
		return nil, false, err
	}

	return &r, true, nil
}

// convertRange maps a SpendRange expressed in edge.From's currency to
// edge.To's currency: multiply by rate on a BUY traversal, divide on a
// SELL traversal.
func convertRange(edge *routegraph.GraphEdge, r *SpendRange) (*SpendRange, error) {
	min, err := convertAmount(edge, r.Min)
	if err != nil {
		return nil, err
	}
	max, err := convertAmount(edge, r.Max)
	if err != nil {
		return nil, err
	}
	out, err := NewSpendRange(min, max)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// convertAmount maps a single Money value across edge the same way
// convertRange does.
func convertAmount(edge *routegraph.GraphEdge, m money.Money) (money.Money, error) {
	if edge.Side == order.BUY {
		return edge.Rate.Convert(m)
	}
	inv, err := edge.Rate.Invert()
	if err != nil {
		return money.Money{}, err
	}

	return inv.Convert(m)
}

// clampToRange clamps m into [r.Min, r.Max].
func clampToRange(m money.Money, r *SpendRange) (money.Money, error) {
	below, err := money.Compare(m, r.Min, -1)
	if err != nil {
		return money.Money{}, err
	}
	if below < 0 {
		return r.Min, nil
	}
	above, err := money.Compare(m, r.Max, -1)
	if err != nil {
		return money.Money{}, err
	}
	if above > 0 {
		return r.Max, nil
	}

	return m, nil
}
