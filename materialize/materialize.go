// Package materialize turns an accepted sequence of routegraph.GraphEdge
// hops into a concrete, fee-resolved plan: exactly how much is spent and
// received at every leg, starting from a chosen source-currency spend.
//
// The buy-leg resolver brackets a desired net fill against a gross-spend
// ceiling and rescales proportionally when the ceiling binds — the same
// bottleneck-then-push shape as an augmenting-path max-flow push (find the
// limiting capacity along the path, then commit exactly that much),
// collapsed from a whole-graph computation down to a single leg. The
// sell-leg resolver is its mirror: given an available quote-currency
// budget, finds the largest order-bounds-respecting base fill and
// rescales down when rounding noise pushes the fee-adjusted quote cost
// a hair over budget.
//
// Errors:
//
//	ErrEmptyPath             - an empty edge sequence was passed to Materialize.
//	ErrCurrencyChainBroken   - a leg's input currency doesn't match the
//	                           previous leg's output (or the initial spend).
//	ErrWrongTerminalCurrency - the last leg's output currency isn't the
//	                           requested target.
//
// A (false, nil) return from Materialize or either leg resolver is a
// legitimate "this route cannot be filled" outcome — a rejected candidate,
// not a bug — distinct from a non-nil error, which signals malformed input.
package materialize

import (
	"fmt"
	"sort"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/routegraph"
)

var (
	// ErrEmptyPath indicates Materialize was called with no edges.
	ErrEmptyPath = fmt.Errorf("%w: materialize: edge sequence is empty", faults.ErrInvalidInput)

	// ErrCurrencyChainBroken indicates consecutive legs don't chain currencies.
	ErrCurrencyChainBroken = fmt.Errorf("%w: materialize: currency chain is broken", faults.ErrInvalidInput)

	// ErrWrongTerminalCurrency indicates the last leg's output isn't the target.
	ErrWrongTerminalCurrency = fmt.Errorf("%w: materialize: terminal currency does not match target", faults.ErrInvalidInput)
)

// sellResolutionScale is the fixed scale the sell-leg tolerance check
// operates at, matching the precision a percentage-based relative
// tolerance is meaningfully expressed in.
const sellResolutionScale = 6

// sellResolutionTolerance is the maximum relative deviation (1e-4) between
// a sell leg's budget and its bounds-respecting fee-adjusted cost that the
// rescale step is permitted to absorb. Its job is to mop up HALF_UP
// rounding noise in the rescale ratio, not to excuse a genuine shortfall.
var sellResolutionTolerance = decimal.MustNew("0.0001", sellResolutionScale)

// Leg is one concrete, fee-resolved hop of a materialized plan.
type Leg struct {
	From     string
	To       string
	Order    *order.Order
	Spent    money.Money
	Received money.Money
	Fees     order.FeeBreakdown
}

// FeeEntry is one currency's total fee summed across every leg of a plan.
type FeeEntry struct {
	Currency string
	Amount   money.Money
}

// MaterializedPlan is the concrete outcome of walking an accepted edge
// sequence end to end.
type MaterializedPlan struct {
	TotalSpent     money.Money
	TotalReceived  money.Money
	ToleranceSpent money.Money
	Legs           []Leg
	FeeBreakdown   []FeeEntry
}

// Materialize walks edges in order starting from spend (denominated in
// edges[0].From), resolving each leg against the amount the previous leg
// produced, and rejects (false, nil) the instant any leg cannot be filled.
// The terminal leg's output currency must equal targetCurrency.
func Materialize(edges []*routegraph.GraphEdge, spend money.Money, targetCurrency string) (MaterializedPlan, bool, error) {
	if len(edges) == 0 {
		return MaterializedPlan{}, false, ErrEmptyPath
	}
	if spend.Currency() != edges[0].From {
		return MaterializedPlan{}, false, fmt.Errorf("%w: spend is %s, first edge expects %s", ErrCurrencyChainBroken, spend.Currency(), edges[0].From)
	}

	current := spend
	legs := make([]Leg, 0, len(edges))
	feeTotals := make(map[string]money.Money)
	var firstLegSpent money.Money

	for i, edge := range edges {
		if current.Currency() != edge.From {
			return MaterializedPlan{}, false, fmt.Errorf("%w: leg %d expects %s, have %s", ErrCurrencyChainBroken, i, edge.From, current.Currency())
		}

		var leg Leg
		switch edge.Side {
		case order.BUY:
			fill, ok, err := resolveBuyFill(edge, current)
			if err != nil || !ok {
				return MaterializedPlan{}, false, err
			}
			leg = Leg{From: edge.From, To: edge.To, Order: edge.Order, Spent: fill.GrossSpent, Received: fill.QuoteReceived, Fees: fill.Fees}
			current = fill.QuoteReceived
		case order.SELL:
			fill, ok, err := resolveSellLegAmounts(edge, current)
			if err != nil || !ok {
				return MaterializedPlan{}, false, err
			}
			leg = Leg{From: edge.From, To: edge.To, Order: edge.Order, Spent: fill.QuoteSpent, Received: fill.BaseReceived, Fees: fill.Fees}
			current = fill.BaseReceived
		default:
			return MaterializedPlan{}, false, fmt.Errorf("%w: materialize: unknown order side %v", faults.ErrInvalidInput, edge.Side)
		}
		if i == 0 {
			firstLegSpent = leg.Spent
		}

		legs = append(legs, leg)
		if err := mergeFees(feeTotals, leg.Fees); err != nil {
			return MaterializedPlan{}, false, err
		}
		if i+1 < len(edges) {
			current = rescaleToOrderBounds(current, edges[i+1].Order)
		}
	}

	if current.Currency() != targetCurrency {
		return MaterializedPlan{}, false, fmt.Errorf("%w: reached %s, want %s", ErrWrongTerminalCurrency, current.Currency(), targetCurrency)
	}

	return MaterializedPlan{
		TotalSpent:     firstLegSpent,
		TotalReceived:  current,
		ToleranceSpent: firstLegSpent,
		Legs:           legs,
		FeeBreakdown:   sortedFees(feeTotals),
	}, true, nil
}

// buyFill is the concrete outcome of resolving one BUY-side leg.
type buyFill struct {
	GrossSpent    money.Money
	QuoteReceived money.Money
	Fees          order.FeeBreakdown
}

// resolveBuyFill finds the largest gross base spend not exceeding
// grossCeiling (denominated in edge.From, the order's base currency): it
// seeds at the order's maximum net fill, inverts that through the fee
// policy to a gross cost, and — if that gross cost overshoots the
// ceiling — rescales the net fill by grossCeiling/grossSeed so the gross
// cost lands exactly on the ceiling. Rejects (false, nil) when even the
// order's mandatory minimum cannot be reached within the ceiling.
func resolveBuyFill(edge *routegraph.GraphEdge, grossCeiling money.Money) (buyFill, bool, error) {
	o := edge.Order
	if grossCeiling.Currency() != edge.From {
		return buyFill{}, false, fmt.Errorf("%w: gross ceiling is %s, edge origin is %s", ErrCurrencyChainBroken, grossCeiling.Currency(), edge.From)
	}

	netSeed := o.Bounds.Max
	grossSeed, err := invertGross(o, netSeed)
	if err != nil {
		return buyFill{}, false, err
	}

	cmp, err := money.Compare(grossSeed, grossCeiling, -1)
	if err != nil {
		return buyFill{}, false, err
	}
	if cmp > 0 {
		ratio, err := grossCeiling.Amount().Div(grossSeed.Amount(), decimal.CanonicalScale)
		if err != nil {
			return buyFill{}, false, err
		}
		if ratio.Sign() <= 0 {
			return buyFill{}, false, nil
		}
		scaledNet, err := netSeed.Amount().Mul(ratio, netSeed.Scale())
		if err != nil {
			return buyFill{}, false, err
		}
		netSeed, err = money.New(netSeed.Currency(), scaledNet)
		if err != nil {
			return buyFill{}, false, err
		}
		grossSeed = grossCeiling
	}

	belowMin, err := money.Compare(netSeed, o.Bounds.Min, -1)
	if err != nil {
		return buyFill{}, false, err
	}
	if belowMin < 0 {
		return buyFill{}, false, nil
	}

	quoteReceived, fees, err := o.CalculateEffectiveQuoteAmount(netSeed)
	if err != nil {
		return buyFill{}, false, err
	}
	baseFee, err := grossMinusNet(grossSeed, netSeed)
	if err != nil {
		return buyFill{}, false, err
	}
	fees.BaseFee = baseFee

	return buyFill{GrossSpent: grossSeed, QuoteReceived: quoteReceived, Fees: fees}, true, nil
}

// sellFill is the concrete outcome of resolving one SELL-side leg.
type sellFill struct {
	BaseReceived money.Money
	QuoteSpent   money.Money
	Fees         order.FeeBreakdown
}

// resolveSellLegAmounts converts an available edge.From (quote) budget into
// the largest edge.To (base) fill the order's bounds allow: it converts
// the full budget to base at the inverted rate, clamps to the order's
// maximum, and — if the fee-adjusted quote cost of that clamped fill still
// overshoots the budget by rounding noise — rescales down by
// budget/actualQuote. Rejects (false, nil) when the order's mandatory
// minimum can't be reached, or when the overshoot exceeds
// sellResolutionTolerance (a genuine shortfall, not rounding noise).
func resolveSellLegAmounts(edge *routegraph.GraphEdge, budget money.Money) (sellFill, bool, error) {
	o := edge.Order
	if budget.Currency() != edge.From {
		return sellFill{}, false, fmt.Errorf("%w: budget is %s, edge origin is %s", ErrCurrencyChainBroken, budget.Currency(), edge.From)
	}

	inv, err := edge.Rate.Invert()
	if err != nil {
		return sellFill{}, false, err
	}
	unclamped, err := inv.Convert(budget)
	if err != nil {
		return sellFill{}, false, err
	}

	clamped, err := money.Min(unclamped, o.Bounds.Max)
	if err != nil {
		return sellFill{}, false, err
	}
	belowMin, err := money.Compare(clamped, o.Bounds.Min, -1)
	if err != nil {
		return sellFill{}, false, err
	}
	if belowMin < 0 {
		return sellFill{}, false, nil
	}

	quoteNeeded, fees, err := o.CalculateEffectiveQuoteAmount(clamped)
	if err != nil {
		return sellFill{}, false, err
	}

	cmp, err := money.Compare(quoteNeeded, budget, -1)
	if err != nil {
		return sellFill{}, false, err
	}
	if cmp > 0 {
		within, err := isWithinSellResolutionTolerance(budget, quoteNeeded)
		if err != nil {
			return sellFill{}, false, err
		}
		if !within {
			return sellFill{}, false, nil
		}
		ratio, err := budget.Amount().Div(quoteNeeded.Amount(), decimal.CanonicalScale)
		if err != nil {
			return sellFill{}, false, err
		}
		if ratio.Sign() <= 0 {
			return sellFill{}, false, nil
		}
		rescaledBase, err := clamped.Amount().Mul(ratio, clamped.Scale())
		if err != nil {
			return sellFill{}, false, err
		}
		clamped, err = money.New(clamped.Currency(), rescaledBase)
		if err != nil {
			return sellFill{}, false, err
		}
		fees, err = rescaleFees(fees, ratio)
		if err != nil {
			return sellFill{}, false, err
		}
		quoteNeeded = budget
	}

	return sellFill{BaseReceived: clamped, QuoteSpent: quoteNeeded, Fees: fees}, true, nil
}

// isWithinSellResolutionTolerance reports whether actual lies within
// sellResolutionTolerance of target, relative to max(target, 1e-6) —
// exact equality is required only when both are exactly zero.
func isWithinSellResolutionTolerance(target, actual money.Money) (bool, error) {
	t, a := target.Amount(), actual.Amount()
	if t.IsZero() && a.IsZero() {
		return true, nil
	}
	diff, err := absDiff(t, a, sellResolutionScale)
	if err != nil {
		return false, err
	}
	epsilon := decimal.MustNew("0.000001", sellResolutionScale)
	denom := t
	if decimal.Compare(denom, epsilon, sellResolutionScale) < 0 {
		denom = epsilon
	}
	ratio, err := diff.Div(denom, sellResolutionScale)
	if err != nil {
		return false, err
	}

	return decimal.Compare(ratio, sellResolutionTolerance, sellResolutionScale) <= 0, nil
}

// absDiff returns |a - b| at scale.
func absDiff(a, b decimal.Decimal, scale int) (decimal.Decimal, error) {
	if decimal.Compare(a, b, scale) >= 0 {
		return a.Sub(b, scale)
	}

	return b.Sub(a, scale)
}

// invertGross mirrors graphbuilder.invertGross: a fee policy without the
// GrossInverter capability charges no base fee, so gross == net.
func invertGross(o *order.Order, net money.Money) (money.Money, error) {
	if o.FeePolicy == nil {
		return net, nil
	}
	inverter, ok := o.FeePolicy.(order.GrossInverter)
	if !ok {
		return net, nil
	}

	return inverter.InvertBaseFee(net)
}

// grossMinusNet returns gross-net as a *money.Money, or nil when gross<=net
// (no base fee was actually charged).
func grossMinusNet(gross, net money.Money) (*money.Money, error) {
	cmp, err := money.Compare(gross, net, -1)
	if err != nil {
		return nil, err
	}
	if cmp <= 0 {
		return nil, nil
	}
	diff, err := gross.Sub(net, -1)
	if err != nil {
		return nil, err
	}

	return &diff, nil
}

// rescaleFees scales both legs of a FeeBreakdown by ratio, leaving absent
// legs absent.
func rescaleFees(f order.FeeBreakdown, ratio decimal.Decimal) (order.FeeBreakdown, error) {
	out := f
	if f.BaseFee != nil {
		scaled, err := f.BaseFee.Amount().Mul(ratio, f.BaseFee.Scale())
		if err != nil {
			return order.FeeBreakdown{}, err
		}
		m, err := money.New(f.BaseFee.Currency(), scaled)
		if err != nil {
			return order.FeeBreakdown{}, err
		}
		out.BaseFee = &m
	}
	if f.QuoteFee != nil {
		scaled, err := f.QuoteFee.Amount().Mul(ratio, f.QuoteFee.Scale())
		if err != nil {
			return order.FeeBreakdown{}, err
		}
		m, err := money.New(f.QuoteFee.Currency(), scaled)
		if err != nil {
			return order.FeeBreakdown{}, err
		}
		out.QuoteFee = &m
	}

	return out, nil
}

// mergeFees folds one leg's FeeBreakdown into the running per-currency
// totals, dropping zero-amount legs.
func mergeFees(totals map[string]money.Money, f order.FeeBreakdown) error {
	if f.BaseFee != nil {
		if err := accumulate(totals, *f.BaseFee); err != nil {
			return err
		}
	}
	if f.QuoteFee != nil {
		if err := accumulate(totals, *f.QuoteFee); err != nil {
			return err
		}
	}

	return nil
}

func accumulate(totals map[string]money.Money, m money.Money) error {
	if m.Amount().IsZero() {
		return nil
	}
	existing, ok := totals[m.Currency()]
	if !ok {
		totals[m.Currency()] = m

		return nil
	}
	sum, err := existing.Add(m, -1)
	if err != nil {
		return err
	}
	totals[m.Currency()] = sum

	return nil
}

// sortedFees renders totals as a slice sorted lexicographically by currency.
func sortedFees(totals map[string]money.Money) []FeeEntry {
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	out := make([]FeeEntry, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, FeeEntry{Currency: c, Amount: totals[c]})
	}

	return out
}

// rescaleToOrderBounds rescales m to nextOrder's bounds scale, leaving it
// unchanged on any rounding failure (nextOrder.Bounds.Min's scale is always
// a validated, in-range scale by construction).
func rescaleToOrderBounds(m money.Money, nextOrder *order.Order) money.Money {
	scale := nextOrder.Bounds.Min.Scale()
	if m.Scale() == scale {
		return m
	}
	rescaled, err := m.Amount().ToScale(scale)
	if err != nil {
		return m
	}
	out, err := money.New(m.Currency(), rescaled)
	if err != nil {
		return m
	}

	return out
}
