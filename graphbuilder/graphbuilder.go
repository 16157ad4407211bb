// Package graphbuilder translates an ordered sequence of orders into a
// routegraph.RouteGraph: one GraphEdge per admitted order, its three
// capacities and segment list derived per spec §3/§4.3, grounded on the
// teacher's builder package (builder.Config + functional Option, builder.Build
// assembling a core.Graph from tabular input).
//
// Errors:
//
//	ErrNilOrder - a nil *order.Order was passed to Build.
package graphbuilder

import (
	"fmt"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/ports"
	"github.com/p2pflow/routefinder/routegraph"
)

// ErrNilOrder indicates a nil order was passed to Build.
var ErrNilOrder = fmt.Errorf("%w: graphbuilder: nil order", faults.ErrInvalidInput)

// Option configures a Builder.
type Option func(*Builder)

// WithFilter installs an OrderFilter chain; orders it rejects never reach
// the graph. Calling WithFilter more than once ANDs the filters together.
func WithFilter(f ports.OrderFilter) Option {
	return func(b *Builder) { b.filters = append(b.filters, f) }
}

// Builder assembles a RouteGraph from a slice of orders. The zero Builder
// is usable; New applies any Options.
type Builder struct {
	filters []ports.OrderFilter
	zeroes  map[string]decimal.Decimal
}

// New constructs a Builder with the given Options applied in order.
func New(opts ...Option) *Builder {
	b := &Builder{zeroes: make(map[string]decimal.Decimal)}
	for _, o := range opts {
		o(b)
	}

	return b
}

// Build projects orders into a fresh RouteGraph. Order admission runs
// orders through the Builder's filter chain (logical AND); a rejected
// order contributes no edge. Every remaining order must be non-nil and
// well-formed (order.New's invariants are assumed to already hold).
func (b *Builder) Build(orders []*order.Order) (*routegraph.RouteGraph, error) {
	filter := ports.Chain(b.filters...)
	g := routegraph.New()
	for _, o := range orders {
		if o == nil {
			return nil, ErrNilOrder
		}
		if !filter.Admit(o) {
			continue
		}
		edge, err := b.buildEdge(o)
		if err != nil {
			return nil, err
		}
		if err := g.AddEdge(edge); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// zero returns a cached zero Money for currency at scale, allocating one
// the first time that (currency, scale) pair is requested.
func (b *Builder) zero(currency string, scale int) (money.Money, error) {
	key := fmt.Sprintf("%s:%d", currency, scale)
	if d, ok := b.zeroes[key]; ok {
		return money.New(currency, d)
	}
	d, err := decimal.Zero(scale)
	if err != nil {
		return money.Money{}, err
	}
	b.zeroes[key] = d

	return money.New(currency, d)
}

// buildEdge derives the single GraphEdge a well-formed order projects to.
func (b *Builder) buildEdge(o *order.Order) (*routegraph.GraphEdge, error) {
	from, to := o.Base, o.Quote
	if o.Side == order.SELL {
		from, to = o.Quote, o.Base
	}

	rate, err := o.EffectiveRate()
	if err != nil {
		return nil, err
	}

	baseCap, err := routegraph.NewCapacity(o.Bounds.Min, o.Bounds.Max)
	if err != nil {
		return nil, err
	}

	quoteScale := maxInt(o.Bounds.Min.Scale(), rate.Scale())
	quoteMin := o.Bounds.Min
	if o.Bounds.Min.Amount().IsZero() {
		quoteMin, err = b.zero(o.Quote, quoteScale)
	} else {
		quoteMin, err = rate.Convert(toScale(o.Bounds.Min, quoteScale))
	}
	if err != nil {
		return nil, err
	}
	quoteMax, err := rate.Convert(toScale(o.Bounds.Max, quoteScale))
	if err != nil {
		return nil, err
	}
	quoteCap, err := routegraph.NewCapacity(quoteMin, quoteMax)
	if err != nil {
		return nil, err
	}

	grossMin := o.Bounds.Min
	if o.Bounds.Min.Amount().IsZero() {
		grossMin, err = b.zero(o.Base, o.Bounds.Min.Scale())
	} else {
		grossMin, err = invertGross(o, o.Bounds.Min)
	}
	if err != nil {
		return nil, err
	}
	grossMax, err := invertGross(o, o.Bounds.Max)
	if err != nil {
		return nil, err
	}
	grossCap, err := routegraph.NewCapacity(grossMin, grossMax)
	if err != nil {
		return nil, err
	}

	segments, err := b.buildSegments(o, baseCap, quoteCap, grossCap)
	if err != nil {
		return nil, err
	}

	return &routegraph.GraphEdge{
		From:              from,
		To:                to,
		Side:              o.Side,
		Order:             o,
		Rate:              rate,
		BaseCapacity:      baseCap,
		QuoteCapacity:     quoteCap,
		GrossBaseCapacity: grossCap,
		Segments:          segments,
	}, nil
}

// buildSegments splits an order's capacity into at most one mandatory
// segment [bounds.min, bounds.min] and at most one optional segment
// [0, bounds.max - bounds.min], per spec §3. The mandatory segment is
// omitted when bounds.min == 0; the optional segment is omitted when
// bounds.min == bounds.max.
func (b *Builder) buildSegments(o *order.Order, baseCap, quoteCap, grossCap routegraph.Capacity) ([]routegraph.EdgeSegment, error) {
	var segments []routegraph.EdgeSegment

	if o.Bounds.Min.Amount().Sign() > 0 {
		segments = append(segments, routegraph.EdgeSegment{
			IsMandatory: true,
			Base:        baseCap.Min,
			Quote:       quoteCap.Min,
			GrossBase:   grossCap.Min,
		})
	}

	equalBounds, err := money.Compare(o.Bounds.Min, o.Bounds.Max, -1)
	if err != nil {
		return nil, err
	}
	if equalBounds == 0 {
		return segments, nil
	}

	optBase, err := baseCap.Max.Sub(baseCap.Min, -1)
	if err != nil {
		return nil, err
	}
	optQuote, err := quoteCap.Max.Sub(quoteCap.Min, -1)
	if err != nil {
		return nil, err
	}
	optGross, err := grossCap.Max.Sub(grossCap.Min, -1)
	if err != nil {
		return nil, err
	}
	segments = append(segments, routegraph.EdgeSegment{
		IsMandatory: false,
		Base:        optBase,
		Quote:       optQuote,
		GrossBase:   optGross,
	})

	return segments, nil
}

// invertGross computes the gross base amount that nets to net after the
// order's fee policy is applied, via the optional order.GrossInverter
// capability; a policy without it (or no policy at all) charges no base
// fee, so gross == net.
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

// toScale rescales m to a new scale without changing its currency.
func toScale(m money.Money, scale int) money.Money {
	if m.Scale() == scale {
		return m
	}
	rescaled, err := m.Amount().ToScale(scale)
	if err != nil {
		// Scale is derived from validated operands (Bounds/Rate), both
		// already within [0, decimal.MaxScale]; ToScale cannot fail here.
		return m
	}
	out, err := money.New(m.Currency(), rescaled)
	if err != nil {
		return m
	}

	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
