// Package routegraph defines the directed, capacity-segmented graph the
// path-search engine explores: one GraphNode per asset, one GraphEdge per
// order-direction, each edge carrying base/quote/gross-base capacity ranges
// and a mandatory-plus-optional segment list for capacity accounting.
//
// RouteGraph is shared-immutable after construction: graphbuilder assembles
// it once, and derived top-K views (WithoutOrders) never mutate the
// original. Concurrency follows the teacher's core.Graph discipline — a
// sync.RWMutex guards the node map so independent callers can run
// concurrent read-only searches against one shared graph.
//
// Errors:
//
//	ErrBadCapacity      - a capacity range has min > max.
//	ErrEmptyFingerprint - an edge's fee-policy fingerprint is empty (enforced
//	                      here, at collection-assembly time, per spec open
//	                      question (b)).
package routegraph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
)

var (
	// ErrBadCapacity indicates a capacity range with min > max.
	ErrBadCapacity = fmt.Errorf("%w: routegraph: capacity min > max", faults.ErrInvalidInput)

	// ErrEmptyFingerprint indicates an edge's fee-policy fingerprint is empty.
	ErrEmptyFingerprint = fmt.Errorf("%w: routegraph: fee policy fingerprint is empty", faults.ErrInvalidInput)
)

// Capacity is an inclusive [Min, Max] Money range, Min <= Max, same currency.
type Capacity struct {
	Min money.Money
	Max money.Money
}

// NewCapacity validates and constructs a Capacity.
func NewCapacity(min, max money.Money) (Capacity, error) {
	c, err := money.Compare(min, max, -1)
	if err != nil {
		return Capacity{}, err
	}
	if c > 0 {
		return Capacity{}, fmt.Errorf("%w: min %s > max %s", ErrBadCapacity, min.String(), max.String())
	}

	return Capacity{Min: min, Max: max}, nil
}

// EdgeSegment is a contiguous slice of an edge's capacity: a mandatory
// segment records the order's required minimum fill (one per edge, at
// most); an optional segment records the extra capacity above that minimum
// (one per edge, at most, omitted when Bounds.Min == Bounds.Max). Base,
// Quote, and GrossBase each record this segment's extent in that currency
// representation — the full [bounds.Min, bounds.Min] value for a mandatory
// segment, the [bounds.Max - bounds.Min] extra-capacity value for an
// optional one.
type EdgeSegment struct {
	IsMandatory bool
	Base        money.Money
	Quote       money.Money
	GrossBase   money.Money
}

// GraphEdge is the projection of one Order in one traversal direction: BUY
// orders project from Base to Quote, SELL orders from Quote to Base.
type GraphEdge struct {
	From  string
	To    string
	Side  order.Side
	Order *order.Order
	Rate  money.ExchangeRate

	BaseCapacity      Capacity
	QuoteCapacity     Capacity
	GrossBaseCapacity Capacity

	Segments []EdgeSegment

	insertionIndex int
}

// zeroBase returns a zero Money in e's base currency, at the same scale as
// e.BaseCapacity.Min.
func (e *GraphEdge) zeroBase() (money.Money, error) {
	z, err := decimal.Zero(e.BaseCapacity.Min.Scale())
	if err != nil {
		return money.Money{}, err
	}

	return money.New(e.BaseCapacity.Min.Currency(), z)
}

// MandatoryBaseTotal sums the Base extent of every mandatory segment,
// returning a zero Money in the base currency when there are none.
func (e *GraphEdge) MandatoryBaseTotal() (money.Money, error) {
	total, err := e.zeroBase()
	if err != nil {
		return money.Money{}, err
	}
	for _, seg := range e.Segments {
		if !seg.IsMandatory {
			continue
		}
		total, err = total.Add(seg.Base, -1)
		if err != nil {
			return money.Money{}, err
		}
	}

	return total, nil
}

// MaximumBaseTotal sums the Base extent of every segment (mandatory plus
// optional): the edge's full base-currency capacity.
func (e *GraphEdge) MaximumBaseTotal() (money.Money, error) {
	total, err := e.zeroBase()
	if err != nil {
		return money.Money{}, err
	}
	for _, seg := range e.Segments {
		total, err = total.Add(seg.Base, -1)
		if err != nil {
			return money.Money{}, err
		}
	}

	return total, nil
}

// GraphNode is one asset (currency) and its deterministically ordered
// outgoing edges. All edges in Edges originate from Currency.
type GraphNode struct {
	Currency string
	Edges    []*GraphEdge
}

// edgeLess implements the canonical total edge comparator (spec §3):
// destination currency asc, side (BUY before SELL), fee fingerprint asc,
// effective rate desc, bounds (min then max) asc, insertion index asc.
func edgeLess(a, b *GraphEdge) bool {
	if a.To != b.To {
		return a.To < b.To
	}
	if a.Side != b.Side {
		return a.Side == order.BUY // BUY (0) before SELL (1)
	}
	if fa, fb := a.Order.FeeFingerprint(), b.Order.FeeFingerprint(); fa != fb {
		return fa < fb
	}
	if c := decimal.Compare(a.Rate.Rate(), b.Rate.Rate(), maxScale(a.Rate.Scale(), b.Rate.Scale())); c != 0 {
		return c > 0 // descending: a sorts before b when a's rate is larger
	}
	if c := compareMoney(a.Order.Bounds.Min, b.Order.Bounds.Min); c != 0 {
		return c < 0
	}
	if c := compareMoney(a.Order.Bounds.Max, b.Order.Bounds.Max); c != 0 {
		return c < 0
	}

	return a.insertionIndex < b.insertionIndex
}

func maxScale(a, b int) int {
	if a > b {
		return a
	}

	return b
}

// RouteGraph is the directed, capacity-segmented graph over assets.
type RouteGraph struct {
	mu    sync.RWMutex
	nodes map[string]*GraphNode
}

// New returns an empty RouteGraph.
func New() *RouteGraph {
	return &RouteGraph{nodes: make(map[string]*GraphNode)}
}

// Node returns the node for currency, or (nil, false) if absent.
func (g *RouteGraph) Node(currency string) (*GraphNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[currency]

	return n, ok
}

// Currencies returns every node's currency, sorted ascending.
func (g *RouteGraph) Currencies() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for c := range g.nodes {
		out = append(out, c)
	}
	sort.Strings(out)

	return out
}

// ensureNode returns the node for currency, creating it if absent. Callers
// must hold g.mu for writing.
func (g *RouteGraph) ensureNode(currency string) *GraphNode {
	n, ok := g.nodes[currency]
	if !ok {
		n = &GraphNode{Currency: currency}
		g.nodes[currency] = n
	}

	return n
}

// AddEdge appends e to its origin node's edge list and re-sorts that node's
// edges by the canonical comparator. Intended for use by graphbuilder only;
// e.Order.FeePolicy's fingerprint, if the policy is present, must already be
// non-empty (order.New enforces this at order-construction time) — AddEdge
// re-validates it defensively and returns ErrEmptyFingerprint otherwise.
func (g *RouteGraph) AddEdge(e *GraphEdge) error {
	if e.Order.FeePolicy != nil && e.Order.FeePolicy.Fingerprint() == "" {
		return ErrEmptyFingerprint
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.ensureNode(e.From)
	g.ensureNode(e.To)
	e.insertionIndex = len(n.Edges)
	n.Edges = append(n.Edges, e)
	sort.SliceStable(n.Edges, func(i, j int) bool { return edgeLess(n.Edges[i], n.Edges[j]) })

	return nil
}

// WithoutOrders returns a view of g excluding every edge whose Order is a
// key in excluded. If excluded is empty, returns g itself (no copy). The
// returned graph shares GraphEdge/Order values with g; it never mutates g.
func (g *RouteGraph) WithoutOrders(excluded map[*order.Order]bool) *RouteGraph {
	if len(excluded) == 0 {
		return g
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := New()
	for cur, node := range g.nodes {
		out.ensureNode(cur)
		kept := make([]*GraphEdge, 0, len(node.Edges))
		for _, e := range node.Edges {
			if excluded[e.Order] {
				continue
			}
			kept = append(kept, e)
		}
		out.nodes[cur].Edges = kept
	}

	return out
}

func compareMoney(a, b money.Money) int {
	c, err := money.Compare(a, b, -1)
	if err != nil {
		// Currencies are guaranteed to match within one order's bounds;
		// a mismatch here indicates a programmer error upstream, not
		// reachable through the public API, so treat as equal rather
		// than panicking mid-sort.
		return 0
	}

	return c
}
