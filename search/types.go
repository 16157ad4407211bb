// Package search implements the tolerance-aware best-first path-search
// engine: a single-threaded min-priority-queue exploration from a source
// currency to a target currency, bounded by hop and resource guards, with
// signature-keyed dominance pruning and an optional acceptance callback.
// Grounded on the teacher's dijkstra package — a min-heap over
// container/heap, a runner struct holding all mutable search state, lazy
// decrease-key via a stale-entry check at pop time — generalized from a
// single distance criterion to the four-field
// (cost, hops, signature, insertionIndex) key this spec requires.
//
// Errors:
//
//	ErrBadMaxHops - MaxHops < 0.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/money"
	"github.com/p2pflow/routefinder/order"
	"github.com/p2pflow/routefinder/routegraph"
)

var (
	// ErrBadMaxHops indicates a negative MaxHops.
	ErrBadMaxHops = fmt.Errorf("%w: search: maxHops must be >= 0", faults.ErrInvalidInput)
)

// SpendRange is an inclusive [Min, Max] Money band in one currency,
// propagated edge-to-edge during the search so capacity pruning can act
// before materialisation.
type SpendRange struct {
	Min money.Money
	Max money.Money
}

// NewSpendRange validates and constructs a SpendRange; Min and Max must
// share a currency and satisfy Min <= Max.
func NewSpendRange(min, max money.Money) (SpendRange, error) {
	c, err := money.Compare(min, max, -1)
	if err != nil {
		return SpendRange{}, err
	}
	if c > 0 {
		min, max = max, min
	}

	return SpendRange{Min: min, Max: max}, nil
}

// SearchState is one node of the best-first frontier: the currency reached,
// the accumulated source-unit cost, hop count, the edge sequence taken to
// get here, a dominance signature, and an optional propagated SpendRange
// and clamped desired amount.
type SearchState struct {
	Node           string
	Cost           decimal.Decimal
	Hops           int
	PathEdges      []*routegraph.GraphEdge
	Signature      string
	SpendRange     *SpendRange
	Desired        *money.Money
	insertionIndex int
}

// CandidatePath is an immutable view of a state that has reached the
// target: its accumulated cost, cumulative conversion product, hop count,
// edge sequence, and (if tracked) the SpendRange at termination.
type CandidatePath struct {
	Cost       decimal.Decimal
	Product    decimal.Decimal
	Hops       int
	Edges      []*routegraph.GraphEdge
	SpendRange *SpendRange
}

// RouteSignature renders the canonical "from->to->...->to" string used as
// the route-signature tiebreaker in PathOrderKey.
func (c CandidatePath) RouteSignature() string {
	return routeSignature(c.Edges)
}

func routeSignature(edges []*routegraph.GraphEdge) string {
	if len(edges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(edges)+1)
	parts = append(parts, edges[0].From)
	for _, e := range edges {
		parts = append(parts, e.To)
	}

	return strings.Join(parts, "->")
}

// stateSignature computes the dominance signature for a state at node
// having traversed edges: node, plus the lexicographically sorted set of
// (order identity, feeFingerprint) pairs used so far, where an order's
// identity is its *Order pointer (Order.ID is not used). Two states that reach the
// same node via the same set of orders (any traversal order) compare
// equal, matching spec §3's "ordered set of order identities" definition.
func stateSignature(node string, edges []*routegraph.GraphEdge) string {
	keys := make([]string, 0, len(edges))
	for _, e := range edges {
		keys = append(keys, fmt.Sprintf("%p", e.Order)+":"+e.Order.FeeFingerprint())
	}
	sort.Strings(keys)

	return node + "|" + strings.Join(keys, ",")
}

// UsedOrders returns the set of order pointers used along edges, for
// top-K exclusion bookkeeping by callers.
func UsedOrders(edges []*routegraph.GraphEdge) []*order.Order {
	out := make([]*order.Order, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Order)
	}

	return out
}
